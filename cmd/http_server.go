package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/widgetlabs/widget-api/internal"
	"github.com/widgetlabs/widget-api/internal/auth"
	authpostgres "github.com/widgetlabs/widget-api/internal/auth/postgres"
	"github.com/widgetlabs/widget-api/internal/observability"
	"github.com/widgetlabs/widget-api/internal/platform/cache"
	"github.com/widgetlabs/widget-api/internal/ratelimit"
	"github.com/widgetlabs/widget-api/internal/transport/rest"
	"github.com/widgetlabs/widget-api/internal/user"
	userpostgres "github.com/widgetlabs/widget-api/internal/user/postgres"
	"github.com/widgetlabs/widget-api/internal/widget"
	widgetpostgres "github.com/widgetlabs/widget-api/internal/widget/postgres"
	"github.com/widgetlabs/widget-api/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.App.Env)
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		lg.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		lg.Error("failed to initialize orm", "error", err)
		os.Exit(1)
	}

	// The cache is best effort: when Redis is unreachable the API runs
	// uncached rather than refusing to start.
	var widgetCache *cache.Cache
	redisClient, err := cache.Connect(context.Background(), cfg.Redis.URI)
	if err != nil {
		lg.Warn("redis unavailable, running without cache", "error", err)
	} else {
		widgetCache = cache.New(redisClient, cfg.Cache.DefaultTTL)
	}

	metrics := observability.New()

	limiter := ratelimit.New(ratelimit.Config{
		AnonLimit:          cfg.RateLimit.AnonRequests,
		AuthLimit:          cfg.RateLimit.AuthRequests,
		Window:             cfg.RateLimit.Window,
		CountAuthAgainstIP: cfg.RateLimit.CountAuthAgainstIP,
	})

	tokens, err := auth.NewJWTTokenGenerator(cfg.Security.SecretKey, cfg.Security.Algorithm, cfg.Security.AccessTokenExpire)
	if err != nil {
		lg.Error("failed to initialize token generator", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(authpostgres.NewAuthRepository(gormDB), tokens)
	authHandler := auth.NewHandler(authService)
	rbac := auth.NewRBACAuthorization(lg)

	widgetService := widget.NewService(widgetpostgres.NewWidgetRepository(gormDB), widgetCache, metrics)
	widgetHandler := widget.NewHandler(lg, widgetService)

	userService := user.NewService(userpostgres.NewUserRepository(gormDB), widgetService, cfg.Security.BCryptCost)
	userHandler := user.NewHandler(lg, userService)

	router := rest.NewRouter(rest.Deps{
		Config:        cfg,
		DB:            db,
		Metrics:       metrics,
		Limiter:       limiter,
		AuthHandler:   authHandler,
		RBAC:          rbac,
		UserHandler:   userHandler,
		WidgetHandler: widgetHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "address", addr, "tls", cfg.Server.SSLCertFile != "")

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if cfg.Server.SSLCertFile != "" && cfg.Server.SSLKeyFile != "" {
			serverErrChan <- server.ListenAndServeTLS(cfg.Server.SSLCertFile, cfg.Server.SSLKeyFile)
			return
		}
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := db.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
		if err := cache.Close(); err != nil {
			slog.Error("Cache close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

// initDB initializes the database connection pool.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
