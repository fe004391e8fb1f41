package rest

import (
	"net/http"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/widgetlabs/widget-api/internal"
	"github.com/widgetlabs/widget-api/internal/auth"
	"github.com/widgetlabs/widget-api/internal/observability"
	"github.com/widgetlabs/widget-api/internal/ratelimit"
	"github.com/widgetlabs/widget-api/internal/transport/middleware"
	"github.com/widgetlabs/widget-api/internal/transport/swagger"
	"github.com/widgetlabs/widget-api/internal/user"
	"github.com/widgetlabs/widget-api/internal/widget"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Metrics *observability.Metrics
	Limiter *ratelimit.Limiter

	AuthHandler   *auth.Handler
	RBAC          *auth.RBACAuthorization
	UserHandler   *user.Handler
	WidgetHandler *widget.Handler
}

// NewRouter assembles the full route table. Middleware order matters: the
// rate limiter runs before authentication so rejected requests never cost a
// token lookup, and metrics wrap everything so 429s are counted too.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.SecureHeaders(deps.Config.App.Env != "production"))
	r.Use(middleware.CORS(deps.Config.CORS))
	r.Use(deps.Metrics.Middleware)
	r.Use(middleware.RateLimit(deps.Limiter))

	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Get("/openapi.yml", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, "api/openapi.yml")
	})
	r.Mount("/swagger", swagger.Handler())

	r.Post("/token", deps.AuthHandler.Token)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", deps.UserHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthHandler.AuthMiddleware)

			r.With(deps.RBAC.RequireActive()).Get("/me", deps.UserHandler.GetCurrent)
			r.With(deps.RBAC.RequirePermission(auth.PermReadUser)).Get("/", deps.UserHandler.List)
			r.With(deps.RBAC.RequirePermission(auth.PermReadUser)).Get("/{user_id}", deps.UserHandler.GetByID)
			r.With(deps.RBAC.RequireActive()).Patch("/{user_id}", deps.UserHandler.Update)
			r.With(deps.RBAC.RequirePermission(auth.PermManageRoles)).Patch("/{user_id}/role", deps.UserHandler.UpdateRole)
			r.With(deps.RBAC.RequirePermission(auth.PermManageRoles)).Patch("/{user_id}/status", deps.UserHandler.UpdateStatus)
			r.With(deps.RBAC.RequirePermission(auth.PermManageRoles)).Post("/{user_id}/permissions", deps.UserHandler.GrantPermission)
			r.With(deps.RBAC.RequirePermission(auth.PermDeleteUser)).Delete("/{user_id}", deps.UserHandler.Delete)
		})
	})

	r.Route("/widgets", func(r chi.Router) {
		r.Use(deps.AuthHandler.AuthMiddleware)

		r.With(deps.RBAC.RequirePermission(auth.PermCreateWidget)).Post("/", deps.WidgetHandler.Create)
		r.With(deps.RBAC.RequirePermission(auth.PermReadWidget)).Get("/", deps.WidgetHandler.List)
		r.With(deps.RBAC.RequirePermission(auth.PermReadWidget)).Get("/count", deps.WidgetHandler.Count)
		r.With(deps.RBAC.RequirePermission(auth.PermReadWidget)).Get("/{widget_id}", deps.WidgetHandler.Get)
		r.With(deps.RBAC.RequirePermission(auth.PermUpdateWidget)).Patch("/{widget_id}", deps.WidgetHandler.Update)
		r.With(deps.RBAC.RequirePermission(auth.PermDeleteWidget)).Delete("/{widget_id}", deps.WidgetHandler.Delete)
	})

	return r
}
