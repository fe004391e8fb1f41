package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"widgets", "user_permissions", "users"} {
				if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)

		accounts := []struct {
			Username string
			Email    string
			Role     string
		}{
			{"admin", "admin@example.com", "admin"},
			{"manager", "manager@example.com", "manager"},
			{"demo", "demo@example.com", "user"},
		}

		ids := map[string]string{}
		for _, a := range accounts {
			var id string
			row := db.Raw("SELECT id FROM users WHERE username = ?", a.Username).Row()
			if err := row.Scan(&id); err == nil {
				fmt.Printf("user %s already exists\n", a.Username)
				ids[a.Username] = id
				continue
			}

			id = uuid.NewString()
			if err := db.Exec(
				"INSERT INTO users (id, username, email, password_hash, role, disabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, false, now(), now())",
				id, a.Username, a.Email, string(hash), a.Role).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", a.Username, err)
			}
			ids[a.Username] = id
			fmt.Printf("Seeded user %s (%s)\n", a.Username, a.Role)
		}

		// The demo account gets one ad-hoc grant beyond its role baseline so
		// the two-set permission model is visible out of the box.
		var exists int
		row := db.Raw("SELECT 1 FROM user_permissions WHERE user_id = ? AND permission = ?", ids["demo"], "create:widget").Row()
		if err := row.Scan(&exists); err != nil {
			if err := db.Exec(
				"INSERT INTO user_permissions (user_id, permission, created_at) VALUES (?, ?, now())",
				ids["demo"], "create:widget").Error; err != nil {
				log.Fatalf("failed to grant permission to demo user: %v", err)
			}
			fmt.Println("Granted create:widget to demo user")
		}

		widgets := []struct {
			Name     string
			Price    float64
			Quantity int
			Category string
		}{
			{"Sprocket", 9.99, 100, "mechanical"},
			{"Gear Assembly", 24.50, 40, "mechanical"},
			{"Control Panel", 129.00, 12, "electronics"},
			{"Indicator Lamp", 3.25, 500, "electronics"},
		}

		for _, w := range widgets {
			var exists int
			row := db.Raw("SELECT 1 FROM widgets WHERE owner_id = ? AND name = ?", ids["demo"], w.Name).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}

			if err := db.Exec(
				"INSERT INTO widgets (id, name, price, quantity, category, owner_id, created_at) VALUES (?, ?, ?, ?, ?, ?, now())",
				uuid.NewString(), w.Name, w.Price, w.Quantity, w.Category, ids["demo"]).Error; err != nil {
				log.Fatalf("failed to insert widget %s: %v", w.Name, err)
			}
			fmt.Printf("Seeded widget: %s\n", w.Name)
		}

		fmt.Println("Seeding complete")
	},
}
