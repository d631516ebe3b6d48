package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
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

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"notifications", "payments", "reservations", "listings", "users"} {
				if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email string
			Name  string
		}{
			{"amina@mail.com", "Amina"},
			{"okello@mail.com", "Okello"},
		}

		for _, u := range users {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM users WHERE email = $1", u.Email).Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at) VALUES ($1, $2, $3, true, now(), now())",
				u.Email, u.Name, string(hash)); err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		var ownerID int64
		if err := db.QueryRow("SELECT id FROM users WHERE email = $1", users[0].Email).Scan(&ownerID); err != nil {
			log.Fatalf("failed to lookup owner user id: %v", err)
		}

		listings := []struct {
			Title       string
			ListingType string
			Region      string
			Price       int64
			Currency    string
			Bedrooms    int
		}{
			{"Two bedroom apartment in Kololo", "rental", "Kampala", 1500000, "UGX", 2},
			{"Family house in Ntinda", "purchase", "Kampala", 450000000, "UGX", 4},
			{"Lakeside cottage in Entebbe", "short_stay", "Entebbe", 250000, "UGX", 1},
		}

		for _, l := range listings {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM listings WHERE title = $1", l.Title).Scan(&exists); err == nil {
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO listings (owner_id, title, listing_type, region, price, currency, bedrooms, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())",
				ownerID, l.Title, l.ListingType, l.Region, l.Price, l.Currency, l.Bedrooms); err != nil {
				log.Fatalf("failed to insert listing %s: %v", l.Title, err)
			}
			fmt.Printf("Seeded listing: %s\n", l.Title)
		}

		fmt.Println("Sample data seeded successfully")
	},
}
