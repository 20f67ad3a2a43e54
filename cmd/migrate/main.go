package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/permgate/permgate/perms"
)

func main() {
	// Load .env file
	if err := godotenv.Load("../../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found")
		}
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	migrationPath := "migrations/001_init.sql"
	if len(os.Args) > 1 {
		migrationPath = os.Args[1]
	}
	content, err := os.ReadFile(migrationPath)
	if err != nil {
		cwd, _ := os.Getwd()
		log.Printf("Current working directory: %s", cwd)
		log.Fatalf("Failed to read migration file: %v", err)
	}

	log.Println("Running migration...")
	if _, err := db.Exec(string(content)); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration applied successfully!")

	if os.Getenv("SEED_DEFAULTS") == "false" {
		return
	}

	ctx := context.Background()
	store := perms.NewSQLRuleStore(db)
	count, err := store.CountRules(ctx, perms.DefaultRealm)
	if err != nil {
		log.Fatalf("Failed to inspect rule table: %v", err)
	}
	if count > 0 {
		log.Printf("Rule table already has %d rules, skipping seed", count)
		return
	}

	log.Println("Seeding default rule set...")
	if err := perms.SeedDefaults(ctx, store); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Default rules installed!")
}
