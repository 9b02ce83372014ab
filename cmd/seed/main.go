package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/gosimple/slug"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-blog/config"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
)

var categories = []string{"News", "Tutorials", "Announcements"}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	dsn := cfg.PostgresDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := getenv("SEED_EMAIL", "editor@example.com")
	username := getenv("SEED_USERNAME", "editor")
	password := getenv("SEED_PASSWORD", "Editor-Desk-2024!")
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// staff account; rerunning resets the password and revokes old tokens
	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, username, password_hash, first_name, is_staff, is_superuser)
		VALUES ($1, $2, $3, 'Editor', TRUE, TRUE)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    is_staff = TRUE,
		    token_version = users.token_version + 1,
		    updated_at = now()
		RETURNING id
	`, email, username, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded staff user: id=%s email=%s username=%s password=%s\n", id, email, username, password)

	for _, name := range categories {
		var catID string
		if err := db.QueryRow(`
			INSERT INTO categories (name, slug) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name, slug.Make(name)).Scan(&catID); err != nil {
			log.Fatalf("failed to upsert category %q: %v", name, err)
		}
		fmt.Printf("category ensured: %s (%s)\n", name, catID)
	}
}
