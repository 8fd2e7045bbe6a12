//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load("../../.env.test"); err != nil {
		fmt.Printf("Warning: .env.test file not found: %v\n", err)
	}
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL environment variable is not set")
	}

	if err := database.MigrateUp(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	db, err := database.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean up before each test
	_, err = db.Pool.Exec(context.Background(),
		`TRUNCATE users, sessions, two_factor_tokens, rate_limits, companies, pdv_integrations,
		 pdv_license_groups, pdv_license_branches, contaazul_integrations, contaazul_customers,
		 contaazul_receivables, events RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}
