package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDatabaseURLEnv names the variable that enables database-backed tests
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// SetupTestDB connects to TEST_DATABASE_URL and prepares the schema,
// skipping the test when the variable is unset
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping database test", TestDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDBFromURL(ctx, url)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		t.Fatalf("failed to prepare test schema: %v", err)
	}

	return db
}

// TeardownTestDB removes rows written under tickers and closes the pool
func TeardownTestDB(t *testing.T, db *DB, tickers ...string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, ticker := range tickers {
		if _, err := db.pool.Exec(ctx, "DELETE FROM price_bars WHERE ticker = $1", ticker); err != nil {
			t.Logf("warning: failed to clean price_bars: %v", err)
		}
		if _, err := db.pool.Exec(ctx, "DELETE FROM price_ranges WHERE ticker = $1", ticker); err != nil {
			t.Logf("warning: failed to clean price_ranges: %v", err)
		}
	}
	db.Close()
}
