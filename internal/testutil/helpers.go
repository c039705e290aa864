package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// PostgresDSN returns the integration-test Postgres DSN, or "" when none
// is configured.
func PostgresDSN() string {
	return os.Getenv("AUCTION_TEST_POSTGRES_DSN")
}

// NATSURL returns the integration-test NATS URL, or "" when none is
// configured.
func NATSURL() string {
	return os.Getenv("AUCTION_TEST_NATS_URL")
}

// SetupTestDB opens the integration-test database, skipping the test when
// no DSN is configured. The connection is closed on cleanup.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := PostgresDSN()
	if dsn == "" {
		t.Skip("AUCTION_TEST_POSTGRES_DSN not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
