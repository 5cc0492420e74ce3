package product

import (
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openTestDB connects to the database named by THREADLINE_DB_DSN. Repository
// tests that need real Postgres skip when it is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn, ok := os.LookupEnv("THREADLINE_DB_DSN")
	if !ok || dsn == "" {
		t.Skip("THREADLINE_DB_DSN is not set")
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}
