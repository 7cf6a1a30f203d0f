package db

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// openTestDB connects to MURMUR_TEST_DATABASE_URL with an empty public
// schema, or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("MURMUR_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("MURMUR_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(database.Close)

	if _, err := database.Pool().Exec(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return database
}

func TestMigrateTwicePostgres(t *testing.T) {
	database := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("migrate (pass 1): %v", err)
	}
	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("migrate (pass 2): %v", err)
	}

	files, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}

	var applied int
	if err := database.Pool().QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != len(files) {
		t.Errorf("expected %d recorded migrations, got %d", len(files), applied)
	}

	var name string
	if err := database.Pool().QueryRow(ctx, `SELECT name FROM channels WHERE id = 1`).Scan(&name); err != nil {
		t.Fatalf("read default channel: %v", err)
	}
	if name != "general" {
		t.Errorf("expected general, got %q", name)
	}

	// The seed moves the sequence past the default channel.
	var next int64
	err = database.Pool().QueryRow(ctx,
		`INSERT INTO channels (name) VALUES ('random') RETURNING id`).Scan(&next)
	if err != nil {
		t.Fatalf("insert channel: %v", err)
	}
	if next <= 1 {
		t.Errorf("expected a fresh channel id above 1, got %d", next)
	}

	if err := database.Health(ctx); err != nil {
		t.Errorf("health: %v", err)
	}
}
