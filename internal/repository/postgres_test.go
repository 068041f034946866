package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/room-booking/internal/database"
)

// Set ROOMBOOK_TEST_DATABASE_URL to a disposable database to run these.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("ROOMBOOK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROOMBOOK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPool(ctx, database.Config{URL: url, MaxConns: 60}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.MigratePostgres(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	runStoreContract(t, func(t *testing.T) Store {
		if _, err := pool.Exec(ctx, `TRUNCATE reservations, booking_locks`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return NewPostgresStore(pool, PostgresOptions{LockTimeout: 10 * time.Second, MaxRetries: 3})
	})
}
