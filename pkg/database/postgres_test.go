package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nickpio/top-earning-parser/pkg/config"
)

// testConfig builds a pool config pointing at DATABASE_URL, skipping
// the test when no database is available.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func TestNewConnectsAndPings(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestStatsReflectPoolConfig(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if got, want := stats.MaxConns, int32(cfg.Database.MaxConns); got != want {
		t.Errorf("Stats().MaxConns = %d, want %d", got, want)
	}
	// New pings the pool, so at least one acquire has happened.
	if stats.AcquireCount < 1 {
		t.Errorf("Stats().AcquireCount = %d, want >= 1", stats.AcquireCount)
	}
	if stats.TotalConns < 1 {
		t.Errorf("Stats().TotalConns = %d, want >= 1", stats.TotalConns)
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	// Parsing fails before any connection attempt, so this needs no
	// database.
	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: "://not-a-connection-string"},
	}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("New() with malformed URL succeeded, want error")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := testConfig(t)

	db, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	db.Close()
	db.Close()

	// A DB that never opened a pool closes without panicking.
	empty := &DB{}
	empty.Close()
}
