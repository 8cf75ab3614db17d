package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/store"
	"github.com/hrygo/agentcache/store/db"
)

// NewTestingStore opens a migrated store for the driver named by the
// DRIVER environment variable (sqlite by default).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	p, err := profile.Load(viper.New(), "")
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}

	p.Mode = "dev"
	p.Driver = getDriverFromEnv()
	switch p.Driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.Data = t.TempDir()
		p.DSN = filepath.Join(p.Data, "agentcache_test.db")
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("invalid testing profile: %v", err)
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
