// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/postr/config"
	"github.com/d60-Lab/postr/pkg/database"
)

var seq atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the calling test.
// The pool is pinned to one connection so every query sees the same memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:          "sqlite",
			DSN:             fmt.Sprintf("file:postr_test_%d?mode=memory&cache=shared", seq.Add(1)),
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			LogLevel:        "silent",
		},
	}
	db, err := database.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// PostgresDSNEnv names the variable holding a disposable Postgres database for tests
// that need real row locks. Its tables are truncated before each use.
const PostgresDSNEnv = "POSTR_TEST_PG_DSN"

// NewPostgresDB returns a migrated, emptied Postgres database with a multi-connection pool,
// or skips the test when PostgresDSNEnv is unset.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:          "postgres",
			DSN:             dsn,
			MaxOpenConns:    16,
			MaxIdleConns:    16,
			ConnMaxLifetime: time.Hour,
			LogLevel:        "silent",
		},
	}
	db, err := database.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, db.Exec("TRUNCATE likes, follows, posts_history, posts, users").Error)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Clock is a manually advanced time source.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}
