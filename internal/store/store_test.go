package store

import (
	"testing"

	"github.com/skypath/gis/pkg/config"
)

// TestConnect exercises connection-string construction and pool sizing.
// It tolerates the absence of a live Postgres instance, matching the
// best-effort style of this backend's connection tests elsewhere in the
// codebase: when no database is reachable we only check that Connect
// fails with a descriptive error rather than panicking.
func TestConnect(t *testing.T) {
	dbCfg := config.DatabaseConfig{
		Host:         "localhost",
		Port:         5432,
		Username:     "testuser",
		Password:     "testpass",
		Database:     "testdb",
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}
	poolCfg := config.PoolConfig{MinConns: 1, MaxConns: 5, AcquireTimeoutMS: 250}

	s, err := Connect(dbCfg, poolCfg)
	if err != nil {
		if err.Error() == "" {
			t.Error("expected non-empty error message")
		}
		return
	}
	defer s.Close()

	if s.DB == nil {
		t.Error("expected DB field to be initialized")
	}
	if s.cfg.Host != dbCfg.Host {
		t.Errorf("cfg.Host = %q, want %q", s.cfg.Host, dbCfg.Host)
	}
	if s.Vertiports == nil || s.Waypoints == nil || s.Zones == nil || s.Aircraft == nil || s.FlightPaths == nil {
		t.Error("expected all repositories to be wired")
	}
}
