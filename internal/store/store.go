// Package store is the spatial backend adapter: it owns the connection
// to PostgreSQL, the schema, and the per-entity repositories that
// implement the upsert/delete/query contract the routing and conflict
// engines are built on.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/skypath/gis/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// Store wraps a database connection with the bounded pool and
// repositories that sit on top of it.
type Store struct {
	*sql.DB
	cfg  config.DatabaseConfig
	pool *Pool

	Vertiports  *VertiportRepository
	Waypoints   *WaypointRepository
	Zones       *ZoneRepository
	Aircraft    *AircraftRepository
	FlightPaths *FlightPathRepository
}

// Connect opens a connection to the spatial backend and wires its
// bounded acquisition pool.
func Connect(dbCfg config.DatabaseConfig, poolCfg config.PoolConfig) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host, dbCfg.Port, dbCfg.Username, dbCfg.Password, dbCfg.Database, dbCfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	s := &Store{
		DB:   sqlDB,
		cfg:  dbCfg,
		pool: NewPool(poolCfg),
	}
	s.Vertiports = &VertiportRepository{store: s}
	s.Waypoints = &WaypointRepository{store: s}
	s.Zones = &ZoneRepository{store: s}
	s.Aircraft = &AircraftRepository{store: s}
	s.FlightPaths = &FlightPathRepository{store: s}

	return s, nil
}

// InitSchema creates the schema if it does not already exist. Safe to
// call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := s.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// PruneLocationHistory deletes node_locations samples older than
// maxAge, keeping the most recent sample per node regardless of age so
// that candidate_nodes_at never loses a non-aircraft node's position.
func (s *Store) PruneLocationHistory(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)
	_, err := s.ExecContext(ctx, `
		DELETE FROM node_locations nl
		WHERE nl.sample_t < $1
		  AND nl.sample_t < (
			SELECT MAX(sample_t) FROM node_locations nl2 WHERE nl2.node_id = nl.node_id
		  )`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune location history: %w", err)
	}
	return nil
}

// Stats reports row counts for the service's readiness/monitoring surface.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)
	for table, key := range map[string]string{
		"vertiports":   "vertiports",
		"waypoints":    "waypoints",
		"aircraft":     "aircraft",
		"zones":        "zones",
		"flight_paths": "flight_paths",
	} {
		var n int64
		if err := s.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[key] = n
	}
	return stats, nil
}
