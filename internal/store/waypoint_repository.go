package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/pkg/geo"
)

// WaypointRepository manages fixed aerial crossing points.
type WaypointRepository struct {
	store *Store
}

// UpsertWaypoint atomically creates or updates a waypoint, appending a
// new location sample on update.
func (r *WaypointRepository) UpsertWaypoint(ctx context.Context, label string, point geo.Point, minAltM float64) (Waypoint, error) {
	if err := geo.ValidatePoint(point); err != nil {
		return Waypoint{}, err
	}

	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return Waypoint{}, err
	}
	defer release()

	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return Waypoint{}, fmt.Errorf("%w: begin upsert_waypoint: %v", apierr.StoreUnavailable, err)
	}
	defer tx.Rollback()

	var nodeID int64
	err = tx.QueryRowContext(ctx, `SELECT node_id FROM waypoints WHERE label = $1`, label).Scan(&nodeID)

	switch {
	case err == sql.ErrNoRows:
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO nodes (kind) VALUES ($1) RETURNING id`, KindWaypoint,
		).Scan(&nodeID); err != nil {
			return Waypoint{}, fmt.Errorf("failed to allocate waypoint node: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO waypoints (label, node_id, min_alt_m) VALUES ($1, $2, $3)`,
			label, nodeID, minAltM,
		); err != nil {
			return Waypoint{}, fmt.Errorf("failed to insert waypoint: %w", err)
		}
	case err != nil:
		return Waypoint{}, fmt.Errorf("failed to query waypoint: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE waypoints SET min_alt_m = $1 WHERE label = $2`, minAltM, label); err != nil {
			return Waypoint{}, fmt.Errorf("failed to update waypoint: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO node_locations (node_id, sample_t, latitude, longitude, altitude_m) VALUES ($1, $2, $3, $4, $5)`,
		nodeID, time.Now().UTC(), point.Lat, point.Lon, 0,
	); err != nil {
		return Waypoint{}, fmt.Errorf("failed to record waypoint location sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Waypoint{}, fmt.Errorf("%w: commit upsert_waypoint: %v", apierr.StoreUnavailable, err)
	}

	return Waypoint{Label: label, NodeID: nodeID, MinAltM: minAltM, Location: point}, nil
}

// DeleteWaypoint removes a waypoint, its node, and its location
// samples atomically (cascade via nodes FK).
func (r *WaypointRepository) DeleteWaypoint(ctx context.Context, label string) error {
	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var nodeID int64
	err = r.store.QueryRowContext(ctx, `SELECT node_id FROM waypoints WHERE label = $1`, label).Scan(&nodeID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: waypoint %s", apierr.UnknownEndpoint, label)
	}
	if err != nil {
		return fmt.Errorf("failed to look up waypoint: %w", err)
	}

	if _, err := r.store.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, nodeID); err != nil {
		return fmt.Errorf("failed to delete waypoint node: %w", err)
	}
	return nil
}

// Get returns a waypoint by label, or apierr.UnknownEndpoint if absent.
func (r *WaypointRepository) Get(ctx context.Context, label string) (Waypoint, error) {
	var w Waypoint
	err := r.store.QueryRowContext(ctx, `
		SELECT w.node_id, w.min_alt_m, nl.latitude, nl.longitude
		FROM waypoints w
		JOIN LATERAL (
			SELECT latitude, longitude FROM node_locations
			WHERE node_id = w.node_id ORDER BY sample_t DESC LIMIT 1
		) nl ON true
		WHERE w.label = $1`, label,
	).Scan(&w.NodeID, &w.MinAltM, &w.Location.Lat, &w.Location.Lon)

	if err == sql.ErrNoRows {
		return Waypoint{}, fmt.Errorf("%w: waypoint %s", apierr.UnknownEndpoint, label)
	}
	if err != nil {
		return Waypoint{}, fmt.Errorf("failed to get waypoint: %w", err)
	}
	w.Label = label
	return w, nil
}
