package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/pkg/geo"
)

// AircraftRepository manages aircraft nodes and their monotonic
// telemetry history.
type AircraftRepository struct {
	store *Store
}

// UpsertAircraft applies a telemetry sample to an aircraft's node.
// Monotonic by tSample: a sample not newer than the stored last_updated is
// rejected (applied=false, no error) rather than overwriting history.
// On acceptance, any location samples strictly newer than tSample are
// deleted before the new one is inserted, keeping the history
// consistent with a single authoritative timeline.
func (r *AircraftRepository) UpsertAircraft(ctx context.Context, callsign, uuid string, point geo.Point, altM float64, tSample time.Time) (applied bool, err error) {
	if callsign == "" {
		return false, fmt.Errorf("%w: missing callsign", apierr.BadTelemetry)
	}
	if !geo.IsFiniteFloat(altM) {
		return false, fmt.Errorf("%w: non-finite altitude", apierr.BadTelemetry)
	}
	if err := geo.ValidatePoint(point); err != nil {
		return false, fmt.Errorf("%w: %v", apierr.BadTelemetry, err)
	}
	if tSample.After(time.Now().UTC().Add(24 * time.Hour)) {
		return false, fmt.Errorf("%w: timestamp far in future", apierr.BadTelemetry)
	}

	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin upsert_aircraft: %v", apierr.StoreUnavailable, err)
	}
	defer tx.Rollback()

	var nodeID int64
	var lastUpdated time.Time
	err = tx.QueryRowContext(ctx, `SELECT node_id, last_updated FROM aircraft WHERE callsign = $1`, callsign).
		Scan(&nodeID, &lastUpdated)

	switch {
	case err == sql.ErrNoRows:
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO nodes (kind) VALUES ($1) RETURNING id`, KindAircraft,
		).Scan(&nodeID); err != nil {
			return false, fmt.Errorf("failed to allocate aircraft node: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO aircraft (callsign, uuid, node_id, altitude_m, last_updated) VALUES ($1, $2, $3, $4, $5)`,
			callsign, nullableUUID(uuid), nodeID, altM, tSample,
		); err != nil {
			return false, fmt.Errorf("failed to insert aircraft: %w", err)
		}

	case err != nil:
		return false, fmt.Errorf("failed to query aircraft: %w", err)

	default:
		if !tSample.After(lastUpdated) {
			// Stale sample: silently discarded per the monotonicity invariant.
			return false, nil
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM node_locations WHERE node_id = $1 AND sample_t > $2`, nodeID, tSample,
		); err != nil {
			return false, fmt.Errorf("failed to clear newer aircraft samples: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE aircraft SET altitude_m = $1, last_updated = $2 WHERE callsign = $3`,
			altM, tSample, callsign,
		); err != nil {
			return false, fmt.Errorf("failed to update aircraft: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO node_locations (node_id, sample_t, latitude, longitude, altitude_m) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (node_id, sample_t) DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, altitude_m = EXCLUDED.altitude_m`,
		nodeID, tSample, point.Lat, point.Lon, altM,
	); err != nil {
		return false, fmt.Errorf("failed to insert aircraft location sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit upsert_aircraft: %v", apierr.StoreUnavailable, err)
	}

	return true, nil
}

// DeleteAircraft removes an aircraft, its node, and its location
// history atomically.
func (r *AircraftRepository) DeleteAircraft(ctx context.Context, callsign string) error {
	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var nodeID int64
	err = r.store.QueryRowContext(ctx, `SELECT node_id FROM aircraft WHERE callsign = $1`, callsign).Scan(&nodeID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: aircraft %s", apierr.UnknownEndpoint, callsign)
	}
	if err != nil {
		return fmt.Errorf("failed to look up aircraft: %w", err)
	}

	if _, err := r.store.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, nodeID); err != nil {
		return fmt.Errorf("failed to delete aircraft node: %w", err)
	}
	return nil
}

// Get returns an aircraft's current state by callsign.
func (r *AircraftRepository) Get(ctx context.Context, callsign string) (Aircraft, error) {
	var a Aircraft
	var uuid sql.NullString
	err := r.store.QueryRowContext(ctx, `
		SELECT a.node_id, a.uuid, a.altitude_m, a.last_updated, nl.latitude, nl.longitude
		FROM aircraft a
		JOIN LATERAL (
			SELECT latitude, longitude FROM node_locations
			WHERE node_id = a.node_id ORDER BY sample_t DESC LIMIT 1
		) nl ON true
		WHERE a.callsign = $1`, callsign,
	).Scan(&a.NodeID, &uuid, &a.AltitudeM, &a.LastUpdated, &a.Location.Lat, &a.Location.Lon)

	if err == sql.ErrNoRows {
		return Aircraft{}, fmt.Errorf("%w: aircraft %s", apierr.UnknownEndpoint, callsign)
	}
	if err != nil {
		return Aircraft{}, fmt.Errorf("failed to get aircraft: %w", err)
	}
	a.Callsign = callsign
	a.UUID = uuid.String
	return a, nil
}

func nullableUUID(uuid string) sql.NullString {
	if uuid == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: uuid, Valid: true}
}
