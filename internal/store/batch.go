package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/pkg/geo"
)

// Op is one item of a state-ingestion batch (spec §4.3: "All mutations
// within one request run in a single transaction; any per-item failure
// aborts the batch"). Each concrete op type below applies itself
// against a shared *sql.Tx.
type Op interface {
	apply(ctx context.Context, tx *sql.Tx) (OpResult, error)
}

// OpResult is the per-item outcome of a committed batch. Applied is
// false only for a silently-discarded stale aircraft sample; every
// other op either succeeds with Applied=true or the whole batch fails.
type OpResult struct {
	Applied bool
}

type UpsertVertiportOp struct {
	UUID    string
	Polygon geo.Polygon
	Label   string
}

type UpsertWaypointOp struct {
	Label   string
	Point   geo.Point
	MinAltM float64
}

type UpsertZoneOp struct {
	Label   string
	Polygon geo.Polygon
	TStart  *time.Time
	TEnd    *time.Time
}

type UpsertAircraftOp struct {
	Callsign string
	UUID     string
	Point    geo.Point
	AltM     float64
	TSample  time.Time
}

type UpsertFlightPathOp struct {
	ID        string
	Aircraft  string
	Points    []geo.Point3
	TStart    time.Time
	TEnd      time.Time
	Simulated bool
}

// ApplyBatch runs every op in ops against a single transaction. Any
// per-item failure aborts and rolls back the entire batch, so callers
// see either all results or none.
func (s *Store) ApplyBatch(ctx context.Context, ops []Op) ([]OpResult, error) {
	release, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin batch: %v", apierr.StoreUnavailable, err)
	}
	defer tx.Rollback()

	results := make([]OpResult, len(ops))
	for i, op := range ops {
		res, err := op.apply(ctx, tx)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit batch: %v", apierr.StoreUnavailable, err)
	}
	return results, nil
}

func (op UpsertVertiportOp) apply(ctx context.Context, tx *sql.Tx) (OpResult, error) {
	if err := op.Polygon.Validate(); err != nil {
		return OpResult{}, err
	}
	verts, err := json.Marshal(op.Polygon.Vertices)
	if err != nil {
		return OpResult{}, fmt.Errorf("%w: marshal polygon: %v", apierr.Internal, err)
	}

	var nodeID, zoneID int64
	var label string
	err = tx.QueryRowContext(ctx, `SELECT node_id, zone_id, label FROM vertiports WHERE uuid = $1`, op.UUID).
		Scan(&nodeID, &zoneID, &label)

	now := time.Now().UTC()
	centroid := op.Polygon.Centroid()

	switch {
	case err == sql.ErrNoRows:
		if err := tx.QueryRowContext(ctx, `INSERT INTO nodes (kind) VALUES ($1) RETURNING id`, KindVertiport).Scan(&nodeID); err != nil {
			return OpResult{}, fmt.Errorf("failed to allocate vertiport node: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO zones (label, kind, vertices, alt_min_m, alt_max_m) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			fmt.Sprintf("vertiport:%s", op.UUID), ZoneVertiport, verts, nullableAlt(op.Polygon.AltMin), nullableAlt(op.Polygon.AltMax),
		).Scan(&zoneID); err != nil {
			return OpResult{}, fmt.Errorf("failed to create vertiport zone: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vertiports (uuid, node_id, zone_id, label) VALUES ($1, $2, $3, $4)`,
			op.UUID, nodeID, zoneID, op.Label,
		); err != nil {
			return OpResult{}, fmt.Errorf("failed to insert vertiport: %w", err)
		}
	case err != nil:
		return OpResult{}, fmt.Errorf("failed to query vertiport: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE zones SET vertices = $1, alt_min_m = $2, alt_max_m = $3 WHERE id = $4`,
			verts, nullableAlt(op.Polygon.AltMin), nullableAlt(op.Polygon.AltMax), zoneID,
		); err != nil {
			return OpResult{}, fmt.Errorf("failed to update vertiport zone: %w", err)
		}
		if op.Label != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE vertiports SET label = $1 WHERE uuid = $2`, op.Label, op.UUID); err != nil {
				return OpResult{}, fmt.Errorf("failed to update vertiport label: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO node_locations (node_id, sample_t, latitude, longitude, altitude_m) VALUES ($1, $2, $3, $4, 0)`,
		nodeID, now, centroid.Lat, centroid.Lon,
	); err != nil {
		return OpResult{}, fmt.Errorf("failed to record vertiport location sample: %w", err)
	}

	return OpResult{Applied: true}, nil
}

func (op UpsertWaypointOp) apply(ctx context.Context, tx *sql.Tx) (OpResult, error) {
	if err := geo.ValidatePoint(op.Point); err != nil {
		return OpResult{}, err
	}

	var nodeID int64
	err := tx.QueryRowContext(ctx, `SELECT node_id FROM waypoints WHERE label = $1`, op.Label).Scan(&nodeID)

	switch {
	case err == sql.ErrNoRows:
		if err := tx.QueryRowContext(ctx, `INSERT INTO nodes (kind) VALUES ($1) RETURNING id`, KindWaypoint).Scan(&nodeID); err != nil {
			return OpResult{}, fmt.Errorf("failed to allocate waypoint node: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO waypoints (label, node_id, min_alt_m) VALUES ($1, $2, $3)`, op.Label, nodeID, op.MinAltM,
		); err != nil {
			return OpResult{}, fmt.Errorf("failed to insert waypoint: %w", err)
		}
	case err != nil:
		return OpResult{}, fmt.Errorf("failed to query waypoint: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE waypoints SET min_alt_m = $1 WHERE label = $2`, op.MinAltM, op.Label); err != nil {
			return OpResult{}, fmt.Errorf("failed to update waypoint: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO node_locations (node_id, sample_t, latitude, longitude, altitude_m) VALUES ($1, $2, $3, $4, 0)`,
		nodeID, time.Now().UTC(), op.Point.Lat, op.Point.Lon,
	); err != nil {
		return OpResult{}, fmt.Errorf("failed to record waypoint location sample: %w", err)
	}

	return OpResult{Applied: true}, nil
}

func (op UpsertZoneOp) apply(ctx context.Context, tx *sql.Tx) (OpResult, error) {
	if err := op.Polygon.Validate(); err != nil {
		return OpResult{}, err
	}
	if op.TStart != nil && op.TEnd != nil && !op.TStart.Before(*op.TEnd) {
		return OpResult{}, fmt.Errorf("%w: zone t_start must precede t_end", apierr.BadGeometry)
	}
	verts, err := json.Marshal(op.Polygon.Vertices)
	if err != nil {
		return OpResult{}, fmt.Errorf("%w: marshal polygon: %v", apierr.Internal, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO zones (label, kind, vertices, alt_min_m, alt_max_m, t_start, t_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (label) DO UPDATE SET
			vertices = EXCLUDED.vertices, alt_min_m = EXCLUDED.alt_min_m,
			alt_max_m = EXCLUDED.alt_max_m, t_start = EXCLUDED.t_start, t_end = EXCLUDED.t_end`,
		op.Label, ZoneNofly, verts, nullableAlt(op.Polygon.AltMin), nullableAlt(op.Polygon.AltMax), op.TStart, op.TEnd,
	)
	if err != nil {
		return OpResult{}, fmt.Errorf("failed to upsert zone: %w", err)
	}
	return OpResult{Applied: true}, nil
}

func (op UpsertAircraftOp) apply(ctx context.Context, tx *sql.Tx) (OpResult, error) {
	if op.Callsign == "" {
		return OpResult{}, fmt.Errorf("%w: missing callsign", apierr.BadTelemetry)
	}
	if !geo.IsFiniteFloat(op.AltM) {
		return OpResult{}, fmt.Errorf("%w: non-finite altitude", apierr.BadTelemetry)
	}
	if err := geo.ValidatePoint(op.Point); err != nil {
		return OpResult{}, fmt.Errorf("%w: %v", apierr.BadTelemetry, err)
	}
	if op.TSample.After(time.Now().UTC().Add(24 * time.Hour)) {
		return OpResult{}, fmt.Errorf("%w: timestamp far in future", apierr.BadTelemetry)
	}

	var nodeID int64
	var lastUpdated time.Time
	err := tx.QueryRowContext(ctx, `SELECT node_id, last_updated FROM aircraft WHERE callsign = $1`, op.Callsign).
		Scan(&nodeID, &lastUpdated)

	switch {
	case err == sql.ErrNoRows:
		if err := tx.QueryRowContext(ctx, `INSERT INTO nodes (kind) VALUES ($1) RETURNING id`, KindAircraft).Scan(&nodeID); err != nil {
			return OpResult{}, fmt.Errorf("failed to allocate aircraft node: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO aircraft (callsign, uuid, node_id, altitude_m, last_updated) VALUES ($1, $2, $3, $4, $5)`,
			op.Callsign, nullableUUID(op.UUID), nodeID, op.AltM, op.TSample,
		); err != nil {
			return OpResult{}, fmt.Errorf("failed to insert aircraft: %w", err)
		}
	case err != nil:
		return OpResult{}, fmt.Errorf("failed to query aircraft: %w", err)
	default:
		if !op.TSample.After(lastUpdated) {
			return OpResult{Applied: false}, nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM node_locations WHERE node_id = $1 AND sample_t > $2`, nodeID, op.TSample); err != nil {
			return OpResult{}, fmt.Errorf("failed to clear newer aircraft samples: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE aircraft SET altitude_m = $1, last_updated = $2 WHERE callsign = $3`, op.AltM, op.TSample, op.Callsign,
		); err != nil {
			return OpResult{}, fmt.Errorf("failed to update aircraft: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO node_locations (node_id, sample_t, latitude, longitude, altitude_m) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (node_id, sample_t) DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, altitude_m = EXCLUDED.altitude_m`,
		nodeID, op.TSample, op.Point.Lat, op.Point.Lon, op.AltM,
	); err != nil {
		return OpResult{}, fmt.Errorf("failed to insert aircraft location sample: %w", err)
	}

	return OpResult{Applied: true}, nil
}

func (op UpsertFlightPathOp) apply(ctx context.Context, tx *sql.Tx) (OpResult, error) {
	if len(op.Points) < 2 {
		return OpResult{}, fmt.Errorf("%w: flight path needs at least 2 points", apierr.BadGeometry)
	}
	for _, p := range op.Points {
		if !p.IsFinite() {
			return OpResult{}, fmt.Errorf("%w: non-finite flight path point", apierr.BadGeometry)
		}
	}
	if !op.TStart.Before(op.TEnd) {
		return OpResult{}, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}

	raw, err := json.Marshal(op.Points)
	if err != nil {
		return OpResult{}, fmt.Errorf("%w: marshal flight path points: %v", apierr.Internal, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flight_paths (id, aircraft, points, t_start, t_end, simulated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			aircraft = EXCLUDED.aircraft, points = EXCLUDED.points,
			t_start = EXCLUDED.t_start, t_end = EXCLUDED.t_end, simulated = EXCLUDED.simulated`,
		op.ID, nullableUUID(op.Aircraft), raw, op.TStart, op.TEnd, op.Simulated,
	)
	if err != nil {
		return OpResult{}, fmt.Errorf("failed to upsert flight path: %w", err)
	}
	return OpResult{Applied: true}, nil
}
