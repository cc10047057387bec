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

// FlightPathRepository manages planned, time-bounded flight paths.
type FlightPathRepository struct {
	store *Store
}

// UpsertFlightPath inserts or replaces a flight path, idempotent by id.
func (r *FlightPathRepository) UpsertFlightPath(ctx context.Context, id, aircraft string, points []geo.Point3, tStart, tEnd time.Time, simulated bool) (FlightPath, error) {
	if len(points) < 2 {
		return FlightPath{}, fmt.Errorf("%w: flight path needs at least 2 points", apierr.BadGeometry)
	}
	for _, p := range points {
		if !p.IsFinite() {
			return FlightPath{}, fmt.Errorf("%w: non-finite flight path point", apierr.BadGeometry)
		}
	}
	if !tStart.Before(tEnd) {
		return FlightPath{}, fmt.Errorf("%w: t_start must precede t_end", apierr.BadGeometry)
	}

	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return FlightPath{}, err
	}
	defer release()

	raw, err := json.Marshal(points)
	if err != nil {
		return FlightPath{}, fmt.Errorf("%w: marshal flight path points: %v", apierr.Internal, err)
	}

	_, err = r.store.ExecContext(ctx, `
		INSERT INTO flight_paths (id, aircraft, points, t_start, t_end, simulated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			aircraft = EXCLUDED.aircraft,
			points = EXCLUDED.points,
			t_start = EXCLUDED.t_start,
			t_end = EXCLUDED.t_end,
			simulated = EXCLUDED.simulated`,
		id, nullableUUID(aircraft), raw, tStart, tEnd, simulated,
	)
	if err != nil {
		return FlightPath{}, fmt.Errorf("%w: upsert_flight_path: %v", apierr.StoreUnavailable, err)
	}

	return FlightPath{ID: id, Aircraft: aircraft, Points: points, TStart: tStart, TEnd: tEnd, Simulated: simulated}, nil
}

// DeleteFlightPath removes a flight path by id.
func (r *FlightPathRepository) DeleteFlightPath(ctx context.Context, id string) error {
	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := r.store.ExecContext(ctx, `DELETE FROM flight_paths WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flight path: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: flight path %s", apierr.UnknownEndpoint, id)
	}
	return nil
}

// InWindow returns flight paths whose [t_start, t_end) overlaps [tStart, tEnd).
func (r *FlightPathRepository) InWindow(ctx context.Context, tStart, tEnd time.Time) ([]FlightPath, error) {
	rows, err := r.store.QueryContext(ctx, `
		SELECT id, aircraft, points, t_start, t_end, simulated
		FROM flight_paths
		WHERE t_start < $2 AND t_end > $1`, tStart, tEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight paths: %w", err)
	}
	defer rows.Close()

	var out []FlightPath
	for rows.Next() {
		fp, err := scanFlightPath(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// PathsOverlappingInTime returns flight paths whose time window overlaps
// [tStart, tEnd) and whose 3D distance to path is within thresholdM.
func (r *FlightPathRepository) PathsOverlappingInTime(ctx context.Context, tStart, tEnd time.Time, path geo.Line, thresholdM float64) ([]FlightPath, error) {
	candidates, err := r.InWindow(ctx, tStart, tEnd)
	if err != nil {
		return nil, err
	}

	var out []FlightPath
	for _, fp := range candidates {
		if geo.Distance3DLines(path, fp.Line()) <= thresholdM {
			out = append(out, fp)
		}
	}
	return out, nil
}

func scanFlightPath(rows *sql.Rows) (FlightPath, error) {
	var fp FlightPath
	var aircraft sql.NullString
	var raw []byte
	if err := rows.Scan(&fp.ID, &aircraft, &raw, &fp.TStart, &fp.TEnd, &fp.Simulated); err != nil {
		return FlightPath{}, fmt.Errorf("failed to scan flight path: %w", err)
	}
	if err := json.Unmarshal(raw, &fp.Points); err != nil {
		return FlightPath{}, fmt.Errorf("%w: unmarshal flight path points: %v", apierr.Internal, err)
	}
	fp.Aircraft = aircraft.String
	return fp, nil
}
