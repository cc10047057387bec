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

// ZoneRepository manages caller-declared no-fly zones. Vertiport-owned
// zones are managed exclusively through VertiportRepository.
type ZoneRepository struct {
	store *Store
}

// UpsertZone creates or updates a no-fly zone by label.
func (r *ZoneRepository) UpsertZone(ctx context.Context, label string, polygon geo.Polygon, tStart, tEnd *time.Time) (Zone, error) {
	if err := polygon.Validate(); err != nil {
		return Zone{}, err
	}
	if tStart != nil && tEnd != nil && !tStart.Before(*tEnd) {
		return Zone{}, fmt.Errorf("%w: zone t_start must precede t_end", apierr.BadGeometry)
	}

	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return Zone{}, err
	}
	defer release()

	verts, err := json.Marshal(polygon.Vertices)
	if err != nil {
		return Zone{}, fmt.Errorf("%w: marshal polygon: %v", apierr.Internal, err)
	}

	var id int64
	err = r.store.QueryRowContext(ctx, `
		INSERT INTO zones (label, kind, vertices, alt_min_m, alt_max_m, t_start, t_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (label) DO UPDATE SET
			vertices = EXCLUDED.vertices,
			alt_min_m = EXCLUDED.alt_min_m,
			alt_max_m = EXCLUDED.alt_max_m,
			t_start = EXCLUDED.t_start,
			t_end = EXCLUDED.t_end
		RETURNING id`,
		label, ZoneNofly, verts, nullableAlt(polygon.AltMin), nullableAlt(polygon.AltMax), tStart, tEnd,
	).Scan(&id)
	if err != nil {
		return Zone{}, fmt.Errorf("%w: upsert_zone: %v", apierr.StoreUnavailable, err)
	}

	return Zone{ID: id, Label: label, Kind: ZoneNofly, Polygon: polygon, TStart: tStart, TEnd: tEnd}, nil
}

// DeleteZone removes a no-fly zone by label.
func (r *ZoneRepository) DeleteZone(ctx context.Context, label string) error {
	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := r.store.ExecContext(ctx, `DELETE FROM zones WHERE label = $1 AND kind = $2`, label, ZoneNofly)
	if err != nil {
		return fmt.Errorf("failed to delete zone: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: zone %s", apierr.UnknownEndpoint, label)
	}
	return nil
}

// ActiveZones returns every zone (no-fly and vertiport-owned) whose
// window overlaps [tStart, tEnd).
func (r *ZoneRepository) ActiveZones(ctx context.Context, tStart, tEnd time.Time) ([]Zone, error) {
	rows, err := r.store.QueryContext(ctx, `SELECT id, label, kind, vertices, alt_min_m, alt_max_m, t_start, t_end FROM zones`)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		if z.Active(tStart, tEnd) {
			zones = append(zones, z)
		}
	}
	return zones, rows.Err()
}

type zoneScanner interface {
	Scan(dest ...any) error
}

func scanZone(row zoneScanner) (Zone, error) {
	var z Zone
	var vertsRaw []byte
	var altMin, altMax sql.NullFloat64
	var tStart, tEnd sql.NullTime
	if err := row.Scan(&z.ID, &z.Label, &z.Kind, &vertsRaw, &altMin, &altMax, &tStart, &tEnd); err != nil {
		return Zone{}, fmt.Errorf("failed to scan zone: %w", err)
	}
	var verts []geo.Point
	if err := json.Unmarshal(vertsRaw, &verts); err != nil {
		return Zone{}, fmt.Errorf("%w: unmarshal zone vertices: %v", apierr.Internal, err)
	}
	z.Polygon = geo.Polygon{Vertices: verts, AltMin: altMin.Float64, AltMax: altMax.Float64}
	if tStart.Valid {
		t := tStart.Time
		z.TStart = &t
	}
	if tEnd.Valid {
		t := tEnd.Time
		z.TEnd = &t
	}
	return z, nil
}
