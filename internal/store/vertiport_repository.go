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

// VertiportRepository manages vertiport nodes and their backing zones.
type VertiportRepository struct {
	store *Store
}

// UpsertVertiport atomically creates or updates a vertiport. On create
// it allocates a node and an owned zone; on update it replaces the
// zone polygon and appends a new location sample at the polygon's
// centroid.
func (r *VertiportRepository) UpsertVertiport(ctx context.Context, uuid string, polygon geo.Polygon, label string) (Vertiport, error) {
	if err := polygon.Validate(); err != nil {
		return Vertiport{}, err
	}

	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return Vertiport{}, err
	}
	defer release()

	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return Vertiport{}, fmt.Errorf("%w: begin upsert_vertiport: %v", apierr.StoreUnavailable, err)
	}
	defer tx.Rollback()

	verts, err := json.Marshal(polygon.Vertices)
	if err != nil {
		return Vertiport{}, fmt.Errorf("%w: marshal polygon: %v", apierr.Internal, err)
	}

	var v Vertiport
	err = tx.QueryRowContext(ctx,
		`SELECT node_id, zone_id, label FROM vertiports WHERE uuid = $1`, uuid,
	).Scan(&v.NodeID, &v.ZoneID, &v.Label)

	now := time.Now().UTC()
	centroid := polygon.Centroid()

	switch {
	case err == sql.ErrNoRows:
		var nodeID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO nodes (kind) VALUES ($1) RETURNING id`, KindVertiport,
		).Scan(&nodeID); err != nil {
			return Vertiport{}, fmt.Errorf("failed to allocate vertiport node: %w", err)
		}

		var zoneID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO zones (label, kind, vertices, alt_min_m, alt_max_m)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			fmt.Sprintf("vertiport:%s", uuid), ZoneVertiport, verts, nullableAlt(polygon.AltMin), nullableAlt(polygon.AltMax),
		).Scan(&zoneID); err != nil {
			return Vertiport{}, fmt.Errorf("failed to create vertiport zone: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vertiports (uuid, node_id, zone_id, label) VALUES ($1, $2, $3, $4)`,
			uuid, nodeID, zoneID, label,
		); err != nil {
			return Vertiport{}, fmt.Errorf("failed to insert vertiport: %w", err)
		}

		v = Vertiport{UUID: uuid, NodeID: nodeID, ZoneID: zoneID, Label: label, Zone: polygon}

	case err != nil:
		return Vertiport{}, fmt.Errorf("failed to query vertiport: %w", err)

	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE zones SET vertices = $1, alt_min_m = $2, alt_max_m = $3 WHERE id = $4`,
			verts, nullableAlt(polygon.AltMin), nullableAlt(polygon.AltMax), v.ZoneID,
		); err != nil {
			return Vertiport{}, fmt.Errorf("failed to update vertiport zone: %w", err)
		}
		if label != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE vertiports SET label = $1 WHERE uuid = $2`, label, uuid); err != nil {
				return Vertiport{}, fmt.Errorf("failed to update vertiport label: %w", err)
			}
			v.Label = label
		}
		v.UUID = uuid
		v.Zone = polygon
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO node_locations (node_id, sample_t, latitude, longitude, altitude_m) VALUES ($1, $2, $3, $4, $5)`,
		v.NodeID, now, centroid.Lat, centroid.Lon, 0,
	); err != nil {
		return Vertiport{}, fmt.Errorf("failed to record vertiport location sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Vertiport{}, fmt.Errorf("%w: commit upsert_vertiport: %v", apierr.StoreUnavailable, err)
	}

	return v, nil
}

// DeleteVertiport removes a vertiport, its node, its owned zone, and
// all of its location samples atomically.
func (r *VertiportRepository) DeleteVertiport(ctx context.Context, uuid string) error {
	release, err := r.store.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	var nodeID, zoneID int64
	err = r.store.QueryRowContext(ctx, `SELECT node_id, zone_id FROM vertiports WHERE uuid = $1`, uuid).Scan(&nodeID, &zoneID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: vertiport %s", apierr.UnknownEndpoint, uuid)
	}
	if err != nil {
		return fmt.Errorf("failed to look up vertiport: %w", err)
	}

	tx, err := r.store.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin delete_vertiport: %v", apierr.StoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, nodeID); err != nil {
		return fmt.Errorf("failed to delete vertiport node: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, zoneID); err != nil {
		return fmt.Errorf("failed to delete vertiport zone: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit delete_vertiport: %v", apierr.StoreUnavailable, err)
	}
	return nil
}

// Get returns a vertiport by uuid, or apierr.UnknownEndpoint if absent.
func (r *VertiportRepository) Get(ctx context.Context, uuid string) (Vertiport, error) {
	var v Vertiport
	var vertsRaw []byte
	var altMin, altMax sql.NullFloat64
	err := r.store.QueryRowContext(ctx, `
		SELECT vp.node_id, vp.zone_id, vp.label, z.vertices, z.alt_min_m, z.alt_max_m
		FROM vertiports vp JOIN zones z ON z.id = vp.zone_id
		WHERE vp.uuid = $1`, uuid,
	).Scan(&v.NodeID, &v.ZoneID, &v.Label, &vertsRaw, &altMin, &altMax)

	if err == sql.ErrNoRows {
		return Vertiport{}, fmt.Errorf("%w: vertiport %s", apierr.UnknownEndpoint, uuid)
	}
	if err != nil {
		return Vertiport{}, fmt.Errorf("failed to get vertiport: %w", err)
	}

	var verts []geo.Point
	if err := json.Unmarshal(vertsRaw, &verts); err != nil {
		return Vertiport{}, fmt.Errorf("%w: unmarshal zone vertices: %v", apierr.Internal, err)
	}
	v.UUID = uuid
	v.Zone = geo.Polygon{Vertices: verts, AltMin: altMin.Float64, AltMax: altMax.Float64}
	return v, nil
}

func nullableAlt(v float64) sql.NullFloat64 {
	if v == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
