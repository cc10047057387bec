package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skypath/gis/pkg/geo"
)

// CandidateNodesAt returns, for every node, the location sample closest
// to t: non-aircraft nodes are always selected; aircraft nodes are
// selected only if their closest sample is within tolerance of t.
func (s *Store) CandidateNodesAt(ctx context.Context, t time.Time, tolerance time.Duration) ([]CandidateNode, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT n.id, n.kind, nl.sample_t, nl.latitude, nl.longitude, nl.altitude_m
		FROM nodes n
		JOIN LATERAL (
			SELECT sample_t, latitude, longitude, altitude_m
			FROM node_locations
			WHERE node_id = n.id
			ORDER BY ABS(EXTRACT(EPOCH FROM (sample_t - $1)))
			LIMIT 1
		) nl ON true`, t)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate nodes: %w", err)
	}
	defer rows.Close()

	var out []CandidateNode
	for rows.Next() {
		var cn CandidateNode
		if err := rows.Scan(&cn.Node.ID, &cn.Node.Kind, &cn.Location.SampleT,
			&cn.Location.Point.Lat, &cn.Location.Point.Lon, &cn.Location.Point.Alt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate node: %w", err)
		}
		cn.Location.NodeID = cn.Node.ID

		if cn.Node.Kind != KindAircraft {
			out = append(out, cn)
			continue
		}
		diff := cn.Location.SampleT.Sub(t)
		if diff < 0 {
			diff = -diff
		}
		if diff < tolerance {
			out = append(out, cn)
		}
	}
	return out, rows.Err()
}

// CandidateEdges forms all ordered pairs of candidate nodes at t
// (excluding edges into an Aircraft, per spec §4.2/§3) and drops any
// edge whose line geometry intersects an active, non-exempt zone.
func (s *Store) CandidateEdges(ctx context.Context, t time.Time, tolerance time.Duration, allowedZoneIDs []int64) ([]Edge, error) {
	nodes, err := s.CandidateNodesAt(ctx, t, tolerance)
	if err != nil {
		return nil, err
	}

	zones, err := s.Zones.ActiveZones(ctx, t, t.Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}

	exempt := make(map[int64]bool, len(allowedZoneIDs))
	for _, id := range allowedZoneIDs {
		exempt[id] = true
	}
	var restricting []Zone
	for _, z := range zones {
		if !exempt[z.ID] {
			restricting = append(restricting, z)
		}
	}

	var edges []Edge
	for _, u := range nodes {
		for _, v := range nodes {
			if u.Node.ID == v.Node.ID || v.Node.Kind == KindAircraft {
				continue
			}

			line := geo.MakeLine(u.Location.Point, v.Location.Point)
			blocked := false
			for _, z := range restricting {
				if geo.IntersectsLine3D(line, z.Polygon) {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}

			edges = append(edges, Edge{
				From:    u.Node,
				To:      v.Node,
				FromLoc: u.Location.Point,
				ToLoc:   v.Location.Point,
				CostM:   geo.DistanceM(u.Location.Point.To2D(), v.Location.Point.To2D()),
			})
		}
	}
	return edges, nil
}

// ZoneIDForVertiportNode returns the owned zone id for a vertiport node,
// or a plain "not a vertiport" error if the node isn't one. It is part
// of the store.Backend contract; nothing in this module calls it.
func (s *Store) ZoneIDForVertiportNode(ctx context.Context, nodeID int64) (int64, error) {
	var zoneID int64
	err := s.QueryRowContext(ctx, `SELECT zone_id FROM vertiports WHERE node_id = $1`, nodeID).Scan(&zoneID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("node %d is not a vertiport", nodeID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve vertiport zone: %w", err)
	}
	return zoneID, nil
}
