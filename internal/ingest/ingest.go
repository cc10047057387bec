// Package ingest is the state-ingestion surface: it validates incoming
// vertiport, waypoint, zone, aircraft, and flight-path records and
// delegates each request to the spatial store as a single atomic
// batch. Any per-item validation failure aborts the whole request
// before the store is touched at all.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/geo"
)

// VertiportRecord mirrors the wire Vertiport message: a polygonal
// footprint identified by UUID, with an optional mutable label. An
// empty UUID is assigned a freshly generated one.
type VertiportRecord struct {
	UUID    string
	Polygon geo.Polygon
	Label   string
}

// WaypointRecord mirrors the wire Waypoint message.
type WaypointRecord struct {
	Label   string
	Point   geo.Point
	MinAltM float64
}

// ZoneRecord mirrors the wire Zone message. Only the Nofly subtype is
// ever created through this path; vertiport-owned zones are managed
// exclusively by VertiportRecord.
type ZoneRecord struct {
	Label   string
	Polygon geo.Polygon
	TStart  *time.Time
	TEnd    *time.Time
}

// FlightPathRecord mirrors the wire FlightPath message.
type FlightPathRecord struct {
	ID        string
	Aircraft  string
	Points    []geo.Point3
	TStart    time.Time
	TEnd      time.Time
	Simulated bool
}

// AircraftRecord mirrors one telemetry sample.
type AircraftRecord struct {
	Callsign string
	UUID     string
	Point    geo.Point
	AltM     float64
	TSample  time.Time
}

// Service validates and applies state-ingestion requests against a
// spatial backend.
type Service struct {
	backend store.Backend
}

// NewService wires a Service to the given backend.
func NewService(backend store.Backend) *Service {
	return &Service{backend: backend}
}

// UpdateVertiports validates and applies a batch of vertiport records
// as a single transaction. Any record with an invalid polygon aborts
// the whole batch.
func (s *Service) UpdateVertiports(ctx context.Context, records []VertiportRecord) error {
	ops := make([]store.Op, len(records))
	for i := range records {
		r := &records[i]
		if err := r.Polygon.Validate(); err != nil {
			return err
		}
		if r.UUID == "" {
			r.UUID = uuid.NewString()
		} else if _, err := uuid.Parse(r.UUID); err != nil {
			return fmt.Errorf("%w: vertiport uuid %q: %v", apierr.BadGeometry, r.UUID, err)
		}
		ops[i] = store.UpsertVertiportOp{UUID: r.UUID, Polygon: r.Polygon, Label: r.Label}
	}
	if len(ops) == 0 {
		return nil
	}
	_, err := s.backend.ApplyBatch(ctx, ops)
	return err
}

// UpdateWaypoints validates and applies a batch of waypoint records as
// a single transaction.
func (s *Service) UpdateWaypoints(ctx context.Context, records []WaypointRecord) error {
	ops := make([]store.Op, len(records))
	for i, r := range records {
		if r.Label == "" {
			return fmt.Errorf("%w: waypoint record missing label", apierr.BadGeometry)
		}
		if err := geo.ValidatePoint(r.Point); err != nil {
			return err
		}
		ops[i] = store.UpsertWaypointOp{Label: r.Label, Point: r.Point, MinAltM: r.MinAltM}
	}
	if len(ops) == 0 {
		return nil
	}
	_, err := s.backend.ApplyBatch(ctx, ops)
	return err
}

// UpdateZones validates and applies a batch of zone records as a
// single transaction.
func (s *Service) UpdateZones(ctx context.Context, records []ZoneRecord) error {
	ops := make([]store.Op, len(records))
	for i, r := range records {
		if r.Label == "" {
			return fmt.Errorf("%w: zone record missing label", apierr.BadGeometry)
		}
		if err := r.Polygon.Validate(); err != nil {
			return err
		}
		if r.TStart != nil && r.TEnd != nil && !r.TStart.Before(*r.TEnd) {
			return fmt.Errorf("%w: zone %s t_start must precede t_end", apierr.BadGeometry, r.Label)
		}
		ops[i] = store.UpsertZoneOp{Label: r.Label, Polygon: r.Polygon, TStart: r.TStart, TEnd: r.TEnd}
	}
	if len(ops) == 0 {
		return nil
	}
	_, err := s.backend.ApplyBatch(ctx, ops)
	return err
}

// UpdateFlightPath validates and applies a single flight path.
func (s *Service) UpdateFlightPath(ctx context.Context, r FlightPathRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: flight path record missing id", apierr.BadGeometry)
	}
	if len(r.Points) < 2 {
		return fmt.Errorf("%w: flight path %s needs at least 2 points", apierr.BadGeometry, r.ID)
	}
	for _, p := range r.Points {
		if !p.IsFinite() {
			return fmt.Errorf("%w: flight path %s has a non-finite point", apierr.BadGeometry, r.ID)
		}
	}
	if !r.TStart.Before(r.TEnd) {
		return fmt.Errorf("%w: flight path %s t_start must precede t_end", apierr.BadGeometry, r.ID)
	}
	_, err := s.backend.ApplyBatch(ctx, []store.Op{
		store.UpsertFlightPathOp{
			ID: r.ID, Aircraft: r.Aircraft, Points: r.Points,
			TStart: r.TStart, TEnd: r.TEnd, Simulated: r.Simulated,
		},
	})
	return err
}

// UpdateAircraftPosition applies one telemetry sample. The returned
// bool reports whether the sample was applied; a stale sample
// (t_sample not after the stored last_updated) is reported as
// applied=false with no error, per the monotonic-update contract.
func (s *Service) UpdateAircraftPosition(ctx context.Context, r AircraftRecord) (applied bool, err error) {
	if r.Callsign == "" {
		return false, fmt.Errorf("%w: missing callsign", apierr.BadTelemetry)
	}
	if !geo.IsFiniteFloat(r.AltM) {
		return false, fmt.Errorf("%w: non-finite altitude", apierr.BadTelemetry)
	}
	if err := geo.ValidatePoint(r.Point); err != nil {
		return false, fmt.Errorf("%w: %v", apierr.BadTelemetry, err)
	}
	if r.UUID != "" {
		if _, err := uuid.Parse(r.UUID); err != nil {
			return false, fmt.Errorf("%w: aircraft uuid %q: %v", apierr.BadTelemetry, r.UUID, err)
		}
	}

	results, err := s.backend.ApplyBatch(ctx, []store.Op{
		store.UpsertAircraftOp{
			Callsign: r.Callsign, UUID: r.UUID, Point: r.Point, AltM: r.AltM, TSample: r.TSample,
		},
	})
	if err != nil {
		return false, err
	}
	return results[0].Applied, nil
}
