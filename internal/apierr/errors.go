// Package apierr defines the error taxonomy surfaced across the service
// boundary. Every package in this module wraps its failures into one of
// these sentinels with fmt.Errorf("...: %w", ...) so callers can use
// errors.Is against a stable, small vocabulary instead of parsing strings.
package apierr

import "errors"

var (
	// BadGeometry indicates a malformed polygon or line: unclosed ring,
	// too few vertices, or a non-finite coordinate.
	BadGeometry = errors.New("bad geometry")

	// BadTelemetry indicates malformed aircraft telemetry: missing
	// callsign, non-finite numeric field, or a timestamp far in the future.
	BadTelemetry = errors.New("bad telemetry")

	// UnknownEndpoint indicates a start/end node id that does not exist
	// in the store at query time.
	UnknownEndpoint = errors.New("unknown endpoint")

	// StoreUnavailable indicates the backend rejected a connection, timed
	// out, or reported a transient error. Callers may retry.
	StoreUnavailable = errors.New("store unavailable")

	// Conflict indicates a monotonic update was rejected because a newer
	// sample is already stored. Often surfaced as applied=false rather
	// than a hard failure.
	Conflict = errors.New("stale update rejected")

	// Internal indicates an invariant was violated. Should never reach a
	// caller in a correct build; logged with detail at the call site.
	Internal = errors.New("internal invariant violation")
)
