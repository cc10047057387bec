// SkyPath GIS Ingest Worker
//
// Polls an aircraft telemetry source and applies each sample to the
// spatial backend through internal/ingest, so that in-flight aircraft
// become routable/checkable nodes without every caller of the query
// surface needing its own feed connection.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/config"
	"github.com/skypath/gis/pkg/geo"
	"github.com/skypath/gis/pkg/telemetry"
)

var (
	configPath   = flag.String("config", "configs/config.json", "Path to configuration file")
	pollInterval = flag.Duration("poll-interval", 5*time.Second, "How often to poll the telemetry source")
)

// Worker polls a telemetry.Source and applies its reports to a spatial
// backend via internal/ingest, rate-limiting its own polling rather than
// the backend (the backend's own Pool already bounds concurrent backend
// calls; this limiter protects whatever upstream feed Source wraps).
type Worker struct {
	source  telemetry.Source
	ingest  *ingest.Service
	limiter *rate.Limiter

	applied int
	stale   int
	errored int
}

func main() {
	flag.Parse()

	log.Println("starting skypath-gis ingest worker...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	backend, err := store.Connect(cfg.Database, cfg.Pool)
	if err != nil {
		log.Fatalf("failed to connect to backend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if err := backend.InitSchema(ctx); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	// No live ADS-B/telemetry vendor is wired in this deployment; an
	// empty ReplaySource (it yields no samples) lets the worker's
	// polling/retry path run until a real telemetry.Source is plugged
	// in here.
	source := telemetry.NewReplaySource(nil)

	worker := &Worker{
		source:  source,
		ingest:  ingest.NewService(backend),
		limiter: rate.NewLimiter(rate.Every(*pollInterval), 1),
	}
	defer worker.source.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("received signal: %v, shutting down", sig)
	case <-done:
		log.Println("worker stopped")
	}
}

// Run polls the source on worker.limiter's schedule until ctx is done,
// applying every reported sample and logging a summary periodically.
func (w *Worker) Run(ctx context.Context) {
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-statsTicker.C:
			w.printStats()
		default:
		}
	}
}

// poll fetches one batch of samples with exponential-backoff retry and
// applies each one.
func (w *Worker) poll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in poll(): %v", r)
		}
	}()

	retryCfg := telemetry.DefaultRetryConfig()
	samples, err := telemetry.RetryWithBackoffResult(ctx, retryCfg, w.source.Poll)
	if err != nil {
		log.Printf("telemetry poll failed after retries: %v", err)
		w.errored++
		return
	}

	for _, s := range samples {
		w.apply(ctx, s)
	}
}

func (w *Worker) apply(ctx context.Context, s telemetry.Sample) {
	applied, err := w.ingest.UpdateAircraftPosition(ctx, ingest.AircraftRecord{
		Callsign: s.Callsign,
		UUID:     s.UUID,
		Point:    geo.Point{Lat: s.Latitude, Lon: s.Longitude},
		AltM:     s.AltitudeM,
		TSample:  s.SampleTime,
	})
	switch {
	case err != nil && isApplicationError(err):
		log.Printf("rejected sample for %s: %v", s.Callsign, err)
		w.errored++
	case err != nil:
		log.Printf("failed to apply sample for %s: %v", s.Callsign, err)
		w.errored++
	case !applied:
		w.stale++
	default:
		w.applied++
	}
}

// isApplicationError reports whether err is a validation/monotonicity
// rejection (logged as "rejected sample") rather than a
// backend-availability failure (logged as "failed to apply sample"); both
// are counted as errored.
func isApplicationError(err error) bool {
	return errors.Is(err, apierr.BadTelemetry) || errors.Is(err, apierr.Conflict)
}

func (w *Worker) printStats() {
	log.Printf("ingest stats: %d applied, %d stale/rejected, %d errored", w.applied, w.stale, w.errored)
}
