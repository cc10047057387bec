// SkyPath GIS Static Data Seeder
//
// Bulk-loads vertiports, waypoints, and restricted zones from a JSON
// seed file into the spatial backend through internal/ingest, for
// standing up a new deployment's static airspace picture in one pass
// rather than one update_* call per entity.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/config"
	"github.com/skypath/gis/pkg/geo"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	seedFile   = flag.String("seed-file", "data/seed.json", "Path to the static-data seed JSON file")
)

// seedDocument is the on-disk shape of a seed file: one array per entity
// kind, each entry shaped like the wire update_* request it feeds.
type seedDocument struct {
	Vertiports []seedVertiport `json:"vertiports"`
	Waypoints  []seedWaypoint  `json:"waypoints"`
	Zones      []seedZone      `json:"zones"`
}

type seedVertiport struct {
	UUID    string        `json:"uuid"`
	Label   string        `json:"label"`
	Polygon []geo.Point   `json:"polygon"`
	AltMin  float64       `json:"alt_min_m"`
	AltMax  float64       `json:"alt_max_m"`
}

type seedWaypoint struct {
	Label   string  `json:"label"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	MinAltM float64 `json:"min_altitude_meters"`
}

type seedZone struct {
	Label   string      `json:"label"`
	Polygon []geo.Point `json:"polygon"`
	AltMin  float64     `json:"alt_min_m"`
	AltMax  float64     `json:"alt_max_m"`
	TStart  *time.Time  `json:"t_start"`
	TEnd    *time.Time  `json:"t_end"`
}

func main() {
	flag.Parse()

	log.Println("===========================================")
	log.Println("  Static Data Seeder")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	backend, err := store.Connect(cfg.Database, cfg.Pool)
	if err != nil {
		log.Fatalf("failed to connect to backend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if err := backend.InitSchema(ctx); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}

	doc, err := loadSeedDocument(*seedFile)
	if err != nil {
		log.Fatalf("failed to load seed file %s: %v", *seedFile, err)
	}

	svc := ingest.NewService(backend)

	log.Printf("\nImporting %d vertiports...", len(doc.Vertiports))
	if err := svc.UpdateVertiports(ctx, toVertiportRecords(doc.Vertiports)); err != nil {
		log.Fatalf("failed to import vertiports: %v", err)
	}
	log.Printf("imported %d vertiports", len(doc.Vertiports))

	log.Printf("\nImporting %d waypoints...", len(doc.Waypoints))
	if err := svc.UpdateWaypoints(ctx, toWaypointRecords(doc.Waypoints)); err != nil {
		log.Fatalf("failed to import waypoints: %v", err)
	}
	log.Printf("imported %d waypoints", len(doc.Waypoints))

	log.Printf("\nImporting %d zones...", len(doc.Zones))
	if err := svc.UpdateZones(ctx, toZoneRecords(doc.Zones)); err != nil {
		log.Fatalf("failed to import zones: %v", err)
	}
	log.Printf("imported %d zones", len(doc.Zones))

	log.Println("\n===========================================")
	log.Println("Import complete")
	log.Println("===========================================")
	log.Printf("vertiports: %d, waypoints: %d, zones: %d", len(doc.Vertiports), len(doc.Waypoints), len(doc.Zones))
}

func loadSeedDocument(path string) (seedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedDocument{}, err
	}
	var doc seedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return seedDocument{}, err
	}
	return doc, nil
}

func toVertiportRecords(in []seedVertiport) []ingest.VertiportRecord {
	out := make([]ingest.VertiportRecord, len(in))
	for i, v := range in {
		out[i] = ingest.VertiportRecord{
			UUID:  v.UUID,
			Label: v.Label,
			Polygon: geo.Polygon{
				Vertices: v.Polygon,
				AltMin:   v.AltMin,
				AltMax:   v.AltMax,
			},
		}
	}
	return out
}

func toWaypointRecords(in []seedWaypoint) []ingest.WaypointRecord {
	out := make([]ingest.WaypointRecord, len(in))
	for i, w := range in {
		out[i] = ingest.WaypointRecord{
			Label:   w.Label,
			Point:   geo.Point{Lat: w.Lat, Lon: w.Lon},
			MinAltM: w.MinAltM,
		}
	}
	return out
}

func toZoneRecords(in []seedZone) []ingest.ZoneRecord {
	out := make([]ingest.ZoneRecord, len(in))
	for i, z := range in {
		out[i] = ingest.ZoneRecord{
			Label: z.Label,
			Polygon: geo.Polygon{
				Vertices: z.Polygon,
				AltMin:   z.AltMin,
				AltMax:   z.AltMax,
			},
			TStart: z.TStart,
			TEnd:   z.TEnd,
		}
	}
	return out
}
