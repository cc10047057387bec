package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.PortREST != 8000 {
		t.Errorf("PortREST = %d, want 8000", cfg.Server.PortREST)
	}
	if cfg.Server.PortGRPC != 50051 {
		t.Errorf("PortGRPC = %d, want 50051", cfg.Server.PortGRPC)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Database.Host = "db.example.internal"
	cfg.Routing.IntersectionThresholdM = 250

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Database.Host != "db.example.internal" {
		t.Errorf("Database.Host = %q, want %q", loaded.Database.Host, "db.example.internal")
	}
	if loaded.Routing.IntersectionThresholdM != 250 {
		t.Errorf("IntersectionThresholdM = %f, want 250", loaded.Routing.IntersectionThresholdM)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PG_HOST", "env-host")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("DOCKER_PORT_REST", "9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Host != "env-host" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "env-host")
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port = %d, want 6543", cfg.Database.Port)
	}
	if cfg.Server.PortREST != 9000 {
		t.Errorf("Server.PortREST = %d, want 9000", cfg.Server.PortREST)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config file, got nil")
	}
}
