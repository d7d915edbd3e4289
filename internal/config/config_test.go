package config

import (
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Port != "8009" {
		t.Errorf("expected port 8009, got %s", cfg.Port)
	}
	if cfg.EngineTimeout != 10*time.Second {
		t.Errorf("expected 10s engine timeout, got %s", cfg.EngineTimeout)
	}
	if cfg.MapWidth != 1200 || cfg.MapHeight != 1100 {
		t.Errorf("unexpected map size %dx%d", cfg.MapWidth, cfg.MapHeight)
	}
	if cfg.InteractionMode != "click" || cfg.Journal != JournalNone {
		t.Errorf("unexpected mode/journal %s/%s", cfg.InteractionMode, cfg.Journal)
	}
	if cfg.TracingEnabled() {
		t.Error("tracing should be off without an endpoint")
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":             "9000",
		"ADJUDICATOR_PATH": "/usr/local/bin/adjudicator",
		"ADJUDICATOR_ARGS": "--variant classic",
		"ENGINE_TIMEOUT":   "250ms",
		"JOURNAL":          "SQLite",
		"INTERACTION_MODE": "menu",
		"OTEL_ENDPOINT":    "http://localhost:4318",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Port != "9000" || cfg.AdjudicatorPath != "/usr/local/bin/adjudicator" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !slices.Equal(cfg.AdjudicatorArgs, []string{"--variant", "classic"}) {
		t.Errorf("unexpected args %q", cfg.AdjudicatorArgs)
	}
	if cfg.EngineTimeout != 250*time.Millisecond {
		t.Errorf("unexpected timeout %s", cfg.EngineTimeout)
	}
	if cfg.Journal != JournalSQLite {
		t.Errorf("expected sqlite journal, got %s", cfg.Journal)
	}
	if !cfg.TracingEnabled() {
		t.Error("tracing should be on with an endpoint")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []map[string]string{
		{"JOURNAL": "mongo"},
		{"MAP_WIDTH": "0"},
		{"ENGINE_TIMEOUT": "soon"},
		{"ENGINE_TIMEOUT": "-1s"},
	}
	for _, vars := range tests {
		if _, err := LoadFrom(vars); err == nil {
			t.Errorf("expected error for %v", vars)
		}
	}
}

func TestTracingDisabledExplicitly(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"OTEL_ENDPOINT": "http://collector:4318", "OTEL_ENABLED": "false"})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.TracingEnabled() {
		t.Error("OTEL_ENABLED=false should disable tracing")
	}
}
