package turns

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("turns", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath == "" {
		t.Fatal("expected default db path")
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ROUNDTABLE_TURNS_PORT", "9000")

	fs := flag.NewFlagSet("turns", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9100", "-db-path", "/tmp/override.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9100 {
		t.Fatalf("port = %d, want flag override 9100", cfg.Port)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestParseConfigReadsEnv(t *testing.T) {
	t.Setenv("ROUNDTABLE_TURNS_PORT", "9000")
	t.Setenv("ROUNDTABLE_SHARED_SECRET", "hunter2")

	fs := flag.NewFlagSet("turns", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.Secret != "hunter2" {
		t.Fatalf("secret = %q", cfg.Secret)
	}
}
