package seed

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Entries != 4 {
		t.Fatalf("entries = %d, want 4", cfg.Entries)
	}
	if cfg.DBPath == "" {
		t.Fatal("expected default db path")
	}
	if cfg.SessionID != "" {
		t.Fatalf("session id = %q, want empty", cfg.SessionID)
	}
}

func TestParseConfigFlags(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-session", "s1", "-entries", "6", "-seed", "42"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SessionID != "s1" || cfg.Entries != 6 || cfg.Seed != 42 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestRunInitializesQueue(t *testing.T) {
	var out bytes.Buffer
	cfg := Config{
		DBPath:    filepath.Join(t.TempDir(), "turns.db"),
		SessionID: "s1",
		Entries:   3,
		Seed:      7,
	}
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "session s1 initialized") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
