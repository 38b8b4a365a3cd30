// Package seed parses seed command flags and initializes a turn queue.
package seed

import (
	"context"
	"flag"
	"io"

	entrypoint "github.com/louisbranch/roundtable/internal/platform/cmd"
	"github.com/louisbranch/roundtable/internal/seed"
)

// Config holds seed command configuration.
type Config struct {
	DBPath    string `env:"ROUNDTABLE_DB_PATH" envDefault:"data/turns.db"`
	SessionID string
	Entries   int
	Seed      int64
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.SessionID, "session", "", "Session id to initialize (default: generated)")
	fs.IntVar(&cfg.Entries, "entries", 4, "Number of turn slots to create")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Random seed for a reproducible shuffle (0 = random)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return seed.Run(ctx, seed.Config{
		DBPath:    cfg.DBPath,
		SessionID: cfg.SessionID,
		Entries:   cfg.Entries,
		Seed:      cfg.Seed,
	}, out)
}
