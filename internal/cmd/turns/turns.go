// Package turns parses turns service flags and launches the service.
package turns

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/louisbranch/roundtable/internal/app"
	entrypoint "github.com/louisbranch/roundtable/internal/platform/cmd"
)

// Config holds turns command configuration.
type Config struct {
	Port   int    `env:"ROUNDTABLE_TURNS_PORT" envDefault:"8080"`
	DBPath string `env:"ROUNDTABLE_DB_PATH" envDefault:"data/turns.db"`
	// Secret is env-only so it never shows up in process listings.
	Secret string `env:"ROUNDTABLE_SHARED_SECRET"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The turns HTTP server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the SQLite database file")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the turns HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Secret) == "" {
		log.Print("ROUNDTABLE_SHARED_SECRET is empty; advance requests are unauthenticated")
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTurns, func(context.Context) error {
		return app.Run(ctx, app.Options{
			Port:   cfg.Port,
			DBPath: cfg.DBPath,
			Secret: cfg.Secret,
		})
	})
}
