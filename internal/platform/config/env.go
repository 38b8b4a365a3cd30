// Package config reads service configuration from the process environment.
// Commands declare their settings as env-tagged structs (ROUNDTABLE_*
// variables) and layer flag overrides on top.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the environment variables named by its env
// struct tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
