package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings that only make sense per invocation and are therefore
// read from the environment rather than the config file.
type Env struct {
	// Log destination: a file path, "stderr", or empty for the default log file
	LogFile string `env:"DURGESH_LOG"`

	// Overrides log.level from the config file
	LogLevel string `env:"DURGESH_LOG_LEVEL"`

	// Use the line-based chat even on a terminal
	NoTUI bool `env:"DURGESH_NO_TUI"`

	// Extra directory searched first for durgesh.yml
	ConfigHome string `env:"DURGESH_CONFIG_HOME"`
}

// ParseEnv reads Env from the process environment.
func ParseEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return e, fmt.Errorf("error parsing environment: %w", err)
	}
	return e, nil
}
