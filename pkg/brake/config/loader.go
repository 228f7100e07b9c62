// Package config loads notifier configuration from TOML files and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

// Environment variables that override file settings.
const (
	EnvAPIKey      = "AIRBRAKE_API_KEY"
	EnvEnvironment = "AIRBRAKE_ENVIRONMENT"
	EnvServerURI   = "AIRBRAKE_SERVER_URI"
	EnvAppVersion  = "AIRBRAKE_APP_VERSION"
	EnvProjectRoot = "AIRBRAKE_PROJECT_ROOT"
)

// file is the on-disk layout:
//
//	[airbrake]
//	api_key = "..."
//	environment = "production"
type file struct {
	Airbrake brake.Config `toml:"airbrake"`
}

// Load reads configuration from path, applies environment overrides, and
// validates the result. An empty path loads defaults plus environment.
func Load(path string) (brake.Config, error) {
	cfg := brake.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return brake.Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg, err = Parse(string(data), cfg)
		if err != nil {
			return brake.Config{}, err
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return brake.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes TOML data over base. Keys outside the [airbrake] table's
// known fields are rejected.
func Parse(data string, base brake.Config) (brake.Config, error) {
	f := file{Airbrake: base}
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return brake.Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return brake.Config{}, fmt.Errorf("%w: unknown keys %s", brake.ErrInvalidConfig, strings.Join(keys, ", "))
	}
	return f.Airbrake, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *brake.Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvEnvironment); v != "" {
		cfg.EnvironmentName = v
	}
	if v := os.Getenv(EnvServerURI); v != "" {
		cfg.ServerURI = v
	}
	if v := os.Getenv(EnvAppVersion); v != "" {
		cfg.AppVersion = v
	}
	if v := os.Getenv(EnvProjectRoot); v != "" {
		cfg.ProjectRoot = v
	}
}
