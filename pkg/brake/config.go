// config.go defines the configuration surface consumed by the builder and client.

package brake

import (
	"fmt"
	"net/url"
	"os"
)

// DefaultServerURI is the Airbrake v2 notice endpoint.
const DefaultServerURI = "https://api.airbrake.io/notifier_api/v2/notices"

// Config is read-only configuration shared by the builder and client.
type Config struct {
	// APIKey identifies the project to the tracking service.
	APIKey string `toml:"api_key"`

	// ServerURI is the notice endpoint (default: DefaultServerURI).
	ServerURI string `toml:"server_uri"`

	// EnvironmentName is reported as server-environment/environment-name.
	EnvironmentName string `toml:"environment"`

	// AppVersion is optional and omitted from notices when empty.
	AppVersion string `toml:"app_version"`

	// ProjectRoot defaults to the current working directory.
	ProjectRoot string `toml:"project_root"`
}

// DefaultConfig returns a Config with the server URI and project root filled in.
func DefaultConfig() Config {
	cfg := Config{ServerURI: DefaultServerURI}
	if wd, err := os.Getwd(); err == nil {
		cfg.ProjectRoot = wd
	}
	return cfg
}

// withDefaults fills empty ServerURI and ProjectRoot.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ServerURI == "" {
		c.ServerURI = def.ServerURI
	}
	if c.ProjectRoot == "" {
		c.ProjectRoot = def.ProjectRoot
	}
	return c
}

// Validate reports whether the configuration can produce deliverable notices.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}
	if c.ServerURI == "" {
		return fmt.Errorf("%w: server uri is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.ServerURI)
	if err != nil {
		return fmt.Errorf("%w: server uri: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: server uri scheme %q is not http or https", ErrInvalidConfig, u.Scheme)
	}
	return nil
}
