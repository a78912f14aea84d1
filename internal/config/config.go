// Package config loads gateway configuration.
//
// Sources, later wins:
//   - built-in defaults (defaults.go)
//   - YAML file, with ${VAR} and ${VAR:-default} expanded from the environment
//   - plain environment overrides (BACKEND_BASE, GATEWAY_PORT, LOG_LEVEL)
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/studyhall/chat-gateway/internal/monitoring"
)

// Config is the root gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig controls the inbound HTTP listener. WriteTimeout stays zero
// unless configured, since it would cut long forwarded calls.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// BackendConfig locates the answer backend.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// UploadsConfig governs the two document upload endpoints.
type UploadsConfig struct {
	// RequireAuth rejects uploads without an Authorization header before
	// anything is streamed upstream. Applies to both upload paths.
	RequireAuth *bool `yaml:"require_auth"`
}

// MonitoringConfig groups logging and telemetry.
type MonitoringConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogOutput     string `yaml:"log_output"`
	TelemetryPath string `yaml:"telemetry_path"`
	LogToStdout   bool   `yaml:"log_to_stdout"`
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	BackendBase string `envconfig:"BACKEND_BASE"`
	GatewayPort int    `envconfig:"GATEWAY_PORT"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path (optional; "" skips it), then applies
// defaults and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(ExpandEnvWithDefaults(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if env.BackendBase != "" {
		cfg.Backend.BaseURL = env.BackendBase
	}
	if env.GatewayPort != 0 {
		cfg.Server.Port = env.GatewayPort
	}
	if env.LogLevel != "" {
		cfg.Monitoring.LogLevel = env.LogLevel
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultGatewayPort
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = DefaultServerReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		c.Backend.BaseURL = DefaultBackendBaseURL
	}
	c.Backend.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.DialTimeout == 0 {
		c.Backend.DialTimeout = DefaultDialTimeout
	}
	if c.Uploads.RequireAuth == nil {
		v := DefaultUploadRequireAuth
		c.Uploads.RequireAuth = &v
	}
	if c.Monitoring.LogLevel == "" {
		c.Monitoring.LogLevel = DefaultLogLevel
	}
	if c.Monitoring.LogFormat == "" {
		c.Monitoring.LogFormat = DefaultLogFormat
	}
	if c.Monitoring.LogOutput == "" {
		c.Monitoring.LogOutput = DefaultLogOutput
	}
}

// Validate rejects configurations the gateway cannot serve with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL: %q", c.Backend.BaseURL)
	}
	return nil
}

// UploadRequiresAuth reports the effective upload policy.
func (c *Config) UploadRequiresAuth() bool {
	if c.Uploads.RequireAuth == nil {
		return DefaultUploadRequireAuth
	}
	return *c.Uploads.RequireAuth
}

// Logger converts monitoring settings to the logger setup input.
func (c *Config) Logger() monitoring.LoggerConfig {
	return monitoring.LoggerConfig{
		Level:  c.Monitoring.LogLevel,
		Format: c.Monitoring.LogFormat,
		Output: c.Monitoring.LogOutput,
	}
}

// Telemetry converts monitoring settings to the tracker input.
func (c *Config) Telemetry() monitoring.TelemetryConfig {
	return monitoring.TelemetryConfig{
		Enabled:     c.Monitoring.TelemetryPath != "",
		LogPath:     c.Monitoring.TelemetryPath,
		LogToStdout: c.Monitoring.LogToStdout,
	}
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnvWithDefaults replaces ${VAR} and ${VAR:-default} references.
// Unset variables without a default expand to "".
func ExpandEnvWithDefaults(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRefPattern.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		return m[3]
	})
}
