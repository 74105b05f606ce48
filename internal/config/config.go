// Package config loads and validates the calsync YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// Provider selects the remote calendar backend: "google" or "outlook".
	Provider string `yaml:"provider"`

	// CalendarID selects which calendar to sync. Defaults to "primary" for
	// Google and the account's default calendar for Outlook.
	CalendarID string `yaml:"calendar_id"`

	// ConflictStrategy decides which side wins when both copies of an event
	// changed: "newest", "local", "remote", or "manual". Defaults to "newest".
	ConflictStrategy string `yaml:"conflict_strategy"`

	// PollInterval controls how often a sync pass runs.
	// Minimum 30s, maximum 1h. Defaults to 5m if unset.
	PollInterval time.Duration `yaml:"poll_interval"`

	// WindowDays bounds full fetches to [now, now+WindowDays).
	// Defaults to 30, maximum 365.
	WindowDays int `yaml:"window_days"`

	// WebhookURL, when set, registers a push-notification channel with the
	// provider so changes surface between polls. Must be a public HTTPS URL.
	WebhookURL string `yaml:"webhook_url"`

	// StateDB overrides the SQLite state database path.
	// Defaults to ~/.local/share/calsync/state.db.
	StateDB string `yaml:"state_db,omitempty"`

	// Google configures the Google Calendar provider. Required when
	// provider is "google".
	Google *GoogleConfig `yaml:"google,omitempty"`

	// Outlook configures the Outlook / Office 365 provider. Required when
	// provider is "outlook".
	Outlook *OutlookConfig `yaml:"outlook,omitempty"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// GoogleConfig holds Google Calendar credentials.
type GoogleConfig struct {
	// CredentialsFile is the OAuth client JSON downloaded from the Google
	// Cloud console.
	CredentialsFile string `yaml:"credentials_file"`

	// TokenFile is where the user token from the auth flow is stored.
	TokenFile string `yaml:"token_file"`
}

// OutlookConfig holds Microsoft identity platform settings.
type OutlookConfig struct {
	// ClientID is the Azure app registration's application ID.
	ClientID string `yaml:"client_id"`

	// TenantID scopes sign-in to a directory. Defaults to "common".
	TenantID string `yaml:"tenant_id,omitempty"`

	// TokenFile is where the user token from the auth flow is stored.
	TokenFile string `yaml:"token_file"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "calsync".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment
	// variable. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/calsync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "calsync", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Write validates the config and saves it as YAML at path, creating parent
// directories as needed. Used by the setup wizard.
func (c *Config) Write(path string) error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// 0600: the file may hold credential paths and webhook secrets.
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// validate checks that all required fields are present and well-formed.
func (c *Config) validate() error {
	switch c.Provider {
	case "google":
		if c.Google == nil {
			return fmt.Errorf("google block is required when provider is \"google\"")
		}
		if c.Google.CredentialsFile == "" {
			return fmt.Errorf("google.credentials_file is required")
		}
		if c.Google.TokenFile == "" {
			return fmt.Errorf("google.token_file is required")
		}
	case "outlook":
		if c.Outlook == nil {
			return fmt.Errorf("outlook block is required when provider is \"outlook\"")
		}
		if c.Outlook.ClientID == "" {
			return fmt.Errorf("outlook.client_id is required")
		}
		if c.Outlook.TokenFile == "" {
			return fmt.Errorf("outlook.token_file is required")
		}
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("unknown provider %q (expected \"google\" or \"outlook\")", c.Provider)
	}

	if c.CalendarID == "" {
		c.CalendarID = "primary"
	}

	if c.ConflictStrategy == "" {
		c.ConflictStrategy = "newest"
	}
	switch c.ConflictStrategy {
	case "newest", "local", "remote", "manual":
	default:
		return fmt.Errorf("unknown conflict_strategy %q", c.ConflictStrategy)
	}

	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Minute
	}
	if c.PollInterval < 30*time.Second {
		return fmt.Errorf("poll_interval %v is too short (minimum 30s)", c.PollInterval)
	}
	if c.PollInterval > time.Hour {
		return fmt.Errorf("poll_interval %v is too long (maximum 1h)", c.PollInterval)
	}

	if c.WindowDays == 0 {
		c.WindowDays = 30
	}
	if c.WindowDays < 1 || c.WindowDays > 365 {
		return fmt.Errorf("window_days %d out of range (1-365)", c.WindowDays)
	}

	if c.WebhookURL != "" {
		u, err := url.ParseRequestURI(c.WebhookURL)
		if err != nil || u.Scheme != "https" {
			return fmt.Errorf("webhook_url %q must be a valid https URL", c.WebhookURL)
		}
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
