package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daybook/internal/daycount"
	"github.com/starford/daybook/internal/journal"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultStartDate is the start date used when none is configured.
const DefaultStartDate = "2025-08-04T00:06:00"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	Counter CounterConfig     `yaml:"counter"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Coach   CoachConfig       `yaml:"coach"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.Journal, &c.Counter, &c.SQLite, &c.Auth, &c.Coach,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// JournalConfig locates the journal file. File is relative to DataDir.
type JournalConfig struct {
	DataDir string `yaml:"data_dir"`
	File    string `yaml:"file"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.File, validation.Required, validation.By(localPath)),
	)
}

func localPath(value any) error {
	s, _ := value.(string)
	if !filepath.IsLocal(s) {
		return errors.New("must be a relative path inside the data directory")
	}
	return nil
}

// CounterConfig holds the default start date and the time zone that decides
// where a calendar day begins. Timezone is an IANA name or "Local".
type CounterConfig struct {
	StartDate string `yaml:"start_date"`
	Timezone  string `yaml:"timezone"`
}

// Validate validates the counter configuration.
func (c *CounterConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.StartDate, validation.Required),
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	); err != nil {
		return err
	}
	if _, err := c.Start(); err != nil {
		return fmt.Errorf("counter: start_date: %w", err)
	}
	return nil
}

// Location resolves Timezone. Empty means the process-local zone.
func (c *CounterConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Start parses StartDate in the configured zone.
func (c *CounterConfig) Start() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	return daycount.ParseDate(c.StartDate, loc)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Token must be non-empty. /api takes it as a Bearer header or
//     the login cookie; the HTML pages require signing in at /login.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CoachConfig configures the optional coaching suggestion. An empty APIKey
// keeps the feature on with placeholder text.
type CoachConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Goal      string        `yaml:"goal"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Validate validates the coach configuration.
func (c *CoachConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Min(0), validation.Max(4096)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	)
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Journal: JournalConfig{
			DataDir: "./data",
			File:    journal.DefaultFile,
		},
		Counter: CounterConfig{
			StartDate: DefaultStartDate,
		},
		SQLite: SQLiteConfig{
			Path: "./daybook.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Coach: CoachConfig{
			BaseURL:   "https://api.groq.com",
			Model:     "llama-3.1-8b-instant",
			Goal:      "Stay consistent and make steady progress every day.",
			MaxTokens: 350,
			Timeout:   30 * time.Second,
			CacheTTL:  10 * time.Minute,
		},
	}
}
