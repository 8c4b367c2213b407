package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/session"
	"github.com/publiclogic/archieve/internal/syncer"
	pkgconfig "github.com/publiclogic/archieve/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Queue backends.
const (
	QueueBackendSQLite = "sqlite"
	QueueBackendFile   = "file"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Queue    QueueConfig       `yaml:"queue"`
	Remote   RemoteConfig      `yaml:"remote"`
	Capture  CaptureConfig     `yaml:"capture"`
	Sync     SyncConfig        `yaml:"sync"`
	Calendar CalendarConfig    `yaml:"calendar"`
	Auth     AuthConfig        `yaml:"auth"`
	Session  SessionConfig     `yaml:"session"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Queue, &c.Remote, &c.Capture, &c.Sync, &c.Calendar, &c.Auth,
	} {
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
	// ShowcaseMode seeds the showcase signal at startup.
	ShowcaseMode bool `yaml:"showcase_mode"`
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

// QueueConfig selects where the offline queue is persisted. Path is the
// SQLite file for the sqlite backend and a directory for the file backend.
type QueueConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

// Validate validates the queue configuration.
func (c *QueueConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = QueueBackendSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(QueueBackendSQLite, QueueBackendFile)),
		validation.Field(&c.Path, validation.Required),
	)
}

// RemoteConfig points at the record store. An empty BaseURL keeps the
// service permanently offline.
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"`
	TokenFile string        `yaml:"token_file"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Enabled reports whether a record store is configured.
func (c *RemoteConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.TokenFile, validation.When(c.BaseURL != "", validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// CaptureConfig holds the fixed tags stamped on every capture.
type CaptureConfig struct {
	Environment string `yaml:"environment"`
	Module      string `yaml:"module"`
}

// Validate validates the capture configuration.
func (c *CaptureConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required),
		validation.Field(&c.Module, validation.Required),
	)
}

// SyncConfig controls the sync coordinator.
type SyncConfig struct {
	Confirm string `yaml:"confirm"`
	Auto    bool   `yaml:"auto"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.Confirm == "" {
		c.Confirm = string(syncer.ConfirmBatch)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Confirm, validation.In(string(syncer.ConfirmBatch), string(syncer.ConfirmPerItem))),
	)
}

// CalendarConfig configures the calendar health probe. An empty HealthURL
// disables it.
type CalendarConfig struct {
	HealthURL    string        `yaml:"health_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HealthURL, is.URL),
		validation.Field(&c.PollInterval, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
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

// SessionConfig locates the session file supplying the default actor.
type SessionConfig struct {
	Path string `yaml:"path"`
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
		Queue: QueueConfig{
			Backend: QueueBackendSQLite,
			Path:    "./archieve.db",
			Key:     queue.DefaultKey,
		},
		Remote: RemoteConfig{
			TokenFile: "./.archieve/token",
			Timeout:   10 * time.Second,
		},
		Capture: CaptureConfig{
			Environment: capture.DefaultEnvironment,
			Module:      capture.DefaultModule,
		},
		Sync: SyncConfig{
			Confirm: string(syncer.ConfirmBatch),
			Auto:    true,
		},
		Calendar: CalendarConfig{
			PollInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Session: SessionConfig{
			Path: session.DefaultPath(),
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// yields the validated defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(path, "", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
