package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/canopyhq/canopy/internal/auth"
	"github.com/canopyhq/canopy/internal/cache"
	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/pkg/mail"
)

// Config represents the runtime configuration for the Canopy backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Content    ContentConfig    `mapstructure:"content"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Email      EmailConfig      `mapstructure:"email"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig controls the fixed-window request limiter.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ContentConfig locates the shared content blob and the per-page JSON mirror.
// StorageMode is resolved once at load time; the rest of the codebase never
// inspects deployment environment variables to decide where content lives.
type ContentConfig struct {
	StorageMode string        `mapstructure:"storage_mode"`
	DataFile    string        `mapstructure:"data_file"`
	PagesDir    string        `mapstructure:"pages_dir"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// StoreConfig converts the raw configuration into a content store config.
func (c ContentConfig) StoreConfig() (content.StoreConfig, error) {
	mode, err := content.ParseStorageMode(c.StorageMode)
	if err != nil {
		return content.StoreConfig{}, err
	}
	return content.StoreConfig{
		Mode:     mode,
		DataFile: c.DataFile,
	}, nil
}

// SyncConfig controls automatic content synchronisation.
type SyncConfig struct {
	OnStart   bool   `mapstructure:"on_start"`
	Schedule  string `mapstructure:"schedule"`
	Direction string `mapstructure:"direction"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT     JWTSettings     `mapstructure:"jwt"`
	Session SessionSettings `mapstructure:"session"`
	Admin   AdminSettings   `mapstructure:"admin"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// SessionSettings configures refresh tokens and session lifetimes.
type SessionSettings struct {
	RefreshTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	RefreshLength int           `mapstructure:"refresh_token_length"`
}

// AdminSettings seed the first back-office account when the user table is empty.
type AdminSettings struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// JWTServiceConfig converts settings into the auth package's config shape.
func (a AuthConfig) JWTServiceConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:         a.JWT.Secret,
		Issuer:         a.JWT.Issuer,
		AccessTokenTTL: a.JWT.TTL,
	}
}

// SessionServiceConfig converts settings into the auth package's config shape.
func (a AuthConfig) SessionServiceConfig() auth.SessionConfig {
	return auth.SessionConfig{
		RefreshTokenTTL: a.Session.RefreshTTL,
		RefreshLength:   a.Session.RefreshLength,
	}
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP   SMTPConfig `mapstructure:"smtp"`
	Notify string     `mapstructure:"notify"` // recipient for contact-form notifications
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMTPSettings converts the configuration into the mail package's shape.
func (e EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  e.SMTP.Enabled,
		Host:     e.SMTP.Host,
		Port:     e.SMTP.Port,
		Username: e.SMTP.Username,
		Password: e.SMTP.Password,
		From:     e.SMTP.From,
		UseTLS:   e.SMTP.UseTLS,
		Timeout:  e.SMTP.Timeout,
	}
}

// CacheTTL returns the configured page cache TTL with the package default as fallback.
func (c ContentConfig) CacheTTLOrDefault() time.Duration {
	if c.CacheTTL <= 0 {
		return cache.DefaultTTL
	}
	return c.CacheTTL
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CANOPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if _, err := content.ParseStorageMode(config.Content.StorageMode); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/canopy.sqlite")

	v.SetDefault("content.storage_mode", "file")
	v.SetDefault("content.data_file", "./data/content-data.json")
	v.SetDefault("content.pages_dir", "./data/pages")
	v.SetDefault("content.cache_ttl", "5m")

	v.SetDefault("sync.on_start", false)
	v.SetDefault("sync.schedule", "")
	v.SetDefault("sync.direction", "json-to-db")

	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.jwt.issuer", "canopy")
	v.SetDefault("auth.session.refresh_token_ttl", "720h") // 30 days
	v.SetDefault("auth.session.refresh_token_length", 48)
	v.SetDefault("auth.admin.username", "admin")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
