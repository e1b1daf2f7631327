// Package config loads runtime settings from an optional TOML file, a local
// env file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// FileEnv names the environment variable pointing at a TOML config file.
const FileEnv = "SETLISTER_CONFIG"

// LocalEnvFile is loaded into the environment when present.
const LocalEnvFile = "config/local.env"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config contains application-wide settings.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Notify   NotifyConfig   `toml:"notify"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Log      LogConfig      `toml:"log"`
	DemoData bool           `toml:"demo_data"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	Driver      string `toml:"driver" validate:"oneof=postgres memory"`
	URL         string `toml:"url" validate:"required_if=Driver postgres"`
	AutoMigrate bool   `toml:"auto_migrate"`

	MaxOpenConns    int           `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `toml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" validate:"gte=0"`
	// ConnectTimeout bounds how long startup waits for the database to answer.
	ConnectTimeout time.Duration `toml:"connect_timeout" validate:"gt=0"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig contains token signing settings.
type AuthConfig struct {
	Secret       string        `toml:"jwt_secret" validate:"min=16"`
	AccessTTL    time.Duration `toml:"access_token_ttl" validate:"gt=0"`
	ShareTTL     time.Duration `toml:"share_token_ttl" validate:"gt=0"`
	ShareBaseURL string        `toml:"share_base_url" validate:"omitempty,url"`
}

// NotifyConfig controls change notifications.
type NotifyConfig struct {
	RedisURL string `toml:"redis_url" validate:"omitempty,url"`
	Buffer   int    `toml:"buffer" validate:"min=1"`
}

// SpotifyConfig configures playlist export.
type SpotifyConfig struct {
	APIURL    string  `toml:"api_url" validate:"url"`
	RateLimit float64 `toml:"rate_limit" validate:"gte=0"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"oneof=json text"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Auth: AuthConfig{
			AccessTTL: 24 * time.Hour,
			ShareTTL:  7 * 24 * time.Hour,
		},
		Notify:  NotifyConfig{Buffer: 256},
		Spotify: SpotifyConfig{APIURL: "https://api.spotify.com/v1", RateLimit: 5},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	_ = godotenv.Load(LocalEnvFile)

	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the TOML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks cfg against its validation tags and reports every problem.
func Validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("STORE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_URL", &cfg.Database.URL)
	boolean("AUTO_MIGRATE", &cfg.Database.AutoMigrate)
	integer("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	integer("DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	duration("DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
	duration("DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout)

	str("HOST", &cfg.Server.Host)
	integer("PORT", &cfg.Server.Port)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		cfg.Server.AllowedOrigins = parseList(v)
	}

	str("JWT_SECRET", &cfg.Auth.Secret)
	duration("ACCESS_TOKEN_TTL", &cfg.Auth.AccessTTL)
	duration("SHARE_TOKEN_TTL", &cfg.Auth.ShareTTL)
	str("SHARE_BASE_URL", &cfg.Auth.ShareBaseURL)

	str("REDIS_URL", &cfg.Notify.RedisURL)
	integer("NOTIFY_BUFFER", &cfg.Notify.Buffer)

	str("SPOTIFY_API_URL", &cfg.Spotify.APIURL)
	float("SPOTIFY_RATE_LIMIT", &cfg.Spotify.RateLimit)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	boolean("DEMO_DATA", &cfg.DemoData)

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	return errors.Join(errs...)
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
