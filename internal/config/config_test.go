package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-secret"

func envMap(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, envMap(map[string]string{
		"STORE_DRIVER":         "MEMORY",
		"PORT":                 "9090",
		"HOST":                 "127.0.0.1",
		"CORS_ALLOWED_ORIGINS": " https://a.test, ,https://b.test ",
		"JWT_SECRET":           testSecret,
		"ACCESS_TOKEN_TTL":     "15m",
		"REDIS_URL":            "redis://localhost:6379/0",
		"SPOTIFY_RATE_LIMIT":   "2.5",
		"DEMO_DATA":            "true",
		"DB_MAX_OPEN_CONNS":    "8",
		"DB_CONNECT_TIMEOUT":   "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.ShareTTL)
	assert.Equal(t, 2.5, cfg.Spotify.RateLimit)
	assert.True(t, cfg.DemoData)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.NoError(t, Validate(cfg))
}

func TestApplyEnvReportsAllParseErrors(t *testing.T) {
	cfg := Defaults()
	err := applyEnv(&cfg, envMap(map[string]string{
		"PORT":             "eighty",
		"ACCESS_TOKEN_TTL": "forever",
		"AUTO_MIGRATE":     "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_TTL")
	assert.Contains(t, err.Error(), "AUTO_MIGRATE")
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Database.URL = "postgres://localhost/setlister"
	valid.Auth.Secret = testSecret
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"postgres needs url", func(c *Config) { c.Database.URL = "" }, "Config.Database.URL"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "Config.Database.Driver"},
		{"short secret", func(c *Config) { c.Auth.Secret = "short" }, "Config.Auth.Secret"},
		{"zero ttl", func(c *Config) { c.Auth.ShareTTL = 0 }, "Config.Auth.ShareTTL"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "Config.Server.Port"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "Config.Log.Format"},
		{"empty buffer", func(c *Config) { c.Notify.Buffer = 0 }, "Config.Notify.Buffer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	memory := Defaults()
	memory.Database.Driver = DriverMemory
	memory.Auth.Secret = testSecret
	assert.NoError(t, Validate(memory))
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setlister.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
demo_data = true

[database]
driver = "postgres"
url = "postgres://file/setlister"

[server]
port = 7000

[auth]
jwt_secret = "file-secret-0123456789"

[log]
level = "debug"
`), 0o600))

	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "7100")
	for _, key := range []string{"DATABASE_URL", "STORE_DRIVER", "JWT_SECRET", "LOG_LEVEL", "DEMO_DATA"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/setlister", cfg.Database.URL)
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "file-secret-0123456789", cfg.Auth.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.DemoData)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o600))
	t.Setenv(FileEnv, path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}
