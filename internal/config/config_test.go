package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.PollInterval)
	assert.Equal(t, 300*time.Second, cfg.Pipeline.MaxWait)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.RequestTimeout)
	assert.Equal(t, "receipt_text", cfg.Pipeline.ReceiptOutput)
	assert.Equal(t, "recipe_json", cfg.Pipeline.RecipeOutput)
	assert.Equal(t, 3, cfg.Pipeline.MaxSuggestions)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("GUMLOOP_POLL_INTERVAL", "500ms")
	t.Setenv("GUMLOOP_MAX_WAIT", "1m")
	t.Setenv("GUMLOOP_API_KEY", "key")
	t.Setenv("GUMLOOP_USER_ID", "user")
	t.Setenv("GUMLOOP_RECEIPT_PIPELINE_ID", "r")
	t.Setenv("GUMLOOP_RECIPE_PIPELINE_ID", "c")
	t.Setenv("GUMLOOP_SUGGEST_PIPELINE_ID", "s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.PollInterval)
	assert.Equal(t, time.Minute, cfg.Pipeline.MaxWait)
	assert.Equal(t, "key", cfg.Pipeline.APIKey)
}

func TestLoad_SecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "5001"},
		Store:  StoreConfig{Backend: StoreBackendMemory},
		Pipeline: PipelineConfig{
			PollInterval:   2 * time.Second,
			MaxWait:        300 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxSuggestions: 3,
		},
		Upload: UploadConfig{MaxBytes: 1024},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }, true},
		{"port not a number", func(c *Config) { c.Server.Port = "http" }, true},
		{"unknown store", func(c *Config) { c.Store.Backend = "postgres" }, true},
		{"zero poll interval", func(c *Config) { c.Pipeline.PollInterval = 0 }, true},
		{"zero max wait", func(c *Config) { c.Pipeline.MaxWait = 0 }, true},
		{"negative rate", func(c *Config) { c.Pipeline.MaxRequestsPerSec = -1 }, true},
		{"api key without ids", func(c *Config) { c.Pipeline.APIKey = "k"; c.Pipeline.UserID = "u" }, true},
		{"api key with ids", func(c *Config) {
			c.Pipeline.APIKey = "k"
			c.Pipeline.UserID = "u"
			c.Pipeline.ReceiptPipelineID = "a"
			c.Pipeline.RecipePipelineID = "b"
			c.Pipeline.SuggestPipelineID = "c"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
