package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "/immutable-text-anchor", cfg.AnchorResourcePath)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/a.db")
	t.Setenv("REQUIRE_MEDIA_TIMESTAMP", "true")
	t.Setenv("REQUEST_TIMEOUT", "5")
	t.Setenv("ALLOWED_ORIGINS", "http://a,http://b")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/a.db", cfg.SQLitePath)
	assert.True(t, cfg.RequireMediaTimeStamp)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storeDriver: dynamodb
dynamoDBTable: from-file
awsRegion: eu-west-1
requestTimeout: 10s
enableMetrics: false
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DYNAMODB_TABLE", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverDynamoDB, cfg.StoreDriver)
	assert.Equal(t, "from-env", cfg.DynamoDBTable)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.EnableMetrics)
}

func TestLoadConfig_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, "unknown STORE_DRIVER"},
		{"dynamodb without table", func(c *Config) { c.StoreDriver = DriverDynamoDB; c.DynamoDBTable = "" }, "DYNAMODB_TABLE"},
		{"sqlite without path", func(c *Config) { c.StoreDriver = DriverSQLite; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"memory in production", func(c *Config) { c.Environment = "production" }, "memory driver"},
		{"tracing without endpoint", func(c *Config) { c.EnableTracing = true; c.OTLPEndpoint = "" }, "OTLP_ENDPOINT"},
		{"proxy skips store settings", func(c *Config) {
			c.RemoteBaseURL = "http://anchors.internal"
			c.Environment = "production"
			c.StoreDriver = "mongo"
		}, ""},
		{"proxy still checks tracing", func(c *Config) {
			c.RemoteBaseURL = "http://anchors.internal"
			c.EnableTracing = true
			c.OTLPEndpoint = ""
		}, "OTLP_ENDPOINT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
