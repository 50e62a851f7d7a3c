package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress  string        `yaml:"serverAddress"`
	Environment    string        `yaml:"environment"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// Storage
	StoreDriver   string `yaml:"storeDriver"`
	AWSRegion     string `yaml:"awsRegion"`
	DynamoDBTable string `yaml:"dynamoDBTable"`
	// DynamoDBEndpoint points the SDK at DynamoDB Local or LocalStack.
	DynamoDBEndpoint string `yaml:"dynamoDBEndpoint"`
	NodeIndexName    string `yaml:"nodeIndexName"`
	SQLitePath       string `yaml:"sqlitePath"`

	// Anchor resource
	RemoteBaseURL         string `yaml:"remoteBaseURL"`
	AnchorResourcePath    string `yaml:"anchorResourcePath"`
	RequireMediaTimeStamp bool   `yaml:"requireMediaTimeStamp"`

	// Logging
	LogLevel string `yaml:"logLevel"`

	// Observability and HTTP features
	EnableMetrics  bool     `yaml:"enableMetrics"`
	EnableTracing  bool     `yaml:"enableTracing"`
	OTLPEndpoint   string   `yaml:"otlpEndpoint"`
	EnableCORS     bool     `yaml:"enableCors"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		RequestTimeout:     30 * time.Second,
		StoreDriver:        DriverMemory,
		AWSRegion:          "us-west-2",
		DynamoDBTable:      "anchors",
		NodeIndexName:      "NodeIndex",
		SQLitePath:         "data/anchors.db",
		AnchorResourcePath: "/immutable-text-anchor",
		LogLevel:           "info",
		EnableMetrics:      true,
		OTLPEndpoint:       "localhost:4317",
		EnableCORS:         true,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by CONFIG_FILE if set, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironment() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)

	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.DynamoDBTable)
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.NodeIndexName = getEnv("NODE_INDEX_NAME", c.NodeIndexName)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.RemoteBaseURL = getEnv("REMOTE_BASE_URL", c.RemoteBaseURL)
	c.AnchorResourcePath = getEnv("ANCHOR_RESOURCE_PATH", c.AnchorResourcePath)
	c.RequireMediaTimeStamp = getEnvBool("REQUIRE_MEDIA_TIMESTAMP", c.RequireMediaTimeStamp)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when tracing is enabled")
	}
	// A proxy serves no traffic from a local store.
	if c.IsProxy() {
		return nil
	}

	switch c.StoreDriver {
	case DriverDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb driver")
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required for the dynamodb driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("the memory driver cannot be used in production")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// IsProxy reports whether anchor operations are forwarded to REMOTE_BASE_URL
// instead of a local store.
func (c *Config) IsProxy() bool {
	return c.RemoteBaseURL != ""
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration accepts Go durations ("15s") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
