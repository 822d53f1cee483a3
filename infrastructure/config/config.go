package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values are resolved in order:
// defaults, the optional YAML file named by CONFIG_FILE, then environment.
type Config struct {
	// Server configuration
	ServerAddress   string        `yaml:"server_address"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Use case data
	DataDir           string `yaml:"data_dir"`
	CatalogFile       string `yaml:"catalog_file"`
	SchemaFile        string `yaml:"schema_file"`
	ResponseCacheSize int    `yaml:"response_cache_size"`
	WatchCatalog      bool   `yaml:"watch_catalog"`

	// Upstream analysis service
	UpstreamAPI     string        `yaml:"upstream_api"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	Breaker         BreakerConfig `yaml:"breaker"`

	// Neo4j, used by the exporter CLI
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	// Feature flags
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
}

// BreakerConfig tunes the circuit breaker around upstream calls
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		ServerAddress:     ":8080",
		Environment:       "development",
		ShutdownTimeout:   30 * time.Second,
		CORSOrigins:       []string{"*"},
		LogLevel:          "info",
		DataDir:           "data",
		CatalogFile:       "use_cases.json",
		SchemaFile:        "response_schema.json",
		ResponseCacheSize: 64,
		WatchCatalog:      true,
		UpstreamTimeout:   120 * time.Second,
		Breaker: BreakerConfig{
			MaxRequests:  1,
			Interval:     60 * time.Second,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.6,
		},
		Neo4jURI:      "bolt://localhost:7687",
		Neo4jUser:     "neo4j",
		Neo4jDatabase: "neo4j",
		EnableMetrics: true,
		OTLPEndpoint:  "localhost:4317",
	}
}

// LoadConfig loads .env, the optional YAML overlay and the environment
func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.CatalogFile = getEnv("CATALOG_FILE", c.CatalogFile)
	c.SchemaFile = getEnv("SCHEMA_FILE", c.SchemaFile)
	c.ResponseCacheSize = getEnvInt("RESPONSE_CACHE_SIZE", c.ResponseCacheSize)
	c.WatchCatalog = getEnvBool("WATCH_CATALOG", c.WatchCatalog)

	c.UpstreamAPI = strings.TrimRight(getEnv("UPSTREAM_API", c.UpstreamAPI), "/")
	c.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", c.UpstreamTimeout)
	c.Breaker.MinRequests = uint32(getEnvInt("BREAKER_MIN_REQUESTS", int(c.Breaker.MinRequests)))
	c.Breaker.Timeout = getEnvDuration("BREAKER_TIMEOUT", c.Breaker.Timeout)
	c.Breaker.FailureRatio = getEnvFloat("BREAKER_FAILURE_RATIO", c.Breaker.FailureRatio)

	c.Neo4jURI = getEnv("NEO4J_URI", c.Neo4jURI)
	c.Neo4jUser = getEnv("NEO4J_USER", c.Neo4jUser)
	c.Neo4jPassword = getEnv("NEO4J_PASSWORD", c.Neo4jPassword)
	c.Neo4jDatabase = getEnv("NEO4J_DATABASE", c.Neo4jDatabase)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.UpstreamAPI != "" {
		if _, err := NormalizeUpstreamURL(c.UpstreamAPI); err != nil {
			return fmt.Errorf("UPSTREAM_API: %w", err)
		}
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.ResponseCacheSize <= 0 {
		return fmt.Errorf("RESPONSE_CACHE_SIZE must be positive")
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker failure ratio must be in (0, 1]")
	}
	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when tracing is enabled")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
