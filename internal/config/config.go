package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"biasclean/domain/fairness"
	"biasclean/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Run      RunDefaults
	LogLevel string
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory report repository.
type DatabaseConfig struct {
	URL           string
	MaxOpenConns  int
	MigrateOnBoot bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port              string
	GinMode           string
	MaxConcurrentRuns int
	MaxUploadBytes    int64
}

// RunDefaults seed every RunConfig built by the service
type RunDefaults struct {
	MaxIterations       int
	ModificationCeiling float64
	RetentionFloor      float64
	Seed                int64
	Objective           string
	Workers             int
}

// Enabled reports whether a postgres connection string was provided
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.URL) != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Run:      *loadRunDefaults(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:           os.Getenv("DATABASE_URL"),
		MaxOpenConns:  getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MigrateOnBoot: getEnvBoolOrDefault("DB_MIGRATE", true),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:              getEnvOrDefault("PORT", "8080"),
		GinMode:           getEnvOrDefault("GIN_MODE", "debug"),
		MaxConcurrentRuns: getEnvIntOrDefault("MAX_CONCURRENT_RUNS", 2),
		MaxUploadBytes:    int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 32)) << 20,
	}
}

func loadRunDefaults() *RunDefaults {
	defaults := fairness.DefaultRunConfig("")
	return &RunDefaults{
		MaxIterations:       getEnvIntOrDefault("BIAS_MAX_ITERATIONS", defaults.MaxIterations),
		ModificationCeiling: getEnvFloatOrDefault("BIAS_CEILING", defaults.ModificationCeiling),
		RetentionFloor:      getEnvFloatOrDefault("BIAS_RETENTION_FLOOR", defaults.RetentionFloor),
		Seed:                int64(getEnvIntOrDefault("BIAS_SEED", int(defaults.Seed))),
		Objective:           getEnvOrDefault("BIAS_OBJECTIVE", string(defaults.Objective)),
		Workers:             getEnvIntOrDefault("BIAS_WORKERS", runtime.GOMAXPROCS(0)),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Server.MaxConcurrentRuns < 1 {
		return errors.ConfigInvalid("MAX_CONCURRENT_RUNS must be at least 1")
	}
	probe := config.RunConfig("probe")
	if err := probe.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// RunConfig builds a RunConfig for the outcome column from the env defaults
func (c *Config) RunConfig(outcomeColumn string) fairness.RunConfig {
	rc := fairness.DefaultRunConfig(outcomeColumn)
	rc.MaxIterations = c.Run.MaxIterations
	rc.ModificationCeiling = c.Run.ModificationCeiling
	rc.RetentionFloor = c.Run.RetentionFloor
	rc.Seed = c.Run.Seed
	rc.Objective = fairness.Objective(c.Run.Objective)
	rc.Workers = c.Run.Workers
	return rc
}

// LoadRunConfig overlays a YAML run file onto base. Keys absent from the
// file keep their base values.
func LoadRunConfig(path string, base fairness.RunConfig) (fairness.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, errors.Wrapf(err, "failed to read run config %s", path)
	}
	return ParseRunConfig(data, base)
}

// ParseRunConfig is LoadRunConfig over an in-memory document
func ParseRunConfig(data []byte, base fairness.RunConfig) (fairness.RunConfig, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
