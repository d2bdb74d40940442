package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/friendcircle/internal/backend"
	"github.com/eugenenazirov/friendcircle/internal/secrets"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvFile        = ".env"

	// EnvDevelopment is the only environment in which placeholder record
	// values are tolerated.
	EnvDevelopment = "development"
	// EnvProduction is the default environment.
	EnvProduction = "production"
)

var recordEnv = map[string]string{
	backend.FieldAPIKey:            "FIREBASE_API_KEY",
	backend.FieldAuthDomain:        "FIREBASE_AUTH_DOMAIN",
	backend.FieldProjectID:         "FIREBASE_PROJECT_ID",
	backend.FieldStorageBucket:     "FIREBASE_STORAGE_BUCKET",
	backend.FieldMessagingSenderID: "FIREBASE_MESSAGING_SENDER_ID",
	backend.FieldAppID:             "FIREBASE_APP_ID",
	backend.FieldMeasurementID:     "FIREBASE_MEASUREMENT_ID",
}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults.
// Secret-store values are applied later, at bootstrap.
type Config struct {
	Env      string
	LogLevel string

	Firebase  backend.Config
	Analytics AnalyticsConfig
	Secrets   secrets.Config

	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// AnalyticsConfig controls telemetry export.
type AnalyticsConfig struct {
	OTLPEndpoint      string
	OTLPInsecure      bool
	ServiceName       string
	ExportInterval    time.Duration
	CollectionEnabled bool
}

// AllowPlaceholders reports whether template record values are tolerated.
func (c Config) AllowPlaceholders() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Env                  string         `yaml:"env"`
	LogLevel             string         `yaml:"log_level"`
	Firebase             backend.Config `yaml:"firebase"`
	Analytics            yamlAnalytics  `yaml:"analytics"`
	Secrets              secrets.Config `yaml:"secrets"`
	Port                 string         `yaml:"port"`
	ShutdownGracePeriod  string         `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string         `yaml:"read_header_timeout"`
	WriteTimeout         string         `yaml:"write_timeout"`
	IdleTimeout          string         `yaml:"idle_timeout"`
	EnableRequestLogging *bool          `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit  `yaml:"rate_limit"`
}

type yamlAnalytics struct {
	OTLPEndpoint      string `yaml:"otlp_endpoint"`
	OTLPInsecure      *bool  `yaml:"otlp_insecure"`
	ServiceName       string `yaml:"service_name"`
	ExportInterval    string `yaml:"export_interval"`
	CollectionEnabled *bool  `yaml:"collection_enabled"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Env            *string
	LogLevel       *string
	Port           *string
	OTLPEndpoint   *string
	SecretProvider *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults.
// A .env file seeds the environment without overriding variables that are
// already set.
func Load(overrides *CLIOverrides) (Config, error) {
	if err := loadEnvFile(overrides); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()

	// Environment first so the YAML file can override it.
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}
	cfg.Secrets.Provider = strings.ToLower(cfg.Secrets.Provider)
	cfg.Env = strings.ToLower(cfg.Env)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Env:      EnvProduction,
		LogLevel: "info",
		Analytics: AnalyticsConfig{
			ExportInterval:    10 * time.Second,
			CollectionEnabled: true,
		},
		Secrets: secrets.Config{
			Provider: secrets.ProviderNone,
			Timeout:  10 * time.Second,
		},
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

func loadEnvFile(overrides *CLIOverrides) error {
	path := defaultEnvFile
	explicit := overrides != nil && overrides.EnvFile != ""
	if explicit {
		path = overrides.EnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct. Only
// fields present in the file override earlier sources.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.Env, yamlCfg.Env)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	setString(&cfg.Port, yamlCfg.Port)

	for _, f := range yamlCfg.Firebase.Fields() {
		if v := strings.TrimSpace(f.Value); v != "" {
			cfg.Firebase.Set(f.Name, v)
		}
	}

	setString(&cfg.Analytics.OTLPEndpoint, yamlCfg.Analytics.OTLPEndpoint)
	setString(&cfg.Analytics.ServiceName, yamlCfg.Analytics.ServiceName)
	if yamlCfg.Analytics.OTLPInsecure != nil {
		cfg.Analytics.OTLPInsecure = *yamlCfg.Analytics.OTLPInsecure
	}
	if yamlCfg.Analytics.CollectionEnabled != nil {
		cfg.Analytics.CollectionEnabled = *yamlCfg.Analytics.CollectionEnabled
	}

	setString(&cfg.Secrets.Provider, yamlCfg.Secrets.Provider)
	setString(&cfg.Secrets.EnvPrefix, yamlCfg.Secrets.EnvPrefix)
	setString(&cfg.Secrets.Vault.Address, yamlCfg.Secrets.Vault.Address)
	setString(&cfg.Secrets.Vault.Path, yamlCfg.Secrets.Vault.Path)
	setString(&cfg.Secrets.AWS.Region, yamlCfg.Secrets.AWS.Region)
	setString(&cfg.Secrets.AWS.SecretID, yamlCfg.Secrets.AWS.SecretID)

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"analytics.export_interval", yamlCfg.Analytics.ExportInterval, &cfg.Analytics.ExportInterval},
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	for field, key := range recordEnv {
		if v := env(key); v != "" {
			cfg.Firebase.Set(field, v)
		}
	}

	setString(&cfg.Env, env("APP_ENV"))
	setString(&cfg.LogLevel, env("LOG_LEVEL"))
	setString(&cfg.Port, env("PORT"))

	setString(&cfg.Analytics.OTLPEndpoint, env("OTEL_EXPORTER_OTLP_ENDPOINT"))
	setString(&cfg.Analytics.ServiceName, env("OTEL_SERVICE_NAME"))
	if raw := env("OTEL_EXPORTER_OTLP_INSECURE"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse OTEL_EXPORTER_OTLP_INSECURE: %w", err)
		}
		cfg.Analytics.OTLPInsecure = v
	}
	if raw := env("ANALYTICS_COLLECTION_ENABLED"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse ANALYTICS_COLLECTION_ENABLED: %w", err)
		}
		cfg.Analytics.CollectionEnabled = v
	}

	setString(&cfg.Secrets.Provider, env("SECRETS_PROVIDER"))
	setString(&cfg.Secrets.EnvPrefix, env("SECRETS_ENV_PREFIX"))
	setString(&cfg.Secrets.Vault.Address, env("VAULT_ADDR"))
	setString(&cfg.Secrets.Vault.Token, env("VAULT_TOKEN"))
	setString(&cfg.Secrets.Vault.Path, env("VAULT_SECRET_PATH"))
	setString(&cfg.Secrets.AWS.Region, env("AWS_REGION"))
	setString(&cfg.Secrets.AWS.SecretID, env("AWS_SECRET_ID"))

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Env != nil {
		setString(&cfg.Env, *overrides.Env)
	}
	if overrides.LogLevel != nil {
		setString(&cfg.LogLevel, *overrides.LogLevel)
	}
	if overrides.Port != nil {
		setString(&cfg.Port, *overrides.Port)
	}
	if overrides.OTLPEndpoint != nil {
		setString(&cfg.Analytics.OTLPEndpoint, *overrides.OTLPEndpoint)
	}
	if overrides.SecretProvider != nil {
		setString(&cfg.Secrets.Provider, *overrides.SecretProvider)
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration. The backend record is
// checked at bootstrap, not here.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	switch cfg.Secrets.Provider {
	case secrets.ProviderNone, secrets.ProviderEnv, secrets.ProviderVault, secrets.ProviderAWS:
	default:
		return fmt.Errorf("unsupported secrets provider %q", cfg.Secrets.Provider)
	}
	if cfg.Secrets.Provider == secrets.ProviderVault && cfg.Secrets.Vault.Address == "" {
		return fmt.Errorf("VAULT_ADDR is required when the vault secrets provider is selected")
	}
	if cfg.Analytics.ExportInterval <= 0 {
		return fmt.Errorf("analytics export interval must be positive")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
