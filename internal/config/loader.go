package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "alytics.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ALYTICS_PORT")
	setString(&cfg.Server.CORSOrigin, "ALYTICS_CORS_ORIGIN")
	setString(&cfg.Server.APIKey, "ALYTICS_API_KEY")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ALYTICS_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ALYTICS_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ALYTICS_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ALYTICS_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ALYTICS_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.OpenAI.URL, "OPENAI_URL")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "ALYTICS_OPENAI_MODEL")
	setString(&cfg.OpenAI.CompileModel, "ALYTICS_OPENAI_COMPILE_MODEL")
	setString(&cfg.Analytics.BaseURL, "ALYTICS_GA_BASE_URL")
	setString(&cfg.Analytics.TokenURL, "ALYTICS_GA_TOKEN_URL")
	setString(&cfg.Analytics.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Analytics.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Charts.RendererURL, "ALYTICS_CHART_RENDERER_URL")
	setString(&cfg.Supabase.URL, "SUPABASE_URL")
	setString(&cfg.Supabase.ServiceKey, "SUPABASE_SERVICE_KEY")
	setString(&cfg.Supabase.Bucket, "ALYTICS_SUPABASE_BUCKET")
	setString(&cfg.Notion.BaseURL, "ALYTICS_NOTION_BASE_URL")
	setString(&cfg.Notion.ParentHint, "ALYTICS_NOTION_PARENT_HINT")
	setString(&cfg.Logging.Level, "ALYTICS_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ALYTICS_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ALYTICS_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "ALYTICS_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ALYTICS_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "ALYTICS_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ALYTICS_RATE_BURST")
	setDuration(&cfg.Scheduler.Interval, "ALYTICS_SCHEDULER_INTERVAL")
	setInt(&cfg.Scheduler.DispatchLimit, "ALYTICS_SCHEDULER_DISPATCH_LIMIT")
	setDuration(&cfg.Runs.Timeout, "ALYTICS_RUN_TIMEOUT")
	setInt64(&cfg.Runs.MaxConcurrent, "ALYTICS_RUN_MAX_CONCURRENT")
	setInt64(&cfg.Cache.MaxSizeMB, "ALYTICS_CACHE_SIZE_MB")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be positive")
	}
	if cfg.Runs.Timeout <= 0 {
		return errors.New("runs.timeout must be positive")
	}
	if cfg.Runs.MaxConcurrent < 1 {
		return errors.New("runs.max_concurrent must be >= 1")
	}
	if len(cfg.Charts.Specs) == 0 {
		return errors.New("charts.specs must list at least one chart")
	}
	for _, spec := range cfg.Charts.Specs {
		if spec.DataKey == "" || spec.Title == "" || spec.LabelKey == "" || len(spec.ValueKeys) == 0 {
			return fmt.Errorf("charts.specs entry %q is missing data_key, title, label_key or value_keys", spec.Title)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
