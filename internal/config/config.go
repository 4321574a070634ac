package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Togather-Foundation/ewm/internal/validation"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database    DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Stats       StatsConfig     `yaml:"stats" envPrefix:"STATS_"`
	RateLimit   RateLimitConfig `yaml:"rateLimit" envPrefix:"RATE_LIMIT_"`
	Jobs        JobsConfig      `yaml:"jobs" envPrefix:"JOBS_"`
	Logging     LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
	Tracing     TracingConfig   `yaml:"tracing" envPrefix:"TRACING_"`
	Environment string          `yaml:"environment" env:"ENVIRONMENT" envDefault:"development"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST" envDefault:"0.0.0.0"`
	Port int    `yaml:"port" env:"PORT" envDefault:"8080"`
	// App names this service in recorded stats hits.
	App string `yaml:"app" env:"APP" envDefault:"ewm-main-service"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url" env:"URL"`
	MaxConnections int32  `yaml:"maxConnections" env:"MAX_CONNECTIONS" envDefault:"25"`
}

type StatsConfig struct {
	// URL is where the main service reaches the stats service.
	URL string `yaml:"url" env:"URL" envDefault:"http://localhost:9090"`
	// Port is what the stats service itself listens on.
	Port              int     `yaml:"port" env:"PORT" envDefault:"9090"`
	UniqueViews       bool    `yaml:"uniqueViews" env:"UNIQUE_VIEWS" envDefault:"true"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" env:"REQUESTS_PER_SECOND" envDefault:"50"`
}

type RateLimitConfig struct {
	PublicPerMinute int `yaml:"publicPerMinute" env:"PUBLIC" envDefault:"600"`
	// 0 disables limiting.
	AdminPerMinute int `yaml:"adminPerMinute" env:"ADMIN" envDefault:"0"`
}

type JobsConfig struct {
	// Enabled queues stats hits through River instead of delivering inline.
	Enabled      bool          `yaml:"enabled" env:"ENABLED" envDefault:"true"`
	StatsWorkers int           `yaml:"statsWorkers" env:"STATS_WORKERS" envDefault:"4"`
	MaxAttempts  int           `yaml:"maxAttempts" env:"MAX_ATTEMPTS" envDefault:"8"`
	RetryBase    time.Duration `yaml:"retryBase" env:"RETRY_BASE" envDefault:"5s"`
	RetryMax     time.Duration `yaml:"retryMax" env:"RETRY_MAX" envDefault:"10m"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL" envDefault:"info"`
	Format string `yaml:"format" env:"FORMAT" envDefault:"json"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED" envDefault:"false"`
	Exporter     string  `yaml:"exporter" env:"EXPORTER" envDefault:"none"`
	ServiceName  string  `yaml:"serviceName" env:"SERVICE_NAME" envDefault:"ewm"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	SampleRate   float64 `yaml:"sampleRate" env:"SAMPLE_RATE" envDefault:"1.0"`
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables. Later sources win.
func Load(path string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{DefaultValueTagName: "noDefault"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate reports settings no service can start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Stats.Port <= 0 {
		return fmt.Errorf("ports must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1")
	}
	if err := validation.BaseURL(c.Stats.URL, "STATS_URL"); err != nil {
		return err
	}
	if c.Stats.RequestsPerSecond < 0 {
		return fmt.Errorf("STATS_REQUESTS_PER_SECOND must not be negative")
	}
	if c.Jobs.Enabled {
		if c.Jobs.StatsWorkers <= 0 || c.Jobs.MaxAttempts <= 0 {
			return fmt.Errorf("JOBS_STATS_WORKERS and JOBS_MAX_ATTEMPTS must be positive")
		}
		if c.Jobs.RetryBase <= 0 || c.Jobs.RetryMax < c.Jobs.RetryBase {
			return fmt.Errorf("JOBS_RETRY_BASE must be positive and not above JOBS_RETRY_MAX")
		}
	}
	return nil
}

// RequireDatabase fails when no DATABASE_URL is configured.
func (c Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}
