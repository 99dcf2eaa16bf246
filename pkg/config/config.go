package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"BreakScan/pkg/util"
)

// ProviderConfig describes one ranked live quote provider.
type ProviderConfig struct {
	Name       string            `yaml:"name"`
	Tag        string            `yaml:"tag"`
	URL        string            `yaml:"url"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
	RPS        float64           `yaml:"rps"`
	RetryOn429 bool              `yaml:"retry_on_429"`
	// Session routes requests through the exchange cookie handshake.
	Session bool `yaml:"session"`
	// Auth adds "Authorization: token <api_key>:<access_token>" from the kite section.
	Auth bool `yaml:"auth"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowRequest     time.Duration `yaml:"slow_request"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Capacity     float64       `yaml:"capacity"`
			RefillPerSec float64       `yaml:"refill_per_sec"`
			IdleTTL      time.Duration `yaml:"idle_ttl"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Auth struct {
		CronSecret string `yaml:"cron_secret"`
	} `yaml:"auth"`
	Market struct {
		Timezone        string        `yaml:"timezone"`
		Open            string        `yaml:"open"`
		Close           string        `yaml:"close"`
		RolloverGrace   time.Duration `yaml:"rollover_grace"`
		Holidays        []string      `yaml:"holidays"`
		IntervalMinutes int           `yaml:"interval_minutes"`
		RetentionDays   int           `yaml:"retention_days"`
	} `yaml:"market"`
	Universe struct {
		Path string `yaml:"path"`
	} `yaml:"universe"`
	Batch struct {
		Size            int           `yaml:"size"`
		InterBatchDelay time.Duration `yaml:"inter_batch_delay"`
		MaxParallelism  int           `yaml:"max_parallelism"`
	} `yaml:"batch"`
	Capture struct {
		IgnoreDuplicates bool `yaml:"ignore_duplicates"`
		Indices          bool `yaml:"indices"`
	} `yaml:"capture"`
	Providers struct {
		RetryBackoff time.Duration    `yaml:"retry_backoff"`
		Live         []ProviderConfig `yaml:"live"`
		Indices      ProviderConfig   `yaml:"indices"`
		Session      struct {
			HomeURL string            `yaml:"home_url"`
			Headers map[string]string `yaml:"headers"`
			TTL     time.Duration     `yaml:"ttl"`
		} `yaml:"session"`
		Historical struct {
			Order []string `yaml:"order"`
			Chart struct {
				BaseURL string        `yaml:"base_url"`
				Suffix  string        `yaml:"suffix"`
				Timeout time.Duration `yaml:"timeout"`
			} `yaml:"chart"`
		} `yaml:"historical"`
	} `yaml:"providers"`
	Kite struct {
		APIKey      string        `yaml:"api_key"`
		AccessToken string        `yaml:"access_token"`
		BaseURI     string        `yaml:"base_uri"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"kite"`
	Storage struct {
		Snapshots string `yaml:"snapshots"` // sqlite | clickhouse | memory
		SQLite    struct {
			Path         string        `yaml:"path"`
			MaxOpenConns int           `yaml:"max_open_conns"`
			BusyTimeout  time.Duration `yaml:"busy_timeout"`
		} `yaml:"sqlite"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		ClientID     string        `yaml:"client_id"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"kafka"`
	Archive struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
		S3      struct {
			Enabled         bool   `yaml:"enabled"`
			Bucket          string `yaml:"bucket"`
			Prefix          string `yaml:"prefix"`
			Region          string `yaml:"region"`
			Endpoint        string `yaml:"endpoint"`
			PathStyle       bool   `yaml:"path_style"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
		} `yaml:"s3"`
	} `yaml:"archive"`
	Replay struct {
		Window   time.Duration `yaml:"window"`
		MaxDrift time.Duration `yaml:"max_drift"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"replay"`
	Trigger struct {
		BaseURL   string            `yaml:"base_url"`
		Timeout   time.Duration     `yaml:"timeout"`
		Schedules map[string]string `yaml:"schedules"` // path -> cron spec
	} `yaml:"trigger"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Default returns a config with every tunable set to its production default.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 120 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second
	c.Server.SlowRequest = 5 * time.Second
	c.Server.RateLimit.Capacity = 30
	c.Server.RateLimit.RefillPerSec = 5
	c.Server.RateLimit.IdleTTL = 10 * time.Minute
	c.Market.Timezone = "Asia/Kolkata"
	c.Market.Open = "09:15"
	c.Market.Close = "15:30"
	c.Market.RolloverGrace = 20 * time.Minute
	c.Market.IntervalMinutes = 3
	c.Market.RetentionDays = 7
	c.Universe.Path = "universe.yaml"
	c.Batch.Size = 15
	c.Batch.InterBatchDelay = time.Second
	c.Batch.MaxParallelism = 5
	c.Capture.Indices = true
	c.Providers.RetryBackoff = 750 * time.Millisecond
	c.Providers.Session.TTL = 5 * time.Minute
	c.Providers.Historical.Order = []string{"kite", "chart"}
	c.Providers.Historical.Chart.Suffix = ".NS"
	c.Kite.Timeout = 10 * time.Second
	c.Storage.Snapshots = "sqlite"
	c.Storage.SQLite.Path = "data/breakscan.db"
	c.Storage.SQLite.MaxOpenConns = 4
	c.Storage.SQLite.BusyTimeout = 5 * time.Second
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "breakscan"
	c.Redis.Prefix = "breakscan"
	c.Kafka.Topic = "breakscan.signals"
	c.Kafka.ClientID = "breakscan"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.MaxAttempts = 3
	c.Archive.Dir = "data/archive"
	c.Replay.CacheTTL = 30 * time.Second
	c.Trigger.BaseURL = "http://127.0.0.1:8080"
	c.Trigger.Timeout = 5 * time.Minute
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Metrics.Enabled = true
	return c
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("CRON_SECRET"); v != "" {
		c.Auth.CronSecret = v
	}
	if v := getenv("KITE_API_KEY"); v != "" {
		c.Kite.APIKey = v
	}
	if v := getenv("KITE_ACCESS_TOKEN"); v != "" {
		c.Kite.AccessToken = v
	}
	if v := getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLite.Path = v
	}
	if v := getenv("SNAPSHOT_BACKEND"); v != "" {
		c.Storage.Snapshots = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("AWS_S3_BUCKET"); v != "" {
		c.Archive.S3.Bucket = v
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	c.Metrics.Enabled = util.ParseBoolDefault(getenv("METRICS_ENABLED"), c.Metrics.Enabled)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Market.IntervalMinutes <= 0 || c.Market.IntervalMinutes > 60 {
		return fmt.Errorf("market.interval_minutes must be in 1..60, got %d", c.Market.IntervalMinutes)
	}
	if c.Market.RetentionDays < 0 {
		return fmt.Errorf("market.retention_days cannot be negative")
	}
	if len(c.Providers.Live) == 0 {
		return fmt.Errorf("providers.live cannot be empty")
	}
	for i, p := range c.Providers.Live {
		if p.Name == "" || p.URL == "" {
			return fmt.Errorf("providers.live[%d]: name and url are required", i)
		}
		if !validTag(p.Tag) {
			return fmt.Errorf("providers.live[%d]: unknown tag %q", i, p.Tag)
		}
		if p.Session && c.Providers.Session.HomeURL == "" {
			return fmt.Errorf("providers.live[%d]: session requires providers.session.home_url", i)
		}
	}
	if c.Capture.Indices && c.Providers.Indices.URL == "" {
		return fmt.Errorf("capture.indices requires providers.indices.url")
	}
	for _, h := range c.Providers.Historical.Order {
		if h != "kite" && h != "chart" {
			return fmt.Errorf("providers.historical.order: unknown provider %q", h)
		}
	}
	switch c.Storage.Snapshots {
	case "sqlite", "memory":
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when storage.snapshots is clickhouse")
		}
	default:
		return fmt.Errorf("storage.snapshots must be 'sqlite', 'clickhouse' or 'memory', got '%s'", c.Storage.Snapshots)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Archive.S3.Enabled && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket is required when archive.s3 is enabled")
	}
	return nil
}

func validTag(tag string) bool {
	switch tag {
	case "kite", "legacy", "nse", "nse_index":
		return true
	}
	return false
}
