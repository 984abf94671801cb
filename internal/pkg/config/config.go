package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Connections
	RedisAddr   string `env:"REDIS_ADDR,required"`
	PostgresURL string `env:"POSTGRES_URL,required"`

	// HTTP surfaces
	SubmitServerAddr string `env:"SUBMIT_SERVER_ADDR" envDefault:":8080"`
	OpsServerAddr    string `env:"OPS_SERVER_ADDR" envDefault:":9091"`

	// Submit path
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE_BYTES" envDefault:"1048576"` // 1MB
	APIKeyCacheTTL time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`

	// WAL failover
	WALPath        string `env:"WAL_PATH" envDefault:"./wal"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"` // 100MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB

	// Consumer group
	ConsumerGroup  string        `env:"CONSUMER_GROUP" envDefault:"intel-processors"`
	BatchSize      int           `env:"BATCH_SIZE" envDefault:"64"`
	PollBlock      time.Duration `env:"POLL_BLOCK" envDefault:"2s"`
	MinPollBackoff time.Duration `env:"MIN_POLL_BACKOFF" envDefault:"100ms"`
	MaxPollBackoff time.Duration `env:"MAX_POLL_BACKOFF" envDefault:"5s"`
	DLQStream      string        `env:"DLQ_STREAM" envDefault:"ingest_messages_dlq"`
	MaxDeliveries  int64         `env:"MAX_DELIVERIES" envDefault:"5"`
	ReapInterval   time.Duration `env:"REAP_INTERVAL" envDefault:"30s"`
	ReapMinIdle    time.Duration `env:"REAP_MIN_IDLE" envDefault:"1m"`

	// Processing
	MessageTimeout    time.Duration `env:"MESSAGE_TIMEOUT" envDefault:"30s"`
	CostThreshold     int           `env:"COST_THRESHOLD_BYTES" envDefault:"262144"` // 256KB
	PriorityThreshold int           `env:"PRIORITY_THRESHOLD" envDefault:"7"`
	PriorityBonus     float64       `env:"PRIORITY_BONUS" envDefault:"0.1"`

	// Metrics and alerting
	MetricRetention time.Duration `env:"METRIC_RETENTION" envDefault:"1h"`
	AlertCooldown   time.Duration `env:"ALERT_COOLDOWN" envDefault:"60s"`
	RuleCacheTTL    time.Duration `env:"RULE_CACHE_TTL" envDefault:"30s"`
	PublishTimeout  time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"500ms"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
