package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"8"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`

	// Engine pass
	PassInterval     time.Duration `env:"PASS_INTERVAL" envDefault:"5m"`
	ItemWindow       time.Duration `env:"ITEM_WINDOW" envDefault:"24h"`
	StalenessHorizon time.Duration `env:"STALENESS_HORIZON" envDefault:"48h"`
	DecayHours       float64       `env:"DECAY_HOURS" envDefault:"18"`
	WorkerPoolSize   int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	LoadTimeout      time.Duration `env:"LOAD_TIMEOUT" envDefault:"15s"`
	PersistTimeout   time.Duration `env:"PERSIST_TIMEOUT" envDefault:"10s"`

	// Entity matching
	ShortAliasMinLen    int      `env:"SHORT_ALIAS_MIN_LEN" envDefault:"4"`
	ShortAliasAllowlist []string `env:"SHORT_ALIAS_ALLOWLIST" envSeparator:"," envDefault:"FIFA,UEFA,VAR,UCL,PSG,MLS"`
	AmbiguousAliases    []string `env:"AMBIGUOUS_ALIASES" envSeparator:","`

	// Summaries
	ClaimMergeOverlap float64 `env:"CLAIM_MERGE_OVERLAP" envDefault:"0.6"`
	TopClaims         int     `env:"TOP_CLAIMS" envDefault:"5"`

	// Breaking-news notifications
	BreakingThreshold int           `env:"BREAKING_THRESHOLD" envDefault:"70"`
	BreakingRecency   time.Duration `env:"BREAKING_RECENCY" envDefault:"10m"`
	NotifyWebhookURL  string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	NotifyRPS         float64       `env:"NOTIFY_RPS" envDefault:"2"`

	// Feed ingest
	IngestFeeds    string        `env:"INGEST_FEEDS" envDefault:""`
	IngestInterval time.Duration `env:"INGEST_INTERVAL" envDefault:"2m"`
	IngestTimeout  time.Duration `env:"INGEST_TIMEOUT" envDefault:"30s"`
	IngestRPS      float64       `env:"INGEST_RPS" envDefault:"2"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
