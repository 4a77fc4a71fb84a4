package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"freee-auto-bookkeeping"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"bookkeeping"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Ledger struct {
		BaseURL   string        `envconfig:"LEDGER_BASE_URL" default:"https://api.freee.co.jp/api/1"`
		Token     string        `envconfig:"LEDGER_ACCESS_TOKEN"`
		CompanyID int64         `envconfig:"LEDGER_COMPANY_ID"`
		Timeout   time.Duration `envconfig:"LEDGER_TIMEOUT" default:"30s"`
	}

	Matching Matching

	Retry Retry

	Notify struct {
		SlackWebhookURL string        `envconfig:"SLACK_WEBHOOK_URL"`
		Timeout         time.Duration `envconfig:"SLACK_TIMEOUT" default:"10s"`
	}

	Batch struct {
		Workers        int           `envconfig:"BATCH_WORKERS" default:"4"`
		Window         time.Duration `envconfig:"BATCH_WINDOW" default:"2160h"` // 90 days
		ReservationTTL time.Duration `envconfig:"BATCH_RESERVATION_TTL" default:"1h"`
	}
}

// Matching holds the tunables of the matching engine. A snapshot is taken
// once per batch run; changed environment values take effect on the next
// run, never mid-run.
type Matching struct {
	AutoThreshold           float64 `envconfig:"MATCH_AUTO_THRESHOLD" default:"85"`
	AssistThreshold         float64 `envconfig:"MATCH_ASSIST_THRESHOLD" default:"65"`
	TieEpsilon              float64 `envconfig:"MATCH_TIE_EPSILON" default:"5"`
	DayTolerance            int     `envconfig:"MATCH_DAY_TOLERANCE" default:"3"`
	AmountTolerance         int64   `envconfig:"MATCH_AMOUNT_TOLERANCE" default:"100"`
	AmountRelativeTolerance float64 `envconfig:"MATCH_AMOUNT_RELATIVE_TOLERANCE" default:"0.05"`
	MaxCandidates           int     `envconfig:"MATCH_MAX_CANDIDATES" default:"3"`

	WeightAmount   float64 `envconfig:"MATCH_WEIGHT_AMOUNT" default:"0.4"`
	WeightDate     float64 `envconfig:"MATCH_WEIGHT_DATE" default:"0.25"`
	WeightVendor   float64 `envconfig:"MATCH_WEIGHT_VENDOR" default:"0.3"`
	WeightAffinity float64 `envconfig:"MATCH_WEIGHT_AFFINITY" default:"0.05"`
}

type Retry struct {
	MaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"5"`
	BaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"16s"`
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Validate() error {
	if c.Matching.AutoThreshold <= c.Matching.AssistThreshold {
		return fmt.Errorf("auto threshold (%.1f) must be above assist threshold (%.1f)",
			c.Matching.AutoThreshold, c.Matching.AssistThreshold)
	}

	if c.Matching.MaxCandidates < 1 {
		return fmt.Errorf("max candidates must be at least 1, got %d", c.Matching.MaxCandidates)
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
