package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Push gateway kinds.
const (
	GatewayLine     = "line"
	GatewayTelegram = "telegram"
	GatewayConsole  = "console"
)

// Dispatch log backends.
const (
	DispatchLogPostgres = "postgres"
	DispatchLogRedis    = "redis"
	DispatchLogNone     = "none"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"25"`
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	CronSecret     string `envconfig:"CRON_SECRET"`
	AdminAPISecret string `envconfig:"ADMIN_API_SECRET"`

	// Scheduling
	CronSpecDaily          string `envconfig:"CRON_SPEC_DAILY" default:"0 8 * * *"`
	ScheduleUTCOffsetHours int    `envconfig:"SCHEDULE_UTC_OFFSET_HOURS" default:"7"`

	// Push delivery
	PushGateway            string `envconfig:"PUSH_GATEWAY" default:"line"`
	LineChannelAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	LineAPIBaseURL         string `envconfig:"LINE_API_BASE_URL" default:"https://api.line.me"`
	LineMaxRecipients      int    `envconfig:"LINE_MAX_RECIPIENTS" default:"500"`
	LiffID                 string `envconfig:"LIFF_ID"`
	DispatchWorkers        int    `envconfig:"DISPATCH_WORKERS" default:"4"`
	AllowPreCheckpointSend bool   `envconfig:"ALLOW_PRE_CHECKPOINT_SEND" default:"false"`

	// Telegram admin bot (optional)
	TelegramToken   string `envconfig:"TELEGRAM_TOKEN"`
	AdminTelegramID int64  `envconfig:"ADMIN_TELEGRAM_ID"`

	// Dispatch log
	DispatchLogBackend string `envconfig:"DISPATCH_LOG_BACKEND" default:"postgres"`
	RedisAddr          string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`

	// Outcome events (optional)
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"course.notifications"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.PushGateway = strings.ToLower(cfg.PushGateway)
	cfg.DispatchLogBackend = strings.ToLower(cfg.DispatchLogBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot work at all. Missing gateway
// credentials are not checked here; they fail at request time instead.
func (c *AppConfig) Validate() error {
	switch c.PushGateway {
	case GatewayLine, GatewayTelegram, GatewayConsole:
	default:
		return fmt.Errorf("invalid PUSH_GATEWAY %q", c.PushGateway)
	}
	switch c.DispatchLogBackend {
	case DispatchLogPostgres, DispatchLogRedis, DispatchLogNone:
	default:
		return fmt.Errorf("invalid DISPATCH_LOG_BACKEND %q", c.DispatchLogBackend)
	}
	if c.ScheduleUTCOffsetHours < -12 || c.ScheduleUTCOffsetHours > 14 {
		return fmt.Errorf("SCHEDULE_UTC_OFFSET_HOURS out of range: %d", c.ScheduleUTCOffsetHours)
	}
	if c.LineMaxRecipients <= 0 {
		return fmt.Errorf("LINE_MAX_RECIPIENTS must be positive")
	}
	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be positive")
	}
	if c.IsProduction() && c.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required in %s", c.Environment)
	}
	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

// Location is the fixed-offset zone that defines "today" for the daily scan.
func (c *AppConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.ScheduleUTCOffsetHours), c.ScheduleUTCOffsetHours*60*60)
}
