package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CRAFTWORK_DB_DSN"
	EnvDBHost = "CRAFTWORK_DB_HOST"
	EnvDBUser = "CRAFTWORK_DB_USER"
	EnvDBName = "CRAFTWORK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Square     SquareConfig
	Pricing    PricingConfig
	Settlement SettlementConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Outbox     OutboxConfig
	Cron       CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTWORK_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTWORK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CRAFTWORK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTWORK_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CRAFTWORK_APP_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTWORK_DB_DSN"`
	Driver string `envconfig:"CRAFTWORK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRAFTWORK_DB_HOST"`
	LegacyPort     int    `envconfig:"CRAFTWORK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRAFTWORK_DB_USER"`
	LegacyPassword string `envconfig:"CRAFTWORK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRAFTWORK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRAFTWORK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTWORK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTWORK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTWORK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTWORK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTWORK_REDIS_URL"`
	Address      string        `envconfig:"CRAFTWORK_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTWORK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTWORK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTWORK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTWORK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTWORK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTWORK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTWORK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"CRAFTWORK_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"CRAFTWORK_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"CRAFTWORK_SQUARE_LOCATION_ID"`
	WebhookSecret string `envconfig:"CRAFTWORK_SQUARE_WEBHOOK_SECRET"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type PricingConfig struct {
	PlatformFeeBps int    `envconfig:"CRAFTWORK_PRICING_PLATFORM_FEE_BPS" default:"500"`
	Currency       string `envconfig:"CRAFTWORK_PRICING_CURRENCY" default:"EUR"`
}

type SettlementConfig struct {
	LockTTL         time.Duration `envconfig:"CRAFTWORK_SETTLEMENT_LOCK_TTL" default:"30s"`
	ProcessorPrefix string        `envconfig:"CRAFTWORK_SETTLEMENT_PROCESSOR_PREFIX" default:"settle"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CRAFTWORK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CRAFTWORK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CRAFTWORK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"CRAFTWORK_PUBSUB_SETTLEMENT_TOPIC" default:"cw-settlement-events"`
	SettlementSubscription string `envconfig:"CRAFTWORK_PUBSUB_SETTLEMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CRAFTWORK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CRAFTWORK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CRAFTWORK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"CRAFTWORK_CRON_INTERVAL" default:"1h"`
	PendingOrderTTL time.Duration `envconfig:"CRAFTWORK_CRON_PENDING_ORDER_TTL" default:"72h"`
	LockTTL         time.Duration `envconfig:"CRAFTWORK_CRON_LOCK_TTL" default:"55m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
