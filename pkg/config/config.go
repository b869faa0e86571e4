package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "BUILDMART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "BUILDMART_APP_ENV"
	EnvPort      = "BUILDMART_APP_PORT"
	EnvDBDSN     = "BUILDMART_DB_DSN"
	EnvDBHost    = "BUILDMART_DB_HOST"
	EnvDBUser    = "BUILDMART_DB_USER"
	EnvDBName    = "BUILDMART_DB_NAME"
	EnvRedisURL  = "BUILDMART_REDIS_URL"
	EnvJWTSecret = "BUILDMART_JWT_SECRET"
	EnvJWTIssuer = "BUILDMART_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Orders       OrdersConfig
	Disputes     DisputesConfig
	Settlement   SettlementConfig
	Performance  PerformanceConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BUILDMART_APP_ENV" required:"true"`
	Port         string   `envconfig:"BUILDMART_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"BUILDMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BUILDMART_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"BUILDMART_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"BUILDMART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BUILDMART_DB_DSN"`
	Driver string `envconfig:"BUILDMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BUILDMART_DB_HOST"`
	LegacyPort     int    `envconfig:"BUILDMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BUILDMART_DB_USER"`
	LegacyPassword string `envconfig:"BUILDMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"BUILDMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"BUILDMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BUILDMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BUILDMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BUILDMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BUILDMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BUILDMART_REDIS_URL"`
	Address      string        `envconfig:"BUILDMART_REDIS_ADDR"`
	Password     string        `envconfig:"BUILDMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BUILDMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BUILDMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BUILDMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BUILDMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BUILDMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BUILDMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BUILDMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BUILDMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BUILDMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig bounds authenticated API traffic per actor.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"BUILDMART_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"BUILDMART_RATE_LIMIT_PER_ACTOR" default:"120"`
}

// OrdersConfig carries the commercial knobs applied when orders are created.
type OrdersConfig struct {
	OfferTTL             time.Duration `envconfig:"BUILDMART_ORDER_OFFER_TTL" default:"30m"`
	PlatformFeePercent   string        `envconfig:"BUILDMART_ORDER_PLATFORM_FEE_PERCENT" default:"3"`
	LogisticsFee         string        `envconfig:"BUILDMART_ORDER_LOGISTICS_FEE" default:"0"`
	DefaultDeliveryFee   string        `envconfig:"BUILDMART_ORDER_DELIVERY_FEE" default:"0"`
	ExpectedDeliveryDays int           `envconfig:"BUILDMART_ORDER_EXPECTED_DELIVERY_DAYS" default:"3"`
	AutoCompleteAfter    time.Duration `envconfig:"BUILDMART_ORDER_AUTO_COMPLETE_AFTER" default:"72h"`
	ConflictRetries      uint64        `envconfig:"BUILDMART_ORDER_CONFLICT_RETRIES" default:"3"`
	LockTTL              time.Duration `envconfig:"BUILDMART_ORDER_LOCK_TTL" default:"10s"`
}

// PlatformFeeRate returns the configured platform fee percentage.
func (o OrdersConfig) PlatformFeeRate() decimal.Decimal {
	return amountOrZero(o.PlatformFeePercent)
}

// LogisticsFeeAmount returns the flat logistics fee charged to the vendor.
func (o OrdersConfig) LogisticsFeeAmount() decimal.Decimal {
	return amountOrZero(o.LogisticsFee)
}

// DeliveryFeeAmount returns the delivery charge billed to the buyer.
func (o OrdersConfig) DeliveryFeeAmount() decimal.Decimal {
	return amountOrZero(o.DefaultDeliveryFee)
}

// amountOrZero parses a validated amount; unset values count as zero.
func amountOrZero(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return value
}

func (o OrdersConfig) validate() error {
	for name, raw := range map[string]string{
		"BUILDMART_ORDER_PLATFORM_FEE_PERCENT": o.PlatformFeePercent,
		"BUILDMART_ORDER_LOGISTICS_FEE":        o.LogisticsFee,
		"BUILDMART_ORDER_DELIVERY_FEE":         o.DefaultDeliveryFee,
	} {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s must be a decimal: %w", name, err)
		}
		if value.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

type DisputesConfig struct {
	LockTTL time.Duration `envconfig:"BUILDMART_DISPUTE_LOCK_TTL" default:"10s"`
}

// SettlementConfig controls the vendor payout batching cadence.
type SettlementConfig struct {
	CycleLength time.Duration `envconfig:"BUILDMART_SETTLEMENT_CYCLE" default:"168h"`
	Anchor      string        `envconfig:"BUILDMART_SETTLEMENT_ANCHOR" default:"2024-01-01T00:00:00Z"`
}

// AnchorTime parses the instant settlement cycles are aligned to.
func (s SettlementConfig) AnchorTime() (time.Time, error) {
	anchor, err := time.Parse(time.RFC3339, s.Anchor)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing settlement anchor: %w", err)
	}
	return anchor.UTC(), nil
}

type PerformanceConfig struct {
	Window             time.Duration `envconfig:"BUILDMART_PERFORMANCE_WINDOW" default:"720h"`
	MinCompletedOrders int           `envconfig:"BUILDMART_PERFORMANCE_MIN_COMPLETED" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"BUILDMART_CRON_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"BUILDMART_CRON_OUTBOX_RETENTION" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BUILDMART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BUILDMART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic     string `envconfig:"BUILDMART_PUBSUB_DOMAIN_TOPIC" default:"buildmart-domain-events"`
	SettlementTopic string `envconfig:"BUILDMART_PUBSUB_SETTLEMENT_TOPIC" default:"buildmart-settlements"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BUILDMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BUILDMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BUILDMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
