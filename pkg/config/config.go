package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SHIPDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv        = "SHIPDESK_APP_ENV"
	EnvPort          = "SHIPDESK_APP_PORT"
	EnvDBDSN         = "SHIPDESK_DB_DSN"
	EnvDBHost        = "SHIPDESK_DB_HOST"
	EnvDBUser        = "SHIPDESK_DB_USER"
	EnvDBName        = "SHIPDESK_DB_NAME"
	EnvRedisURL      = "SHIPDESK_REDIS_URL"
	EnvJWTSecret     = "SHIPDESK_JWT_SECRET"
	EnvJWTIssuer     = "SHIPDESK_JWT_ISSUER"
	EnvJWTExpMins    = "SHIPDESK_JWT_EXPIRATION_MINUTES"
	EnvSecretsKey    = "SHIPDESK_SETTINGS_ENCRYPTION_KEY"
	EnvCarrierURL    = "SHIPDESK_CARRIER_BASE_URL"
	EnvCarrierTries  = "SHIPDESK_CARRIER_MAX_ATTEMPTS"
	EnvCarrierDelay  = "SHIPDESK_CARRIER_BASE_DELAY"
	EnvWixSecret     = "SHIPDESK_WIX_WEBHOOK_SECRET"
	EnvShopifySecret = "SHIPDESK_SHOPIFY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Carrier      CarrierConfig
	Webhooks     WebhooksConfig
	Secrets      SecretsConfig
	Bulk         BulkConfig
	Sync         SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Carrier.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SHIPDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"SHIPDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SHIPDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SHIPDESK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SHIPDESK_CORS_ORIGINS" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHIPDESK_DB_DSN"`
	Driver string `envconfig:"SHIPDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHIPDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"SHIPDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHIPDESK_DB_USER"`
	LegacyPassword string `envconfig:"SHIPDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHIPDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHIPDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHIPDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHIPDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHIPDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHIPDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHIPDESK_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"SHIPDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHIPDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHIPDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHIPDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHIPDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHIPDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHIPDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHIPDESK_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHIPDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHIPDESK_AUTO_MIGRATE" default:"false"`
}

// CarrierConfig drives the HFD gateway. Credentials live per owner in the
// database; only transport behaviour is configured here.
type CarrierConfig struct {
	BaseURL      string        `envconfig:"SHIPDESK_CARRIER_BASE_URL" default:"https://test.hfd.co.il/RunCom.WebAPI/api/v1"`
	LabelBaseURL string        `envconfig:"SHIPDESK_CARRIER_LABEL_BASE_URL" default:"https://test.hfd.co.il/RunCom.Server/Request.aspx"`
	Timeout      time.Duration `envconfig:"SHIPDESK_CARRIER_TIMEOUT" default:"30s"`
	MaxAttempts  int           `envconfig:"SHIPDESK_CARRIER_MAX_ATTEMPTS" default:"3"`
	BaseDelay    time.Duration `envconfig:"SHIPDESK_CARRIER_BASE_DELAY" default:"2s"`
	MaxDelay     time.Duration `envconfig:"SHIPDESK_CARRIER_MAX_DELAY" default:"10s"`
}

func (c CarrierConfig) validate() error {
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("%s is not a valid url: %w", EnvCarrierURL, err)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCarrierTries)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("%s must not be negative", EnvCarrierDelay)
	}
	return nil
}

type WebhooksConfig struct {
	WixSecret      string        `envconfig:"SHIPDESK_WIX_WEBHOOK_SECRET"`
	ShopifySecret  string        `envconfig:"SHIPDESK_SHOPIFY_WEBHOOK_SECRET"`
	DedupeTTL      time.Duration `envconfig:"SHIPDESK_WEBHOOK_DEDUPE_TTL" default:"720h"`
	RateWindow     time.Duration `envconfig:"SHIPDESK_WEBHOOK_RATE_WINDOW" default:"1m"`
	RateIPLimit    int           `envconfig:"SHIPDESK_WEBHOOK_RATE_IP_LIMIT" default:"120"`
	RateOwnerLimit int           `envconfig:"SHIPDESK_WEBHOOK_RATE_OWNER_LIMIT" default:"300"`
}

type SecretsConfig struct {
	// SettingsKey is a 32 byte key, hex or base64 encoded, used to seal
	// carrier tokens before they are written to carrier_settings.
	SettingsKey string `envconfig:"SHIPDESK_SETTINGS_ENCRYPTION_KEY" required:"true"`
}

type BulkConfig struct {
	ErrorMessageCap int `envconfig:"SHIPDESK_BULK_ERROR_MESSAGE_CAP" default:"3"`
}

// SyncConfig drives the cron worker's shipment status poll.
type SyncConfig struct {
	Interval   time.Duration `envconfig:"SHIPDESK_SYNC_INTERVAL" default:"15m"`
	StaleAfter time.Duration `envconfig:"SHIPDESK_SYNC_STALE_AFTER" default:"30m"`
	BatchSize  int           `envconfig:"SHIPDESK_SYNC_BATCH_SIZE" default:"100"`
	MaxPerRun  int           `envconfig:"SHIPDESK_SYNC_MAX_PER_RUN" default:"1000"`
	LockTTL    time.Duration `envconfig:"SHIPDESK_SYNC_LOCK_TTL" default:"30m"`
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
