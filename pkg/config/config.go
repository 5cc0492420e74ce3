package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "threadline"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "THREADLINE_APP_ENV"
	EnvPort              = "THREADLINE_APP_PORT"
	EnvDBDSN             = "THREADLINE_DB_DSN"
	EnvDBHost            = "THREADLINE_DB_HOST"
	EnvDBUser            = "THREADLINE_DB_USER"
	EnvDBName            = "THREADLINE_DB_NAME"
	EnvRedisURL          = "THREADLINE_REDIS_URL"
	EnvJWTSecret         = "THREADLINE_JWT_SECRET"
	EnvJWTIssuer         = "THREADLINE_JWT_ISSUER"
	EnvInferenceBaseURL  = "THREADLINE_INFERENCE_BASE_URL"
	EnvGCPProjectID      = "THREADLINE_GCP_PROJECT_ID"
	EnvPubSubPipelineSub = "THREADLINE_PUBSUB_PIPELINE_SUBSCRIPTION"
	EnvPubSubNotifSub    = "THREADLINE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Inference    InferenceConfig
	Pipeline     PipelineConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THREADLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"THREADLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"THREADLINE_DB_DSN"`
	Driver string `envconfig:"THREADLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THREADLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"THREADLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THREADLINE_DB_USER"`
	LegacyPassword string `envconfig:"THREADLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"THREADLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"THREADLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THREADLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THREADLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THREADLINE_REDIS_ADDR"`
	Password     string        `envconfig:"THREADLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"THREADLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THREADLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THREADLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THREADLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THREADLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THREADLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THREADLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THREADLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THREADLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"THREADLINE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"THREADLINE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"THREADLINE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// InferenceConfig points at the model-serving HTTP collaborator. Per-call
// deadlines differ because BOM extraction from an image is far slower than
// the text-only calls.
type InferenceConfig struct {
	BaseURL         string        `envconfig:"THREADLINE_INFERENCE_BASE_URL" required:"true"`
	APIKey          string        `envconfig:"THREADLINE_INFERENCE_API_KEY"`
	BOMTimeout      time.Duration `envconfig:"THREADLINE_INFERENCE_BOM_TIMEOUT" default:"90s"`
	ForecastTimeout time.Duration `envconfig:"THREADLINE_INFERENCE_FORECAST_TIMEOUT" default:"30s"`
	SupplierTimeout time.Duration `envconfig:"THREADLINE_INFERENCE_SUPPLIER_TIMEOUT" default:"15s"`
	HealthTimeout   time.Duration `envconfig:"THREADLINE_INFERENCE_HEALTH_TIMEOUT" default:"5s"`
	MaxRetries      int           `envconfig:"THREADLINE_INFERENCE_MAX_RETRIES" default:"2"`
}

type PipelineConfig struct {
	WorkerCount        int           `envconfig:"THREADLINE_PIPELINE_WORKER_COUNT" default:"4"`
	QueueSize          int           `envconfig:"THREADLINE_PIPELINE_QUEUE_SIZE" default:"64"`
	LeaseTTL           time.Duration `envconfig:"THREADLINE_PIPELINE_LEASE_TTL" default:"10m"`
	MaterialWindow     int           `envconfig:"THREADLINE_PIPELINE_MATERIAL_WINDOW" default:"6"`
	SuppliersPerItem   int           `envconfig:"THREADLINE_PIPELINE_SUPPLIERS_PER_ITEM" default:"3"`
	SupplierRatePerSec float64       `envconfig:"THREADLINE_PIPELINE_SUPPLIER_RATE" default:"2"`
	SupplierBurst      int           `envconfig:"THREADLINE_PIPELINE_SUPPLIER_BURST" default:"1"`
	RequeueInterval    time.Duration `envconfig:"THREADLINE_PIPELINE_REQUEUE_INTERVAL" default:"1m"`
	StaleRunAge        time.Duration `envconfig:"THREADLINE_PIPELINE_STALE_RUN_AGE" default:"15m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"THREADLINE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"THREADLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"THREADLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PipelineTopic            string `envconfig:"THREADLINE_PUBSUB_PIPELINE_TOPIC" default:"tl-pipeline-events"`
	PipelineSubscription     string `envconfig:"THREADLINE_PUBSUB_PIPELINE_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"THREADLINE_PUBSUB_NOTIFICATION_TOPIC" default:"tl-notification-events"`
	NotificationSubscription string `envconfig:"THREADLINE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"THREADLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"THREADLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"THREADLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	OutboxRetention       time.Duration `envconfig:"THREADLINE_CRON_OUTBOX_RETENTION" default:"168h"`
	NotificationRetention time.Duration `envconfig:"THREADLINE_CRON_NOTIFICATION_RETENTION" default:"720h"`
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
