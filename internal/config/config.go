package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/config"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/database"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httpclient"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/tracing"
)

// ServiceName identifies this service in logs, metrics, traces and events.
const ServiceName = "review-service"

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort            int           `env:"REVIEW_HTTP_PORT" envDefault:"8010"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"20s"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"edtech"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"edtech_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"reviews"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"15"`
	SlowQueryThresholdMs  int   `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"review-service"`
	ConsumersEnabled   bool          `env:"KAFKA_CONSUMERS_ENABLED" envDefault:"true"`
	IdempotencyTTL     time.Duration `env:"EVENT_IDEMPOTENCY_TTL" envDefault:"72h"`

	// Auth
	JWTSecret       string  `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	SubmitRateRPS   float64 `env:"SUBMIT_RATE_RPS" envDefault:"0.2"`
	SubmitRateBurst int     `env:"SUBMIT_RATE_BURST" envDefault:"3"`

	// Review policy
	EligibilityWindowDays int `env:"ELIGIBILITY_WINDOW_DAYS" envDefault:"90"`
	UpdateWindowDays      int `env:"UPDATE_WINDOW_DAYS" envDefault:"30"`
	ReportFlagThreshold   int `env:"REPORT_FLAG_THRESHOLD" envDefault:"3"`

	// Moderation
	VelocityLimit            int           `env:"VELOCITY_LIMIT" envDefault:"5"`
	VelocityWindow           time.Duration `env:"VELOCITY_WINDOW" envDefault:"24h"`
	MinAccountAge            time.Duration `env:"MIN_ACCOUNT_AGE" envDefault:"168h"`
	RatingDeviationThreshold float64       `env:"RATING_DEVIATION_THRESHOLD" envDefault:"3.0"`
	ProfanityWords           []string      `env:"PROFANITY_WORDS" envDefault:"fuck,shit,bitch,bastard,asshole,cunt,dick,retard" envSeparator:","`

	// Aggregation
	AggregateMinSample   int           `env:"AGGREGATE_MIN_SAMPLE" envDefault:"3"`
	RecencyHalfLifeDays  float64       `env:"RECENCY_HALF_LIFE_DAYS" envDefault:"180"`
	RecencyWeightFloor   float64       `env:"RECENCY_WEIGHT_FLOOR" envDefault:"0.05"`
	OutlierIQRMultiplier float64       `env:"OUTLIER_IQR_MULTIPLIER" envDefault:"1.5"`
	OutlierDamping       float64       `env:"OUTLIER_DAMPING" envDefault:"0.25"`
	ConfidenceLevel      float64       `env:"CONFIDENCE_LEVEL" envDefault:"0.95"`
	ConfidenceMinStdDev  float64       `env:"CONFIDENCE_MIN_STDDEV" envDefault:"0.5"`
	AggregateCacheTTL    time.Duration `env:"AGGREGATE_CACHE_TTL" envDefault:"10m"`

	// Outbound services. An empty URL disables the dependency.
	ScreeningURL     string        `env:"CONTENT_SCREENING_URL"`
	ScreeningTimeout time.Duration `env:"CONTENT_SCREENING_TIMEOUT" envDefault:"2s"`
	IdentityURL      string        `env:"IDENTITY_SERVICE_URL"`
	IdentityTimeout  time.Duration `env:"IDENTITY_SERVICE_TIMEOUT" envDefault:"2s"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and cross-field rules. Called by pkgconfig.Load.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.HTTPPort >= 1 && c.HTTPPort <= 65535, "invalid HTTP port: %d", c.HTTPPort)
	check(c.PostgresHost != "", "POSTGRES_HOST is required")
	check(c.PostgresUser != "", "POSTGRES_USER is required")
	check(len(c.KafkaBrokers) > 0, "KAFKA_BROKERS is required")
	check(c.JWTSecret != "", "JWT_SECRET is required")
	check(c.SubmitRateRPS > 0 && c.SubmitRateBurst > 0, "SUBMIT_RATE_RPS and SUBMIT_RATE_BURST must be positive")

	check(c.EligibilityWindowDays > 0, "ELIGIBILITY_WINDOW_DAYS must be positive, got %d", c.EligibilityWindowDays)
	check(c.UpdateWindowDays > 0, "UPDATE_WINDOW_DAYS must be positive, got %d", c.UpdateWindowDays)
	check(c.ReportFlagThreshold > 0, "REPORT_FLAG_THRESHOLD must be positive, got %d", c.ReportFlagThreshold)

	check(c.VelocityLimit > 0, "VELOCITY_LIMIT must be positive, got %d", c.VelocityLimit)
	check(c.VelocityWindow > 0, "VELOCITY_WINDOW must be positive")
	check(c.MinAccountAge >= 0, "MIN_ACCOUNT_AGE must not be negative")
	check(c.RatingDeviationThreshold > 0, "RATING_DEVIATION_THRESHOLD must be positive")

	check(c.AggregateMinSample >= 1, "AGGREGATE_MIN_SAMPLE must be at least 1, got %d", c.AggregateMinSample)
	check(c.RecencyHalfLifeDays > 0, "RECENCY_HALF_LIFE_DAYS must be positive")
	check(c.RecencyWeightFloor > 0 && c.RecencyWeightFloor <= 1, "RECENCY_WEIGHT_FLOOR must be in (0,1], got %f", c.RecencyWeightFloor)
	check(c.OutlierIQRMultiplier > 0, "OUTLIER_IQR_MULTIPLIER must be positive")
	check(c.OutlierDamping > 0 && c.OutlierDamping < 1, "OUTLIER_DAMPING must be in (0,1), got %f", c.OutlierDamping)
	check(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1, "CONFIDENCE_LEVEL must be in (0,1), got %f", c.ConfidenceLevel)
	check(c.ConfidenceMinStdDev > 0, "CONFIDENCE_MIN_STDDEV must be positive, got %f", c.ConfidenceMinStdDev)

	check(c.OTELSampleRate >= 0 && c.OTELSampleRate <= 1.0, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)

	return errors.Join(errs...)
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host, rc.Port, rc.Password, rc.DB = c.RedisHost, c.RedisPort, c.RedisPassword, c.RedisDB
	return rc
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing() tracing.Config {
	tc := tracing.DefaultConfig(ServiceName)
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Enabled = c.OTELEnabled
	return tc
}

// HTTPClient returns the retrying client configuration for a dependency
// with the given per-call timeout. Screening calls are not retried so the
// total time spent stays within timeout.
func HTTPClient(timeout time.Duration, retries int) httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = timeout
	hc.MaxRetries = retries
	return hc
}

// Days converts a day count to a duration.
func Days(n float64) time.Duration {
	return time.Duration(n * float64(24*time.Hour))
}
