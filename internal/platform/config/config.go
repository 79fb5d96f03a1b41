package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Store     StoreConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Notify    NotifyConfig
	Lock      LockConfig
	Auth      AuthConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	Seed      bool
	Metrics   bool
}

// StoreConfig selects the certificate and directory backends.
type StoreConfig struct {
	Driver          string
	DatabaseURL     string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// DirectoryCacheTTL bounds how stale student and course reads may be.
	DirectoryCacheTTL time.Duration
}

// RedisConfig configures the shared Redis client. An empty URL disables Redis;
// locks and change notifications then stay in-process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the certificate-issued event producer. No brokers
// means events are logged instead.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	ClientID    string
	EnsureTopic bool
	Partitions  int32
	Replication int16
}

type NotifyConfig struct {
	Buffer           int
	FailureThreshold int
	Cooldown         time.Duration
}

type LockConfig struct {
	TTL time.Duration
}

// AuthConfig holds the secret used to verify staff tokens minted by the
// portal's authentication service.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Leeway    time.Duration
}

// RateLimitConfig sets the sliding-window budgets. Counters live in Redis
// when it is configured and in process otherwise.
type RateLimitConfig struct {
	Disabled       bool
	LookupRequests int
	LookupWindow   time.Duration
	AdminRequests  int
	AdminWindow    time.Duration
}

// TracingConfig controls span export. Disabled tracing leaves the global
// no-op provider in place.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// FromEnv loads an optional .env file and builds the configuration from
// environment variables.
func FromEnv() (Server, error) {
	if path := os.Getenv("TC_ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return Server{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	} else {
		// Missing .env is normal outside local development.
		_ = godotenv.Load()
	}

	var errs []string
	durationOr := func(key string, def time.Duration) time.Duration {
		d, err := durationEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return d
	}
	intOr := func(key string, def int) int {
		n, err := intEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return n
	}

	cfg := Server{
		Addr:            stringEnv("TC_ADDR", ":8080"),
		LogLevel:        stringEnv("TC_LOG_LEVEL", "info"),
		LogFormat:       stringEnv("TC_LOG_FORMAT", "json"),
		ShutdownTimeout: durationOr("TC_SHUTDOWN_TIMEOUT", 10*time.Second),
		Store: StoreConfig{
			Driver:          strings.ToLower(stringEnv("TC_STORE_DRIVER", StoreMemory)),
			DatabaseURL:     os.Getenv("TC_DATABASE_URL"),
			SQLitePath:      stringEnv("TC_SQLITE_PATH", "trainingcenter.db"),
			MaxOpenConns:    intOr("TC_DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    intOr("TC_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: durationOr("TC_DB_CONN_MAX_LIFETIME", 30*time.Minute),

			DirectoryCacheTTL: durationOr("TC_DIRECTORY_CACHE_TTL", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("TC_REDIS_URL"),
			PoolSize:     intOr("TC_REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("TC_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationOr("TC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("TC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("TC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("TC_KAFKA_BROKERS")),
			Topic:       stringEnv("TC_KAFKA_TOPIC", "certificates.issued"),
			ClientID:    stringEnv("TC_KAFKA_CLIENT_ID", "trainingcenter"),
			EnsureTopic: os.Getenv("TC_KAFKA_ENSURE_TOPIC") == "true",
			Partitions:  int32(intOr("TC_KAFKA_PARTITIONS", 3)),
			Replication: int16(intOr("TC_KAFKA_REPLICATION", 1)),
		},
		Notify: NotifyConfig{
			Buffer:           intOr("TC_NOTIFY_BUFFER", 256),
			FailureThreshold: intOr("TC_NOTIFY_FAILURE_THRESHOLD", 5),
			Cooldown:         durationOr("TC_NOTIFY_COOLDOWN", 30*time.Second),
		},
		Lock: LockConfig{
			TTL: durationOr("TC_LOCK_TTL", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("TC_ADMIN_JWT_SECRET"),
			Issuer:    stringEnv("TC_ADMIN_JWT_ISSUER", "portal-auth"),
			Leeway:    durationOr("TC_ADMIN_JWT_LEEWAY", 30*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:     os.Getenv("TC_TRACING_ENABLED") == "true",
			ServiceName: stringEnv("TC_SERVICE_NAME", "trainingcenter"),
		},
		RateLimit: RateLimitConfig{
			Disabled:       os.Getenv("TC_RATELIMIT_DISABLED") == "true",
			LookupRequests: intOr("TC_RATELIMIT_LOOKUP_REQUESTS", 60),
			LookupWindow:   durationOr("TC_RATELIMIT_LOOKUP_WINDOW", time.Minute),
			AdminRequests:  intOr("TC_RATELIMIT_ADMIN_REQUESTS", 300),
			AdminWindow:    durationOr("TC_RATELIMIT_ADMIN_WINDOW", time.Minute),
		},
		Seed:    os.Getenv("TC_SEED_DIRECTORY") == "true",
		Metrics: os.Getenv("TC_METRICS_DISABLED") != "true",
	}

	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Server) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("TC_DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported TC_STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("TC_ADMIN_JWT_SECRET is required")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("TC_LOCK_TTL must be positive")
	}
	return nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
