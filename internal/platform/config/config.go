package config

import (
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, read once from the environment.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	SMS      SMSConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Environment     string
	Addr            string
	AdminToken      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  []netip.Prefix
	LogLevel        string
	// SeedDemoData fills in-memory stores with demo accounts at startup.
	SeedDemoData bool
}

// DatabaseConfig selects PostgreSQL when URL is set, in-memory stores otherwise.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig selects Redis-backed sessions and OTPs when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the outbox publisher when Brokers is set.
type KafkaConfig struct {
	Brokers      string
	Topic        string
	Partitions   int32
	Replication  int16
	PollInterval time.Duration
	BatchSize    int
	Retention    time.Duration
}

type AuthConfig struct {
	JWTSigningKey      string
	Issuer             string
	Audience           string
	UserTokenTTL       time.Duration
	GovernmentTokenTTL time.Duration
	LoginOTPTTL        time.Duration
	VerifyOTPTTL       time.Duration
}

// SMSConfig configures the OTP/notification gateway. An empty APIKey makes
// the server log messages instead of sending them.
type SMSConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Environment:     envString("TRUSTID_ENV", "development"),
			Addr:            envString("TRUSTID_ADDR", ":8080"),
			AdminToken:      os.Getenv("ADMIN_API_TOKEN"),
			RequestTimeout:  envDuration("REQUEST_TIMEOUT", 15*time.Second),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustedProxies:  envPrefixes("TRUSTED_PROXIES"),
			LogLevel:        envString("LOG_LEVEL", "info"),
			SeedDemoData:    os.Getenv("SEED_DEMO_DATA") == "true",
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      os.Getenv("KAFKA_BROKERS"),
			Topic:        envString("KAFKA_CONSENT_TOPIC", "trustid.consent-events"),
			Partitions:   int32(envInt("KAFKA_TOPIC_PARTITIONS", 3)),
			Replication:  int16(envInt("KAFKA_TOPIC_REPLICATION", 1)),
			PollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
			Retention:    envDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		},
		Auth: AuthConfig{
			// The default is for local development only.
			JWTSigningKey:      envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:             envString("JWT_ISSUER", "trustid"),
			Audience:           envString("JWT_AUDIENCE", "trustid-api"),
			UserTokenTTL:       envDuration("USER_TOKEN_TTL", 7*24*time.Hour),
			GovernmentTokenTTL: envDuration("GOV_TOKEN_TTL", 12*time.Hour),
			LoginOTPTTL:        envDuration("LOGIN_OTP_TTL", 5*time.Minute),
			VerifyOTPTTL:       envDuration("VERIFY_OTP_TTL", 10*time.Minute),
		},
		SMS: SMSConfig{
			APIKey:  os.Getenv("TWO_FACTOR_API_KEY"),
			BaseURL: envString("SMS_BASE_URL", "https://2factor.in/API/V1"),
			Timeout: envDuration("SMS_TIMEOUT", 5*time.Second),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envPrefixes parses a comma-separated CIDR list, skipping malformed entries.
func envPrefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range strings.Split(os.Getenv(key), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p)
		}
	}
	return out
}
