package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for bookingd.
type Config struct {
	HTTPPort       int
	DatabaseDriver string
	DatabaseDSN    string
	Location       *time.Location

	LockBackend string
	LockTimeout time.Duration
	LockRetries int

	CheckInBackend string
	CheckInTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	SessionProvider string
	JanusURL        string
	JanusTimeout    time.Duration

	ReaderKeyHash  string
	IdentityHeader string
	RoomsFile      string
	PollInterval   time.Duration

	LogFormat string
	LogLevel  string
}

// Backend names accepted by the loader.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendLocal = "local"
	BackendRedis = "redis"
	BackendSQL   = "sql"

	ProviderLocal = "local"
	ProviderJanus = "janus"
)

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables
// already set. An empty path loads ./.env when present.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Every missing or malformed value is
// collected so one run reports all of them.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		DatabaseDriver:  DriverSQLite,
		Location:        time.UTC,
		LockBackend:     BackendLocal,
		LockTimeout:     2 * time.Second,
		LockRetries:     3,
		CheckInBackend:  BackendSQL,
		MQTTClientID:    "bookingd",
		MQTTTopicPrefix: "badges",
		SessionProvider: ProviderLocal,
		JanusTimeout:    5 * time.Second,
		IdentityHeader:  "X-User-ID",
		PollInterval:    3 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if v := env("BOOKING_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := strings.ToLower(env("BOOKING_DATABASE_DRIVER")); v != "" {
		if v != DriverSQLite && v != DriverPostgres {
			invalid = append(invalid, "BOOKING_DATABASE_DRIVER")
		} else {
			cfg.DatabaseDriver = v
		}
	}
	cfg.DatabaseDSN = env("BOOKING_DATABASE_DSN")
	if cfg.DatabaseDSN == "" {
		if cfg.DatabaseDriver == DriverPostgres {
			missing = append(missing, "BOOKING_DATABASE_DSN")
		} else {
			cfg.DatabaseDSN = "booking.db"
		}
	}

	if v := env("BOOKING_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, "BOOKING_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if v := strings.ToLower(env("BOOKING_LOCK_BACKEND")); v != "" {
		if v != BackendLocal && v != BackendRedis {
			invalid = append(invalid, "BOOKING_LOCK_BACKEND")
		} else {
			cfg.LockBackend = v
		}
	}
	parseDuration("BOOKING_LOCK_TIMEOUT", &cfg.LockTimeout, false, &invalid)
	if v := env("BOOKING_LOCK_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, "BOOKING_LOCK_RETRIES")
		} else {
			cfg.LockRetries = n
		}
	}

	if v := strings.ToLower(env("BOOKING_CHECKIN_BACKEND")); v != "" {
		if v != BackendSQL && v != BackendRedis {
			invalid = append(invalid, "BOOKING_CHECKIN_BACKEND")
		} else {
			cfg.CheckInBackend = v
		}
	}
	parseDuration("BOOKING_CHECKIN_TTL", &cfg.CheckInTTL, true, &invalid)

	cfg.RedisAddr = env("BOOKING_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("BOOKING_REDIS_PASSWORD")
	if v := env("BOOKING_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, "BOOKING_REDIS_DB")
		} else {
			cfg.RedisDB = n
		}
	}
	if cfg.RedisAddr == "" && (cfg.LockBackend == BackendRedis || cfg.CheckInBackend == BackendRedis) {
		missing = append(missing, "BOOKING_REDIS_ADDR")
	}

	cfg.MQTTBroker = env("BOOKING_MQTT_BROKER")
	if v := env("BOOKING_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTTClientID = v
	}
	cfg.MQTTUsername = env("BOOKING_MQTT_USERNAME")
	cfg.MQTTPassword = os.Getenv("BOOKING_MQTT_PASSWORD")
	if v := env("BOOKING_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTTTopicPrefix = v
	}

	if v := strings.ToLower(env("BOOKING_SESSION_PROVIDER")); v != "" {
		if v != ProviderLocal && v != ProviderJanus {
			invalid = append(invalid, "BOOKING_SESSION_PROVIDER")
		} else {
			cfg.SessionProvider = v
		}
	}
	cfg.JanusURL = env("BOOKING_JANUS_URL")
	if cfg.SessionProvider == ProviderJanus && cfg.JanusURL == "" {
		missing = append(missing, "BOOKING_JANUS_URL")
	}
	parseDuration("BOOKING_JANUS_TIMEOUT", &cfg.JanusTimeout, false, &invalid)

	if hash := env("BOOKING_READER_KEY_HASH"); hash == "" {
		missing = append(missing, "BOOKING_READER_KEY_HASH")
	} else if !strings.HasPrefix(hash, "$argon2id$") {
		invalid = append(invalid, "BOOKING_READER_KEY_HASH")
	} else {
		cfg.ReaderKeyHash = hash
	}

	if v := env("BOOKING_IDENTITY_HEADER"); v != "" {
		cfg.IdentityHeader = v
	}
	cfg.RoomsFile = env("BOOKING_ROOMS_FILE")
	parseDuration("BOOKING_POLL_INTERVAL", &cfg.PollInterval, false, &invalid)

	if v := strings.ToLower(env("BOOKING_LOG_FORMAT")); v != "" {
		if v != "json" && v != "text" {
			invalid = append(invalid, "BOOKING_LOG_FORMAT")
		} else {
			cfg.LogFormat = v
		}
	}
	if v := strings.ToLower(env("BOOKING_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// parseDuration overwrites *dst when key is set. allowZero permits "0".
func parseDuration(key string, dst *time.Duration, allowZero bool, invalid *[]string) {
	v := env(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		*invalid = append(*invalid, key)
		return
	}
	*dst = d
}
