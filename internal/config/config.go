package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Realtime     RealtimeConfig
	Moderation   ModerationConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	ShutdownGraceSeconds  int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// RealtimeConfig controls the websocket listener and cross-instance relay.
type RealtimeConfig struct {
	Addr           string
	AllowedOrigins []string
	RedisEnabled   bool
	RedisChannel   string
	SendBuffer     int
}

// ModerationConfig lists roles allowed to moderate other users' content.
type ModerationConfig struct {
	PrivilegedRoles []string
}

// NotificationConfig holds push delivery settings.
type NotificationConfig struct {
	PushTitle          string
	PushTimeoutSeconds int
}

var validRoles = map[string]struct{}{
	"student": {},
	"teacher": {},
	"admin":   {},
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	privileged := getEnvAsList("MODERATION_PRIVILEGED_ROLES", []string{"teacher", "admin"})
	for _, role := range privileged {
		if _, ok := validRoles[role]; !ok {
			return nil, fmt.Errorf("invalid MODERATION_PRIVILEGED_ROLES entry %q", role)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "campus-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			ShutdownGraceSeconds:  getEnvAsInt("APP_SHUTDOWN_GRACE_SECONDS", 5),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Realtime: RealtimeConfig{
			Addr:           getEnv("REALTIME_ADDR", "0.0.0.0:5001"),
			AllowedOrigins: getEnvAsList("REALTIME_ALLOWED_ORIGINS", []string{"*"}),
			RedisEnabled:   getEnvAsBool("REALTIME_REDIS_ENABLED", false),
			RedisChannel:   getEnv("REALTIME_REDIS_CHANNEL", "campus:events"),
			SendBuffer:     getEnvAsInt("REALTIME_SEND_BUFFER", 256),
		},
		Moderation: ModerationConfig{
			PrivilegedRoles: privileged,
		},
		Notification: NotificationConfig{
			PushTitle:          getEnv("NOTIFY_PUSH_TITLE", "New News Alert!"),
			PushTimeoutSeconds: getEnvAsInt("NOTIFY_PUSH_TIMEOUT_SECONDS", 5),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ShutdownGrace bounds how long shutdown may take before the process exits anyway.
func (a AppConfig) ShutdownGrace() time.Duration {
	if a.ShutdownGraceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.ShutdownGraceSeconds) * time.Second
}

// PushTimeout returns the per-request timeout for push delivery.
func (n NotificationConfig) PushTimeout() time.Duration {
	if n.PushTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.PushTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
