package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Discord   DiscordConfig
	Responder ResponderConfig
	Notion    NotionConfig
	Lifecycle LifecycleConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters. The chat bridge authenticates
// with a client id and a secret whose bcrypt hash is configured here.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BridgeClientID        string
	BridgeSecretHash      string
}

// DiscordConfig configures outbound delivery to the chat platform.
type DiscordConfig struct {
	BotToken      string
	LogChannelID  string
	SupportRoleID string
}

// ResponderConfig configures the language-model responder.
type ResponderConfig struct {
	APIKey                string
	Model                 string
	InitialTimeoutSeconds int
	EscalationTimeoutSecs int
}

// NotionConfig configures the document-store exporter.
type NotionConfig struct {
	APIKey     string
	DatabaseID string
}

// LifecycleConfig holds the timing rules of the ticket workflow.
type LifecycleConfig struct {
	CreationCooldown     time.Duration
	AutoCloseAfter       time.Duration
	EscalationThreshold  time.Duration
	EscalationSchedule   string
	EscalationWarmup     time.Duration
	DeferredPollInterval time.Duration
	MaxSubjectLength     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "weaver-helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BridgeClientID:        getEnv("AUTH_BRIDGE_CLIENT_ID", "weaver-bridge"),
			BridgeSecretHash:      os.Getenv("AUTH_BRIDGE_SECRET_HASH"),
		},
		Discord: DiscordConfig{
			BotToken:      os.Getenv("DISCORD_TOKEN"),
			LogChannelID:  os.Getenv("LOG_CHANNEL_ID"),
			SupportRoleID: os.Getenv("SUPPORT_ROLE_ID"),
		},
		Responder: ResponderConfig{
			APIKey:                os.Getenv("CLAUDE_API_KEY"),
			Model:                 getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
			InitialTimeoutSeconds: getEnvAsInt("CLAUDE_TIMEOUT_SECONDS", 30),
			EscalationTimeoutSecs: getEnvAsInt("CLAUDE_ESCALATION_TIMEOUT_SECONDS", 15),
		},
		Notion: NotionConfig{
			APIKey:     os.Getenv("NOTION_API_KEY"),
			DatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		},
		Lifecycle: LifecycleConfig{
			CreationCooldown:     getEnvAsDuration("TICKET_COOLDOWN", 30*time.Second),
			AutoCloseAfter:       getEnvAsDuration("TICKET_AUTO_CLOSE_AFTER", 24*time.Hour),
			EscalationThreshold:  getEnvAsDuration("ESCALATION_THRESHOLD", 24*time.Hour),
			EscalationSchedule:   getEnv("ESCALATION_SCHEDULE", "0 * * * *"),
			EscalationWarmup:     getEnvAsDuration("ESCALATION_WARMUP", 20*time.Second),
			DeferredPollInterval: getEnvAsDuration("DEFERRED_POLL_INTERVAL", time.Minute),
			MaxSubjectLength:     getEnvAsInt("TICKET_MAX_SUBJECT_LENGTH", 100),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
