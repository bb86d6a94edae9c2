package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/itsnaseer/slackbrix/core/db"
)

// DefaultScopes are requested when SLACK_SCOPES is unset.
var DefaultScopes = []string{
	"channels:history",
	"channels:join",
	"channels:manage",
	"channels:read",
	"channels:write.invites",
	"chat:write",
	"chat:write.customize",
	"groups:history",
	"groups:write",
	"groups:write.invites",
	"im:history",
	"im:write",
	"mpim:write",
	"users:read",
}

type Config struct {
	OTel          OTelConfig
	Slack         SlackConfig
	Queue         QueueConfig
	Demo          DemoConfig
	Env           string
	Port          string
	PublicBaseURL string
	AdminAPIKey   string
	DB            db.Config
	AutoMigrate   bool
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type SlackConfig struct {
	SigningSecret string
	ClientID      string
	ClientSecret  string
	StateSecret   string
	InstallPath   string
	RedirectPath  string
	APIURL        string // empty uses the slack-go default
	Scopes        []string
}

type QueueConfig struct {
	RedisURL       string
	RedisStream    string
	RedisGroup     string
	RedisDLQStream string
	RedisConsumer  string
	// StreamMaxLen caps the demo stream; 0 leaves it untrimmed.
	StreamMaxLen int64
	DedupTTL     time.Duration
}

type DemoConfig struct {
	TriggerText   string
	UserCacheSize int
	UserCacheTTL  time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the HTTP server
//   - .env.worker for the demo worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("SLACKBRIX_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:           getEnv("SLACKBRIX_ENV", "development"),
		Port:          getEnv("PORT", "3000"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),
		AutoMigrate:   getEnvBool("DB_AUTO_MIGRATE", true),
		DB: db.Config{
			DSN:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			AppName:         "slackbrix-" + string(serviceType),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "slackbrix"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Slack: SlackConfig{
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
			ClientID:      getEnv("SLACK_CLIENT_ID", ""),
			ClientSecret:  getEnv("SLACK_CLIENT_SECRET", ""),
			StateSecret:   getEnv("SLACK_STATE_SECRET", ""),
			InstallPath:   getEnv("SLACK_INSTALL_PATH", "/slack/install"),
			RedirectPath:  getEnv("SLACK_REDIRECT_PATH", "/slack/oauthcallback"),
			APIURL:        getEnv("SLACK_API_URL", ""),
			Scopes:        ParseScopes(getEnv("SLACK_SCOPES", "")),
		},
		Queue: QueueConfig{
			RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisStream:    getEnv("REDIS_STREAM", "slackbrix_demo"),
			RedisGroup:     getEnv("REDIS_CONSUMER_GROUP", "slackbrix_group"),
			RedisDLQStream: getEnv("REDIS_DLQ_STREAM", "slackbrix_demo_dlq"),
			RedisConsumer:  getEnv("REDIS_CONSUMER_NAME", "worker"),
			StreamMaxLen:   int64(getEnvInt("REDIS_STREAM_MAXLEN", 10000)),
			DedupTTL:       getEnvDuration("EVENT_DEDUP_TTL", time.Hour),
		},
		Demo: DemoConfig{
			TriggerText:   getEnv("DEMO_TRIGGER_TEXT", "I need help."),
			UserCacheSize: getEnvInt("DEMO_USER_CACHE_SIZE", 128),
			UserCacheTTL:  getEnvDuration("DEMO_USER_CACHE_TTL", 10*time.Minute),
		},
	}

	if len(cfg.Slack.Scopes) == 0 {
		cfg.Slack.Scopes = DefaultScopes
	}

	if err := cfg.validate(serviceType); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate(serviceType ServiceType) error {
	var missing []string
	if c.DB.DSN == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if serviceType == ServiceTypeServer {
		required := []struct{ name, value string }{
			{"SLACK_SIGNING_SECRET", c.Slack.SigningSecret},
			{"SLACK_CLIENT_ID", c.Slack.ClientID},
			{"SLACK_CLIENT_SECRET", c.Slack.ClientSecret},
			{"SLACK_STATE_SECRET", c.Slack.StateSecret},
		}
		for _, r := range required {
			if r.value == "" {
				missing = append(missing, r.name)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.Demo.TriggerText == "" {
		return errors.New("DEMO_TRIGGER_TEXT must not be empty")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// AdminEnabled reports whether the admin API routes should be registered.
func (c Config) AdminEnabled() bool {
	return c.AdminAPIKey != ""
}

var scopeSeparators = regexp.MustCompile(`[,\s]+`)

// ParseScopes splits a comma or whitespace separated scope list.
func ParseScopes(raw string) []string {
	var scopes []string
	for _, s := range scopeSeparators.Split(raw, -1) {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
