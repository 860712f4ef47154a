package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/ticket-engine/internal/domain"
	"github.com/spec-kit/ticket-engine/internal/hours"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App        AppConfig
	Store      StoreConfig
	Automation AutomationConfig
	Panels     PanelsConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Logger     LoggerConfig
}

// AppConfig controls the adapter HTTP surface.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig locates the durable ticket store.
type StoreConfig struct {
	Dir string
}

// AutomationConfig holds the sweep thresholds, all in minutes.
type AutomationConfig struct {
	SweepIntervalMinutes     int
	AutoClose                bool
	InactivityWarningMinutes int
	InactivityGraceMinutes   int
	StaffReminderMinutes     int
	MaxTicketsPerUser        int
	TicketOverloadLimit      int
}

// PanelsConfig carries per-panel scheduling and presentation inputs supplied
// by the configuration provider.
type PanelsConfig struct {
	WorkingHours   map[int]hours.Weekly
	PriorityColors map[domain.TicketPriority]string
	StaffRoles     []string
}

// PostgresConfig holds audit trail DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds notification publisher connection values. An empty Addr
// disables the publisher.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// AuthConfig defines adapter authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminPasswordHash     string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	workingHours, err := parseWorkingHours(os.Getenv("PANEL_WORKING_HOURS"))
	if err != nil {
		return nil, err
	}
	priorityColors, err := parsePriorityColors(os.Getenv("PRIORITY_COLORS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Dir: getEnv("STORE_DIR", "data"),
		},
		Automation: AutomationConfig{
			SweepIntervalMinutes:     getEnvAsInt("AUTOMATION_SWEEP_INTERVAL_MINUTES", 5),
			AutoClose:                getEnvAsBool("AUTOMATION_AUTO_CLOSE", true),
			InactivityWarningMinutes: getEnvAsInt("AUTOMATION_INACTIVITY_WARNING_MINUTES", 60),
			InactivityGraceMinutes:   getEnvAsInt("AUTOMATION_INACTIVITY_GRACE_MINUTES", 30),
			StaffReminderMinutes:     getEnvAsInt("AUTOMATION_STAFF_REMINDER_MINUTES", 30),
			MaxTicketsPerUser:        getEnvAsInt("AUTOMATION_MAX_TICKETS_PER_USER", 1),
			TicketOverloadLimit:      getEnvAsInt("AUTOMATION_TICKET_OVERLOAD_LIMIT", 50),
		},
		Panels: PanelsConfig{
			WorkingHours:   workingHours,
			PriorityColors: priorityColors,
			StaffRoles:     splitList(os.Getenv("STAFF_ROLES")),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          os.Getenv("REDIS_ADDR"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "tickets"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
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

// SweepInterval returns the sweep cadence as a duration.
func (a AutomationConfig) SweepInterval() time.Duration {
	if a.SweepIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.SweepIntervalMinutes) * time.Minute
}

// parseWorkingHours decodes the JSON-encoded panel schedule map keyed by
// panel number.
func parseWorkingHours(raw string) (map[int]hours.Weekly, error) {
	if strings.TrimSpace(raw) == "" {
		return map[int]hours.Weekly{}, nil
	}
	schedules := make(map[int]hours.Weekly)
	if err := json.Unmarshal([]byte(raw), &schedules); err != nil {
		return nil, fmt.Errorf("invalid PANEL_WORKING_HOURS: %w", err)
	}
	return schedules, nil
}

func parsePriorityColors(raw string) (map[domain.TicketPriority]string, error) {
	colors := map[domain.TicketPriority]string{
		domain.TicketPriorityLow:    "#2ECC71",
		domain.TicketPriorityMedium: "#F1C40F",
		domain.TicketPriorityHigh:   "#E67E22",
		domain.TicketPriorityUrgent: "#E74C3C",
	}
	if strings.TrimSpace(raw) == "" {
		return colors, nil
	}
	if err := json.Unmarshal([]byte(raw), &colors); err != nil {
		return nil, fmt.Errorf("invalid PRIORITY_COLORS: %w", err)
	}
	return colors, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
