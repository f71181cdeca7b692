package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/sav-service/internal/sla"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
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
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token validation parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SLAConfig holds the business calendar and default SLA thresholds.
type SLAConfig struct {
	StartHour        int
	EndHour          int
	WorkDays         []time.Weekday
	Timezone         string
	HolidaysFile     string
	Holidays         []string
	Thresholds       sla.Thresholds
	SweepSchedule    string
	RuleCacheTTLSecs int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	workDays, err := ParseWorkDays(getEnv("BUSINESS_WORK_DAYS", "1,2,3,4,5"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_WORK_DAYS: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	defaults := sla.DefaultThresholds()
	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sav-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      getEnvAllowEmpty("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "sav:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		SLA: SLAConfig{
			StartHour:    getEnvAsInt("BUSINESS_START_HOUR", 9),
			EndHour:      getEnvAsInt("BUSINESS_END_HOUR", 18),
			WorkDays:     workDays,
			Timezone:     getEnv("BUSINESS_TIMEZONE", "Europe/Paris"),
			HolidaysFile: os.Getenv("BUSINESS_HOLIDAYS_FILE"),
			Thresholds: sla.Thresholds{
				sla.PriorityUrgent: getEnvAsInt("SLA_HOURS_URGENT", defaults[sla.PriorityUrgent]),
				sla.PriorityHigh:   getEnvAsInt("SLA_HOURS_HIGH", defaults[sla.PriorityHigh]),
				sla.PriorityNormal: getEnvAsInt("SLA_HOURS_NORMAL", defaults[sla.PriorityNormal]),
				sla.PriorityLow:    getEnvAsInt("SLA_HOURS_LOW", defaults[sla.PriorityLow]),
			},
			SweepSchedule:    getEnvAllowEmpty("SLA_SWEEP_SCHEDULE", "*/5 * * * *"),
			RuleCacheTTLSecs: getEnvAsInt("SLA_RULE_CACHE_TTL_SECONDS", 300),
		},
	}

	if cfg.SLA.HolidaysFile != "" {
		holidays, err := LoadHolidayFile(cfg.SLA.HolidaysFile)
		if err != nil {
			return nil, err
		}
		cfg.SLA.Holidays = holidays.Dates
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

// CalendarConfig converts the settings into an engine configuration.
func (s SLAConfig) CalendarConfig() sla.Config {
	return sla.Config{
		StartHour: s.StartHour,
		EndHour:   s.EndHour,
		WorkDays:  s.WorkDays,
		Timezone:  s.Timezone,
		Holidays:  s.Holidays,
	}
}

// RuleCacheTTL returns how long resolved SLA rules stay cached.
func (s SLAConfig) RuleCacheTTL() time.Duration {
	if s.RuleCacheTTLSecs <= 0 {
		return 0
	}
	return time.Duration(s.RuleCacheTTLSecs) * time.Second
}

// ParseWorkDays parses a comma separated list of weekday numbers
// (0 = Sunday) or English day names.
func ParseWorkDays(raw string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n < 0 || n > 6 {
				return nil, fmt.Errorf("weekday %d out of range", n)
			}
			days = append(days, time.Weekday(n))
			continue
		}
		day, ok := weekdayNames[part]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvAllowEmpty distinguishes an unset key from one explicitly set to "".
func getEnvAllowEmpty(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
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
