package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the scheduler process reads from its environment.
type Config struct {
	Address  string
	LogLevel string
	Location *time.Location

	DataFile string
	PgDSN    string

	CalendarID      string
	CredentialsFile string

	SMTP SMTPConfig
	Auth AuthConfig

	TelegramToken  string
	TelegramChatID int64

	ReminderLead     time.Duration
	ReminderInterval time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type AuthConfig struct {
	Username     string
	PasswordHash string
	APIKey       string
	JWTSecret    string
	SessionTTL   time.Duration
}

// Load reads the environment. Values from a .env file in the working
// directory are used for variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("err reading .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var c Config
	var errs []error

	c.Address = lookupEnv("ADDRESS", ":8080")
	c.LogLevel = lookupEnv("LOG_LEVEL", "info")

	tz := lookupEnv("TIMEZONE", "Asia/Karachi")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	c.Location = loc

	c.DataFile = lookupEnv("DATA_FILE", "data/meetings.csv")
	c.PgDSN = strings.TrimSpace(os.Getenv("PG_DSN"))

	c.CalendarID = strings.TrimSpace(os.Getenv("CALENDAR_ID"))
	c.CredentialsFile = lookupEnv("GOOGLE_CREDENTIALS_FILE", "google_service_account.json")

	c.SMTP.Host = lookupEnv("SMTP_HOST", "smtp.gmail.com")
	c.SMTP.Port = intEnv("SMTP_PORT", 465, &errs)
	c.SMTP.User = strings.TrimSpace(os.Getenv("SMTP_USER"))
	c.SMTP.Password = os.Getenv("SMTP_PASS")

	c.Auth.Username = strings.TrimSpace(os.Getenv("OPERATOR_USERNAME"))
	c.Auth.PasswordHash = strings.TrimSpace(os.Getenv("OPERATOR_PASSWORD_HASH"))
	c.Auth.APIKey = os.Getenv("OPERATOR_API_KEY")
	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.SessionTTL = durationEnv("SESSION_TTL", 12*time.Hour, &errs)

	c.TelegramToken = strings.TrimSpace(os.Getenv("TG_TOKEN"))
	if raw := strings.TrimSpace(os.Getenv("TG_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TG_CHAT_ID: %w", err))
		}
		c.TelegramChatID = id
	}

	c.ReminderLead = durationEnv("REMINDER_LEAD", 15*time.Minute, &errs)
	c.ReminderInterval = durationEnv("REMINDER_INTERVAL", time.Minute, &errs)

	if c.CalendarID == "" {
		errs = append(errs, errors.New("CALENDAR_ID is required"))
	}
	if c.Auth.Username == "" {
		errs = append(errs, errors.New("OPERATOR_USERNAME is required"))
	}
	if c.Auth.PasswordHash == "" && c.Auth.APIKey == "" {
		errs = append(errs, errors.New("OPERATOR_PASSWORD_HASH or OPERATOR_API_KEY is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TG_CHAT_ID is required with TG_TOKEN"))
	}
	if c.ReminderLead > 0 && c.ReminderInterval <= 0 {
		errs = append(errs, errors.New("REMINDER_INTERVAL must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// HostAddress is where host copies of notifications go.
func (c Config) HostAddress() string {
	return c.SMTP.User
}

func lookupEnv(key, defaultValue string) string {
	result := strings.TrimSpace(os.Getenv(key))
	if result == "" {
		return defaultValue
	}
	return result
}

func intEnv(key string, defaultValue int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
	}
	return n
}

func durationEnv(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
	}
	return d
}
