package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the notifier process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	PBX      PBXConfig
	Telegram TelegramConfig
	Poller   PollerConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Env  string
	Port int

	// Timezone is the IANA zone used when rendering call times in
	// notifications. Formatting is locale-fixed; only the zone is configurable.
	Timezone string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// PBXConfig carries call-source credentials and endpoints.
type PBXConfig struct {
	AuthURL    string
	HistoryURL string
	AuthKey    string

	// SessionTTL bounds how long an authenticated session key is reused.
	SessionTTL time.Duration

	// WebhookSecret guards the PBX push endpoint; empty disables the check
	// outside production.
	WebhookSecret string
}

type TelegramConfig struct {
	BotToken  string
	ChannelID int64
}

type PollerConfig struct {
	Interval time.Duration

	// Lookback is how far back the watermark starts on a fresh install.
	Lookback time.Duration
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Timezone = strings.TrimSpace(os.Getenv("APP_TIMEZONE"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.PBX.AuthURL = strings.TrimSpace(os.Getenv("PBX_AUTH_URL"))
	c.PBX.HistoryURL = strings.TrimSpace(os.Getenv("PBX_HISTORY_URL"))
	c.PBX.AuthKey = os.Getenv("PBX_AUTH_KEY")
	c.PBX.SessionTTL = mustDuration("PBX_SESSION_TTL")
	c.PBX.WebhookSecret = os.Getenv("PBX_WEBHOOK_SECRET")

	c.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	{
		raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHANNEL_ID"))
		if raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				parseErrs = append(parseErrs, fmt.Errorf("TELEGRAM_CHANNEL_ID must be an integer, got %q", raw))
			}
			c.Telegram.ChannelID = n
		}
	}

	// Duration env vars are optional; defaults applied in Validate().
	c.Poller.Interval = mustDuration("POLL_INTERVAL")
	c.Poller.Lookback = mustDuration("POLL_LOOKBACK")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Timezone == "" {
		// Local-friendly default; notification times render in UTC unless set.
		c.App.Timezone = "UTC"
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.PBX.AuthURL == "" {
		errs = append(errs, errors.New("PBX_AUTH_URL is required"))
	}
	if c.PBX.HistoryURL == "" {
		errs = append(errs, errors.New("PBX_HISTORY_URL is required"))
	}
	if c.PBX.AuthKey == "" {
		errs = append(errs, errors.New("PBX_AUTH_KEY is required"))
	}
	if c.PBX.SessionTTL <= 0 {
		c.PBX.SessionTTL = 12 * time.Hour
	}

	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.Telegram.ChannelID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHANNEL_ID is required"))
	}
	if c.IsProduction() && c.PBX.WebhookSecret == "" {
		errs = append(errs, errors.New("PBX_WEBHOOK_SECRET is required in production"))
	}

	if c.Poller.Interval <= 0 {
		c.Poller.Interval = 5 * time.Minute
	}
	if c.Poller.Lookback <= 0 {
		c.Poller.Lookback = 24 * time.Hour
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Auth.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
