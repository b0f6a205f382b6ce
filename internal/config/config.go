package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the API server.
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Auth        AuthConfig      `mapstructure:"auth"`
	OTP         OTPConfig       `mapstructure:"otp"`
	Mail        MailConfig      `mapstructure:"mail"`
	AWS         AWSConfig       `mapstructure:"aws"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Calendar    CalendarConfig  `mapstructure:"calendar"`
	Google      GoogleConfig    `mapstructure:"google"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Sentry      SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver           string `mapstructure:"driver"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	DBName           string `mapstructure:"dbname"`
	SSLMode          string `mapstructure:"sslmode"`
	DatabaseURL      string `mapstructure:"url"`
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
	MaxIdleConns     int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  string `mapstructure:"conn_max_idle_time"`
	SQLitePath       string `mapstructure:"sqlite_path"`
	ApplicationName  string `mapstructure:"application_name"`
	ConnectTimeout   int    `mapstructure:"connect_timeout"`
	StatementTimeout int    `mapstructure:"statement_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

// OTPConfig controls one-time code generation and guessing limits.
type OTPConfig struct {
	Length         int           `mapstructure:"length"`
	TTL            time.Duration `mapstructure:"ttl"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

type MailConfig struct {
	Provider     string `mapstructure:"provider"`
	From         string `mapstructure:"from"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// StorageConfig points at an S3 compatible bucket. Endpoint is empty for AWS S3.
type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type CalendarConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	ServiceAccountEmail string `mapstructure:"service_account_email"`
	PrivateKey          string `mapstructure:"private_key"`
	CalendarID          string `mapstructure:"calendar_id"`
	TimeZone            string `mapstructure:"time_zone"`
}

type GoogleConfig struct {
	ClientID string `mapstructure:"client_id"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	Requests    int           `mapstructure:"requests"`
	Window      time.Duration `mapstructure:"window"`
	OTPRequests int           `mapstructure:"otp_requests"`
	OTPWindow   time.Duration `mapstructure:"otp_window"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Address returns the listen address for the HTTP server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Addr returns host:port for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from .env, an optional config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	bindLegacyEnv(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "change-me-in-production")
	v.SetDefault("database.dbname", "whydesigns")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")
	v.SetDefault("database.sqlite_path", "whydesigns.db")
	v.SetDefault("database.application_name", "whydesigns-api")
	v.SetDefault("database.connect_timeout", 10)
	v.SetDefault("database.statement_timeout", 30000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.access_ttl", "1h")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("otp.length", 4)
	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.resend_cooldown", "60s")

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", "no-reply@whydesigns.com")
	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.smtp_user", "")
	v.SetDefault("mail.smtp_password", "")

	v.SetDefault("aws.region", "ap-south-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "ap-south-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.max_upload_size", 5*1024*1024)
	v.SetDefault("storage.public_base_url", "")

	v.SetDefault("calendar.enabled", false)
	v.SetDefault("calendar.service_account_email", "")
	v.SetDefault("calendar.private_key", "")
	v.SetDefault("calendar.calendar_id", "primary")
	v.SetDefault("calendar.time_zone", "UTC")

	v.SetDefault("google.client_id", "")

	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.otp_requests", 5)
	v.SetDefault("rate_limit.otp_window", "15m")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.traces_sample_rate", 0.1)
}

// bindLegacyEnv maps the flat variable names used by existing deployments.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("database.sqlite_path", "SQLITE_PATH")
	_ = v.BindEnv("auth.access_secret", "AUTH_ACCESS_SECRET", "ACCESS_TOKEN_SECRET")
	_ = v.BindEnv("auth.refresh_secret", "AUTH_REFRESH_SECRET", "REFRESH_TOKEN_SECRET")
	_ = v.BindEnv("otp.length", "OTP_LENGTH")
	_ = v.BindEnv("storage.bucket", "STORAGE_BUCKET", "AWS_S3_BUCKET")
	_ = v.BindEnv("aws.region", "AWS_REGION")
	_ = v.BindEnv("aws.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("mail.provider", "MAIL_PROVIDER")
	_ = v.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
}

func (c *Config) validate() error {
	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch driver {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("database.driver must be one of sqlite, postgres (got %q)", c.Database.Driver)
	}
	if driver == "sqlite" && strings.TrimSpace(c.Database.SQLitePath) == "" {
		return fmt.Errorf("database.sqlite_path is required when database.driver is sqlite")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}

	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("otp.length must be between 4 and 10 (got %d)", c.OTP.Length)
	}
	if c.OTP.TTL <= 0 {
		return fmt.Errorf("otp.ttl must be positive")
	}

	switch strings.ToLower(c.Mail.Provider) {
	case "log", "smtp", "ses":
	default:
		return fmt.Errorf("mail.provider must be one of log, smtp, ses (got %q)", c.Mail.Provider)
	}

	if c.IsProduction() {
		if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
			return fmt.Errorf("auth.access_secret and auth.refresh_secret are required in production")
		}
	}
	return nil
}
