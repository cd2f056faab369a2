package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Session      SessionConfig
	Verification VerificationConfig
	Password     PasswordConfig
	SMTP         SMTPConfig

	// HMACKey is the decoded HMAC_SHA256_SECRET_KEY.
	HMACKey []byte
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port      int
	Env       string
	WebOrigin string
	APIOrigin string
}

// IsProduction reports whether cookies must be marked Secure.
func (s ServerConfig) IsProduction() bool { return s.Env == "production" }

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL        string
	MaxRetries int
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Issuer         string
	Audience       string
	KeyID          string
	PrivateKeyPath string
	PublicKeyPath  string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
}

type SessionConfig struct {
	Limit      int
	CookieName string
}

type VerificationConfig struct {
	TokenTTL        time.Duration
	MaxDailyResends int64
	ResendCooldown  time.Duration
	ResendWindow    time.Duration
}

type PasswordConfig struct {
	MismatchDelay time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Load .env into process environment so AutomaticEnv sees file-based values too.
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	}

	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	env := v.GetString("APP_ENV")
	if env == "" {
		env = v.GetString("NODE_ENV")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetInt("SERVER_PORT"),
			Env:       env,
			WebOrigin: strings.TrimRight(v.GetString("WEB_ORIGIN"), "/"),
			APIOrigin: strings.TrimRight(v.GetString("API_ORIGIN"), "/"),
		},
		Database: DatabaseConfig{
			URL:        v.GetString("DATABASE_URL"),
			MaxRetries: v.GetInt("DATABASE_MAX_RETRIES"),
		},
		Redis: RedisConfig{URL: v.GetString("REDIS_URL")},
		JWT: JWTConfig{
			Issuer:         v.GetString("JWT_ISS"),
			Audience:       v.GetString("JWT_AUD"),
			KeyID:          v.GetString("JWT_KID"),
			PrivateKeyPath: v.GetString("JWT_PRIVATE_KEY_PATH"),
			PublicKeyPath:  v.GetString("JWT_PUBLIC_KEY_PATH"),
			AccessTTL:      seconds(v, "ACCESS_TOKEN_EXPIRY"),
			RefreshTTL:     seconds(v, "REFRESH_TOKEN_EXPIRY"),
		},
		Session: SessionConfig{
			Limit:      v.GetInt("SESSION_LIMIT"),
			CookieName: v.GetString("REFRESH_COOKIE_NAME"),
		},
		Verification: VerificationConfig{
			TokenTTL:        seconds(v, "EMAIL_VERIFICATION_TOKEN_EXPIRY"),
			MaxDailyResends: v.GetInt64("VERIFICATION_MAX_DAILY_RESENDS"),
			ResendCooldown:  seconds(v, "VERIFICATION_RESEND_COOLDOWN"),
			ResendWindow:    seconds(v, "VERIFICATION_RESEND_WINDOW"),
		},
		Password: PasswordConfig{
			MismatchDelay: time.Duration(v.GetInt64("PASSWORD_MISMATCH_DELAY_MS")) * time.Millisecond,
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
	}

	key, err := base64.StdEncoding.DecodeString(v.GetString("HMAC_SHA256_SECRET_KEY"))
	if err != nil {
		return nil, fmt.Errorf("HMAC_SHA256_SECRET_KEY is not valid base64: %w", err)
	}
	cfg.HMACKey = key

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("DATABASE_MAX_RETRIES", 5)
	v.SetDefault("ACCESS_TOKEN_EXPIRY", 15*60)
	v.SetDefault("REFRESH_TOKEN_EXPIRY", 30*24*60*60)
	v.SetDefault("EMAIL_VERIFICATION_TOKEN_EXPIRY", 24*60*60)
	v.SetDefault("SESSION_LIMIT", 5)
	v.SetDefault("REFRESH_COOKIE_NAME", "__refresh_token__")
	v.SetDefault("VERIFICATION_MAX_DAILY_RESENDS", 5)
	v.SetDefault("VERIFICATION_RESEND_COOLDOWN", 60)
	v.SetDefault("VERIFICATION_RESEND_WINDOW", 24*60*60)
	v.SetDefault("PASSWORD_MISMATCH_DELAY_MS", 1000)
	v.SetDefault("SMTP_PORT", 587)
}

// seconds reads an integer number of seconds. Durations are configured as
// plain integers to stay compatible with existing deployments.
func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt64(key)) * time.Second
}

func (c *Config) validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"DATABASE_URL", c.Database.URL},
		{"REDIS_URL", c.Redis.URL},
		{"WEB_ORIGIN", c.Server.WebOrigin},
		{"JWT_ISS", c.JWT.Issuer},
		{"JWT_AUD", c.JWT.Audience},
		{"JWT_PRIVATE_KEY_PATH", c.JWT.PrivateKeyPath},
		{"JWT_PUBLIC_KEY_PATH", c.JWT.PublicKeyPath},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if len(c.HMACKey) == 0 {
		errs = append(errs, errors.New("HMAC_SHA256_SECRET_KEY is required"))
	}

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"ACCESS_TOKEN_EXPIRY", c.JWT.AccessTTL},
		{"REFRESH_TOKEN_EXPIRY", c.JWT.RefreshTTL},
		{"EMAIL_VERIFICATION_TOKEN_EXPIRY", c.Verification.TokenTTL},
		{"VERIFICATION_RESEND_COOLDOWN", c.Verification.ResendCooldown},
		{"VERIFICATION_RESEND_WINDOW", c.Verification.ResendWindow},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	if c.Session.Limit < 1 {
		errs = append(errs, errors.New("SESSION_LIMIT must be at least 1"))
	}
	if c.Verification.MaxDailyResends < 1 {
		errs = append(errs, errors.New("VERIFICATION_MAX_DAILY_RESENDS must be at least 1"))
	}
	if c.Password.MismatchDelay < 0 {
		errs = append(errs, errors.New("PASSWORD_MISMATCH_DELAY_MS must not be negative"))
	}
	return errors.Join(errs...)
}
