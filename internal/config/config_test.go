package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("DATABASE_URL", "postgres://localhost/auth")
	v.Set("REDIS_URL", "redis://localhost:6379/0")
	v.Set("WEB_ORIGIN", "https://app.example.com/")
	v.Set("JWT_ISS", "https://api.example.com")
	v.Set("JWT_AUD", "https://app.example.com")
	v.Set("JWT_PRIVATE_KEY_PATH", "keys/private.pem")
	v.Set("JWT_PUBLIC_KEY_PATH", "keys/public.pem")
	v.Set("HMAC_SHA256_SECRET_KEY", base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(validViper())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.False(t, cfg.Server.IsProduction())
	assert.Equal(t, "https://app.example.com", cfg.Server.WebOrigin)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5, cfg.Session.Limit)
	assert.Equal(t, "__refresh_token__", cfg.Session.CookieName)
	assert.Equal(t, int64(5), cfg.Verification.MaxDailyResends)
	assert.Equal(t, time.Minute, cfg.Verification.ResendCooldown)
	assert.Equal(t, 24*time.Hour, cfg.Verification.ResendWindow)
	assert.Equal(t, time.Second, cfg.Password.MismatchDelay)
	assert.Len(t, cfg.HMACKey, 32)
}

func TestLoadOverrides(t *testing.T) {
	v := validViper()
	v.Set("APP_ENV", "production")
	v.Set("SESSION_LIMIT", 2)
	v.Set("ACCESS_TOKEN_EXPIRY", 60)
	v.Set("PASSWORD_MISMATCH_DELAY_MS", 0)

	cfg, err := load(v)
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, 2, cfg.Session.Limit)
	assert.Equal(t, time.Minute, cfg.JWT.AccessTTL)
	assert.Zero(t, cfg.Password.MismatchDelay)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want string
	}{
		{"bad hmac key", map[string]any{"HMAC_SHA256_SECRET_KEY": "not base64!"}, "not valid base64"},
		{"empty hmac key", map[string]any{"HMAC_SHA256_SECRET_KEY": ""}, "HMAC_SHA256_SECRET_KEY is required"},
		{"missing database", map[string]any{"DATABASE_URL": ""}, "DATABASE_URL is required"},
		{"zero session limit", map[string]any{"SESSION_LIMIT": 0}, "SESSION_LIMIT must be at least 1"},
		{"negative refresh ttl", map[string]any{"REFRESH_TOKEN_EXPIRY": -1}, "REFRESH_TOKEN_EXPIRY must be positive"},
		{"zero verification ttl", map[string]any{"EMAIL_VERIFICATION_TOKEN_EXPIRY": 0}, "EMAIL_VERIFICATION_TOKEN_EXPIRY must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
