package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorental/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_API_KEY", "env-secret")

	path := writeConfig(t, `
app:
  name: gorental
  environment: test
server:
  port: 8181
  auth:
    enabled: true
    api_keys:
      - key: ${TEST_API_KEY}
        name: frontend
database:
  path: ./data/test.db
booking:
  max_booking_days: 180
  cars_per_page: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Server.Auth.APIKeys[0].Key, "env placeholders expand")
	assert.Equal(t, 180, cfg.Booking.MaxBookingDays)
	assert.Equal(t, 5, cfg.Booking.CarsPerPage)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ./data/test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "x-api-key", cfg.Server.Auth.HeaderAPIKey)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, "Reservations!A:M", cfg.Google.LedgerSheetRange)
	assert.Equal(t, models.MaxBookingDays, cfg.Booking.MaxBookingDays)
	assert.Equal(t, models.PendingRetentionHours, cfg.Booking.PendingRetentionHours)
	assert.Equal(t, models.CashGraceHours, cfg.Booking.CashGraceHours)
	assert.Equal(t, models.ReaperIntervalMinutes, cfg.Booking.ReaperIntervalMinutes)
	assert.Equal(t, models.DefaultCarsPerPage, cfg.Booking.CarsPerPage)
	assert.Equal(t, models.DefaultBookingsPerPage, cfg.Booking.BookingsPerPage)
	assert.Equal(t, models.DefaultAdminBookingsPerPage, cfg.Booking.AdminBookingsPerPage)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database path is required",
		},
		{
			name: "stripe enabled without secret key",
			mutate: func(c *Config) {
				c.Stripe.Enabled = true
				c.Stripe.WebhookSecret = "whsec_x"
			},
			wantErr: "stripe secret key is required",
		},
		{
			name: "stripe enabled without webhook secret",
			mutate: func(c *Config) {
				c.Stripe.Enabled = true
				c.Stripe.SecretKey = "sk_test_x"
			},
			wantErr: "stripe webhook secret is required",
		},
		{
			name:    "telegram token without chat id",
			mutate:  func(c *Config) { c.Telegram.BotToken = "123:abc" },
			wantErr: "alert_chat_id is required",
		},
		{
			name:   "complete stripe block",
			mutate: func(c *Config) { c.Stripe = StripeConfig{Enabled: true, SecretKey: "sk", WebhookSecret: "whsec"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Database: DatabaseConfig{Path: "./data/test.db"}}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
