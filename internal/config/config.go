package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gorental/internal/models"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Booking    BookingConfig    `yaml:"booking"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Fleet      FleetConfig      `yaml:"fleet"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type StripeConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type BookingConfig struct {
	MaxBookingDays        int `yaml:"max_booking_days"`
	PendingRetentionHours int `yaml:"pending_retention_hours"`
	CashGraceHours        int `yaml:"cash_grace_hours"`
	ReaperIntervalMinutes int `yaml:"reaper_interval_minutes"`
	CarsPerPage           int `yaml:"cars_per_page"`
	BookingsPerPage       int `yaml:"bookings_per_page"`
	AdminBookingsPerPage  int `yaml:"admin_bookings_per_page"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AlertChatID int64  `yaml:"alert_chat_id"`
	Debug       bool   `yaml:"debug"`
}

type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	LedgerSpreadsheetID string `yaml:"ledger_spreadsheet_id"`
	LedgerSheetRange    string `yaml:"ledger_sheet_range"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type FleetConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; the environment may already be populated.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Stripe.Enabled {
		if c.Stripe.SecretKey == "" {
			return errors.New("stripe secret key is required when stripe is enabled")
		}
		if c.Stripe.WebhookSecret == "" {
			return errors.New("stripe webhook secret is required when stripe is enabled")
		}
	}

	if c.Telegram.BotToken != "" && c.Telegram.AlertChatID == 0 {
		return errors.New("telegram alert_chat_id is required when bot_token is set")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Auth.HeaderAPIKey == "" {
		c.Server.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}
	if c.Google.LedgerSheetRange == "" {
		c.Google.LedgerSheetRange = "Reservations!A:M"
	}

	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.MaxBookingDays
	}
	if c.Booking.PendingRetentionHours == 0 {
		c.Booking.PendingRetentionHours = models.PendingRetentionHours
	}
	if c.Booking.CashGraceHours == 0 {
		c.Booking.CashGraceHours = models.CashGraceHours
	}
	if c.Booking.ReaperIntervalMinutes == 0 {
		c.Booking.ReaperIntervalMinutes = models.ReaperIntervalMinutes
	}
	if c.Booking.CarsPerPage == 0 {
		c.Booking.CarsPerPage = models.DefaultCarsPerPage
	}
	if c.Booking.BookingsPerPage == 0 {
		c.Booking.BookingsPerPage = models.DefaultBookingsPerPage
	}
	if c.Booking.AdminBookingsPerPage == 0 {
		c.Booking.AdminBookingsPerPage = models.DefaultAdminBookingsPerPage
	}
}
