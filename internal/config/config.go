package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"studiobook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig             `yaml:"app"`
	HTTP          HTTPConfig            `yaml:"http"`
	Database      DatabaseConfig        `yaml:"database"`
	Redis         RedisConfig           `yaml:"redis"`
	Stripe        StripeConfig          `yaml:"stripe"`
	Email         EmailConfig           `yaml:"email"`
	Logging       LoggingConfig         `yaml:"logging"`
	Monitoring    MonitoringConfig      `yaml:"monitoring"`
	Auth          AuthConfig            `yaml:"auth"`
	Booking       BookingConfig         `yaml:"booking"`
	SlotTemplates []models.SlotTemplate `yaml:"slot_templates"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port            int    `yaml:"port"`
	BaseURL         string `yaml:"base_url"` // used for checkout success/cancel redirects
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type StripeConfig struct {
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EmailConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ResendKey   string `yaml:"resend_key"`
	FromAddress string `yaml:"from_address"`
	CompanyName string `yaml:"company_name"`
	MaxRetries  int    `yaml:"max_retries"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type AuthConfig struct {
	Enabled      bool      `yaml:"enabled"`
	HeaderAPIKey string    `yaml:"header_api_key"`
	APIKeys      []APIKey  `yaml:"api_keys"`
	RateLimit    RateLimit `yaml:"rate_limit"`
}

type APIKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	Currency       string `yaml:"currency"`
	MaxBookingDays int    `yaml:"max_booking_days"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; present in local setups only
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Substitute ${ENV_VAR} references before parsing
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
	if c.Stripe.SecretKey == "" {
		return errors.New("stripe secret key is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return errors.New("stripe webhook secret is required")
	}
	if c.Email.Enabled && c.Email.ResendKey == "" {
		return errors.New("email.resend_key is required when email is enabled")
	}

	return ValidateSlotTemplates(c.SlotTemplates)
}

// ValidateSlotTemplates enforces the invariants on configured templates.
func ValidateSlotTemplates(templates []models.SlotTemplate) error {
	ids := make(map[string]bool)
	for _, t := range templates {
		if t.ID != "" {
			if ids[t.ID] {
				return fmt.Errorf("duplicate slot template ID: %s", t.ID)
			}
			ids[t.ID] = true
		}
		if t.DayOfWeek < 0 || t.DayOfWeek > 6 {
			return fmt.Errorf("slot template %q: day_of_week must be 0-6, got %d", t.ID, t.DayOfWeek)
		}
		if t.DurationHours <= 0 {
			return fmt.Errorf("slot template %q: duration_hours must be positive", t.ID)
		}
		if t.MaxCapacity < 1 {
			return fmt.Errorf("slot template %q: max_capacity must be at least 1", t.ID)
		}
		if t.StartTime >= t.EndTime {
			return fmt.Errorf("slot template %q: start_time must be before end_time", t.ID)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "studiobook"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.BaseURL == "" {
		c.HTTP.BaseURL = fmt.Sprintf("http://localhost:%d", c.HTTP.Port)
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Stripe.TimeoutSeconds == 0 {
		c.Stripe.TimeoutSeconds = 15
	}
	if c.Email.CompanyName == "" {
		c.Email.CompanyName = c.App.Name
	}
	if c.Email.FromAddress == "" {
		c.Email.FromAddress = "onboarding@resend.dev"
	}
	if c.Email.MaxRetries == 0 {
		c.Email.MaxRetries = 3
	}
	if c.Auth.HeaderAPIKey == "" {
		c.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Auth.RateLimit.RPS == 0 {
		c.Auth.RateLimit.RPS = models.RateLimitRPSDefault
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = models.DefaultCurrency
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = 365
	}
}

// StripeTimeout returns the bounded timeout for processor calls.
func (c *Config) StripeTimeout() time.Duration {
	return time.Duration(c.Stripe.TimeoutSeconds) * time.Second
}
