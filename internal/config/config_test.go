package config

import (
	"os"
	"path/filepath"
	"testing"

	"studiobook/internal/models"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
http:
  port: 9999
  base_url: "https://studio.example.com"
database:
  path: "test.db"
stripe:
  secret_key: "sk_test_123"
  webhook_secret: "whsec_123"
slot_templates:
  - id: "mon-morning"
    day_of_week: 1
    start_time: "09:00"
    end_time: "12:00"
    duration_hours: 1
    max_capacity: 2
    is_active: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	// Mock .env file
	if err := os.WriteFile(".env", []byte(""), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	defer os.Remove(".env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.HTTP.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.HTTP.Port)
	}
	if cfg.Stripe.SecretKey != "sk_test_123" {
		t.Errorf("expected stripe key sk_test_123, got %s", cfg.Stripe.SecretKey)
	}
	if len(cfg.SlotTemplates) != 1 || cfg.SlotTemplates[0].ID != "mon-morning" {
		t.Errorf("expected 1 slot template with ID mon-morning")
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_STRIPE_KEY", "sk_live_from_env")

	yamlContent := `
database:
  path: "test.db"
stripe:
  secret_key: "${TEST_STRIPE_KEY}"
  webhook_secret: "whsec_123"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Stripe.SecretKey != "sk_live_from_env" {
		t.Errorf("expected expanded stripe key, got %s", cfg.Stripe.SecretKey)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Stripe:   StripeConfig{SecretKey: "sk", WebhookSecret: "whsec"},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				Stripe: StripeConfig{SecretKey: "sk", WebhookSecret: "whsec"},
			},
			wantErr: true,
		},
		{
			name: "missing stripe secret",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Stripe:   StripeConfig{WebhookSecret: "whsec"},
			},
			wantErr: true,
		},
		{
			name: "missing webhook secret",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Stripe:   StripeConfig{SecretKey: "sk"},
			},
			wantErr: true,
		},
		{
			name: "email enabled without resend key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Stripe:   StripeConfig{SecretKey: "sk", WebhookSecret: "whsec"},
				Email:    EmailConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Booking.Currency != models.DefaultCurrency {
		t.Errorf("expected default currency %s, got %s", models.DefaultCurrency, cfg.Booking.Currency)
	}
	if cfg.Auth.RateLimit.RPS != models.RateLimitRPSDefault {
		t.Errorf("expected default rate limit %v, got %v", float64(models.RateLimitRPSDefault), cfg.Auth.RateLimit.RPS)
	}
	if cfg.Email.MaxRetries != 3 {
		t.Errorf("expected default email retries 3, got %d", cfg.Email.MaxRetries)
	}
	if cfg.Stripe.TimeoutSeconds != 15 {
		t.Errorf("expected default stripe timeout 15, got %d", cfg.Stripe.TimeoutSeconds)
	}
}

func TestValidateSlotTemplates(t *testing.T) {
	tests := []struct {
		name      string
		templates []models.SlotTemplate
		wantErr   bool
	}{
		{
			name: "valid",
			templates: []models.SlotTemplate{
				{ID: "a", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", DurationHours: 1, MaxCapacity: 1},
			},
			wantErr: false,
		},
		{
			name: "duplicate id",
			templates: []models.SlotTemplate{
				{ID: "a", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", DurationHours: 1, MaxCapacity: 1},
				{ID: "a", DayOfWeek: 2, StartTime: "09:00", EndTime: "12:00", DurationHours: 1, MaxCapacity: 1},
			},
			wantErr: true,
		},
		{
			name: "day out of range",
			templates: []models.SlotTemplate{
				{ID: "a", DayOfWeek: 7, StartTime: "09:00", EndTime: "12:00", DurationHours: 1, MaxCapacity: 1},
			},
			wantErr: true,
		},
		{
			name: "start after end",
			templates: []models.SlotTemplate{
				{ID: "a", DayOfWeek: 1, StartTime: "13:00", EndTime: "12:00", DurationHours: 1, MaxCapacity: 1},
			},
			wantErr: true,
		},
		{
			name: "zero capacity",
			templates: []models.SlotTemplate{
				{ID: "a", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", DurationHours: 1, MaxCapacity: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlotTemplates(tt.templates)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlotTemplates() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
