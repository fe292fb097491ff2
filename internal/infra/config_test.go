package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DEEPSEEK_API_KEY", "test-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("DEEPSEEK_BASE_URL", "")
	t.Setenv("ADMIN_SESSION_TTL_SECONDS", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.DeepSeekBaseURL != "https://api.deepseek.com" {
		t.Fatalf("DeepSeekBaseURL mismatch: got %q", cfg.DeepSeekBaseURL)
	}
	if cfg.DeepSeekModel != "deepseek-chat" {
		t.Fatalf("DeepSeekModel mismatch: got %q", cfg.DeepSeekModel)
	}
	if cfg.AdminSessionTTL != time.Hour {
		t.Fatalf("AdminSessionTTL mismatch: got %v want 1h", cfg.AdminSessionTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
	if cfg.DefaultLocale != "en" {
		t.Fatalf("DefaultLocale mismatch: got %q", cfg.DefaultLocale)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRequiresDeepSeekKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DEEPSEEK_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DEEPSEEK_API_KEY is missing")
	}
}

func TestLoadConfigParsesOriginsAndTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")
	t.Setenv("ADMIN_SESSION_TTL_SECONDS", "900")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("AllowedOrigins[1] mismatch: %q", cfg.AllowedOrigins[1])
	}
	if cfg.AdminSessionTTL != 15*time.Minute {
		t.Fatalf("AdminSessionTTL mismatch: got %v want 15m", cfg.AdminSessionTTL)
	}
}
