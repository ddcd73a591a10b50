package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "READ_TIMEOUT_SEC", "WRITE_TIMEOUT_SEC", "CORS_ALLOWED_ORIGINS",
		"PUBLIC_BASE_URL", "DATABASE_URL", "REDIS_ADDR", "REDIS_DB",
		"JWT_SECRET", "JWT_EXPIRE_HOURS", "AWS_PRESIGN_EXPIRE_MINUTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30 || cfg.Server.WriteTimeout != 30 {
		t.Errorf("timeouts = %d/%d", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Server.PublicBaseURL != "http://localhost:8080" {
		t.Errorf("PublicBaseURL = %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 0 {
		t.Errorf("redis = %q/%d", cfg.Redis.Addr, cfg.Redis.DB)
	}
	if cfg.JWT.ExpireHours != 24 {
		t.Errorf("ExpireHours = %d", cfg.JWT.ExpireHours)
	}
	if cfg.AWS.PresignExpireMinutes != 15 {
		t.Errorf("PresignExpireMinutes = %d", cfg.AWS.PresignExpireMinutes)
	}
}

func TestLoadOverridesAndTrimsBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://forms.example.com/")
	t.Setenv("JWT_EXPIRE_HOURS", "72")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Server.PublicBaseURL != "https://forms.example.com" {
		t.Errorf("PublicBaseURL = %q, trailing slash not trimmed", cfg.Server.PublicBaseURL)
	}
	if cfg.JWT.ExpireHours != 72 {
		t.Errorf("ExpireHours = %d", cfg.JWT.ExpireHours)
	}
}

func TestDSNPrefersURL(t *testing.T) {
	c := DatabaseConfig{
		URL:  "postgres://db.internal:5432/app?sslmode=require",
		Host: "ignored", Port: "1", User: "u", Password: "p", DBName: "x", SSLMode: "disable",
	}
	if got := c.DSN(); got != c.URL {
		t.Errorf("DSN = %q, want URL as-is", got)
	}

	c.URL = ""
	want := "postgres://u:p@ignored:1/x?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
