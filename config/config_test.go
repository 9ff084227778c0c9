package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App: AppConfig{
			SecretKey:      "k",
			Domain:         "https://d.example",
			RedirectPrefix: "/p",
			LinkTTL:        10 * time.Minute,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.App.SecretKey = " " }, wantErr: ErrMissingSecretKey},
		{name: "missing domain", mutate: func(c *Config) { c.App.Domain = "" }, wantErr: ErrMissingDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_RejectsBadTTLAndPrefix(t *testing.T) {
	cfg := validConfig()
	cfg.App.LinkTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero link ttl")
	}

	cfg = validConfig()
	cfg.App.RedirectPrefix = "p"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for prefix without leading slash")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_SECRET_KEY", "secret")
	t.Setenv("APP_DOMAIN", "https://pay.example/")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("APP_ALLOWED_ORIGINS", "https://shop.example,https://m.shop.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.App.SecretKey != "secret" {
		t.Fatalf("secret key = %q", cfg.App.SecretKey)
	}
	if cfg.App.Domain != "https://pay.example" {
		t.Fatalf("domain = %q, want trailing slash trimmed", cfg.App.Domain)
	}
	if cfg.Redis.Port != 6380 {
		t.Fatalf("redis port = %d, want 6380", cfg.Redis.Port)
	}
	if cfg.App.LinkTTL != 10*time.Minute {
		t.Fatalf("link ttl = %s, want 10m", cfg.App.LinkTTL)
	}
	if cfg.App.RedirectPrefix != "/p" {
		t.Fatalf("redirect prefix = %q, want /p", cfg.App.RedirectPrefix)
	}
	if cfg.Redirect.WebURL != "https://tpay-web.com/pay" {
		t.Fatalf("web url = %q", cfg.Redirect.WebURL)
	}
	if len(cfg.App.AllowedOrigins) != 2 || cfg.App.AllowedOrigins[1] != "https://m.shop.example" {
		t.Fatalf("allowed origins = %v", cfg.App.AllowedOrigins)
	}
	if cfg.Redirect.IOSRetryDelay != time.Second || cfg.Redirect.IOSFallbackDelay != 2*time.Second {
		t.Fatalf("unexpected ios delays: %s / %s", cfg.Redirect.IOSRetryDelay, cfg.Redirect.IOSFallbackDelay)
	}
}

func TestIsDevelopment(t *testing.T) {
	for env, want := range map[string]bool{"development": true, "staging": true, "production": false} {
		cfg := validConfig()
		cfg.App.Env = env
		if got := cfg.IsDevelopment(); got != want {
			t.Errorf("IsDevelopment() with env %q = %v, want %v", env, got, want)
		}
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_SECRET_KEY", "")
	t.Setenv("APP_DOMAIN", "https://pay.example")

	if _, err := Load(); !errors.Is(err, ErrMissingSecretKey) {
		t.Fatalf("Load() error = %v, want ErrMissingSecretKey", err)
	}
}
