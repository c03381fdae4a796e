package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		CMS: CMSConfig{
			BaseURL:      "https://api.moltin.com/",
			ClientID:     "id",
			ClientSecret: "secret",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %q, expected longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.CMS.BaseURL != "https://api.moltin.com" {
		t.Fatalf("base_url = %q, expected trailing slash trimmed", cfg.CMS.BaseURL)
	}
	if cfg.Images.CacheDir != "images" {
		t.Fatalf("cache_dir = %q, expected default", cfg.Images.CacheDir)
	}
}

func TestNormalizePollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %q, expected alias folded to longpoll", cfg.Telegram.RunMode)
	}
}

func TestNormalizeErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "telegram token"},
		{"missing base url", func(c *Config) { c.CMS.BaseURL = "" }, "cms.base_url"},
		{"missing secret", func(c *Config) { c.CMS.ClientSecret = "" }, "cms.client_id and cms.client_secret"},
		{"missing redis", func(c *Config) { c.Redis.Addr = " " }, "redis.addr"},
		{"bad run mode", func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" }, "run_mode"},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = "webhook" }, "webhook.url"},
		{"negative rate limit", func(c *Config) { c.RateLimit.IntervalMS = -1 }, "rate_limit.interval_ms"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Normalize(cfg)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, expected to mention %q", err, tc.wantErr)
			}
		})
	}
}
