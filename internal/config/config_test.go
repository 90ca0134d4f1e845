package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_PORT", "BASE_URL", "STORAGE_BACKEND", "STORAGE_INIT_ATTEMPTS",
		"STORAGE_INIT_BACKOFF", "CODE_LENGTH", "CODE_MAX_ATTEMPTS", "REDIRECT_STATUS",
		"CLICK_SINK", "CLICK_TIMEOUT", "KAFKA_BROKERS", "FRONTEND_ORIGIN", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "4000" {
		t.Errorf("got port %q, want 4000", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendPostgres {
		t.Errorf("got backend %q, want postgres", cfg.Storage.Backend)
	}
	if cfg.Storage.InitAttempts != 3 || cfg.Storage.InitBackoff != 2*time.Second {
		t.Errorf("got init policy %d/%v, want 3/2s", cfg.Storage.InitAttempts, cfg.Storage.InitBackoff)
	}
	if cfg.Shortener.CodeLength != 6 || cfg.Shortener.MaxAttempts != 5 {
		t.Errorf("got code policy %d/%d, want 6/5", cfg.Shortener.CodeLength, cfg.Shortener.MaxAttempts)
	}
	if cfg.Shortener.RedirectStatus != 302 {
		t.Errorf("got redirect status %d, want 302", cfg.Shortener.RedirectStatus)
	}
	if cfg.Clicks.Sink != ClickSinkDirect {
		t.Errorf("got click sink %q, want direct", cfg.Clicks.Sink)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("got origins %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_DatabaseURLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@remote:5432/x")
	t.Setenv("DB_HOST", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Postgres.DSN(); got != "postgres://u:p@remote:5432/x" {
		t.Errorf("got DSN %q", got)
	}
}

func TestLoad_PortFeedsBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Shortener.BaseURL != "http://localhost:9090" {
		t.Errorf("got base url %q", cfg.Shortener.BaseURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{"redirect status", map[string]string{"REDIRECT_STATUS": "307"}, "REDIRECT_STATUS"},
		{"code too short", map[string]string{"CODE_LENGTH": "5"}, "CODE_LENGTH"},
		{"code too long", map[string]string{"CODE_LENGTH": "9"}, "CODE_LENGTH"},
		{"zero attempts", map[string]string{"CODE_MAX_ATTEMPTS": "0"}, "CODE_MAX_ATTEMPTS"},
		{"zero init attempts", map[string]string{"STORAGE_INIT_ATTEMPTS": "0"}, "STORAGE_INIT_ATTEMPTS"},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "cassandra"}, "STORAGE_BACKEND"},
		{"unknown sink", map[string]string{"CLICK_SINK": "carrier-pigeon"}, "CLICK_SINK"},
		{"kafka without brokers", map[string]string{"CLICK_SINK": "kafka"}, "KAFKA_BROKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %s", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad_KafkaSink(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLICK_SINK", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clicks.Sink != ClickSinkKafka {
		t.Errorf("got sink %q", cfg.Clicks.Sink)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("got brokers %v", cfg.Kafka.Brokers)
	}
}
