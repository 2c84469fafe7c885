package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `store:
  backend: "memory"
sms:
  url: "https://gateway.example.com/send"
  api_key: "secret"
coordinator:
  feedback_window_seconds: 20
  location_push_seconds: 5
  helper_radius_km: 15
metrics:
  prometheus_enabled: true
  prometheus_port: "9123"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("backend = %q", cfg.Store.Backend)
	}
	if cfg.SMS.URL != "https://gateway.example.com/send" {
		t.Fatalf("sms url = %q", cfg.SMS.URL)
	}
	if cfg.Coordinator.FeedbackWindowSeconds != 20 || cfg.Coordinator.HelperRadiusKm != 15 {
		t.Fatalf("coordinator config: %+v", cfg.Coordinator)
	}
	// Unset fields fall back to defaults.
	if cfg.Coordinator.AckTimeoutSeconds != 5 {
		t.Fatalf("ack timeout default = %d", cfg.Coordinator.AckTimeoutSeconds)
	}
	if cfg.SMS.TimeoutSeconds != 10 {
		t.Fatalf("sms timeout default = %d", cfg.SMS.TimeoutSeconds)
	}
	if !cfg.Metrics.PrometheusEnabled || cfg.Metrics.PrometheusPort != "9123" {
		t.Fatalf("metrics config: %+v", cfg.Metrics)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `store:
  backend: "memory"
sms:
  url: "https://gateway.example.com/send"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RESQ_STORE__BACKEND", "redis")
	t.Setenv("RESQ_STORE__REDIS__ADDR", "redis.internal:6379")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("env override ignored: %+v", cfg.Store)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unsupported format must fail")
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `store:
  backend: "dynamo"
sms:
  url: "https://gateway.example.com/send"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown backend must fail validation")
	}
}

func TestLoad_MissingSMSURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("missing sms url must fail validation")
	}
}
