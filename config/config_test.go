package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `seriesflow:
  name: "TestApp"
  version: "1.0"
converter:
  default_input_format: json
  record_kind: financial
exporter:
  delimiter: ","
  if_exists: append
storage:
  backend: local
  s3:
    enabled: false
logging:
  level: info
  format: json
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Seriesflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Seriesflow.Name)
	}
	if cfg.Converter.RecordKind != "financial" {
		t.Errorf("unexpected record kind: %s", cfg.Converter.RecordKind)
	}
	if cfg.Exporter.IfExists != "append" {
		t.Errorf("unexpected if_exists: %s", cfg.Exporter.IfExists)
	}
	// Defaults survive a partial file.
	if cfg.Exporter.Table != "records" {
		t.Errorf("unexpected table default: %s", cfg.Exporter.Table)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("does-not-exist.yml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateConfigRejectsBadKind(t *testing.T) {
	cfg := Default()
	cfg.Converter.RecordKind = "orderbook"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for bad record_kind")
	}
}

func TestValidateConfigRejectsBadIfExists(t *testing.T) {
	cfg := Default()
	cfg.Exporter.IfExists = "truncate"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for bad if_exists")
	}
}

func TestS3EnvOverride(t *testing.T) {
	t.Setenv("S3_BUCKET", "override-bucket")
	path := writeTempConfig(t)
	defer os.Remove(path)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	_ = content

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	// s3 disabled: env must not override
	if cfg.Storage.S3.Bucket == "override-bucket" {
		t.Fatalf("env override applied while s3 disabled")
	}
}
