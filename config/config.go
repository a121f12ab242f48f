package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Seriesflow SeriesflowConfig `yaml:"seriesflow"`
	Converter  ConverterConfig  `yaml:"converter"`
	Exporter   ExporterConfig   `yaml:"exporter"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SeriesflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ConverterConfig struct {
	// DefaultInputFormat is assumed when detection fails on the input path.
	DefaultInputFormat string `yaml:"default_input_format"`
	// RecordKind selects the processor rule set: time_series or financial.
	RecordKind string `yaml:"record_kind"`
	// Validate toggles the processing pass between load and export.
	Validate bool `yaml:"validate"`
}

type ExporterConfig struct {
	Delimiter  string        `yaml:"delimiter"`
	JSONIndent int           `yaml:"json_indent"`
	IfExists   string        `yaml:"if_exists"`
	Table      string        `yaml:"table"`
	Parquet    ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	Backend string            `yaml:"backend"`
	Local   LocalStoreConfig  `yaml:"local"`
	S3      S3Config          `yaml:"s3"`
	Push    map[string]string `yaml:"push"`
}

type LocalStoreConfig struct {
	BaseDir string `yaml:"base_dir"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch bool   `yaml:"cloudwatch"`
	Namespace  string `yaml:"namespace"`
	Dashboard  string `yaml:"dashboard"`
	Region     string `yaml:"region"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Seriesflow: SeriesflowConfig{Name: "seriesflow", Version: "dev"},
		Converter: ConverterConfig{
			DefaultInputFormat: "json",
			RecordKind:         "time_series",
			Validate:           true,
		},
		Exporter: ExporterConfig{
			Delimiter: "\t",
			IfExists:  "replace",
			Table:     "records",
			Parquet:   ParquetConfig{Compression: "snappy"},
		},
		Storage: StorageConfig{Backend: "local", Local: LocalStoreConfig{BaseDir: "."}},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
	}
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := *Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Seriesflow.Name == "" {
		return fmt.Errorf("seriesflow.name is required")
	}

	if cfg.Seriesflow.Version == "" {
		return fmt.Errorf("seriesflow.version is required")
	}

	switch cfg.Converter.RecordKind {
	case "time_series", "financial":
	default:
		return fmt.Errorf("converter.record_kind must be time_series or financial")
	}

	switch cfg.Exporter.IfExists {
	case "replace", "append", "fail":
	default:
		return fmt.Errorf("exporter.if_exists must be replace, append or fail")
	}

	switch cfg.Storage.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("storage.backend must be local or s3")
	}

	if cfg.Storage.Backend == "s3" && cfg.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when the s3 backend is selected")
	}

	return nil
}
