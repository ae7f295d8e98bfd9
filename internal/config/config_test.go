package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test-config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tempFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}
	tempFile.Close()

	return tempFile.Name()
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Version != SupportedVersion {
			t.Errorf("Expected version %q, got %q", SupportedVersion, config.Version)
		}
		if config.Site.Name != "The Archive" {
			t.Errorf("Expected site name 'The Archive', got %q", config.Site.Name)
		}
		if config.Server.Host != "0.0.0.0" {
			t.Errorf("Expected host '0.0.0.0', got %q", config.Server.Host)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Server.Addr() != "0.0.0.0:12600" {
			t.Errorf("Expected addr '0.0.0.0:12600', got %q", config.Server.Addr())
		}
		if config.Server.ReadTimeout != 5*time.Second {
			t.Errorf("Expected read timeout 5s, got %v", config.Server.ReadTimeout)
		}
		if config.Server.IdleTimeout != 2*time.Minute {
			t.Errorf("Expected idle timeout 2m, got %v", config.Server.IdleTimeout)
		}
		if config.Storage.Type != StorageSQLite {
			t.Errorf("Expected storage type %q, got %q", StorageSQLite, config.Storage.Type)
		}
		if config.Storage.SQLite.Path != "./database.db" {
			t.Errorf("Expected sqlite path './database.db', got %q", config.Storage.SQLite.Path)
		}
		if config.Storage.S3.Region != "auto" {
			t.Errorf("Expected s3 region 'auto', got %q", config.Storage.S3.Region)
		}
		if config.Storage.S3.Bucket != "" {
			t.Errorf("Expected empty bucket, got %q", config.Storage.S3.Bucket)
		}
		if config.Markdown.Renderer != RendererClassic {
			t.Errorf("Expected renderer %q, got %q", RendererClassic, config.Markdown.Renderer)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected logging level 'info', got %q", config.Logging.Level)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField   string        `default:"test-string"`
			BoolField     bool          `default:"true"`
			IntField      int           `default:"42"`
			Int64Field    int64         `default:"64"`
			Float64Field  float64       `default:"3.14"`
			DurationField time.Duration `default:"1m30s"`
			SliceField    []string      `default:"a, b ,c"`
			NoDefault     string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 {
			t.Errorf("Expected int field 42, got %d", test.IntField)
		}
		if test.Int64Field != 64 {
			t.Errorf("Expected int64 field 64, got %d", test.Int64Field)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float field 3.14, got %f", test.Float64Field)
		}
		if test.DurationField != 90*time.Second {
			t.Errorf("Expected duration 1m30s, got %v", test.DurationField)
		}
		if !reflect.DeepEqual(test.SliceField, []string{"a", "b", "c"}) {
			t.Errorf("Expected slice [a b c], got %v", test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected empty field, got %q", test.NoDefault)
		}
	})

	t.Run("Non-pointer and non-struct values are ignored", func(t *testing.T) {
		// Should not panic
		applyDefaults(42)
		applyDefaults("string")
	})
}

func TestLoadConfig(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	SetLogger(logger)

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		err := LoadConfig("non-existent-config.yaml")
		if err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}
		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set with defaults")
		}
		if AppConfig.Site.Name != "The Archive" {
			t.Errorf("Expected default site name, got %q", AppConfig.Site.Name)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeTempConfig(t, `
site:
  name: "Test Blog"
server:
  host: "127.0.0.1"
  port: "8080"
  write_timeout: 30s
storage:
  type: memory
markdown:
  renderer: mmark
`)

		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}

		if AppConfig.Site.Name != "Test Blog" {
			t.Errorf("Expected site name 'Test Blog', got %q", AppConfig.Site.Name)
		}
		if AppConfig.Server.Addr() != "127.0.0.1:8080" {
			t.Errorf("Expected addr '127.0.0.1:8080', got %q", AppConfig.Server.Addr())
		}
		if AppConfig.Server.WriteTimeout != 30*time.Second {
			t.Errorf("Expected write timeout 30s, got %v", AppConfig.Server.WriteTimeout)
		}
		if AppConfig.Storage.Type != StorageMemory {
			t.Errorf("Expected storage type 'memory', got %q", AppConfig.Storage.Type)
		}
		if AppConfig.Markdown.Renderer != RendererMmark {
			t.Errorf("Expected renderer 'mmark', got %q", AppConfig.Markdown.Renderer)
		}

		// Defaults still apply to unspecified fields
		if AppConfig.Site.Tagline != "Write something worth keeping" {
			t.Errorf("Expected default tagline, got %q", AppConfig.Site.Tagline)
		}
		if AppConfig.Storage.SQLite.Path != "./database.db" {
			t.Errorf("Expected default sqlite path, got %q", AppConfig.Storage.SQLite.Path)
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeTempConfig(t, `
site:
  name: "Test Blog"
  invalid yaml syntax [
`)

		err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errorText string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "unknown storage type",
			mutate:    func(c *Config) { c.Storage.Type = "redis" },
			errorText: "unknown storage type",
		},
		{
			name:      "s3 without bucket",
			mutate:    func(c *Config) { c.Storage.Type = StorageS3 },
			errorText: "storage.s3.bucket is required",
		},
		{
			name: "s3 with bucket",
			mutate: func(c *Config) {
				c.Storage.Type = StorageS3
				c.Storage.S3.Bucket = "posts"
			},
		},
		{
			name:      "unknown renderer",
			mutate:    func(c *Config) { c.Markdown.Renderer = "goldmark" },
			errorText: "unknown markdown renderer",
		},
		{
			name:      "unknown logging format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			errorText: "unknown logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorText == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorText) {
				t.Errorf("Expected error containing %q, got %v", tt.errorText, err)
			}
		})
	}
}
