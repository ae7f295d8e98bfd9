package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

const SupportedVersion = "1"

// Storage backends accepted in storage.type.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageS3     = "s3"
)

// Markdown renderers accepted in markdown.renderer.
const (
	RendererClassic = "classic"
	RendererMmark   = "mmark"
)

// Config represents the complete configuration structure
type Config struct {
	Version  string         `yaml:"version" default:"1"`
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
	// console or json
	Format string `yaml:"format" default:"console"`
}

type SiteConfig struct {
	Name    string `yaml:"name" default:"The Archive"`
	Tagline string `yaml:"tagline" default:"Write something worth keeping"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" default:"0.0.0.0"`
	Port         string        `yaml:"port" default:"12600"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" default:"2m"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type StorageConfig struct {
	Type   string       `yaml:"type" default:"sqlite"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	S3     S3Config     `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"./database.db"`
	// How often the database is checked for posts written by other processes.
	PollInterval time.Duration `yaml:"poll_interval" default:"10s"`
}

// S3Config holds the bucket settings. Credentials are read from the
// environment, never from the file.
type S3Config struct {
	Bucket   string `yaml:"bucket" default:""`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"posts/"`
}

type MarkdownConfig struct {
	Renderer    string `yaml:"renderer" default:"classic"`
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q (expected %q)", c.Version, SupportedVersion)
	}

	switch c.Storage.Type {
	case StorageMemory, StorageSQLite:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}

	switch c.Markdown.Renderer {
	case RendererClassic, RendererMmark:
	default:
		return fmt.Errorf("unknown markdown renderer %q", c.Markdown.Renderer)
	}

	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		if field.Type() == durationType {
			if val, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(val))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}

// Environment variables holding the S3 credentials.
const (
	EnvS3AccessKeyID     = "S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "S3_SECRET_ACCESS_KEY"
)
