// Package config loads application settings from .env, an optional
// config.yaml and GRADER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	GinMode       string        `mapstructure:"GIN_MODE"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	DatabaseDSN   string        `mapstructure:"DB_DSN"`
	AutoMigrate   bool          `mapstructure:"DB_AUTO_MIGRATE"`
	UploadBase    string        `mapstructure:"UPLOAD_BASE"`
	Gemini        GeminiConfig  `mapstructure:"GEMINI"`
	OCR           OCRConfig     `mapstructure:"OCR"`
	Grading       GradingConfig `mapstructure:"GRADING"`
	Storage       StorageConfig `mapstructure:"STORAGE"`
	WatchDebounce time.Duration `mapstructure:"WATCH_DEBOUNCE"`
}

type GeminiConfig struct {
	APIKey   string        `mapstructure:"API_KEY"`
	Endpoint string        `mapstructure:"ENDPOINT"`
	Model    string        `mapstructure:"MODEL"`
	Timeout  time.Duration `mapstructure:"TIMEOUT"`
}

// OCRConfig selects the recognition engine. Engine is "vision" or "tesseract".
type OCRConfig struct {
	Engine          string `mapstructure:"ENGINE"`
	CredentialsFile string `mapstructure:"CREDENTIALS_FILE"`
	Language        string `mapstructure:"LANGUAGE"`
	Enhance         bool   `mapstructure:"ENHANCE"`
	Repair          bool   `mapstructure:"REPAIR"`
}

type GradingConfig struct {
	UseEvaluator  bool `mapstructure:"USE_EVALUATOR"`
	DefaultPoints int  `mapstructure:"DEFAULT_POINTS"`
}

// StorageConfig selects where uploaded answer images live: "local" or "minio".
type StorageConfig struct {
	Backend string      `mapstructure:"BACKEND"`
	Minio   MinioConfig `mapstructure:"MINIO"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"ENDPOINT"`
	AccessKey string `mapstructure:"ACCESS_KEY"`
	SecretKey string `mapstructure:"SECRET_KEY"`
	Bucket    string `mapstructure:"BUCKET"`
	UseSSL    bool   `mapstructure:"USE_SSL"`
}

// EnvPrefix is prepended to every environment key, e.g. GRADER_GEMINI_API_KEY.
const EnvPrefix = "GRADER"

var defaults = map[string]any{
	"SERVER_PORT":              "8080",
	"GIN_MODE":                 "debug",
	"JWT_SECRET":               "",
	"DB_DSN":                   "",
	"DB_AUTO_MIGRATE":          false,
	"UPLOAD_BASE":              "./uploads",
	"WATCH_DEBOUNCE":           "700ms",
	"GEMINI.API_KEY":           "",
	"GEMINI.ENDPOINT":          "https://generativelanguage.googleapis.com/v1beta/models",
	"GEMINI.MODEL":             "gemini-2.0-flash",
	"GEMINI.TIMEOUT":           "0s",
	"OCR.ENGINE":               "vision",
	"OCR.CREDENTIALS_FILE":     "google-credentials.json",
	"OCR.LANGUAGE":             "eng",
	"OCR.ENHANCE":              true,
	"OCR.REPAIR":               true,
	"GRADING.USE_EVALUATOR":    false,
	"GRADING.DEFAULT_POINTS":   10,
	"STORAGE.BACKEND":          "local",
	"STORAGE.MINIO.ENDPOINT":   "localhost:9000",
	"STORAGE.MINIO.ACCESS_KEY": "",
	"STORAGE.MINIO.SECRET_KEY": "",
	"STORAGE.MINIO.BUCKET":     "answers",
	"STORAGE.MINIO.USE_SSL":    false,
}

// Load reads configuration. paths lists directories searched for
// config.yaml; the working directory is used when none is given.
func Load(paths ...string) (*Config, error) {
	// .env is optional; values already in the environment win
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env loaded: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		log.Println("config.yaml not found, using environment variables and defaults")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate rejects settings that cannot work at all.
func (c *Config) Validate() error {
	switch c.OCR.Engine {
	case "vision", "tesseract":
	default:
		return fmt.Errorf("unknown OCR.ENGINE %q", c.OCR.Engine)
	}
	switch c.Storage.Backend {
	case "local", "minio":
	default:
		return fmt.Errorf("unknown STORAGE.BACKEND %q", c.Storage.Backend)
	}
	if c.Grading.DefaultPoints <= 0 {
		return fmt.Errorf("GRADING.DEFAULT_POINTS must be positive, got %d", c.Grading.DefaultPoints)
	}
	return nil
}

// Addr returns the listen address for ServerPort.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.ServerPort, ":") {
		return c.ServerPort
	}
	return ":" + c.ServerPort
}
