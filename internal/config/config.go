package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Supported detector providers
const (
	ProviderONNX   = "onnx"
	ProviderGemini = "gemini"
)

// Config holds every setting read from the environment
type Config struct {
	// API deployment
	Port             int    `env:"PORT" env-default:"8000"`
	ModelFilename    string `env:"MODEL_FILENAME" env-default:"best.onnx"`
	ModelsFolder     string `env:"MODELS_FOLDER" env-default:"models"`
	ModelClasses     string `env:"MODEL_CLASSES" env-default:"human"`
	DetectorProvider string `env:"DETECTOR_PROVIDER" env-default:"onnx"`
	LogLevel         string `env:"LOG_LEVEL" env-default:"info"`

	// ONNX runtime
	ONNXRuntimeLib     string  `env:"ONNXRUNTIME_LIB"`
	InferenceImageSize int     `env:"INFERENCE_IMAGE_SIZE" env-default:"640"`
	NMSIoUThreshold    float64 `env:"NMS_IOU_THRESHOLD" env-default:"0.7"`

	// Gemini
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`

	// Database
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseName     string `env:"DATABASE_NAME" env-default:"human_detection"`
	DatabaseHost     string `env:"DATABASE_HOST" env-default:"localhost"`
	DatabasePort     int    `env:"DATABASE_PORT" env-default:"5432"`
	DatabaseUser     string `env:"DATABASE_USER" env-default:"postgres"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`

	// Data validation, in pixels of area
	MinImageSize int `env:"MIN_IMAGE_SIZE" env-default:"1024"`
	MaxImageSize int `env:"MAX_IMAGE_SIZE" env-default:"16777216"`

	MediaStorageFolder string `env:"MEDIA_STORAGE_FOLDER" env-default:"media_storage"`
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if c.MinImageSize < 0 || c.MaxImageSize <= 0 {
		return fmt.Errorf("image size bounds must be positive (min=%d, max=%d)", c.MinImageSize, c.MaxImageSize)
	}
	if c.MinImageSize > c.MaxImageSize {
		return fmt.Errorf("MIN_IMAGE_SIZE (%d) is greater than MAX_IMAGE_SIZE (%d)", c.MinImageSize, c.MaxImageSize)
	}
	switch c.DetectorProvider {
	case ProviderONNX, ProviderGemini:
	default:
		return fmt.Errorf("unsupported detector provider: %s", c.DetectorProvider)
	}
	if c.NMSIoUThreshold <= 0 || c.NMSIoUThreshold > 1 {
		return fmt.Errorf("NMS_IOU_THRESHOLD must be in (0, 1], got %v", c.NMSIoUThreshold)
	}
	if c.InferenceImageSize <= 0 {
		return fmt.Errorf("INFERENCE_IMAGE_SIZE must be positive, got %d", c.InferenceImageSize)
	}
	return nil
}

// ModelPath is where the fine-tuned weights live
func (c *Config) ModelPath() string {
	return filepath.Join(c.ModelsFolder, "finetuned", c.ModelFilename)
}

// Classes returns the model's class names in class-id order
func (c *Config) Classes() []string {
	var classes []string
	for _, name := range strings.Split(c.ModelClasses, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			classes = append(classes, name)
		}
	}
	if len(classes) == 0 {
		return []string{"human"}
	}
	return classes
}

// DSN returns DATABASE_URL, or a PostgreSQL URL assembled from the parts
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.DatabaseHost, c.DatabasePort),
		Path:   "/" + c.DatabaseName,
	}
	if c.DatabasePassword != "" {
		u.User = url.UserPassword(c.DatabaseUser, c.DatabasePassword)
	} else {
		u.User = url.User(c.DatabaseUser)
	}
	return u.String()
}

// SlogLevel maps LOG_LEVEL onto a slog level
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel reads debug, info, warn or error, defaulting to info
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
