package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	CameraSnapshot = "snapshot"
	CameraStill    = "still"
	CameraNone     = "none"

	OCRTesseract = "tesseract"
	OCRAnthropic = "anthropic"
)

type Config struct {
	Port        string
	Environment string

	OTelServiceName string
	OTelEndpoint    string

	BaseRate       int64
	CurrencySymbol string

	CameraBackend   string
	CameraURL       string
	CameraUsername  string
	CameraPassword  string
	CameraStillPath string
	CameraDevice    int
	CameraTimeout   time.Duration
	CaptureKeyWait  time.Duration

	OCRBackend      string
	TesseractPath   string
	AnthropicAPIKey string
	OCRModel        string

	RabbitMQURL string
	EventsQueue string
}

// Load reads the configuration from the environment. Values in a .env file in
// the working directory are used for keys not already set.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "parking-attendant"),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		CurrencySymbol:  getEnv("PARKING_CURRENCY_SYMBOL", "Rp"),
		CameraBackend:   getEnv("CAMERA_BACKEND", CameraNone),
		CameraURL:       getEnv("CAMERA_URL", ""),
		CameraUsername:  getEnv("CAMERA_USERNAME", ""),
		CameraPassword:  getEnv("CAMERA_PASSWORD", ""),
		CameraStillPath: getEnv("CAMERA_STILL_PATH", ""),
		OCRBackend:      getEnv("OCR_BACKEND", OCRTesseract),
		TesseractPath:   getEnv("TESSERACT_PATH", "tesseract"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OCRModel:        getEnv("OCR_MODEL", "claude-sonnet-4-5"),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		EventsQueue:     getEnv("EVENTS_QUEUE", "parking-events"),
	}

	var err error
	if cfg.BaseRate, err = strconv.ParseInt(getEnv("PARKING_BASE_RATE", "20000"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid PARKING_BASE_RATE: %w", err)
	}
	if cfg.CameraDevice, err = strconv.Atoi(getEnv("CAMERA_DEVICE_INDEX", "0")); err != nil {
		return nil, fmt.Errorf("invalid CAMERA_DEVICE_INDEX: %w", err)
	}
	if cfg.CameraTimeout, err = time.ParseDuration(getEnv("CAMERA_TIMEOUT", "5s")); err != nil {
		return nil, fmt.Errorf("invalid CAMERA_TIMEOUT: %w", err)
	}
	if cfg.CaptureKeyWait, err = time.ParseDuration(getEnv("CAPTURE_KEY_WAIT", "1ms")); err != nil {
		return nil, fmt.Errorf("invalid CAPTURE_KEY_WAIT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseRate <= 0 {
		return fmt.Errorf("PARKING_BASE_RATE must be positive")
	}
	if c.CameraDevice < 0 {
		return fmt.Errorf("CAMERA_DEVICE_INDEX must not be negative")
	}
	if c.CaptureKeyWait < 0 {
		return fmt.Errorf("CAPTURE_KEY_WAIT must not be negative")
	}

	switch c.CameraBackend {
	case CameraSnapshot:
		if c.CameraURL == "" {
			return fmt.Errorf("CAMERA_URL is required for the %s camera", CameraSnapshot)
		}
	case CameraStill:
		if c.CameraStillPath == "" {
			return fmt.Errorf("CAMERA_STILL_PATH is required for the %s camera", CameraStill)
		}
	case CameraNone:
	default:
		return fmt.Errorf("unknown CAMERA_BACKEND %q", c.CameraBackend)
	}

	switch c.OCRBackend {
	case OCRTesseract:
	case OCRAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the %s OCR backend", OCRAnthropic)
		}
	default:
		return fmt.Errorf("unknown OCR_BACKEND %q", c.OCRBackend)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
