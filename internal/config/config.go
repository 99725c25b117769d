package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	ModelDirectory      string
	Models              []string // Enumerated model option set offered to the user
	ConfidenceThreshold float64
	NMSThreshold        float64
	InputSize           int
	TempDirectory       string // Where uploads are written for the detector
	DatabasePath        string
	LogDirectory        string
	StaticDirectory     string
	MaxUploadSize       int64 // In MB
	SessionTTL          int   // In minutes
	AllowedExtensions   []string
}

// Load reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		ModelDirectory:      getEnv("MODEL_DIR", filepath.Join(".", "models")),
		Models:              getEnvAsList("MODELS", []string{"yolov11s", "yolov11n"}),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.45),
		InputSize:           getEnvAsInt("INPUT_SIZE", 640),
		TempDirectory:       getEnv("TEMP_DIR", os.TempDir()),
		DatabasePath:        getEnv("DB_PATH", filepath.Join(".", "data", "predictions.db")),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:     getEnv("STATIC_DIR", filepath.Join(".", "static")),
		MaxUploadSize:       getEnvAsInt64("MAX_UPLOAD_MB", 20),
		SessionTTL:          getEnvAsInt("SESSION_TTL_MINUTES", 60),
		AllowedExtensions:   getEnvAsList("ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png"}),
	}
}

// Validate reports the first setting that would make the server unusable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("MODELS cannot be empty")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be between 0 and 1")
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("NMS_THRESHOLD must be between 0 and 1")
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("INPUT_SIZE must be a positive multiple of 32, got %d", c.InputSize)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS cannot be empty")
	}
	return nil
}

// HasModel reports whether id is one of the configured model options.
func (c *Config) HasModel(id string) bool {
	for _, m := range c.Models {
		if m == id {
			return true
		}
	}
	return false
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSize << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
