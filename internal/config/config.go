package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultDBPath          = "popis.sqlite3"
	DefaultAddr            = "127.0.0.1:8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultPhotoDimension  = 2560
	DefaultThumbDimension  = 512
	DefaultJPEGQuality     = 70
	DefaultMaxDuplicates   = 500
	DefaultPreserveKeysEnv = "surveyDate,investigator,buildingId,floorId,departmentId,divisionId"
)

// Config holds the application configuration.
type Config struct {
	DBPath  string
	Addr    string
	LogPath string

	// LogLevel is one of debug, info, warn or error.
	LogLevel string
	// LogFormat is text or json.
	LogFormat string

	// PreserveKeys are carried from a completed draft into the next one.
	PreserveKeys []string

	PhotoMaxDimension int
	ThumbDimension    int
	JPEGQuality       int
	MaxDuplicates     int
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		DBPath:            getEnv("POPIS_DB", DefaultDBPath),
		Addr:              getEnv("POPIS_ADDR", DefaultAddr),
		LogPath:           getEnv("POPIS_LOG", ""),
		LogLevel:          strings.ToLower(getEnv("POPIS_LOG_LEVEL", DefaultLogLevel)),
		LogFormat:         strings.ToLower(getEnv("POPIS_LOG_FORMAT", DefaultLogFormat)),
		PreserveKeys:      splitList(getEnv("POPIS_PRESERVE_KEYS", DefaultPreserveKeysEnv)),
		PhotoMaxDimension: getEnvAsInt("POPIS_PHOTO_MAX_DIMENSION", DefaultPhotoDimension),
		ThumbDimension:    getEnvAsInt("POPIS_THUMB_DIMENSION", DefaultThumbDimension),
		JPEGQuality:       getEnvAsInt("POPIS_JPEG_QUALITY", DefaultJPEGQuality),
		MaxDuplicates:     getEnvAsInt("POPIS_MAX_DUPLICATES", DefaultMaxDuplicates),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.PhotoMaxDimension, validation.Required, validation.Min(64)),
		validation.Field(&c.ThumbDimension, validation.Required, validation.Min(16),
			validation.Max(c.PhotoMaxDimension)),
		validation.Field(&c.JPEGQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.MaxDuplicates, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Level returns LogLevel as a slog level. Empty means info.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns defaultValue when the variable is unset or not a number.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
