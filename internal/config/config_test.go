package config

import (
	"log/slog"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"POPIS_DB", "POPIS_ADDR", "POPIS_LOG", "POPIS_LOG_LEVEL", "POPIS_LOG_FORMAT", "POPIS_PRESERVE_KEYS",
		"POPIS_PHOTO_MAX_DIMENSION", "POPIS_THUMB_DIMENSION", "POPIS_JPEG_QUALITY", "POPIS_MAX_DUPLICATES"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != DefaultDBPath || cfg.Addr != DefaultAddr {
		t.Errorf("cfg = %+v", cfg)
	}
	want := []string{"surveyDate", "investigator", "buildingId", "floorId", "departmentId", "divisionId"}
	if !reflect.DeepEqual(cfg.PreserveKeys, want) {
		t.Errorf("PreserveKeys = %v, want %v", cfg.PreserveKeys, want)
	}
	if cfg.MaxDuplicates != DefaultMaxDuplicates || cfg.JPEGQuality != DefaultJPEGQuality {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Level() != slog.LevelInfo || cfg.LogFormat != "text" {
		t.Errorf("log level %v, format %q", cfg.Level(), cfg.LogFormat)
	}
}

func TestLoadLogLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POPIS_LOG_LEVEL", "DEBUG")
	t.Setenv("POPIS_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", cfg.Level())
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}

	t.Setenv("POPIS_LOG_LEVEL", "verbose")
	if _, err := Load(); err == nil {
		t.Error("expected an unknown log level to be rejected")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POPIS_DB", "/tmp/x.sqlite3")
	t.Setenv("POPIS_PRESERVE_KEYS", " buildingId, ,floorId ")
	t.Setenv("POPIS_JPEG_QUALITY", "85")
	t.Setenv("POPIS_MAX_DUPLICATES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.sqlite3" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if !reflect.DeepEqual(cfg.PreserveKeys, []string{"buildingId", "floorId"}) {
		t.Errorf("PreserveKeys = %v", cfg.PreserveKeys)
	}
	if cfg.JPEGQuality != 85 {
		t.Errorf("JPEGQuality = %d", cfg.JPEGQuality)
	}
	if cfg.MaxDuplicates != DefaultMaxDuplicates {
		t.Errorf("MaxDuplicates = %d, want default", cfg.MaxDuplicates)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		DBPath: "a", Addr: ":1",
		PhotoMaxDimension: 2560, ThumbDimension: 512, JPEGQuality: 70, MaxDuplicates: 10,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quality too high", func(c *Config) { c.JPEGQuality = 101 }},
		{"thumb larger than photo", func(c *Config) { c.ThumbDimension = 4000 }},
		{"no duplicates", func(c *Config) { c.MaxDuplicates = -1 }},
		{"empty db", func(c *Config) { c.DBPath = "" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
