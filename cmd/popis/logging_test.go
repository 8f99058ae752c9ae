package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erazemk/popis/internal/config"
)

func TestSplitHandlerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(newSplitHandler(&out, &errOut, "text", slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("started", "addr", ":8080")
	logger.Warn("slow")
	logger.Error("failed")

	if strings.Contains(out.String(), "hidden") || strings.Contains(errOut.String(), "hidden") {
		t.Error("debug record written below the minimum level")
	}
	if !strings.Contains(out.String(), "started") || !strings.Contains(out.String(), "slow") {
		t.Errorf("stdout = %q", out.String())
	}
	if strings.Contains(out.String(), "failed") {
		t.Error("error record written to stdout")
	}
	if !strings.Contains(errOut.String(), "failed") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestSplitHandlerLevelAndFormat(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(newSplitHandler(&out, &errOut, "json", slog.LevelWarn)).With("component", "engine")

	logger.Info("ignored")
	logger.Warn("degraded")

	if strings.Contains(out.String(), "ignored") {
		t.Error("info record written at warn level")
	}
	var rec map[string]any
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("stdout is not one JSON record: %v (%q)", err, out.String())
	}
	if rec["msg"] != "degraded" || rec["component"] != "engine" {
		t.Errorf("record = %v", rec)
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "popis.log")
	closeLog, err := setupLogger(&config.Config{LogPath: path, LogLevel: "error", LogFormat: "text"})
	if err != nil {
		t.Fatalf("setupLogger: %v", err)
	}
	slog.Warn("below threshold")
	slog.Error("disk full")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if strings.Contains(string(data), "below threshold") || !strings.Contains(string(data), "disk full") {
		t.Errorf("log file = %q", data)
	}
}
