package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/config"
)

func TestNewLevelsAndJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "warning", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %v, want warn", log.GetLevel())
	}

	log.Info("dropped")
	log.WithField("grid", "api/users").Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "kept" || entry["grid"] != "api/users" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "formgrid.log")
	var buf bytes.Buffer
	log, err := New(config.LogConfig{Level: "debug", File: path, FileSize: 1}, &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected message in both sinks: file=%q out=%q", data, buf.String())
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error")
	}
}
