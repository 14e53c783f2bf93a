package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLogging_DisabledByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "roller.log")
	logger, f, err := setupLogging(path, false)
	if err != nil || f != nil {
		t.Fatalf("setupLogging(debug=false) = %v, %v; want nil file", f, err)
	}
	logger.Info("discarded")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("log file created without debug")
	}
}

func TestSetupLogging_EnabledWithDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "roller.log")
	logger, f, err := setupLogging(path, true)
	if err != nil {
		t.Fatalf("setupLogging error = %v", err)
	}
	defer f.Close()

	logger.Info("level started", "level", 1)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if !strings.Contains(string(data), "level started") {
		t.Errorf("log = %q, want entry", data)
	}
	if f == os.Stdout || f == os.Stderr {
		t.Error("log writes to the terminal")
	}
}

func TestSetupLogging_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roller.log")
	if err := os.WriteFile(path, make([]byte, maxLogSize+1), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	_, f, err := setupLogging(path, true)
	if err != nil {
		t.Fatalf("setupLogging error = %v", err)
	}
	defer f.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want current and rotated log", len(entries))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error = %v", err)
	}
	if info.Size() > maxLogSize {
		t.Errorf("current log size = %d, want fresh file", info.Size())
	}
}
