package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// maxLogSize triggers rotation of the previous run's log
const maxLogSize = 10 * 1024 * 1024

// setupLogging returns a discarding logger unless debug is set
// With debug the log goes to path, never the terminal the game draws on;
// an oversized previous log is renamed with a timestamp suffix
func setupLogging(path string, debug bool) (*log.Logger, *os.File, error) {
	if !debug || path == "" {
		return log.New(io.Discard), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log dir: %w", err)
	}
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		ext := filepath.Ext(path)
		rotated := fmt.Sprintf("%s.%s%s", path[:len(path)-len(ext)], time.Now().Format("20060102-150405"), ext)
		if err := os.Rename(path, rotated); err != nil {
			return nil, nil, fmt.Errorf("log rotate: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log open: %w", err)
	}
	logger := log.NewWithOptions(f, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "roller",
	})
	return logger, f, nil
}
