package appendlog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Path is a validated file system path of a log.
type Path string

// NewPath cleans the path and rejects empty or obviously invalid values.
func NewPath(path string) (Path, error) {
	if len(path) == 0 {
		return "", errors.New("log path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	if strings.ContainsAny(cleanPath, "<>\"|?*") {
		return "", fmt.Errorf("log path contains invalid characters: %s", cleanPath)
	}

	return Path(cleanPath), nil
}

// FlushInterval is the time between two fsync calls of a log.
type FlushInterval time.Duration

// NewFlushInterval validates that the interval is positive.
func NewFlushInterval(val time.Duration) (FlushInterval, error) {
	if val <= 0 {
		return 0, errors.New("flush interval must be greater than 0")
	}
	return FlushInterval(val), nil
}
