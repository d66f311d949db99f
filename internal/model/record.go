package model

import (
	"strings"
	"time"
)

// Log severity levels. Levels are always stored uppercase.
const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
	LevelInfo  = "INFO"
	LevelDebug = "DEBUG"
)

// NormalizeLevel maps level text to one of the four known levels.
// Returns ok=false for anything outside the set.
func NormalizeLevel(s string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case LevelError:
		return LevelError, true
	case LevelWarn:
		return LevelWarn, true
	case LevelInfo:
		return LevelInfo, true
	case LevelDebug:
		return LevelDebug, true
	default:
		return "", false
	}
}

// LogRecord is one structured log entry reconstructed from an uploaded file.
type LogRecord struct {
	ID         string    `json:"id"`
	FileID     string    `json:"fileId"`
	LineNumber int       `json:"lineNumber"` // 1-based, counted over non-blank source lines
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Logger     string    `json:"logger,omitempty"`
	Message    string    `json:"message"`
	StackTrace string    `json:"stackTrace,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// File lifecycle states.
const (
	StatusProcessing = "processing"
	StatusActive     = "active"
)

// LogFile is one uploaded source file.
type LogFile struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploadedAt"`
}
