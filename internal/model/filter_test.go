package model

import (
	"testing"
	"time"
)

func record(level, msg, trace string, ts time.Time) LogRecord {
	return LogRecord{Level: level, Message: msg, StackTrace: trace, Timestamp: ts}
}

func TestDefaultFilterPassesEverything(t *testing.T) {
	f := DefaultFilterSettings()

	for _, level := range []string{LevelError, LevelWarn, LevelInfo, LevelDebug} {
		if !f.Matches(record(level, "anything", "", time.Now())) {
			t.Errorf("default filter rejected %s", level)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	f := FilterSettings{LogLevels: []string{LevelError}, TimeRange: TimeRangeAll}

	if !f.Matches(record(LevelError, "boom", "", time.Now())) {
		t.Error("ERROR should pass")
	}
	if f.Matches(record(LevelInfo, "fine", "", time.Now())) {
		t.Error("INFO should be rejected")
	}
}

func TestKeywordFilterCaseInsensitive(t *testing.T) {
	f := FilterSettings{
		LogLevels: []string{LevelError, LevelWarn, LevelInfo, LevelDebug},
		Keywords:  []string{"TIMEOUT"},
		TimeRange: TimeRangeAll,
	}

	if !f.Matches(record(LevelInfo, "connection timeout after 30s", "", time.Now())) {
		t.Error("keyword should match case-insensitively in the message")
	}
	if !f.Matches(record(LevelError, "boom", "  at net.Timeout(Sock.java:1)", time.Now())) {
		t.Error("keyword should match in the stack trace")
	}
	if f.Matches(record(LevelInfo, "all good", "", time.Now())) {
		t.Error("record without the keyword should be rejected")
	}
}

func TestTimeRangeFilter(t *testing.T) {
	f := FilterSettings{
		LogLevels: []string{LevelError, LevelWarn, LevelInfo, LevelDebug},
		TimeRange: "2024-01-01T00:00:00Z:2024-01-31T23:59:59Z",
	}

	inside := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if !f.Matches(record(LevelInfo, "m", "", inside)) {
		t.Error("timestamp inside the range should pass")
	}
	if f.Matches(record(LevelInfo, "m", "", outside)) {
		t.Error("timestamp outside the range should be rejected")
	}
}

func TestMalformedTimeRangeIsIgnored(t *testing.T) {
	f := FilterSettings{
		LogLevels: []string{LevelInfo},
		TimeRange: "not-a-range",
	}

	if !f.Matches(record(LevelInfo, "m", "", time.Now())) {
		t.Error("unparseable range should not reject records")
	}
}

func TestNormalizeLevel(t *testing.T) {
	cases := map[string]string{
		"error": LevelError,
		"Warn ": LevelWarn,
		"INFO":  LevelInfo,
		"debug": LevelDebug,
	}
	for in, want := range cases {
		got, ok := NormalizeLevel(in)
		if !ok || got != want {
			t.Errorf("NormalizeLevel(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"NOTICE", "FATAL", "TRACE", ""} {
		if _, ok := NormalizeLevel(in); ok {
			t.Errorf("NormalizeLevel(%q) should be rejected", in)
		}
	}
}
