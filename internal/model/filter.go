package model

import (
	"strings"
	"time"
)

// TimeRangeAll disables time filtering.
const TimeRangeAll = "all"

// FilterSettings holds a user's export/view filter preferences.
// The core stores and broadcasts unfiltered; these settings are applied
// downstream by the export renderer.
type FilterSettings struct {
	LogLevels []string `json:"logLevels"`
	Keywords  []string `json:"keywords"`
	TimeRange string   `json:"timeRange"` // "all" or "start:end" in RFC 3339
}

// DefaultFilterSettings passes every record through.
func DefaultFilterSettings() FilterSettings {
	return FilterSettings{
		LogLevels: []string{LevelError, LevelWarn, LevelInfo, LevelDebug},
		Keywords:  nil,
		TimeRange: TimeRangeAll,
	}
}

// Matches reports whether a record passes the filter. A record matches when
// its level is enabled, any configured keyword occurs (case-insensitive) in
// the message or stack trace, and its timestamp falls inside the time range.
func (f FilterSettings) Matches(rec LogRecord) bool {
	if len(f.LogLevels) > 0 {
		ok := false
		for _, l := range f.LogLevels {
			if strings.EqualFold(l, rec.Level) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if len(f.Keywords) > 0 {
		haystack := strings.ToLower(rec.Message + "\n" + rec.StackTrace)
		ok := false
		for _, kw := range f.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(kw)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if f.TimeRange != "" && f.TimeRange != TimeRangeAll {
		start, end, ok := parseTimeRange(f.TimeRange)
		if ok {
			if rec.Timestamp.Before(start) || rec.Timestamp.After(end) {
				return false
			}
		}
	}

	return true
}

// parseTimeRange splits "start:end" where both ends are RFC 3339 instants.
// The first colon that terminates a valid timestamp is the separator.
func parseTimeRange(s string) (time.Time, time.Time, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		start, err := time.Parse(time.RFC3339, s[:i])
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, s[i+1:])
		if err != nil {
			continue
		}
		return start, end, true
	}
	return time.Time{}, time.Time{}, false
}
