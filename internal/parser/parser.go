package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vkornev/logbay/internal/model"
)

// Kind classifies the outcome of parsing one source line.
type Kind int

const (
	// KindSkip means the line was blank: no record, no state change.
	KindSkip Kind = iota
	// KindRecord means a structural pattern matched and a new record was created.
	KindRecord
	// KindContinuation means the line extended the previous record's stack trace.
	KindContinuation
	// KindFallback means no pattern matched and a permissive INFO record was
	// synthesized from the raw line.
	KindFallback
)

// Result is the outcome for one line. Record is the new record for
// KindRecord/KindFallback, or the merged record for KindContinuation
// (already including the appended stack-trace line).
type Result struct {
	Kind   Kind
	Record model.LogRecord
}

// pattern is one structural line format. Submatch order is fixed:
// timestamp, level, logger (optional), message.
type pattern struct {
	re    *regexp.Regexp
	parse func(ts string, now time.Time) (time.Time, bool)
}

// Parser converts the lines of one file into structured records. It is
// stateful: the only state is the last record it emitted, which stack-trace
// continuation lines merge into. Not safe for concurrent use; each file's
// ingestion drives its own Parser sequentially.
type Parser struct {
	fileID   string
	patterns []pattern
	last     *model.LogRecord
	now      func() time.Time
}

// New creates a Parser for one file's line sequence. Pattern priority is
// fixed at construction: ISO timestamp, locale DD.MM.YY form, bare time.
func New(fileID string) *Parser {
	return &Parser{
		fileID:   fileID,
		patterns: structuralPatterns(),
		now:      time.Now,
	}
}

var (
	// 2024-01-01 10:00:00.000 ERROR [service] message  (comma decimals accepted)
	reISO = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}[.,]\d{3})\s+(\S+)\s+(?:\[([^\]]+)\]\s*)?(.*)$`)
	// 01.02.24 10:00:00:000 - WARN - service - message  (logger segment optional)
	reLocale = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{2} \d{2}:\d{2}:\d{2}:\d{3})\s+-\s+(\S+)\s+-\s+(?:(\S+)\s+-\s+)?(.*)$`)
	// 10:00:00.000 ERROR [service] message  (no date at all)
	reBareTime = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}[.,]\d{3})\s+(\S+)\s+(?:\[([^\]]+)\]\s*)?(.*)$`)

	// Stack-frame shapes: indented "at ...", "Caused by:", "... N more",
	// or an indented line mentioning an exception class.
	reContinuation = regexp.MustCompile(`^(\s+at\s|\s*Caused by:|\s*\.\.\.\s*\d+\s+more|\s+\S*Exception)`)
)

func structuralPatterns() []pattern {
	return []pattern{
		{re: reISO, parse: parseISOTimestamp},
		{re: reLocale, parse: parseLocaleTimestamp},
		{re: reBareTime, parse: parseBareTimestamp},
	}
}

// ParseLine consumes one raw source line. lineNumber is the 1-based count of
// non-blank lines seen so far (the caller advances it for every non-blank
// line, continuations included; only new records carry it forward).
//
// Every non-blank line yields exactly one outcome: a new record, a
// continuation merge, or a fallback record. Nothing here ever fails past
// this contract; unparseable input lands in the fallback branch.
func (p *Parser) ParseLine(raw string, lineNumber int) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Kind: KindSkip}
	}

	now := p.now()

	for _, pat := range p.patterns {
		m := pat.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		level, ok := model.NormalizeLevel(m[2])
		if !ok {
			// Unknown level text disqualifies the structural match.
			continue
		}
		ts, ok := pat.parse(m[1], now)
		if !ok {
			ts = now
		}
		rec := p.emit(model.LogRecord{
			LineNumber: lineNumber,
			Timestamp:  ts,
			Level:      level,
			Logger:     m[3],
			Message:    m[4],
			CreatedAt:  now,
		})
		return Result{Kind: KindRecord, Record: rec}
	}

	if reContinuation.MatchString(raw) {
		// The untrimmed line is preserved so frame indentation survives.
		frame := strings.TrimRight(raw, "\r\n")
		if p.last != nil {
			if p.last.StackTrace == "" {
				p.last.StackTrace = frame
			} else {
				p.last.StackTrace += "\n" + frame
			}
			return Result{Kind: KindContinuation, Record: *p.last}
		}
		// A stack frame with no preceding record stands alone.
		rec := p.emit(model.LogRecord{
			LineNumber: lineNumber,
			Timestamp:  now,
			Level:      model.LevelDebug,
			StackTrace: frame,
			CreatedAt:  now,
		})
		return Result{Kind: KindFallback, Record: rec}
	}

	rec := p.emit(model.LogRecord{
		LineNumber: lineNumber,
		Timestamp:  now,
		Level:      model.LevelInfo,
		Message:    trimmed,
		CreatedAt:  now,
	})
	return Result{Kind: KindFallback, Record: rec}
}

// Reset clears the continuation state, as at the start of a fresh file.
func (p *Parser) Reset() {
	p.last = nil
}

// emit assigns identity and ownership and records the new "last record"
// that later continuation lines will merge into.
func (p *Parser) emit(rec model.LogRecord) model.LogRecord {
	rec.ID = uuid.New().String()
	rec.FileID = p.fileID
	p.last = &rec
	return rec
}

func parseISOTimestamp(ts string, _ time.Time) (time.Time, bool) {
	t, err := time.Parse("2006-01-02 15:04:05.000", strings.Replace(ts, ",", ".", 1))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseLocaleTimestamp handles DD.MM.YY HH:mm:ss:SSS. Two-digit years mean
// 2000+YY unconditionally, so years the stdlib pivots into 19xx get moved
// forward a century.
func parseLocaleTimestamp(ts string, _ time.Time) (time.Time, bool) {
	t, err := time.Parse("02.01.06 15:04:05:000", ts)
	if err != nil {
		return time.Time{}, false
	}
	if t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	return t, true
}

// parseBareTimestamp handles a time of day with no date, which defaults to
// the ingestion date.
func parseBareTimestamp(ts string, now time.Time) (time.Time, bool) {
	t, err := time.Parse("15:04:05.000", strings.Replace(ts, ",", ".", 1))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), now.Location()), true
}
