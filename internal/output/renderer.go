package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vkornev/logbay/internal/model"
)

// Renderer writes LogRecord values to an output stream.
type Renderer interface {
	Render(rec model.LogRecord) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleInfo   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleDebug  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))              // yellow
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)   // red bold
	styleLogger = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)   // cyan
	styleTrace  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true) // dim frames
)

// TextRenderer prints records to the terminal with severity-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) Render(rec model.LogRecord) error {
	tag := styleLevelTag(rec.Level)
	ts := rec.Timestamp.Format("15:04:05")

	line := fmt.Sprintf("%s %s %s %s", ts, tag, styleLogger.Render(rec.Logger), rec.Message)
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		return err
	}
	if rec.StackTrace != "" {
		if _, err := fmt.Fprintln(r.w, styleTrace.Render(rec.StackTrace)); err != nil {
			return err
		}
	}
	return nil
}

func styleLevelTag(level string) string {
	padded := fmt.Sprintf("%-5s", level)
	switch level {
	case model.LevelDebug:
		return styleDebug.Render(padded)
	case model.LevelWarn:
		return styleWarn.Render(padded)
	case model.LevelError:
		return styleError.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each record as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(rec model.LogRecord) error {
	return r.enc.Encode(rec)
}

// ---------------------------------------------------------------------------
// Export Renderer (plain-text download format)
// ---------------------------------------------------------------------------

// ExportRenderer writes records in the plain export format:
// "<timestamp> <level> <logger-or-empty> <message>", with the stack trace on
// its own line when present. Records failing the filter are skipped.
type ExportRenderer struct {
	w      io.Writer
	filter model.FilterSettings
}

// NewExportRenderer returns a Renderer writing filtered plain text to w.
func NewExportRenderer(w io.Writer, filter model.FilterSettings) *ExportRenderer {
	return &ExportRenderer{w: w, filter: filter}
}

func (r *ExportRenderer) Render(rec model.LogRecord) error {
	if !r.filter.Matches(rec) {
		return nil
	}
	line := fmt.Sprintf("%s %s %s %s",
		rec.Timestamp.Format(time.RFC3339), rec.Level, rec.Logger, rec.Message)
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		return err
	}
	if rec.StackTrace != "" {
		if _, err := fmt.Fprintln(r.w, rec.StackTrace); err != nil {
			return err
		}
	}
	return nil
}
