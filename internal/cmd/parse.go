package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vkornev/logbay/internal/encoding"
	"github.com/vkornev/logbay/internal/hub"
	"github.com/vkornev/logbay/internal/model"
	"github.com/vkornev/logbay/internal/output"
	"github.com/vkornev/logbay/internal/pipeline"
	"github.com/vkornev/logbay/internal/store"
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse log files locally and print the structured records",
	Long: `Run files through the same normalization and parsing pipeline the
server uses and print the resulting records, colorized by severity.

Examples:
  logbay parse app.log
  logbay parse app.log server.log --output json
  logbay parse app.log --level warn,error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var renderer output.Renderer
	switch strings.ToLower(outputFmt) {
	case "json":
		renderer = output.NewJSONRenderer()
	default:
		renderer = output.NewTextRenderer()
	}

	levelSet := make(map[string]bool)
	if levelFilter != "" {
		for _, l := range strings.Split(levelFilter, ",") {
			levelSet[strings.ToUpper(strings.TrimSpace(l))] = true
		}
	}

	st := store.New()
	pipe := pipeline.New(encoding.NewNormalizer(), st, hub.New())

	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		f := st.CreateFile(path, int64(len(raw)))
		res, err := pipe.Ingest(f.ID, raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, rec := range st.Read(f.ID, -1, 0) {
			if !shouldShow(rec, levelSet) {
				continue
			}
			if err := renderer.Render(rec); err != nil {
				log.Printf("render error: %v", err)
			}
		}

		fmt.Fprintf(os.Stderr, "%s: %d records, %d unparseable lines\n",
			path, res.RecordsProcessed, res.LineErrors)
	}

	return nil
}

// shouldShow returns true if the record passes the level filter.
func shouldShow(rec model.LogRecord, levelSet map[string]bool) bool {
	if len(levelSet) == 0 {
		return true // no filter = show all
	}
	return levelSet[rec.Level]
}
