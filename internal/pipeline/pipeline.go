package pipeline

import (
	"fmt"
	"strings"

	"github.com/vkornev/logbay/internal/encoding"
	"github.com/vkornev/logbay/internal/hub"
	"github.com/vkornev/logbay/internal/model"
	"github.com/vkornev/logbay/internal/parser"
	"github.com/vkornev/logbay/internal/store"
)

// Result is the advisory outcome of one file's ingestion.
type Result struct {
	RecordsProcessed int `json:"recordsProcessed"`
	LineErrors       int `json:"lineErrors"`
}

// Pipeline turns raw uploaded bytes into stored, broadcast records:
// decode, split into lines, parse statefully, append/update the store,
// push each outcome to live subscribers.
type Pipeline struct {
	normalizer *encoding.Normalizer
	store      *store.Store
	hub        *hub.Hub
}

func New(n *encoding.Normalizer, s *store.Store, h *hub.Hub) *Pipeline {
	return &Pipeline{normalizer: n, store: s, hub: h}
}

// Ingest processes one uploaded file sequentially, line order preserved.
// Unparseable lines never fail the upload: they become fallback records and
// are counted in LineErrors. Decode faults and store inconsistencies are
// fatal; the file then never transitions to active, and whatever was already
// appended stays readable.
//
// Concurrent Ingest calls for different files are independent; one fileID
// must be driven by at most one Ingest at a time.
func (p *Pipeline) Ingest(fileID string, raw []byte) (Result, error) {
	var res Result

	p.store.SetStatus(fileID, model.StatusProcessing)

	text, err := p.normalizer.Decode(raw)
	if err != nil {
		return res, fmt.Errorf("decode %s: %w", fileID, err)
	}

	par := parser.New(fileID)
	lineNo := 0
	for _, line := range strings.Split(text, "\n") {
		out := par.ParseLine(line, lineNo+1)
		if out.Kind == parser.KindSkip {
			continue
		}
		lineNo++

		switch out.Kind {
		case parser.KindRecord, parser.KindFallback:
			stored := p.store.Append(fileID, out.Record)
			p.hub.Publish(fileID, stored)
			res.RecordsProcessed++
			if out.Kind == parser.KindFallback {
				res.LineErrors++
			}
		case parser.KindContinuation:
			// Re-push the merged record so subscribers supersede the
			// earlier partial version by id.
			if err := p.store.UpdateLast(fileID, out.Record); err != nil {
				return res, fmt.Errorf("merge stack trace for %s line %d: %w", fileID, lineNo, err)
			}
			p.hub.Publish(fileID, out.Record)
		}
	}

	p.store.SetStatus(fileID, model.StatusActive)
	return res, nil
}
