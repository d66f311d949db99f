package intake

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/vkornev/logbay/internal/pipeline"
	"github.com/vkornev/logbay/internal/store"
)

const settleDelay = 500 * time.Millisecond

// Intake watches a spool directory and ingests each new matching file once,
// in full, through the same pipeline uploads go through. This is one-shot
// consumption of completed files, not tailing: a file is read a single time
// after its size stops changing.
type Intake struct {
	dir      string
	pattern  string
	store    *store.Store
	pipeline *pipeline.Pipeline

	mu       sync.Mutex
	ingested map[string]bool
}

// New creates an Intake for the given directory. pattern is a doublestar
// file-name glob (e.g. "*.log") matched against the base name.
func New(dir, pattern string, s *store.Store, p *pipeline.Pipeline) *Intake {
	return &Intake{
		dir:      dir,
		pattern:  pattern,
		store:    s,
		pipeline: p,
		ingested: make(map[string]bool),
	}
}

// Start watches the spool directory until the context is cancelled. Files
// already present at startup are ingested first.
func (in *Intake) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(in.dir); err != nil {
		return err
	}

	in.sweep()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				go in.consume(ev.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("intake: watcher error: %v", err)
		}
	}
}

// sweep ingests matching files that were already in the directory.
func (in *Intake) sweep() {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		log.Printf("intake: cannot read %s: %v", in.dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		in.consume(filepath.Join(in.dir, e.Name()))
	}
}

// consume waits for the file's size to settle, then registers and ingests it.
func (in *Intake) consume(path string) {
	if !in.matches(path) {
		return
	}
	if !in.claim(path) {
		return
	}

	size := in.waitForSettle(path)
	if size < 0 {
		return // vanished before it settled
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("intake: cannot read %s: %v", path, err)
		return
	}

	f := in.store.CreateFile(filepath.Base(path), int64(len(raw)))
	res, err := in.pipeline.Ingest(f.ID, raw)
	if err != nil {
		log.Printf("intake: ingest %s failed: %v", path, err)
		return
	}
	log.Printf("intake: ingested %s as %s (%d records, %d line errors)",
		path, f.ID, res.RecordsProcessed, res.LineErrors)
}

func (in *Intake) matches(path string) bool {
	ok, err := doublestar.Match(in.pattern, filepath.Base(path))
	if err != nil {
		log.Printf("intake: bad pattern %q: %v", in.pattern, err)
		return false
	}
	return ok
}

// claim marks a path as handled so watcher events and the startup sweep
// cannot ingest it twice.
func (in *Intake) claim(path string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.ingested[path] {
		return false
	}
	in.ingested[path] = true
	return true
}

// waitForSettle polls until two consecutive size checks agree, so a file
// still being written is not read half-finished. Returns -1 if the file
// disappears.
func (in *Intake) waitForSettle(path string) int64 {
	var last int64 = -1
	for {
		fi, err := os.Stat(path)
		if err != nil {
			return -1
		}
		if fi.Size() == last {
			return last
		}
		last = fi.Size()
		time.Sleep(settleDelay)
	}
}
