package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vkornev/logbay/internal/model"
)

// ErrNoRecords is returned by UpdateLast when the file has no stored records
// to replace (cleared or removed mid-ingestion).
var ErrNoRecords = errors.New("store: no records for file")

// Stats are derived per-file counts.
type Stats struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Store is the process-wide in-memory state: per-file record sequences,
// file metadata, and per-user filter settings. It is constructed once at
// startup and injected into the pipeline, broadcaster, and server.
//
// Records are held by value: readers get copies and can never observe a
// continuation merge halfway applied. Concurrent appends to different files
// are independent; callers keep the single-writer-per-file discipline for
// appends and updates to one file.
type Store struct {
	mu      sync.RWMutex
	files   map[string]model.LogFile
	records map[string][]model.LogRecord
	filters map[string]model.FilterSettings
}

func New() *Store {
	return &Store{
		files:   make(map[string]model.LogFile),
		records: make(map[string][]model.LogRecord),
		filters: make(map[string]model.FilterSettings),
	}
}

// CreateFile registers an uploaded file in the processing state.
func (s *Store) CreateFile(fileName string, fileSize int64) model.LogFile {
	f := model.LogFile{
		ID:         uuid.New().String(),
		FileName:   fileName,
		FileSize:   fileSize,
		Status:     model.StatusProcessing,
		UploadedAt: time.Now(),
	}
	s.mu.Lock()
	s.files[f.ID] = f
	s.mu.Unlock()
	return f
}

// File returns a file's metadata.
func (s *Store) File(fileID string) (model.LogFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	return f, ok
}

// Files lists all known files in upload order.
func (s *Store) Files() []model.LogFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sortFilesByUpload(out)
	return out
}

// SetStatus transitions a file's lifecycle state.
func (s *Store) SetStatus(fileID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[fileID]; ok {
		f.Status = status
		s.files[fileID] = f
	}
}

// Append adds a record to the end of a file's sequence, assigning an
// identifier if the record arrived without one. Returns the stored record.
func (s *Store) Append(fileID string, rec model.LogRecord) model.LogRecord {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.FileID = fileID
	s.mu.Lock()
	s.records[fileID] = append(s.records[fileID], rec)
	s.mu.Unlock()
	return rec
}

// UpdateLast replaces the most recently appended record for the file. Used
// when a continuation line extends a record that has already been stored
// (and possibly already broadcast): subsequent reads must see the merged
// version, never the stale one.
func (s *Store) UpdateLast(fileID string, rec model.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.records[fileID]
	if len(seq) == 0 {
		return ErrNoRecords
	}
	rec.FileID = fileID
	seq[len(seq)-1] = rec
	return nil
}

// Read returns the slice [offset, offset+limit) of a file's sequence in
// insertion order. Out-of-range offsets yield an empty result. A negative
// limit means "to the end".
func (s *Store) Read(fileID string, limit, offset int) []model.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.records[fileID]
	if offset < 0 || offset >= len(seq) {
		return nil
	}
	end := len(seq)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]model.LogRecord, end-offset)
	copy(out, seq[offset:end])
	return out
}

// Count returns the number of records stored for a file.
func (s *Store) Count(fileID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[fileID])
}

// TotalRecords returns the number of records stored across all files.
func (s *Store) TotalRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, seq := range s.records {
		total += len(seq)
	}
	return total
}

// Clear truncates a file's sequence without touching its metadata.
func (s *Store) Clear(fileID string) {
	s.mu.Lock()
	delete(s.records, fileID)
	s.mu.Unlock()
}

// Remove deletes the file's records and its metadata.
func (s *Store) Remove(fileID string) {
	s.mu.Lock()
	delete(s.records, fileID)
	delete(s.files, fileID)
	s.mu.Unlock()
}

// Statistics recomputes level counts by scanning the authoritative sequence.
// Always defined: an unknown or empty file yields zeroes.
func (s *Store) Statistics(fileID string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, rec := range s.records[fileID] {
		st.Total++
		switch rec.Level {
		case model.LevelError:
			st.Errors++
		case model.LevelWarn:
			st.Warnings++
		}
	}
	return st
}

// FilterSettings returns a user's stored settings, or the pass-everything
// defaults if the user has never saved any.
func (s *Store) FilterSettings(user string) model.FilterSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.filters[user]; ok {
		return f
	}
	return model.DefaultFilterSettings()
}

// SetFilterSettings stores a user's settings.
func (s *Store) SetFilterSettings(user string, f model.FilterSettings) {
	s.mu.Lock()
	s.filters[user] = f
	s.mu.Unlock()
}

func sortFilesByUpload(files []model.LogFile) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.Before(files[j].UploadedAt)
	})
}
