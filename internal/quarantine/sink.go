// Package quarantine is the durable side-channel for records that fail
// validation or loading. Entries are appended, never mutated or deleted;
// retention is someone else's job.
package quarantine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/google/uuid"
)

// Source kinds stamped onto quarantine entries.
const (
	SourceProductsCSV        = "products_csv"
	SourceInventoryJSON      = "inventory_json"
	SourceUnmatchedInventory = "unmatched_inventory"
	SourceDBLoadFailure      = "db_load_failure"
	SourceCommentsAPI        = "comments_api"
	SourceOrdersAPI          = "orders_api"
)

// Entry is one rejected record. Created once, appended, immutable after.
type Entry struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	Record     record.Record `json:"record,omitempty"`
	RawLine    string        `json:"raw_line,omitempty"`
	Reasons    []string      `json:"reasons"`
	CapturedAt time.Time     `json:"captured_at"`
}

// Sink appends entries to a daily newline-delimited JSON file. Writes are
// serialized behind a mutex so concurrent extractors can share one sink.
// Failure to write is fatal to the run: the quarantine file is the only
// record of data loss.
type Sink struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	count int
}

// OpenSink opens (creating if needed) the bad-records file for the given
// run date under dir: bad_records_<YYYYMMDD>.jsonl.
func OpenSink(dir string, runDate time.Time) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bad records dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("bad_records_%s.jsonl", runDate.Format("20060102")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening quarantine file %s: %w", path, err)
	}
	return &Sink{file: f, path: path}, nil
}

// Reject appends one entry. The entry ID and capture timestamp are filled
// in if the caller left them empty.
func (s *Sink) Reject(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CapturedAt.IsZero() {
		e.CapturedAt = time.Now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling quarantine entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending to quarantine file %s: %w", s.path, err)
	}
	s.count++
	return nil
}

// Count returns the number of entries this sink has written.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Path returns the quarantine file path.
func (s *Sink) Path() string { return s.path }

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
