// Package state persists the cross-run markers that make reruns
// incremental: the set of already-ingested unit IDs and the last
// processed date.
package state

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ProcessedSet tracks unit identifiers that earlier runs already ingested.
// Backing store is a flat newline-delimited text file, append-only and
// monotonically growing. A missing file is first-run behavior, not an error.
type ProcessedSet struct {
	mu   sync.Mutex
	file *os.File
	seen map[string]struct{}
}

// OpenProcessedSet loads the set from path and opens it for appending.
func OpenProcessedSet(path string) (*ProcessedSet, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("processed set dir: %w", err)
	}

	seen := make(map[string]struct{})
	existing, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(existing)
		for scanner.Scan() {
			id := strings.TrimSpace(scanner.Text())
			if id != "" {
				seen[id] = struct{}{}
			}
		}
		scanErr := scanner.Err()
		existing.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("reading processed set %s: %w", path, scanErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening processed set %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening processed set %s for append: %w", path, err)
	}

	return &ProcessedSet{file: f, seen: seen}, nil
}

// Contains reports whether id was ingested by this or an earlier run.
func (s *ProcessedSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Mark records id as ingested. The append is synced to disk before Mark
// returns: a crash after Mark only risks re-skipping, never re-processing.
// Marking an already-present id is a no-op.
func (s *ProcessedSet) Mark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return nil
	}
	if _, err := fmt.Fprintln(s.file, id); err != nil {
		return fmt.Errorf("appending processed id %q: %w", id, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing processed set: %w", err)
	}
	s.seen[id] = struct{}{}
	return nil
}

// Len returns the number of distinct ids in the set.
func (s *ProcessedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *ProcessedSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
