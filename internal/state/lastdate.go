package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const lastDateLayout = "2006-01-02"

// LastDate holds the single last-processed date for an incremental
// pipeline. The backing file carries one date string and is overwritten
// on each successful run.
type LastDate struct {
	Path string
}

// Load reads the last processed date. ok is false on first run (missing
// or empty file); that is not an error.
func (l LastDate) Load() (date time.Time, ok bool, err error) {
	data, err := os.ReadFile(l.Path)
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading last date %s: %w", l.Path, err)
	}

	s := strings.TrimSpace(string(data))
	if s == "" {
		return time.Time{}, false, nil
	}
	date, err = time.Parse(lastDateLayout, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing last date %q: %w", s, err)
	}
	return date, true, nil
}

// Store overwrites the file with the new date. Written via a temp file and
// rename so a crash mid-write cannot leave a torn date behind.
func (l LastDate) Store(date time.Time) error {
	dir := filepath.Dir(l.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("last date dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lastdate-*")
	if err != nil {
		return fmt.Errorf("creating temp last date file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(date.Format(lastDateLayout)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing last date: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing last date: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing last date file: %w", err)
	}
	if err := os.Rename(tmpName, l.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing last date file: %w", err)
	}
	return nil
}
