// Package output writes pipeline results: newline-delimited JSON for
// enrichment outputs, CSV with header for aggregation outputs.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONLWriter writes one JSON document per line. Parent directories are
// created on open (partitioned paths are deep).
type JSONLWriter struct {
	file  *os.File
	buf   *bufio.Writer
	path  string
	count int
}

func NewJSONLWriter(path string) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("output dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", path, err)
	}
	return &JSONLWriter{file: f, buf: bufio.NewWriter(f), path: path}, nil
}

// Write marshals v and appends it as one line.
func (w *JSONLWriter) Write(v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling output record: %w", err)
	}
	if _, err := w.buf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing to %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written so far.
func (w *JSONLWriter) Count() int { return w.count }

// Path returns the output file path.
func (w *JSONLWriter) Path() string { return w.path }

// Close flushes buffered lines and closes the file.
func (w *JSONLWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flushing %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.path, err)
	}
	return nil
}
