// Package partition implements the date-partitioned layout convention for
// batch outputs: <root>/<entity>/<YYYY>/<MM>/<DD>/<Entity>_<stamp>.jsonl.
package partition

import (
	"fmt"
	"path/filepath"
	"time"
	"unicode"
)

// DateStamp renders t as YYYYMMDD, the stamp used in daily input and
// output filenames.
func DateStamp(t time.Time) string {
	return t.Format("20060102")
}

// ParseDateStamp parses a YYYYMMDD stamp back to a date.
func ParseDateStamp(s string) (time.Time, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date stamp %q: %w", s, err)
	}
	return t, nil
}

// FilePath returns the partitioned path for one batch file written at t.
// Stable and deterministic: same entity and timestamp always map to the
// same path.
func FilePath(root, entity string, t time.Time) string {
	return filepath.Join(
		root,
		entity,
		t.Format("2006"),
		t.Format("01"),
		t.Format("02"),
		fmt.Sprintf("%s_%s.jsonl", title(entity), t.Format("20060102_150405")),
	)
}

// title upper-cases the first rune of the entity name for the filename.
func title(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
