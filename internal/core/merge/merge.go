// Package merge joins two keyed record sets on a shared join key.
package merge

import (
	"log/slog"
	"sort"

	"github.com/asiflhr/data-engineering-journey/internal/core/record"
)

// Joined is the result of merging one primary record with zero-or-one
// secondary record sharing its key. Every primary record produces exactly
// one Joined, matched or not.
type Joined struct {
	Key     string
	Fields  record.Record
	Matched bool
}

// FieldMap tells Merge which secondary fields flow onto the joined record
// and what to substitute when the secondary source has no entry for a key.
type FieldMap struct {
	// Copy lists the secondary fields copied onto the joined record by name.
	Copy []string

	// Defaults supplies values for the Copy fields when no secondary
	// record matches.
	Defaults record.Record

	// Derive, when set, computes derived fields on the joined record after
	// the copy/default step. It runs for every primary record.
	Derive func(fields record.Record, matched bool)
}

// Merge joins primary against secondary by key. Primary keys are visited in
// sorted order so output is deterministic. Secondary records with no primary
// match are not merged; their keys come back sorted in the second return
// value for the caller to report. O(|primary| + |secondary|).
func Merge(primary, secondary map[string]record.Record, fm FieldMap) ([]Joined, []string) {
	keys := make([]string, 0, len(primary))
	for k := range primary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	joined := make([]Joined, 0, len(primary))
	for _, k := range keys {
		fields := primary[k].Clone()

		sec, matched := secondary[k]
		if matched {
			for _, f := range fm.Copy {
				fields[f] = sec[f]
			}
		} else {
			slog.Warn("[Merge] No secondary data for key, applying defaults", "key", k)
			for _, f := range fm.Copy {
				fields[f] = fm.Defaults[f]
			}
		}

		if fm.Derive != nil {
			fm.Derive(fields, matched)
		}
		joined = append(joined, Joined{Key: k, Fields: fields, Matched: matched})
	}

	var unmatched []string
	for k := range secondary {
		if _, ok := primary[k]; !ok {
			unmatched = append(unmatched, k)
		}
	}
	sort.Strings(unmatched)

	return joined, unmatched
}
