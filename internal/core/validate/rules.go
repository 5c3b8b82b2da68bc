package validate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field value types a rule may require.
const (
	TypeString    = "string"
	TypeInt       = "int"
	TypeDecimal   = "decimal"
	TypeTimestamp = "timestamp"
)

//go:embed rules/*.yaml
var builtinRules embed.FS

// FieldRule is one field's checks within a rule set. Checks run in a fixed
// order: required, enum, type coercion, range. A field that fails coercion
// is excluded from range checks but does not stop validation of other fields.
type FieldRule struct {
	Field       string   `yaml:"field"`
	Label       string   `yaml:"label"`       // message label; defaults to Field
	RangeLabel  string   `yaml:"range_label"` // label for range messages; defaults to Label
	Required    bool     `yaml:"required"`
	Type        string   `yaml:"type"` // string | int | decimal | timestamp
	Enum        []string `yaml:"enum"`
	Positive    bool     `yaml:"positive"`     // value > 0
	NonNegative bool     `yaml:"non_negative"` // value >= 0
}

// RuleSet is the full set of field checks for one source kind.
type RuleSet struct {
	Source string      `yaml:"source"`
	Fields []FieldRule `yaml:"fields"`
}

func (rs *RuleSet) validate() error {
	if rs.Source == "" {
		return fmt.Errorf("rule set: source must not be empty")
	}
	if len(rs.Fields) == 0 {
		return fmt.Errorf("rule set %q: no fields declared", rs.Source)
	}
	seen := make(map[string]struct{}, len(rs.Fields))
	for i := range rs.Fields {
		f := &rs.Fields[i]
		if f.Field == "" {
			return fmt.Errorf("rule set %q: field name must not be empty", rs.Source)
		}
		if _, dup := seen[f.Field]; dup {
			return fmt.Errorf("rule set %q: duplicate field %q", rs.Source, f.Field)
		}
		seen[f.Field] = struct{}{}

		switch f.Type {
		case "", TypeString, TypeInt, TypeDecimal, TypeTimestamp:
		default:
			return fmt.Errorf("rule set %q: field %q: unsupported type %q", rs.Source, f.Field, f.Type)
		}
		if (f.Positive || f.NonNegative) && f.Type != TypeInt && f.Type != TypeDecimal {
			return fmt.Errorf("rule set %q: field %q: range check requires a numeric type", rs.Source, f.Field)
		}
		if f.Label == "" {
			f.Label = f.Field
		}
		if f.RangeLabel == "" {
			f.RangeLabel = f.Label
		}
	}
	return nil
}

// loadRuleSets parses every *.yaml rule file under fsys at dir.
func loadRuleSets(fsys fs.FS, dir string) (map[string]RuleSet, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading rule dir %q: %w", dir, err)
	}

	sets := make(map[string]RuleSet)
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		data, err := fs.ReadFile(fsys, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading rule file %s: %w", e.Name(), err)
		}

		var rs RuleSet
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("parsing rule file %s: %w", e.Name(), err)
		}
		if rs.Source == "" && len(rs.Fields) == 0 {
			continue // comment-only file
		}
		if err := rs.validate(); err != nil {
			return nil, fmt.Errorf("rule file %s: %w", e.Name(), err)
		}
		if _, exists := sets[rs.Source]; exists {
			return nil, fmt.Errorf("rule file %s: duplicate source %q (check multiple YAML files)", e.Name(), rs.Source)
		}
		sets[rs.Source] = rs
	}
	return sets, nil
}

// LoadDir replaces or adds rule sets from *.yaml files in dir. Sets loaded
// from disk shadow the built-in set for the same source kind. A missing
// directory is valid (built-ins only).
func (v *Validator) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rule dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("rule path %q is not a directory", dir)
	}

	sets, err := loadRuleSets(os.DirFS(dir), ".")
	if err != nil {
		return err
	}
	for source, rs := range sets {
		v.sets[source] = rs
	}
	return nil
}
