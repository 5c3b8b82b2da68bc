package validate

import (
	"fmt"

	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/shopspring/decimal"
)

// Result is the outcome of validating one record. A record with any error
// is never partially valid: it is routed entirely to quarantine. Errors
// accumulate — every configured check runs, so a record can report several
// independent violations in one entry.
type Result struct {
	Valid  bool
	Errors []string

	// Fields holds the coerced typed values for every field that passed
	// its checks. Callers read from here instead of re-parsing raw input.
	Fields record.Record
}

// Validator checks records against the rule set registered for their
// source kind. Rule sets come from embedded YAML files, optionally
// shadowed by files in a configured directory (see LoadDir).
type Validator struct {
	sets map[string]RuleSet
}

// NewValidator loads the built-in rule sets.
func NewValidator() (*Validator, error) {
	sets, err := loadRuleSets(builtinRules, "rules")
	if err != nil {
		return nil, fmt.Errorf("built-in rule sets: %w", err)
	}
	return &Validator{sets: sets}, nil
}

// Sources returns the source kinds the validator has rules for.
func (v *Validator) Sources() []string {
	out := make([]string, 0, len(v.sets))
	for s := range v.sets {
		out = append(out, s)
	}
	return out
}

// Validate runs every check of the source kind's rule set against rec.
// Deterministic: identical input and rules always produce the same result,
// with errors in rule-declaration order. An unknown source kind is a
// configuration mistake, not a data error.
func (v *Validator) Validate(source string, rec record.Record) (Result, error) {
	rs, ok := v.sets[source]
	if !ok {
		return Result{}, fmt.Errorf("no validation rules for source kind %q", source)
	}

	res := Result{Fields: make(record.Record, len(rs.Fields))}
	for i := range rs.Fields {
		checkField(&rs.Fields[i], rec, &res)
	}
	res.Valid = len(res.Errors) == 0
	return res, nil
}

// checkField applies one field's checks and records errors and coerced
// values on res. Later checks for the same field are skipped once one
// fails; other fields are unaffected.
func checkField(fr *FieldRule, rec record.Record, res *Result) {
	raw, present := rec[fr.Field]
	rawStr := rec.String(fr.Field)

	if fr.Required && rawStr == "" {
		res.Errors = append(res.Errors, fmt.Sprintf("Missing %s", fr.Label))
		return
	}

	if len(fr.Enum) > 0 {
		if rawStr == "" || !contains(fr.Enum, rawStr) {
			res.Errors = append(res.Errors, fmt.Sprintf("Invalid or missing %s: '%s'", fr.Label, rawStr))
			return
		}
		res.Fields[fr.Field] = rawStr
	}

	if fr.Type == "" || fr.Type == TypeString {
		if _, stored := res.Fields[fr.Field]; !stored {
			res.Fields[fr.Field] = rawStr
		}
		return
	}

	switch fr.Type {
	case TypeInt:
		n, ok := record.Int(raw)
		if !ok || !present {
			res.Errors = append(res.Errors, fmt.Sprintf("Invalid %s format: '%s'", fr.Label, rawStr))
			return
		}
		if fr.Positive && n <= 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s must be positive: '%s'", fr.RangeLabel, rawStr))
			return
		}
		if fr.NonNegative && n < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s must be non-negative: '%s'", fr.RangeLabel, rawStr))
			return
		}
		res.Fields[fr.Field] = n

	case TypeDecimal:
		d, ok := record.Decimal(raw)
		if !ok || !present {
			res.Errors = append(res.Errors, fmt.Sprintf("Invalid %s format: '%s'", fr.Label, rawStr))
			return
		}
		if fr.Positive && d.LessThanOrEqual(decimal.Zero) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s must be positive: '%s'", fr.RangeLabel, rawStr))
			return
		}
		if fr.NonNegative && d.IsNegative() {
			res.Errors = append(res.Errors, fmt.Sprintf("%s must be non-negative: '%s'", fr.RangeLabel, rawStr))
			return
		}
		res.Fields[fr.Field] = d

	case TypeTimestamp:
		t, ok := record.Timestamp(raw)
		if !ok || !present {
			res.Errors = append(res.Errors, fmt.Sprintf("Invalid %s format: '%s'", fr.Label, rawStr))
			return
		}
		res.Fields[fr.Field] = t
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
