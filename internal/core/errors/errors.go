package errors

import (
	"errors"
	"fmt"
)

// TransientError is a network-class failure that was retried and still failed.
// It wraps the last error observed and records how many attempts were made.
type TransientError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("fetch %s: giving up after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// LoadError is a persistent-store failure for a single record. It never
// aborts the batch; the failing record is quarantined and the run continues.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ConfigError is a setup failure (missing file, section, or key). Fatal:
// the run aborts before any I/O side effects.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
