// Package fetch wraps remote GET calls with bounded exponential-backoff
// retry and paginated JSON collection iteration.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	etlerr "github.com/asiflhr/data-engineering-journey/internal/core/errors"
	"github.com/asiflhr/data-engineering-journey/internal/core/record"
)

// Policy controls the retry behavior of a Fetcher. Attempt n (1-based)
// waits InitialDelay * BackoffFactor^(n-1) before retrying.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// normalized clamps a Policy to sane minimums so a zero value still behaves.
func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 500 * time.Millisecond
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = 2
	}
	return p
}

// delay returns the wait before retrying after the given 1-based attempt.
func (p Policy) delay(attempt int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
}

// permanentError marks a failure not worth retrying: a bad target or a
// 4xx response. It surfaces to the caller immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Fetcher issues GET requests with a per-call timeout and the configured
// retry policy. Safe to retry by construction: GET-only semantics.
type Fetcher struct {
	client  *http.Client
	policy  Policy
	baseURL string
}

// New creates a Fetcher for baseURL. timeout applies to each individual
// HTTP call, not to the whole retry sequence.
func New(baseURL string, timeout time.Duration, policy Policy) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		policy:  policy.normalized(),
		baseURL: baseURL,
	}
}

// GetJSON fetches path relative to the base URL and decodes the response
// body into out. Network errors, 5xx responses, and undecodable bodies are
// retried per policy; 4xx responses and malformed targets surface at once.
// After exhausting attempts the last failure comes back wrapped in
// *errors.TransientError with the attempt history logged.
func (f *Fetcher) GetJSON(ctx context.Context, path string, out interface{}) error {
	target, err := url.JoinPath(f.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid fetch target %q: %w", path, err)
	}
	return f.getJSON(ctx, target, nil, out)
}

func (f *Fetcher) getJSON(ctx context.Context, target string, query url.Values, out interface{}) error {
	full := target
	if len(query) > 0 {
		full = target + "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := f.policy.delay(attempt - 1)
			slog.Warn("[Fetcher] Retrying after failure",
				"target", full,
				"attempt", attempt,
				"max_attempts", f.policy.MaxAttempts,
				"wait", wait,
				"error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = f.tryOnce(ctx, full, out)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	slog.Error("[Fetcher] All attempts exhausted",
		"target", full,
		"attempts", f.policy.MaxAttempts,
		"last_error", lastErr)
	return &etlerr.TransientError{Target: full, Attempts: f.policy.MaxAttempts, Err: lastErr}
}

// tryOnce performs a single GET and decode. A non-nil return is either a
// retryable failure or a *permanentError.
func (f *Fetcher) tryOnce(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &permanentError{err: fmt.Errorf("build request for %q: %w", target, err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return fmt.Errorf("server error: %s", resp.Status)
	case resp.StatusCode >= 400:
		return &permanentError{err: fmt.Errorf("fetch %s: %s", target, resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// Malformed body counts as retryable: a proxy or partial response
		// can corrupt one attempt without the endpoint being broken.
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Pages iterates a paginated collection at path using _start/_limit query
// parameters, invoking fn once per non-empty page. Iteration stops at the
// first short or empty page, or once maxItems records have been yielded
// (maxItems <= 0 means unbounded). fn returning an error stops iteration.
func (f *Fetcher) Pages(ctx context.Context, path string, pageSize, maxItems int, fn func(page []record.Record) error) error {
	if pageSize <= 0 {
		pageSize = 20
	}

	target, err := url.JoinPath(f.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid fetch target %q: %w", path, err)
	}

	fetched := 0
	for {
		limit := pageSize
		if maxItems > 0 && maxItems-fetched < limit {
			limit = maxItems - fetched
		}
		if limit <= 0 {
			return nil
		}

		query := url.Values{}
		query.Set("_start", fmt.Sprintf("%d", fetched))
		query.Set("_limit", fmt.Sprintf("%d", limit))

		var page []record.Record
		if err := f.getJSON(ctx, target, query, &page); err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}
		fetched += len(page)
		slog.Info("[Fetcher] Page fetched", "target", path, "page_size", len(page), "total_fetched", fetched)

		if len(page) < limit {
			return nil
		}
	}
}
