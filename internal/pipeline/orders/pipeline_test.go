package orders

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asiflhr/data-engineering-journey/internal/core/validate"
	"github.com/asiflhr/data-engineering-journey/internal/fetch"
	"github.com/asiflhr/data-engineering-journey/internal/quarantine"
	"github.com/asiflhr/data-engineering-journey/internal/state"
)

var runTime = time.Date(2025, 7, 26, 12, 0, 0, 0, time.UTC)

var fastPolicy = fetch.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 1}

func order(id int, status string, total string) map[string]interface{} {
	return map[string]interface{}{
		"id": id, "userId": id * 10, "total": total, "status": status,
	}
}

func newOrderServer(t *testing.T, orders []map[string]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("_start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("_limit"))

		var page []map[string]interface{}
		for i := start; i < start+limit && i < len(orders); i++ {
			page = append(page, orders[i])
		}
		json.NewEncoder(w).Encode(page)
	})
	return httptest.NewServer(mux)
}

type fixture struct {
	deps      Deps
	statePath string
}

func newFixture(t *testing.T, baseURL string) fixture {
	t.Helper()
	v, err := validate.NewValidator()
	require.NoError(t, err)

	sink, err := quarantine.OpenSink(t.TempDir(), runTime)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	statePath := filepath.Join(t.TempDir(), "processed_order_ids.txt")
	processed, err := state.OpenProcessedSet(statePath)
	require.NoError(t, err)
	t.Cleanup(func() { processed.Close() })

	return fixture{
		deps: Deps{
			Fetcher:   fetch.New(baseURL, 5*time.Second, fastPolicy),
			Validator: v,
			Sink:      sink,
			Processed: processed,
		},
		statePath: statePath,
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	require.NoError(t, scanner.Err())
	return n
}

func TestRun_IngestsAndMarks(t *testing.T) {
	srv := newOrderServer(t, []map[string]interface{}{
		order(1, "pending", "99.90"),
		order(2, "shipped", "10.00"),
		order(3, "delivered", "250.00"),
	})
	defer srv.Close()

	fx := newFixture(t, srv.URL)
	summary, err := Run(context.Background(), fx.deps, Params{
		OutputRoot: t.TempDir(), PageSize: 2, RunTime: runTime,
	})
	require.NoError(t, err)

	require.Equal(t, 3, summary.Ingested)
	require.Equal(t, 0, summary.Skipped)
	require.Equal(t, 0, summary.Rejected)
	require.Equal(t, 3, countLines(t, summary.OutputPath))

	require.True(t, fx.deps.Processed.Contains("1"))
	require.True(t, fx.deps.Processed.Contains("3"))
}

func TestRun_SecondRunSkipsEverything(t *testing.T) {
	srv := newOrderServer(t, []map[string]interface{}{
		order(1, "pending", "99.90"),
		order(2, "shipped", "10.00"),
	})
	defer srv.Close()

	fx := newFixture(t, srv.URL)
	outputRoot := t.TempDir()

	first, err := Run(context.Background(), fx.deps, Params{OutputRoot: outputRoot, PageSize: 10, RunTime: runTime})
	require.NoError(t, err)
	require.Equal(t, 2, first.Ingested)

	second, err := Run(context.Background(), fx.deps, Params{
		OutputRoot: outputRoot, PageSize: 10, RunTime: runTime.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, 0, second.Ingested)
	require.Equal(t, 2, second.Skipped)
	require.Equal(t, 0, countLines(t, second.OutputPath))
}

func TestRun_SkipsSurviveReopen(t *testing.T) {
	srv := newOrderServer(t, []map[string]interface{}{
		order(1, "pending", "99.90"),
	})
	defer srv.Close()

	fx := newFixture(t, srv.URL)
	_, err := Run(context.Background(), fx.deps, Params{OutputRoot: t.TempDir(), PageSize: 10, RunTime: runTime})
	require.NoError(t, err)
	require.NoError(t, fx.deps.Processed.Close())

	reopened, err := state.OpenProcessedSet(fx.statePath)
	require.NoError(t, err)
	defer reopened.Close()

	fx.deps.Processed = reopened
	summary, err := Run(context.Background(), fx.deps, Params{
		OutputRoot: t.TempDir(), PageSize: 10, RunTime: runTime,
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
}

func TestRun_InvalidOrderIsQuarantinedNotMarked(t *testing.T) {
	srv := newOrderServer(t, []map[string]interface{}{
		order(1, "pending", "99.90"),
		order(2, "teleported", "10.00"), // unknown status
		{"userId": 30, "total": "5.00", "status": "pending"}, // missing id
	})
	defer srv.Close()

	fx := newFixture(t, srv.URL)
	summary, err := Run(context.Background(), fx.deps, Params{
		OutputRoot: t.TempDir(), PageSize: 10, RunTime: runTime,
	})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Ingested)
	require.Equal(t, 2, summary.Rejected)
	require.Equal(t, 2, fx.deps.Sink.Count())

	// Rejected orders are not marked; a corrected record re-ingests later.
	require.False(t, fx.deps.Processed.Contains("2"))
}
