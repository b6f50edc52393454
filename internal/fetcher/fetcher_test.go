package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

func newTestFetcher(t *testing.T, retries int) *Fetcher {
	t.Helper()
	f, err := New(Config{
		MinWait: time.Millisecond,
		MaxWait: 2 * time.Millisecond,
		Timeout: 5 * time.Second,
		Retries: retries,
	}, logger.NewNop())
	require.NoError(t, err)
	return f
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>記事</html>"))
	}))
	defer srv.Close()

	body, err := newTestFetcher(t, 1).Fetch(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, "<html>記事</html>", string(body))
}

func TestFetchNotFoundIsSkip(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			hits.Add(1)
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 3).Fetch(context.Background(), srv.URL+"/gone")
	skip, ok := models.AsSkip(err)
	require.True(t, ok, "404 should be a skip outcome, got %v", err)
	assert.Equal(t, models.SkipReasonNotFound, skip.Reason)
	assert.Equal(t, int32(1), hits.Load(), "404 must not be retried")
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/forbidden" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 3).Fetch(context.Background(), srv.URL+"/forbidden")
	assert.ErrorIs(t, err, models.ErrPageUnreachable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchServerErrorRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/flaky" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, err := newTestFetcher(t, 3).Fetch(context.Background(), srv.URL+"/flaky")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchExhaustedRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 2).Fetch(context.Background(), srv.URL+"/down")
	assert.ErrorIs(t, err, models.ErrPageUnreachable)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchDifferentHostsNotSerialized(t *testing.T) {
	f := newTestFetcher(t, 1)

	aArrived := make(chan struct{})
	bArrived := make(chan struct{})
	var overlapped atomic.Bool

	// Each handler holds its response until the other host's request has
	// also started. If fetches were serialized across hosts, the first
	// request would block the second and the wait would time out.
	awaitOther := func(other <-chan struct{}) {
		select {
		case <-other:
			overlapped.Store(true)
		case <-time.After(2 * time.Second):
		}
	}
	srvA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(aArrived)
		awaitOther(bArrived)
		_, _ = w.Write([]byte("a"))
	}))
	defer srvA.Close()
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(bArrived)
		awaitOther(aArrived)
		_, _ = w.Write([]byte("b"))
	}))
	defer srvB.Close()

	var wg sync.WaitGroup
	for _, target := range []string{srvA.URL + "/1", srvB.URL + "/1"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), target)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, overlapped.Load(), "fetches to different hosts should run in parallel")
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t, 1).Fetch(ctx, "http://127.0.0.1:1/never")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, DefaultMinWait, cfg.MinWait)
	assert.Equal(t, DefaultMaxWait, cfg.MaxWait)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.NotEmpty(t, cfg.UserAgent)

	custom := Config{MinWait: time.Second}.WithDefaults()
	assert.Equal(t, time.Second, custom.MinWait)
	assert.Equal(t, time.Second+(DefaultMaxWait-DefaultMinWait), custom.MaxWait)
}
