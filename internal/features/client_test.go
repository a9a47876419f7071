package features

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o644))
	return path
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	c, err := NewClient(Config{Endpoint: "http://localhost/analyze"})
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, c.config.Timeout)
	assert.Equal(t, PitchFloor, c.config.PitchFloor)
	assert.Equal(t, PitchCeiling, c.config.PitchCeiling)
}

func TestClientMeasure(t *testing.T) {
	want := sampleMeasures()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "75", r.FormValue("pitch_floor"))
		assert.Equal(t, "500", r.FormValue("pitch_ceiling"))
		assert.Equal(t, "1.3", r.FormValue("max_period_factor"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "voice.wav", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	got, err := c.Measure(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	stats := c.GetStats()
	assert.Equal(t, uint64(1), stats.TotalRequests)
	assert.Equal(t, uint64(1), stats.SuccessRequests)
	assert.Equal(t, 100.0, stats.SuccessRate)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(sampleMeasures())
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, MaxRetries: 3, BackoffBase: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Measure(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, uint64(2), c.GetStats().TotalRetries)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "audio too short", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, MaxRetries: 3, BackoffBase: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Measure(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "audio too short")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, uint64(1), c.GetStats().FailedRequests)
}

func TestClientMissingFile(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = c.Measure(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestClientCancellationWrapsExtractionError(t *testing.T) {
	t.Run("waiting for slot", func(t *testing.T) {
		c, err := NewClient(Config{Endpoint: "http://127.0.0.1:1", MaxConcurrent: 1})
		require.NoError(t, err)
		c.semaphore <- struct{}{}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = c.Measure(ctx, writeAudio(t))
		assert.ErrorIs(t, err, ErrExtraction)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cancel()
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c, err := NewClient(Config{Endpoint: srv.URL, MaxRetries: 3, BackoffBase: time.Hour})
		require.NoError(t, err)

		_, err = c.Measure(ctx, writeAudio(t))
		assert.ErrorIs(t, err, ErrExtraction)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, uint64(1), c.GetStats().FailedRequests)
	})
}

func TestClientBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hnr_db": NaN}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, BackoffBase: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Measure(context.Background(), writeAudio(t))
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&statusError{code: 502}))
	assert.True(t, isRetryableError(&statusError{code: 429}))
	assert.False(t, isRetryableError(&statusError{code: 400}))
	assert.True(t, isRetryableError(context.DeadlineExceeded))
}
