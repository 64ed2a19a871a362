package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRetry(5, time.Millisecond)}, opts...)
	c, err := New(serverURL, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Run("empty URL rejected", func(t *testing.T) {
		_, err := New("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "URL is required")
	})

	t.Run("non-positive concurrency rejected", func(t *testing.T) {
		_, err := New("http://example.test", WithConcurrency(0))
		require.Error(t, err)
	})

	t.Run("non-positive retry budget rejected", func(t *testing.T) {
		_, err := New("http://example.test", WithRetry(0, time.Second))
		require.Error(t, err)
	})
}

func TestPost_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Alice", r.PostFormValue("FirstName"))
		w.Write([]byte("Yes, you are registered!"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	body, err := c.Post(context.Background(), url.Values{"FirstName": {"Alice"}})
	require.NoError(t, err)
	assert.Contains(t, body, "registered")
}

func TestPost_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	body, err := c.Post(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(3), calls.Load())
}

// A persistently failing request must spend exactly its attempt budget
// before the absent result is surfaced.
func TestPost_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Post(context.Background(), url.Values{})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int32(5), calls.Load())
}

func TestPost_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithRetry(5, time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Post(ctx, url.Values{})
	require.ErrorIs(t, err, context.Canceled)
}

// Result alignment: a failure at position i produces nil at exactly
// position i and leaves the other slots intact.
func TestCallAll_Alignment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("FirstName") == "Broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("hello " + r.PostFormValue("FirstName")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	batch := []url.Values{
		{"FirstName": {"A"}},
		{"FirstName": {"Broken"}},
		{"FirstName": {"C"}},
	}
	results := c.CallAll(context.Background(), batch)
	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	assert.Equal(t, "hello A", *results[0])
	assert.Nil(t, results[1])
	require.NotNil(t, results[2])
	assert.Equal(t, "hello C", *results[2])
}

// The admission gate must cap in-flight requests at the configured size.
func TestCallAll_BoundedConcurrency(t *testing.T) {
	const gateSize = 3

	var mu sync.Mutex
	inFlight, peak := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithConcurrency(gateSize))
	batch := make([]url.Values, 20)
	for i := range batch {
		batch[i] = url.Values{"FirstName": {strconv.Itoa(i)}}
	}

	results := c.CallAll(context.Background(), batch)
	for _, r := range results {
		require.NotNil(t, r)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, gateSize)
	assert.Greater(t, peak, 1, "expected some parallelism")
}
