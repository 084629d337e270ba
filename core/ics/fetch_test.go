package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"staysync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFetcher(cfg Config) *Fetcher {
	if cfg.RetryBackoffMillis == 0 {
		cfg.RetryBackoffMillis = 1
	}
	return NewFetcher(cfg, zap.NewNop())
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "staysync-test", r.Header.Get("User-Agent"))
		w.Write([]byte("BEGIN:VCALENDAR"))
	}))
	defer srv.Close()

	body, err := testFetcher(Config{UserAgent: "staysync-test"}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(body))
}

func TestFetch_RetriesTransientOnce(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(Config{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetch_GivesUpAfterRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testFetcher(Config{}).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetch_NoRetryOnClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(Config{}).Fetch(context.Background(), srv.URL+"/private/token.ics")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.NotContains(t, err.Error(), "token.ics")
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := testFetcher(Config{TimeoutSeconds: 1})
	f.timeout = 50 * time.Millisecond

	_, err := f.Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Transient())
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := testFetcher(Config{MaxBodyBytes: 16}).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.False(t, fe.Transient())
}

func TestFetch_SharesConcurrentDownloads(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte("shared"))
	}))
	defer srv.Close()

	f := testFetcher(Config{})

	const callers = 5
	var wg sync.WaitGroup
	bodies := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, err := f.Fetch(context.Background(), srv.URL)
			assert.NoError(t, err)
			bodies[i] = string(body)
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	for _, b := range bodies {
		assert.Equal(t, "shared", b)
	}
}

func TestFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte("shared"))
	}))
	defer srv.Close()

	f := testFetcher(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, srv.URL)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)

	var body []byte
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		body, err = f.Fetch(context.Background(), srv.URL)
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case ferr := <-firstErr:
		assert.ErrorIs(t, ferr, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	<-done
	require.NoError(t, err)
	assert.Equal(t, "shared", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSource_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(calendar(`
UID:abc
DTSTART;VALUE=DATE:20250310
DTEND;VALUE=DATE:20250312`))
	}))
	defer srv.Close()

	src := NewSource(testFetcher(Config{}), Config{})
	events, err := src.Events(context.Background(), reconcile.Feed{ID: "f1", URL: srv.URL})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "abc", events[0].UID)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://www.airbnb.com/...(redacted)", redactURL("https://www.airbnb.com/calendar/ical/123.ics?s=secret"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
