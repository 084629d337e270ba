package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchError describes a failed feed download.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether retrying may succeed: network errors,
// timeouts, 429 and 5xx responses.
func (e *FetchError) Transient() bool {
	if errors.Is(e.Err, errBodyTooLarge) {
		return false
	}
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

var errBodyTooLarge = errors.New("feed body exceeds size limit")

// Fetcher downloads feed bodies. Concurrent requests for the same URL share
// one download.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	backoff   time.Duration
	maxBytes  int64
	userAgent string
	group     singleflight.Group
	logger    *zap.Logger
}

// NewFetcher creates a Fetcher from configuration.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{},
		timeout:   cfg.timeout(),
		backoff:   cfg.backoff(),
		maxBytes:  cfg.maxBytes(),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch downloads url, retrying once after a transient failure.
//
// The shared download is detached from the caller that started it and is
// bounded by the per-attempt timeout instead, so one caller giving up never
// fails the others waiting on the same URL. A cancelled caller returns
// immediately with its own context error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ch := f.group.DoChan(rawURL, func() (any, error) {
		return f.fetchWithRetry(context.WithoutCancel(ctx), rawURL)
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{URL: redactURL(rawURL), Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			f.logger.Debug("Feed download shared", zap.String("url", redactURL(rawURL)))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.fetchOnce(ctx, rawURL)
	if err == nil {
		return body, nil
	}

	var fe *FetchError
	if !errors.As(err, &fe) || !fe.Transient() {
		return nil, err
	}

	f.logger.Warn("Feed download failed, retrying",
		zap.String("url", redactURL(rawURL)),
		zap.Duration("backoff", f.backoff),
		zap.Error(err))

	select {
	case <-ctx.Done():
		return nil, &FetchError{URL: redactURL(rawURL), Err: ctx.Err()}
	case <-time.After(f.backoff):
	}

	return f.fetchOnce(ctx, rawURL)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	safe := redactURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: safe, Err: err}
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: safe, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: safe, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: safe, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &FetchError{URL: safe, Err: errBodyTooLarge}
	}

	return body, nil
}

// redactURL keeps scheme and host only; feed URLs embed private tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
