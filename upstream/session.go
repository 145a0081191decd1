// Package upstream is the HTTP adapter shared by the reference service
// clients. A Session carries the base URL, the static credential header and
// an outbound token bucket for one service; it is built once per batch and
// reused for every request.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/giygas/druginfo/logging"
	"github.com/giygas/druginfo/metrics"
	"github.com/juju/ratelimit"
)

// maxBodySize caps how much of a response body is read into memory
const maxBodySize = 16 * 1024 * 1024

// Options configures NewSession
type Options struct {
	Service    string // used in errors, logs and metric labels
	BaseURL    string
	AuthHeader string
	AuthValue  string
	Timeout    time.Duration
	RateLimit  int          // requests per second, 0 disables throttling
	HTTPClient *http.Client // optional, Timeout is ignored when set
}

// Session issues authenticated GET requests to one service.
// It is not mutated after construction.
type Session struct {
	service string
	baseURL *url.URL
	header  http.Header
	client  *http.Client
	bucket  *ratelimit.Bucket
}

// NewSession validates opts and builds a Session
func NewSession(opts Options) (*Session, error) {
	if opts.Service == "" {
		return nil, fmt.Errorf("session service name cannot be empty")
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL %q: %w", opts.Service, opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base URL %q must be absolute", opts.Service, opts.BaseURL)
	}

	header := make(http.Header)
	header.Set("Accept", "application/json")
	if opts.AuthHeader != "" {
		header.Set(opts.AuthHeader, opts.AuthValue)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	s := &Session{
		service: opts.Service,
		baseURL: base,
		header:  header,
		client:  client,
	}
	if opts.RateLimit > 0 {
		// Capacity 1 keeps requests evenly spaced instead of bursting
		s.bucket = ratelimit.NewBucketWithRate(float64(opts.RateLimit), 1)
	}

	return s, nil
}

// Service returns the service name of the session
func (s *Session) Service() string {
	return s.service
}

// URL resolves path against the base URL and attaches rawQuery verbatim.
// An empty path addresses the base URL itself. Path segments must already be escaped.
func (s *Session) URL(path, rawQuery string) string {
	u := *s.baseURL
	if path != "" {
		u = *u.JoinPath(path)
	}
	u.RawQuery = rawQuery
	return u.String()
}

// Get sends one GET request and returns the body of a 200 response.
// Any other outcome is a *TransportError. endpoint only labels metrics.
func (s *Session) Get(ctx context.Context, endpoint, path, rawQuery string) ([]byte, error) {
	target := s.URL(path, rawQuery)

	if s.bucket != nil {
		if waited := s.bucket.Take(1); waited > 0 {
			logging.Debug("Throttling upstream request", "service", s.service, "wait", waited.String())
			select {
			case <-time.After(waited):
			case <-ctx.Done():
				return nil, &TransportError{Service: s.service, URL: target, Expected: http.StatusOK, Err: ctx.Err()}
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Service: s.service, URL: target, Expected: http.StatusOK, Err: err}
	}
	for key, values := range s.header {
		req.Header[key] = values
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(s.service, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(s.service, endpoint, "error").Inc()
		return nil, &TransportError{Service: s.service, URL: target, Expected: http.StatusOK, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "service", s.service, "error", err)
		}
	}()

	metrics.UpstreamRequestsTotal.WithLabelValues(s.service, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	logging.Debug("Upstream response", "service", s.service, "endpoint", endpoint,
		"status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &TransportError{Service: s.service, URL: target, StatusCode: resp.StatusCode, Expected: http.StatusOK}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Service: s.service, URL: target, StatusCode: resp.StatusCode, Expected: http.StatusOK,
			Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return body, nil
}

// GetJSON is Get followed by decoding the body into v. Decoding failures are *DecodeError.
func (s *Session) GetJSON(ctx context.Context, endpoint, path, rawQuery string, v any) error {
	body, err := s.Get(ctx, endpoint, path, rawQuery)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{Service: s.service, Err: err}
	}
	return nil
}
