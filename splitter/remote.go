package splitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/quest/cache"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one call to the splitting service.
const DefaultTimeout = 5 * time.Second

var (
	ErrBadStatus   = errors.New("splitter: unexpected status from splitting service")
	ErrBadBoundary = errors.New("splitter: invalid statement boundary")
)

// SplitRequest is the body posted to the splitting service.
type SplitRequest struct {
	SQL string `json:"sql" validate:"required"`
}

// SplitResponse is the body the splitting service answers with.
type SplitResponse struct {
	Statements []Span `json:"statements"`
}

// Remote delegates splitting to an HTTP service and falls back to another
// splitter when the service cannot answer.
type Remote struct {
	endpoint string
	client   *http.Client
	cache    *cache.SplitCache
	fallback Splitter
	log      zerolog.Logger
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithTimeout bounds each service call. Non-positive values keep the default.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.client = c
	}
}

// WithCacheSize sets how many split batches are remembered.
func WithCacheSize(n int) RemoteOption {
	return func(r *Remote) {
		r.cache = cache.NewSplitCache(n)
	}
}

// WithFallback replaces the splitter used when the service fails.
func WithFallback(s Splitter) RemoteOption {
	return func(r *Remote) {
		r.fallback = s
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(log zerolog.Logger) RemoteOption {
	return func(r *Remote) {
		r.log = log
	}
}

// NewRemote creates a client for the splitting service at endpoint.
func NewRemote(endpoint string, opts ...RemoteOption) *Remote {
	r := &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		cache:    cache.NewSplitCache(cache.DefaultSize),
		fallback: Naive{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Split implements Splitter.
func (r *Remote) Split(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if statements, ok := r.cache.Get(text); ok {
		return statements, nil
	}

	statements, err := r.fetch(ctx, text)
	if err != nil {
		r.log.Warn().Err(err).Str("endpoint", r.endpoint).Msg("splitting service failed, using fallback split")
		return r.fallback.Split(ctx, text)
	}

	r.cache.Set(text, statements)
	return statements, nil
}

func (r *Remote) fetch(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(SplitRequest{SQL: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var out SplitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("splitter: decoding response: %w", err)
	}
	if err := checkSpans(out.Statements, len(text)); err != nil {
		return nil, err
	}
	return Slice(text, out.Statements), nil
}

// checkSpans requires spans to lie inside the text, in order, without overlap.
func checkSpans(spans []Span, n int) error {
	prev := 0
	for i, sp := range spans {
		if sp.Start < prev || sp.End < sp.Start || sp.End > n {
			return fmt.Errorf("%w: #%d [%d,%d) for %d bytes", ErrBadBoundary, i, sp.Start, sp.End, n)
		}
		prev = sp.End
	}
	return nil
}
