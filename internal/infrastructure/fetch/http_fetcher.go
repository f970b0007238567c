// Package fetch downloads raw source documents over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"ResearchDigest/internal/ports"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 8 << 20
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Options configure an HTTPFetcher.
type Options struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	RespectRobots     bool
	MaxBodyBytes      int64
}

// HTTPFetcher performs single-attempt GET requests with a bounded wait.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	maxBody   int64
	robots    bool
	logger    *slog.Logger

	mu          sync.Mutex
	robotsCache map[string]*robotstxt.RobotsData
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a nil client gets the configured timeout.
func NewHTTPFetcher(client *http.Client, opts Options, logger *slog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &HTTPFetcher{
		client:      client,
		userAgent:   opts.UserAgent,
		limiter:     limiter,
		maxBody:     opts.MaxBodyBytes,
		robots:      opts.RespectRobots,
		logger:      logger,
		robotsCache: map[string]*robotstxt.RobotsData{},
	}
}

// Fetch returns the response body of a successful GET.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	if f.robots && !f.allowed(ctx, target) {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrDisallowed)
	}

	status, body, err := f.get(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, status)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (int, []byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// allowed consults the host's robots.txt once per run. An unreachable robots.txt allows everything.
func (f *HTTPFetcher) allowed(ctx context.Context, target *url.URL) bool {
	host := target.Scheme + "://" + target.Host

	f.mu.Lock()
	data, cached := f.robotsCache[host]
	f.mu.Unlock()

	if !cached {
		status, body, err := f.get(ctx, host+"/robots.txt")
		if err != nil {
			f.logger.Debug("robots.txt unavailable", "host", target.Host, "error", err)
		} else if parsed, perr := robotstxt.FromStatusAndBytes(status, body); perr == nil {
			data = parsed
		}
		f.mu.Lock()
		f.robotsCache[host] = data
		f.mu.Unlock()
	}

	if data == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return data.TestAgent(path, f.userAgent)
}
