package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// connection pooling limits; speed probes reuse one host, site probes many
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// latencyTimeout bounds the ping probe.
const latencyTimeout = 10 * time.Second

// Transfer is the outcome of a download probe.
type Transfer struct {
	// Bytes is the number of body bytes actually received.
	Bytes int64
	// Elapsed runs from dispatch until the full body was consumed.
	Elapsed time.Duration
}

// Mbps returns the transfer's throughput.
func (t Transfer) Mbps() float64 {
	return Mbps(t.Bytes, t.Elapsed)
}

// Reachability is the outcome of a reachability probe.
type Reachability struct {
	Online  bool
	Elapsed time.Duration
	// Err is set when Online is false.
	Err error
}

// Client issues latency, download and reachability probes.
//
// Timeouts are applied per request via context rather than as a global
// client timeout, so each probe kind can use its own bound.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a probe [Client]. A nil logger falls back to slog.Default.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		logger: logger,
	}
}

// SpeedURL returns endpoint with its bytes query parameter set to n.
func SpeedURL(endpoint string, n int64) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid speed test endpoint: %w", err)
	}
	q := u.Query()
	q.Set("bytes", strconv.FormatInt(n, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Latency measures the time from dispatch until response headers arrive for
// a zero-byte request against endpoint.
//
// Latency never fails: network errors and non-2xx responses are logged and
// reported as 0.
func (c *Client) Latency(ctx context.Context, endpoint string) time.Duration {
	target, err := SpeedURL(endpoint, 0)
	if err != nil {
		c.logger.Warn("latency probe failed", "error", err)
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, latencyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.logger.Warn("latency probe failed", "url", target, "error", err)
		return 0
	}
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("latency probe failed", "url", target, "error", err)
		return 0
	}
	elapsed := time.Since(start)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("latency probe failed", "url", target, "status_code", resp.StatusCode)
		return 0
	}
	return elapsed
}

// Download fetches roughly n bytes from endpoint and measures how long the
// complete body took. The server decides the actual size; Transfer.Bytes is
// what arrived. A non-2xx response is an error.
func (c *Client) Download(ctx context.Context, endpoint string, n int64) (Transfer, error) {
	target, err := SpeedURL(endpoint, n)
	if err != nil {
		return Transfer{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Transfer{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transfer{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Transfer{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	received, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return Transfer{}, fmt.Errorf("failed to read response body: %w", err)
	}

	return Transfer{Bytes: received, Elapsed: time.Since(start)}, nil
}

// Reachable sends a HEAD request to target and reports whether any HTTP
// response arrived within timeout. The status code is deliberately ignored:
// a 500 still proves the site answers.
func (c *Client) Reachable(ctx context.Context, target string, timeout time.Duration) Reachability {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return Reachability{Elapsed: time.Since(start), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s", timeout)
		}
		return Reachability{Elapsed: time.Since(start), Err: err}
	}
	_ = resp.Body.Close()

	return Reachability{Online: true, Elapsed: time.Since(start)}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times; the client stays usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// Mbps converts a byte count over a duration into megabits per second
// (decimal megabits). It returns 0 for a non-positive duration.
func Mbps(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) * 8 / (1e6 * elapsed.Seconds())
}
