package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"NewsIngest/internal/config"
	"NewsIngest/internal/ports"
)

const maxBodyBytes = 8 << 20

// Client is a rate-limited, retrying HTTP fetcher with user-agent/proxy
// rotation and a multi-tier fallback chain. All state is owned by the
// instance; share one client to share the global throttle.
type Client struct {
	direct      *http.Client
	perProxy    map[string]*http.Client
	limiter     *Limiter
	rotation    *Rotation
	attempts    int
	baseDelay   time.Duration
	readerProxy string
	relayProxy  string
	logger      *slog.Logger
}

var _ ports.Fetcher = (*Client)(nil)

// New builds a client from configuration. A nil logger disables logging.
func New(cfg config.FetcherConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	perProxy := make(map[string]*http.Client, len(cfg.Proxies))
	for _, p := range cfg.Proxies {
		proxyURL, err := url.Parse(p)
		if err != nil {
			logger.Warn("skipping invalid proxy", "proxy", p, "error", err)
			continue
		}
		perProxy[p] = &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	return &Client{
		direct:      &http.Client{Timeout: timeout},
		perProxy:    perProxy,
		limiter:     NewLimiter(cfg.RateDelay()),
		rotation:    NewRotation(cfg.UserAgents, cfg.Proxies),
		attempts:    attempts,
		baseDelay:   cfg.RetryBaseDelay(),
		readerProxy: cfg.ReaderProxyURL,
		relayProxy:  cfg.RelayProxyURL,
		logger:      logger,
	}
}

// Fetch retrieves the URL body, retrying transient failures with
// exponential backoff and jitter. Permanent failures return immediately.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		body, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if IsPermanent(err) {
			return "", err
		}
		if attempt == c.attempts {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Debug("transient fetch failure, retrying",
			"url", rawURL, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("fetch %s failed after %d attempts: %w", rawURL, c.attempts, lastErr)
}

// FetchWithFallback walks direct → reader proxy → generic relay. The
// first tier that produces a body wins; an exhausted chain returns the
// last error.
func (c *Client) FetchWithFallback(ctx context.Context, rawURL string) (string, error) {
	tiers := []struct {
		name string
		url  string
	}{
		{"direct", rawURL},
	}
	if c.readerProxy != "" {
		tiers = append(tiers, struct{ name, url string }{"reader", c.readerProxy + rawURL})
	}
	if c.relayProxy != "" {
		tiers = append(tiers, struct{ name, url string }{"relay", c.relayProxy + url.QueryEscape(rawURL)})
	}

	var lastErr error
	for _, tier := range tiers {
		body, err := c.Fetch(ctx, tier.url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		c.logger.Debug("fallback tier failed", "tier", tier.name, "url", rawURL, "error", err)
	}

	return "", fmt.Errorf("all fallback tiers failed for %s: %w", rawURL, lastErr)
}

func (c *Client) do(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{Kind: Permanent, URL: rawURL, Err: err}
	}

	userAgent, proxy := c.rotation.Next()
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	client := c.direct
	if proxy != "" {
		if pc, ok := c.perProxy[proxy]; ok {
			client = pc
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", transportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", transportError(rawURL, err)
	}

	return string(body), nil
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.baseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return delay + jitter
}
