// Package sentiment scrapes social sentiment counts from the public
// StockTwits symbol stream. Lookups never fail: any transport or decode
// problem yields zero counts so signal detection can proceed without social
// data.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/auto-market-pulse/pulse-cli/internal/model"
	"github.com/auto-market-pulse/pulse-cli/internal/resilience"
)

const (
	defaultBaseURL     = "https://api.stocktwits.com"
	defaultTTL         = 5 * time.Minute
	defaultMaxMessages = 50
)

// Client fetches sentiment counts with an in-memory TTL cache per ticker.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	ttl         time.Duration
	maxMessages int
	retry       resilience.RetryConfig
	now         func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	counts    model.Sentiment
	fetchedAt time.Time
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the StockTwits API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTTL sets the cache lifetime for each ticker's counts.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithMaxMessages caps how many stream messages are counted.
func WithMaxMessages(n int) Option {
	return func(c *Client) {
		c.maxMessages = n
	}
}

// WithNow sets the clock used for cache expiry, for testing.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a StockTwits sentiment client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 6 * time.Second},
		ttl:         defaultTTL,
		maxMessages: defaultMaxMessages,
		retry:       resilience.DefaultRetryConfig(),
		now:         time.Now,
		cache:       make(map[string]cacheEntry),
	}
	c.retry.OnRetry = resilience.RetryLogger("stocktwits", "stream")
	for _, o := range opts {
		o(c)
	}
	return c
}

// streamResponse mirrors the slice of the symbol stream payload we read.
type streamResponse struct {
	Messages []struct {
		Entities struct {
			Sentiment *struct {
				Basic string `json:"basic"`
			} `json:"sentiment"`
		} `json:"entities"`
	} `json:"messages"`
}

// Sentiment returns bull/bear mention counts for a ticker. Cached results are
// served for the TTL; on any failure the zero value is returned.
func (c *Client) Sentiment(ctx context.Context, ticker string) model.Sentiment {
	key := strings.ToUpper(ticker)

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.counts
	}

	counts, err := c.fetch(ctx, key)
	if err != nil {
		zap.L().Debug("sentiment: stream fetch failed",
			zap.String("ticker", key),
			zap.Error(err),
		)
		return model.Sentiment{}
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{counts: counts, fetchedAt: c.now()}
	c.mu.Unlock()
	return counts
}

func (c *Client) fetch(ctx context.Context, ticker string) (model.Sentiment, error) {
	url := fmt.Sprintf("%s/api/2/streams/symbol/%s.json", c.baseURL, ticker)

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (model.Sentiment, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return model.Sentiment{}, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return model.Sentiment{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("stocktwits: unexpected status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return model.Sentiment{}, resilience.NewTransientError(err, resp.StatusCode)
			}
			return model.Sentiment{}, err
		}

		var stream streamResponse
		if err := json.NewDecoder(resp.Body).Decode(&stream); err != nil {
			return model.Sentiment{}, err
		}

		msgs := stream.Messages
		if len(msgs) > c.maxMessages {
			msgs = msgs[:c.maxMessages]
		}

		var counts model.Sentiment
		counts.Total = len(msgs)
		for _, m := range msgs {
			s := m.Entities.Sentiment
			if s == nil || s.Basic == "" {
				continue
			}
			basic := strings.ToLower(s.Basic)
			switch {
			case strings.Contains(basic, "bull"):
				counts.Bull++
			case strings.Contains(basic, "bear"):
				counts.Bear++
			}
		}
		return counts, nil
	})
}
