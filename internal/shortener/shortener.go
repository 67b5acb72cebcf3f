// Package shortener minifies topic URLs through a goo.gl-style shortening API.
package shortener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/steemit/simpleforum/internal/cache"
	"github.com/steemit/simpleforum/pkg/config"
	"github.com/steemit/simpleforum/pkg/logging"
	"github.com/steemit/simpleforum/pkg/telemetry"
)

const cacheTTL = 24 * time.Hour

// Client shortens URLs. Shorten never fails: any problem yields the input URL.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[string]
	cache    *cache.Cache
	logger   *zap.Logger
}

// New creates a shortener client. An empty endpoint disables shortening.
// c may be nil.
func New(cfg *config.ShortenerConfig, c *cache.Cache) *Client {
	logger := logging.WithComponent("shortener")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "url-shortener",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state transition",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		endpoint: cfg.URL,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		cb:       cb,
		cache:    c,
		logger:   logger,
	}
}

// Shorten returns a short form of longURL, or longURL itself when the
// service is disabled, unavailable or misbehaving.
func (c *Client) Shorten(ctx context.Context, longURL string) string {
	if c == nil || c.endpoint == "" {
		return longURL
	}

	ctx, span := telemetry.StartSpan(ctx, "shortener.Shorten")
	defer span.End()

	key := "short:" + cache.HashKey(longURL)
	if short, err := c.cache.Get(ctx, key); err == nil && short != "" {
		return short
	}

	short, err := c.cb.Execute(func() (string, error) {
		return c.call(ctx, longURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Debug("Shortener request rejected", zap.Error(err))
		} else {
			c.logger.Warn("Failed to shorten URL", zap.String("url", longURL), zap.Error(err))
		}
		return longURL
	}

	if err := c.cache.Set(ctx, key, short, cacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		c.logger.Warn("Failed to cache short URL", zap.Error(err))
	}
	return short
}

type shortenRequest struct {
	LongURL string `json:"longUrl"`
}

type shortenResponse struct {
	ID string `json:"id"`
}

func (c *Client) call(ctx context.Context, longURL string) (string, error) {
	body, err := json.Marshal(shortenRequest{LongURL: longURL})
	if err != nil {
		return "", err
	}

	endpoint := c.endpoint
	if c.apiKey != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid shortener url: %w", err)
		}
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("shortener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read shortener response: %w", err)
	}
	var out shortenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode shortener response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("shortener response has no id")
	}
	return out.ID, nil
}
