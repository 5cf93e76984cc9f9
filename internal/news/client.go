package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"TrendScout/internal/logger"
	"TrendScout/internal/model"
)

// Searcher finds recent articles about a query.
type Searcher interface {
	Search(ctx context.Context, query string, since time.Time) ([]model.Article, error)
}

// Client queries the NewsAPI /v2/everything endpoint, rotating through a
// pool of API keys when one is throttled.
type Client struct {
	http     *resty.Client
	limiter  *rate.Limiter
	language string

	mu   sync.Mutex
	keys []string
	cur  int
}

// NewClient creates a news client. rps bounds the request rate shared by all
// callers; proxyURL is optional.
func NewClient(baseURL string, keys []string, language string, rps float64, proxyURL string) *Client {
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	if proxyURL != "" {
		h.SetProxy(proxyURL)
	}
	return &Client{
		http:     h,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		language: language,
		keys:     append([]string(nil), keys...),
	}
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search returns articles matching query published since the given day,
// newest first. Each key is tried at most once per call.
func (c *Client) Search(ctx context.Context, query string, since time.Time) ([]model.Article, error) {
	c.mu.Lock()
	attempts := len(c.keys)
	c.mu.Unlock()
	if attempts == 0 {
		return nil, fmt.Errorf("news search %q: no api keys: %w", query, model.ErrProviderUnavailable)
	}

	params := map[string]string{
		"q":      query,
		"from":   since.UTC().Format("2006-01-02"),
		"sortBy": "publishedAt",
	}
	if c.language != "" {
		params["language"] = c.language
	}

	for i := 0; i < attempts; i++ {
		key := c.currentKey()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("news search %q: %w: %w", query, model.ErrProviderUnavailable, err)
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("X-Api-Key", key).
			SetQueryParams(params).
			Get("/v2/everything")
		if err != nil {
			return nil, fmt.Errorf("news search %q: %w: %w", query, model.ErrProviderUnavailable, err)
		}

		var payload everythingResponse
		decodeErr := sonic.Unmarshal(resp.Body(), &payload)

		if resp.StatusCode() == http.StatusTooManyRequests || isThrottleCode(payload.Code) {
			logger.Warn("news api key %d/%d throttled, rotating", i+1, attempts)
			c.rotate(key)
			continue
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("news search %q: status %d %s: %w",
				query, resp.StatusCode(), payload.Code, model.ErrProviderUnavailable)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("news search %q: %w: %w", query, model.ErrMalformedResponse, decodeErr)
		}
		if payload.Status != "ok" {
			return nil, fmt.Errorf("news search %q: status %q: %w", query, payload.Status, model.ErrMalformedResponse)
		}
		return toArticles(payload), nil
	}
	return nil, fmt.Errorf("news search %q: all %d keys throttled: %w", query, attempts, model.ErrRateLimited)
}

func (c *Client) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[c.cur]
}

// rotate advances past key unless another caller already did.
func (c *Client) rotate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys[c.cur] == key {
		c.cur = (c.cur + 1) % len(c.keys)
	}
}

func isThrottleCode(code string) bool {
	return code == "rateLimited" || code == "apiKeyExhausted"
}

func toArticles(payload everythingResponse) []model.Article {
	out := make([]model.Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil && a.PublishedAt != "" {
			logger.Debug("news: bad publishedAt %q: %v", a.PublishedAt, err)
		}
		out = append(out, model.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: published,
		})
	}
	return out
}
