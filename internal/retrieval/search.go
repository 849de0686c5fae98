package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/eppie/foresight/internal/cache"
	"github.com/eppie/foresight/internal/model"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// SearchClient queries the Brave web search API for result URLs.
// Raw API responses are cached by query.
type SearchClient struct {
	apiKey     string
	userAgent  string
	httpClient *http.Client
	cache      cache.Cache
	endpoint   string
}

// NewSearchClient creates a SearchClient. store may be nil to disable
// caching.
func NewSearchClient(cfg model.RetrievalConfig, store cache.Cache) (*SearchClient, error) {
	if cfg.BraveAPIKey == "" {
		return nil, fmt.Errorf("Brave search API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &SearchClient{
		apiKey:     cfg.BraveAPIKey,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		cache:      store,
		endpoint:   braveEndpoint,
	}, nil
}

// braveResponse covers the fields we need from the web search payload.
type braveResponse struct {
	Web struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

// Search returns up to topK result URLs for the query.
func (c *SearchClient) Search(ctx context.Context, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 3
	}

	key := cache.Key("search", query)
	if c.cache != nil {
		if data, found := c.cache.Get(key); found {
			if urls, err := parseSearchResults(data, topK); err == nil {
				return urls, nil
			}
			// Unparseable cache entries fall through to the network.
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", topK))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	urls, err := parseSearchResults(body, topK)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(key, body, 0)
	}
	return urls, nil
}

func parseSearchResults(data []byte, topK int) ([]string, error) {
	var parsed braveResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	var urls []string
	for _, result := range parsed.Web.Results {
		if result.URL == "" {
			continue
		}
		urls = append(urls, result.URL)
		if len(urls) >= topK {
			break
		}
	}
	return urls, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
