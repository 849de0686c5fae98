package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/eppie/foresight/internal/cache"
	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/worker"
)

const jinaEndpoint = "https://r.jina.ai/"

// Reader fetches plain-text article bodies for URLs, preferring the
// Jina reader service and falling back to a direct fetch with local
// HTML text extraction. Inaccessible pages yield an empty string, and
// empties are cached so dead URLs are not retried every run.
type Reader struct {
	httpClient *http.Client
	userAgent  string
	jinaBase   string
	jinaAPIKey string
	maxBytes   int64
	cache      cache.Cache
	robots     *RobotsChecker
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// NewReader creates a Reader. store may be nil to disable caching.
func NewReader(cfg model.RetrievalConfig, store cache.Cache, logger *slog.Logger) *Reader {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes == 0 {
		maxBytes = 2_000_000
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  cfg.UserAgent,
		jinaBase:   jinaEndpoint,
		jinaAPIKey: cfg.JinaAPIKey,
		maxBytes:   maxBytes,
		cache:      store,
		robots:     NewRobotsChecker(cfg.UserAgent, timeout),
		limiter:    worker.NewLimiter(cfg.RatePerSec, cfg.RateBurst),
		logger:     logger,
	}
}

// FetchText returns the plain-text body for rawURL, or an empty string
// when the page is inaccessible or disallowed.
func (r *Reader) FetchText(ctx context.Context, rawURL string) (string, error) {
	key := cache.Key("doc", rawURL)
	if r.cache != nil {
		if data, found := r.cache.Get(key); found {
			return string(data), nil
		}
	}

	text, err := r.fetchJina(ctx, rawURL)
	if err != nil {
		r.logger.Debug("jina reader failed, falling back to direct fetch",
			"url", rawURL, "error", err)
		text, err = r.fetchDirect(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.logger.Debug("direct fetch failed", "url", rawURL, "error", err)
			text = ""
		}
	}

	if r.cache != nil {
		_ = r.cache.Set(key, []byte(text), 0)
	}
	return text, nil
}

// fetchJina reads the page through the Jina reader, which returns the
// article as plain text. The service is unauthenticated; an API key is
// attached when configured.
func (r *Reader) fetchJina(ctx context.Context, rawURL string) (string, error) {
	if err := r.limiter.Wait(ctx, r.jinaBase); err != nil {
		return "", err
	}

	endpoint := r.jinaBase + rawURL
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	if r.jinaAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.jinaAPIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// fetchDirect fetches the page itself, honoring robots.txt, and
// extracts the visible text locally.
func (r *Reader) fetchDirect(ctx context.Context, rawURL string) (string, error) {
	allowed, err := r.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", fmt.Errorf("disallowed by robots.txt")
	}

	if err := r.limiter.Wait(ctx, rawURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return ExtractText(string(body))
}

// ExtractText extracts the visible text from an HTML document,
// skipping scripts, styles and embedded frames.
func ExtractText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}
