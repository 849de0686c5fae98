// Package retrieval gathers contextual documents for a forecasting
// question: the oracle proposes web-search queries, a search API turns
// them into URLs, and a reader fetches plain-text bodies. Results are
// cached in an explicitly constructed cache service with an
// open/close lifecycle.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/eppie/foresight/internal/oracle"
)

const queryPrompt = `You are a research assistant skilled at forming precise web-search queries.
Given a clarified forecasting question and a reference class, output ONLY valid JSON with a
"queries" array of up to 5 search strings (no additional keys, no prose). Each string should be
targeted to find numerical counts or datasets that would let a researcher measure the base rate
for that reference class.

Example:
{
  "queries": [
    "Atlantic Category 5 hurricanes list 1924 site:noaa.gov",
    "number of category 5 atlantic hurricanes since 1900",
    "NOAA best track dataset category 5 Atlantic"
  ]
}`

// Document is one retrieved context document.
type Document struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
}

// Retriever wires query generation, search and fetching together.
type Retriever struct {
	client *oracle.Client
	search *SearchClient
	reader *Reader
	topK   int
	logger *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(client *oracle.Client, search *SearchClient, reader *Reader, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		client: client,
		search: search,
		reader: reader,
		topK:   topK,
		logger: logger,
	}
}

// GenerateQueries asks the oracle for search queries likely to surface
// statistics for the reference class. Duplicates are dropped,
// preserving order.
func (r *Retriever) GenerateQueries(ctx context.Context, clarified, refClass string, n int) ([]string, error) {
	if n <= 0 {
		n = 3
	}
	user := fmt.Sprintf(
		"Clarified question: ```%s```\nReference class: ```%s```\nPlease generate %d useful search queries.",
		clarified, refClass, n,
	)

	var wire struct {
		Queries []string `json:"queries"`
	}
	err := r.client.QueryObject(ctx, "generate_queries", queryPrompt, user, &wire, func() error {
		if len(wire.Queries) == 0 {
			return fmt.Errorf("queries must not be empty")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var queries []string
	for _, q := range wire.Queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
		if len(queries) >= n {
			break
		}
	}
	return queries, nil
}

// Retrieve returns up to k documents with non-empty text for the
// question. Individual search failures are logged and skipped; a run
// with zero usable queries fails.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]Document, error) {
	if k <= 0 {
		k = r.topK
	}

	queries, err := r.GenerateQueries(ctx, question, question, 3)
	if err != nil {
		return nil, fmt.Errorf("generate queries: %w", err)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, query := range queries {
		results, err := r.search.Search(ctx, query, r.topK)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("search failed", "query", query, "error", err)
			continue
		}
		for _, u := range results {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}

	var docs []Document
	for _, u := range urls {
		if len(docs) >= k {
			break
		}
		text, err := r.reader.FetchText(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", u, err)
		}
		if text == "" {
			continue
		}
		docs = append(docs, Document{
			ID:         uuid.NewString(),
			Text:       text,
			SourceName: sourceName(u),
			SourceURL:  u,
		})
	}

	r.logger.Debug("retrieved documents", "queries", len(queries), "urls", len(urls), "documents", len(docs))
	return docs, nil
}

// sourceName derives a readable source label from a URL.
func sourceName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}
