// Package evidence collects evidence items bearing on a clarified
// question, each optionally weighted with a likelihood ratio.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
	"github.com/eppie/foresight/internal/retrieval"
)

const systemPrompt = `You are an expert super-forecaster performing Step 4 - Gather evidence.
List the distinct pieces of evidence bearing on the question: recent developments, expert
statements, structural factors, trends. For each item, estimate the likelihood ratio: the factor
by which the evidence multiplies the odds of the outcome (greater than 1 favors the outcome,
between 0 and 1 disfavors it). Omit the ratio when you cannot justify a number.

Return ONLY a valid JSON array:
[
  { "description": "what the evidence is and why it matters", "likelihood_ratio": 2.0 },
  { "description": "an item with no defensible ratio" }
]

Think step-by-step internally but output only JSON.`

// DocumentSource supplies retrieved context documents for a question.
type DocumentSource interface {
	Retrieve(ctx context.Context, question string, k int) ([]retrieval.Document, error)
}

// Gatherer asks the oracle for evidence items. Conceptually similar
// items may repeat; no deduplication is performed. With a document
// source attached, retrieved page text is included in the prompt so
// the oracle grounds its items in fetched sources.
type Gatherer struct {
	client *oracle.Client
	source DocumentSource
	topK   int
	logger *slog.Logger
}

// New creates a Gatherer.
func New(client *oracle.Client, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{client: client, logger: logger}
}

// WithDocuments attaches a document source consulted before each
// gather call.
func (g *Gatherer) WithDocuments(source DocumentSource, topK int) *Gatherer {
	if topK <= 0 {
		topK = 3
	}
	g.source = source
	g.topK = topK
	return g
}

// wireEvidence keeps the ratio a pointer so an explicit zero in the
// reply is distinguishable from an omitted field: omitted means
// non-informative, a supplied zero is a contract violation.
type wireEvidence struct {
	Description     string   `json:"description"`
	LikelihoodRatio *float64 `json:"likelihood_ratio"`
}

// Gather returns the evidence list for the clarified question.
// A likelihood ratio, when supplied, must be strictly positive;
// anything else violates the contract and the call is retried.
func (g *Gatherer) Gather(ctx context.Context, clarified string) ([]model.EvidenceItem, error) {
	user := fmt.Sprintf("Clarified question: ```%s```\n\nPlease list the evidence.", clarified)

	if g.source != nil {
		docs, err := g.source.Retrieve(ctx, clarified, g.topK)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Retrieval is best-effort context; the oracle's own knowledge
			// still produces a usable evidence list.
			g.logger.Warn("document retrieval failed, gathering without context", "error", err)
		}
		if section := formatDocuments(docs); section != "" {
			user += section
		}
	}

	var wires []wireEvidence
	err := g.client.QueryArray(ctx, "gather_evidence", systemPrompt, user, &wires, func() error {
		for _, w := range wires {
			if strings.TrimSpace(w.Description) == "" {
				return fmt.Errorf("evidence descriptions must not be empty")
			}
			if w.LikelihoodRatio != nil && *w.LikelihoodRatio <= 0 {
				return fmt.Errorf("likelihood_ratio %v must be positive or omitted", *w.LikelihoodRatio)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.EvidenceItem, len(wires))
	informative := 0
	for i, w := range wires {
		items[i] = model.EvidenceItem{Description: w.Description}
		if w.LikelihoodRatio != nil {
			items[i].LikelihoodRatio = *w.LikelihoodRatio
			informative++
		}
	}
	g.logger.Debug("gathered evidence", "items", len(items), "informative", informative)

	return items, nil
}

// maxDocChars caps how much of each fetched page goes into the prompt.
const maxDocChars = 4000

func formatDocuments(docs []retrieval.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nContext documents fetched from the web:\n")
	for i, doc := range docs {
		text := doc.Text
		if len(text) > maxDocChars {
			text = text[:maxDocChars]
		}
		fmt.Fprintf(&b, "\n[%d] %s (%s)\n%s\n", i+1, doc.SourceName, doc.SourceURL, text)
	}
	return b.String()
}
