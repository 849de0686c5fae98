// Package refclass proposes candidate reference classes for a
// clarified forecasting question (the outside view).
package refclass

import (
	"context"
	"fmt"
	"strings"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

const (
	minClasses = 2
	maxClasses = 4
)

const systemPrompt = `You are an expert super-forecaster performing Step 2.1 - Choose reference classes.
Given a clarified forecasting question, propose between 2 and 4 candidate reference classes:
sets of past events structurally analogous to the target, each measurable from historical data.
Return ONLY valid JSON with:

{
  "reference_classes": [
    {
      "reasoning": "2-3 sentences on why this class is analogous and measurable",
      "reference_class": "a concise label for the class, including time span where relevant"
    }
  ]
}

Think step-by-step internally but output only JSON.`

// Selector asks the oracle for candidate reference classes.
type Selector struct {
	client *oracle.Client
}

// New creates a Selector.
func New(client *oracle.Client) *Selector {
	return &Selector{client: client}
}

type wireClasses struct {
	ReferenceClasses []model.ReferenceClassItem `json:"reference_classes"`
}

// Select returns 2-4 reference classes for the clarified question.
// A response outside that range is a contract violation and retried;
// no tie-break beyond oracle output order is imposed.
func (s *Selector) Select(ctx context.Context, clarified string) ([]model.ReferenceClassItem, error) {
	user := fmt.Sprintf("Clarified question: ```%s```\n\nPlease propose reference classes.", clarified)

	var wire wireClasses
	err := s.client.QueryObject(ctx, "reference_classes", systemPrompt, user, &wire, func() error {
		n := len(wire.ReferenceClasses)
		if n < minClasses || n > maxClasses {
			return fmt.Errorf("expected %d-%d reference classes, got %d", minClasses, maxClasses, n)
		}
		for _, item := range wire.ReferenceClasses {
			if strings.TrimSpace(item.ReferenceClass) == "" {
				return fmt.Errorf("reference_class labels must not be empty")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wire.ReferenceClasses, nil
}
