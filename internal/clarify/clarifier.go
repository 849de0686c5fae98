// Package clarify turns a raw forecasting question into a well-formed
// Question record.
package clarify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

const systemPrompt = `You are an expert super-forecaster performing Step 1 - Clarify the question.
Restate the user's question so it is unambiguous and resolvable. Return ONLY valid JSON with:

- original_question  : the question exactly as given
- reasoning          : 2-4 sentences on the ambiguities you resolved
- resolution_rule    : the precise rule deciding how the question resolves
- end_date           : the date by which the question resolves (ISO 8601 where possible)
- variable_type      : one of "binary", "count", "continuous"
- clarified_question : the fully clarified, self-contained question

Think step-by-step internally but output only JSON.`

// Clarifier produces clarified Question records via the oracle.
type Clarifier struct {
	client *oracle.Client
	logger *slog.Logger
}

// New creates a Clarifier.
func New(client *oracle.Client, logger *slog.Logger) *Clarifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clarifier{client: client, logger: logger}
}

type wireQuestion struct {
	OriginalQuestion  string `json:"original_question"`
	Reasoning         string `json:"reasoning"`
	ResolutionRule    string `json:"resolution_rule"`
	EndDate           string `json:"end_date"`
	VariableType      string `json:"variable_type"`
	ClarifiedQuestion string `json:"clarified_question"`
}

// Clarify issues one structured oracle call and validates the result.
// An empty clarified question is a contract violation; an unrecognized
// variable type degrades to continuous with a warning.
func (c *Clarifier) Clarify(ctx context.Context, raw string) (model.Question, error) {
	user := fmt.Sprintf("Question: ```%s```\n\nPlease clarify this question.", raw)

	var wire wireQuestion
	err := c.client.QueryObject(ctx, "clarify", systemPrompt, user, &wire, func() error {
		if strings.TrimSpace(wire.ClarifiedQuestion) == "" {
			return fmt.Errorf("clarified_question must not be empty")
		}
		return nil
	})
	if err != nil {
		return model.Question{}, err
	}

	variableType, known := model.ParseVariableType(wire.VariableType)
	if !known {
		c.logger.Warn("unrecognized variable type, treating as continuous",
			"variable_type", wire.VariableType)
	}

	original := wire.OriginalQuestion
	if original == "" {
		original = raw
	}

	return model.Question{
		OriginalText:   original,
		Reasoning:      wire.Reasoning,
		ResolutionRule: wire.ResolutionRule,
		EndDate:        wire.EndDate,
		VariableType:   variableType,
		ClarifiedText:  strings.TrimSpace(wire.ClarifiedQuestion),
	}, nil
}
