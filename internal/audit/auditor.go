// Package audit sanity-checks a finished forecast against its outside
// view and requests an adversarial bias critique from the oracle.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eppie/foresight/internal/bayes"
	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

// maxOddsSwing is the ratio between final odds and base-rate odds
// beyond which the forecast has moved far from the outside view.
const maxOddsSwing = 4.0

const critiquePrompt = `You are a forecasting red-team reviewer. Given a forecast and the reasoning behind it, write a
short adversarial critique (4-6 sentences). Address specifically:
- availability heuristic: is the forecast anchored on vivid recent events?
- confirmation bias: was disconfirming evidence sought and weighed?
- wishful thinking: does the number track what the forecaster might want to be true?
- overconfidence: is the distance from the base rate justified by the evidence?

Be blunt. Do not propose a replacement probability.`

// Auditor flags large prior-to-posterior swings and gathers a bias
// critique. It is advisory only and never mutates the probability.
type Auditor struct {
	client *oracle.Client
	logger *slog.Logger
}

// New creates an Auditor.
func New(client *oracle.Client, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{client: client, logger: logger}
}

// Audit validates the posterior, warns when it strays more than
// maxOddsSwing from the mean base-rate odds, and returns the oracle's
// critique text.
func (a *Auditor) Audit(ctx context.Context, posterior float64, baseRates []model.BaseRate, question model.Question, decomposition *model.Decomposition, items []model.EvidenceItem) (string, error) {
	if err := bayes.CheckProbability(posterior); err != nil {
		return "", err
	}

	a.checkOddsSwing(posterior, baseRates)

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question.ClarifiedText)
	fmt.Fprintf(&b, "Final probability: %.4f\n\n", posterior)
	for _, rate := range baseRates {
		fmt.Fprintf(&b, "Base rate (%s, %s): %s\n", rate.ReferenceClass, rate.Kind, rate.Reasoning)
	}
	if decomposition != nil && decomposition.FinalAnswer != "" {
		fmt.Fprintf(&b, "\nDecomposition conclusion: %s\n", decomposition.FinalAnswer)
	}
	if len(items) > 0 {
		fmt.Fprintf(&b, "\nEvidence:\n")
		for _, item := range items {
			if item.Informative() {
				fmt.Fprintf(&b, "- %s (LR %.2f)\n", item.Description, item.LikelihoodRatio)
			} else {
				fmt.Fprintf(&b, "- %s\n", item.Description)
			}
		}
	}

	critique, err := a.client.QueryText(ctx, "bias_critique", critiquePrompt, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(critique), nil
}

// checkOddsSwing compares final odds against the mean base-rate odds
// and logs a non-fatal warning when the ratio leaves [1/4, 4].
func (a *Auditor) checkOddsSwing(posterior float64, baseRates []model.BaseRate) {
	var (
		sum float64
		n   int
	)
	for _, rate := range baseRates {
		if prior, ok := rate.Prior(); ok {
			sum += prior
			n++
		}
	}
	if n == 0 {
		return
	}

	priorOdds := bayes.Odds(sum / float64(n))
	finalOdds := bayes.Odds(posterior)
	if priorOdds == 0 {
		return
	}

	swing := finalOdds / priorOdds
	if swing > maxOddsSwing || swing < 1/maxOddsSwing {
		a.logger.Warn("forecast has moved far from the outside view",
			"prior_odds", priorOdds, "final_odds", finalOdds, "swing", swing)
	}
}
