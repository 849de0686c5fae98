// Package bayes implements sequential Bayesian updating in odds space.
//
// Probabilities convert to odds (p/(1-p)), each informative evidence
// item multiplies the odds by its likelihood ratio, and the result
// converts back. Multiplication is commutative, so the final posterior
// does not depend on evidence order; partial audit trails do.
package bayes

import (
	"fmt"
	"math"

	"github.com/eppie/foresight/internal/model"
)

// RangeError reports a probability outside [0,1]. It is always fatal;
// values are never clamped silently.
type RangeError struct {
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("probability %v outside [0, 1]", e.Value)
}

// CheckProbability validates p is a probability.
func CheckProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &RangeError{Value: p}
	}
	return nil
}

// Odds converts a probability to odds. p=1 maps to +Inf, p=0 to 0;
// both are absorbing under likelihood-ratio multiplication.
func Odds(p float64) float64 {
	if p == 1 {
		return math.Inf(1)
	}
	return p / (1 - p)
}

// Probability converts odds back to a probability.
func Probability(odds float64) float64 {
	if math.IsInf(odds, 1) {
		return 1
	}
	return odds / (1 + odds)
}

// UpdateOne applies the evidence to a single prior in encounter order.
// Items without a likelihood ratio are non-informative and skipped.
func UpdateOne(prior float64, evidence []model.EvidenceItem) (float64, error) {
	if err := CheckProbability(prior); err != nil {
		return 0, err
	}

	odds := Odds(prior)
	for _, item := range evidence {
		if !item.Informative() {
			continue
		}
		odds *= item.LikelihoodRatio
	}
	return Probability(odds), nil
}

// Update applies the evidence to each prior independently and pools
// the per-class posteriors by arithmetic mean. Mean-of-probabilities
// is a deliberate simplification, not a rigorous pooling rule.
func Update(priors []float64, evidence []model.EvidenceItem) (float64, error) {
	if len(priors) == 0 {
		return 0, fmt.Errorf("no priors to update")
	}

	var sum float64
	for _, prior := range priors {
		posterior, err := UpdateOne(prior, evidence)
		if err != nil {
			return 0, err
		}
		sum += posterior
	}
	return sum / float64(len(priors)), nil
}
