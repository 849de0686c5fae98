// Package baserate measures the historical base rate for each
// candidate reference class (Step 2.2 of the workflow).
package baserate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
	"github.com/eppie/foresight/internal/worker"
)

const systemPrompt = `You are an expert super-forecaster performing Step 2.2 - Measure the base rate.
For the reference class below, return ONLY valid JSON with:

- reasoning        : 2-4 sentences on how you located / computed the numbers
                     and why they are reliable. Include source titles (no URLs).
- numerator        : int   (omit if not a proportion)
- denominator      : int   (omit if not a proportion)
- frequency        : float 0-1 (omit if not a proportion)
- lambda           : float (Poisson annual rate, omit if N/A)
- distribution     : object { "median": float, "p5": float, "p95": float }
                     (omit if not continuous)
- quality_score    : float 0-1 heuristic confidence

### Few-shot examples

1. Binary - presidential assassination
{
  "reasoning": "Counted 4 assassinations among 46 completed U.S. presidencies using Wikipedia lists; gives an 8.7% frequency.",
  "numerator": 4,
  "denominator": 46,
  "frequency": 0.087,
  "quality_score": 0.9
}

2. Continuous - S&P 500 year-end
{
  "reasoning": "Pulled year-end closes 1974-2023, computed median 4570, p5 = 1600, p95 = 7900.",
  "distribution": { "median": 4570, "p5": 1600, "p95": 7900 },
  "quality_score": 0.85
}

3. Count - Cat-5 hurricanes
{
  "reasoning": "NOAA Best Track data list 42 Category-5 Atlantic storms in 101 seasons 1924-2024, so lambda is about 0.42 per season.",
  "lambda": 0.42,
  "quality_score": 0.8
}

### Instructions
1. Think step-by-step internally but output only JSON.
2. Provide whichever fields are appropriate; omit the others (do NOT output null).`

// Estimator derives one BaseRate per reference class, one independent
// oracle call each.
type Estimator struct {
	client  *oracle.Client
	workers int
	logger  *slog.Logger
}

// New creates an Estimator. workers bounds the fan-out; 1 keeps calls
// strictly sequential.
func New(client *oracle.Client, workers int, logger *slog.Logger) *Estimator {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{client: client, workers: workers, logger: logger}
}

// wireBaseRate mirrors the oracle's omit-absent-fields reply; pointers
// distinguish absent from zero. It is converted to the tagged variant
// at this boundary so downstream code never sees an inconsistent
// combination.
type wireBaseRate struct {
	Reasoning    string              `json:"reasoning"`
	Numerator    *int                `json:"numerator"`
	Denominator  *int                `json:"denominator"`
	Frequency    *float64            `json:"frequency"`
	Lambda       *float64            `json:"lambda"`
	Distribution *model.Distribution `json:"distribution"`
	QualityScore *float64            `json:"quality_score"`
}

// Estimate measures the base rate for every reference class. A failure
// on any class aborts the whole run; partial results are never
// silently dropped. Calls fan out over a bounded worker pool; results
// keep the input order.
func (e *Estimator) Estimate(ctx context.Context, clarified string, refClasses []model.ReferenceClassItem) ([]model.BaseRate, error) {
	if len(refClasses) == 0 {
		return nil, fmt.Errorf("no reference classes to estimate")
	}

	tasks := make([]worker.Task[model.BaseRate], len(refClasses))
	for i, item := range refClasses {
		tasks[i] = func(ctx context.Context) (model.BaseRate, error) {
			return e.estimateOne(ctx, clarified, item)
		}
	}

	rates, err := worker.RunAll(ctx, e.workers, tasks)
	if err != nil {
		return nil, fmt.Errorf("estimate base rates: %w", err)
	}
	return rates, nil
}

func (e *Estimator) estimateOne(ctx context.Context, clarified string, item model.ReferenceClassItem) (model.BaseRate, error) {
	user := fmt.Sprintf(
		"Clarified question: ```%s```\n\nReference class description: ```%s```\n\nPlease measure the base rate for this class.",
		clarified, item.ReferenceClass,
	)

	var wire wireBaseRate
	err := e.client.QueryObject(ctx, "base_rate", systemPrompt, user, &wire, func() error {
		_, convErr := toBaseRate(item.ReferenceClass, wire)
		return convErr
	})
	if err != nil {
		return model.BaseRate{}, err
	}

	rate, err := toBaseRate(item.ReferenceClass, wire)
	if err != nil {
		return model.BaseRate{}, err
	}

	e.logger.Debug("measured base rate",
		"reference_class", rate.ReferenceClass, "kind", rate.Kind)
	return rate, nil
}

// toBaseRate selects the populated field group. When the oracle
// submits several groups at once, proportion wins over rate over
// distribution: a direct frequency is the most useful prior for the
// odds pipeline. Absence of every group violates the contract.
func toBaseRate(refClass string, wire wireBaseRate) (model.BaseRate, error) {
	rate := model.BaseRate{
		ReferenceClass: refClass,
		Reasoning:      wire.Reasoning,
	}
	if wire.QualityScore != nil {
		if *wire.QualityScore < 0 || *wire.QualityScore > 1 {
			return model.BaseRate{}, fmt.Errorf("quality_score %v outside [0, 1]", *wire.QualityScore)
		}
		rate.QualityScore = *wire.QualityScore
	}

	switch {
	case wire.Frequency != nil || (wire.Numerator != nil && wire.Denominator != nil):
		rate.Kind = model.BaseRateProportion
		if wire.Numerator != nil {
			rate.Numerator = *wire.Numerator
		}
		if wire.Denominator != nil {
			rate.Denominator = *wire.Denominator
		}
		switch {
		case wire.Frequency != nil:
			rate.Frequency = *wire.Frequency
		case rate.Denominator > 0:
			rate.Frequency = float64(rate.Numerator) / float64(rate.Denominator)
		default:
			return model.BaseRate{}, fmt.Errorf("proportion base rate needs frequency or a positive denominator")
		}
		if rate.Frequency < 0 || rate.Frequency > 1 {
			return model.BaseRate{}, fmt.Errorf("frequency %v outside [0, 1]", rate.Frequency)
		}

	case wire.Lambda != nil:
		if *wire.Lambda < 0 {
			return model.BaseRate{}, fmt.Errorf("lambda %v must be non-negative", *wire.Lambda)
		}
		rate.Kind = model.BaseRateRate
		rate.Lambda = *wire.Lambda

	case wire.Distribution != nil:
		rate.Kind = model.BaseRateDistribution
		rate.Distribution = wire.Distribution

	default:
		return model.BaseRate{}, fmt.Errorf("no field group present: need frequency, lambda, or distribution")
	}

	return rate, nil
}
