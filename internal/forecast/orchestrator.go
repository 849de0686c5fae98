// Package forecast sequences the full forecasting workflow: clarify,
// choose reference classes, measure base rates, decompose, gather
// evidence, update, audit, record.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eppie/foresight/internal/bayes"
	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

// Clarifier turns raw text into a well-formed Question.
type Clarifier interface {
	Clarify(ctx context.Context, raw string) (model.Question, error)
}

// ClassSelector proposes candidate reference classes.
type ClassSelector interface {
	Select(ctx context.Context, clarified string) ([]model.ReferenceClassItem, error)
}

// RateEstimator measures a base rate per reference class.
type RateEstimator interface {
	Estimate(ctx context.Context, clarified string, refClasses []model.ReferenceClassItem) ([]model.BaseRate, error)
}

// Decomposer runs the inside-view reasoning loop.
type Decomposer interface {
	Decompose(ctx context.Context, question string) (*model.Decomposition, error)
}

// Gatherer collects evidence items.
type Gatherer interface {
	Gather(ctx context.Context, clarified string) ([]model.EvidenceItem, error)
}

// Auditor sanity-checks the posterior and returns a bias critique.
type Auditor interface {
	Audit(ctx context.Context, posterior float64, baseRates []model.BaseRate, question model.Question, decomposition *model.Decomposition, items []model.EvidenceItem) (string, error)
}

// RecordSink persists the final audit trail.
type RecordSink interface {
	Record(record model.ForecastRecord) error
}

// Stages bundles the workflow components. Decomposer may be nil to
// skip the inside-view loop.
type Stages struct {
	Clarifier  Clarifier
	Selector   ClassSelector
	Estimator  RateEstimator
	Decomposer Decomposer
	Gatherer   Gatherer
	Auditor    Auditor
	Recorder   RecordSink
}

// Orchestrator runs the workflow end to end. Every stage after
// clarification sees only the clarified question text, not the full
// Question record.
type Orchestrator struct {
	stages Stages
	client *oracle.Client
	logger *slog.Logger
}

// New creates an Orchestrator. client is used for the final rationale
// request.
func New(stages Stages, client *oracle.Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{stages: stages, client: client, logger: logger}
}

// Run executes the workflow for one raw question and returns the
// persisted record. Any stage failure aborts the run; component-level
// retries are the only retries performed.
func (o *Orchestrator) Run(ctx context.Context, raw string) (*model.ForecastRecord, error) {
	question, err := o.stages.Clarifier.Clarify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("clarify: %w", err)
	}
	o.logger.Debug("clarified question",
		"clarified", question.ClarifiedText, "variable_type", question.VariableType)

	refClasses, err := o.stages.Selector.Select(ctx, question.ClarifiedText)
	if err != nil {
		return nil, fmt.Errorf("select reference classes: %w", err)
	}
	o.logger.Debug("selected reference classes", "count", len(refClasses))

	baseRates, err := o.stages.Estimator.Estimate(ctx, question.ClarifiedText, refClasses)
	if err != nil {
		return nil, fmt.Errorf("measure base rates: %w", err)
	}

	var decomposition *model.Decomposition
	if o.stages.Decomposer != nil {
		decomposition, err = o.stages.Decomposer.Decompose(ctx, question.ClarifiedText)
		if err != nil {
			return nil, fmt.Errorf("decompose: %w", err)
		}
	}

	items, err := o.stages.Gatherer.Gather(ctx, question.ClarifiedText)
	if err != nil {
		return nil, fmt.Errorf("gather evidence: %w", err)
	}

	priors := collectPriors(baseRates)
	if len(priors) == 0 {
		return nil, &oracle.ContractError{
			Op:     "base_rate",
			Reason: "no proportion base rates to form a prior",
		}
	}

	posterior, err := bayes.Update(priors, items)
	if err != nil {
		return nil, fmt.Errorf("update prior: %w", err)
	}
	o.logger.Debug("updated prior", "priors", priors, "posterior", posterior)

	rationale, rounded, err := o.ProduceForecast(ctx, posterior, question)
	if err != nil {
		return nil, err
	}

	critique, err := o.stages.Auditor.Audit(ctx, posterior, baseRates, question, decomposition, items)
	if err != nil {
		return nil, fmt.Errorf("sanity audit: %w", err)
	}

	record := model.ForecastRecord{
		ID:            uuid.NewString(),
		Question:      question,
		BaseRates:     baseRates,
		Decomposition: decomposition,
		Evidence:      items,
		Probability:   posterior, // raw value persisted; Rounded is for display
		Rounded:       rounded,
		Rationale:     rationale,
		Critique:      critique,
		Timestamp:     time.Now().UTC(),
	}

	if err := o.stages.Recorder.Record(record); err != nil {
		return nil, fmt.Errorf("record forecast: %w", err)
	}

	return &record, nil
}

// ProduceForecast validates the probability, requests a one-sentence
// rationale, and returns the rationale together with the probability
// rounded to two decimals for reporting. Out-of-range probabilities
// are fatal and never clamped.
func (o *Orchestrator) ProduceForecast(ctx context.Context, probability float64, question model.Question) (rationale string, rounded float64, err error) {
	if err := bayes.CheckProbability(probability); err != nil {
		return "", 0, err
	}
	rounded = math.Round(probability*100) / 100

	if o.client != nil {
		const system = `You are an expert super-forecaster. State in ONE sentence the main reason for the forecast below. Output only that sentence.`
		user := fmt.Sprintf("Question: ```%s```\nForecast probability: %.2f", question.ClarifiedText, rounded)

		text, rErr := o.client.QueryText(ctx, "rationale", system, user)
		if rErr != nil {
			return "", 0, fmt.Errorf("request rationale: %w", rErr)
		}
		rationale = strings.TrimSpace(text)
	}

	return rationale, rounded, nil
}

// collectPriors extracts the probabilities the updater can work with:
// the frequencies of proportion base rates.
func collectPriors(baseRates []model.BaseRate) []float64 {
	var priors []float64
	for _, rate := range baseRates {
		if prior, ok := rate.Prior(); ok {
			priors = append(priors, prior)
		}
	}
	return priors
}
