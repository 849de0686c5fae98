package baserate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

type stubOracle struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (s *stubOracle) Name() string                       { return "stub" }
func (s *stubOracle) IsAvailable(_ context.Context) bool { return true }
func (s *stubOracle) Chat(_ context.Context, _ oracle.ChatRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.replies) {
		return "", fmt.Errorf("no reply scripted for call %d", s.calls)
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func newTestClient(replies ...string) *oracle.Client {
	return oracle.NewClient(&stubOracle{replies: replies},
		model.OracleConfig{Retries: 3, RetryDelay: time.Millisecond}, nil)
}

func classes(labels ...string) []model.ReferenceClassItem {
	items := make([]model.ReferenceClassItem, len(labels))
	for i, label := range labels {
		items[i] = model.ReferenceClassItem{ReferenceClass: label}
	}
	return items
}

func TestEstimator_ProportionKind(t *testing.T) {
	client := newTestClient(`{
		"reasoning": "4 of 46 presidencies.",
		"numerator": 4,
		"denominator": 46,
		"frequency": 0.087,
		"quality_score": 0.9
	}`)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("US presidencies"))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	rate := rates[0]
	if rate.Kind != model.BaseRateProportion {
		t.Fatalf("Expected proportion kind, got %v", rate.Kind)
	}
	if rate.Numerator != 4 || rate.Denominator != 46 {
		t.Errorf("Unexpected counts: %d/%d", rate.Numerator, rate.Denominator)
	}
	if rate.Frequency != 0.087 {
		t.Errorf("Expected frequency 0.087, got %v", rate.Frequency)
	}
	if rate.ReferenceClass != "US presidencies" {
		t.Errorf("Expected the class label attached, got %q", rate.ReferenceClass)
	}
	if prior, ok := rate.Prior(); !ok || prior != 0.087 {
		t.Errorf("Expected a usable prior, got %v %v", prior, ok)
	}
}

func TestEstimator_FrequencyDerivedFromCounts(t *testing.T) {
	client := newTestClient(`{"numerator": 1, "denominator": 4}`)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("c"))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if rates[0].Frequency != 0.25 {
		t.Errorf("Expected derived frequency 0.25, got %v", rates[0].Frequency)
	}
}

func TestEstimator_RateKind(t *testing.T) {
	client := newTestClient(`{"reasoning": "42 storms in 101 seasons.", "lambda": 0.42, "quality_score": 0.8}`)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("seasons"))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if rates[0].Kind != model.BaseRateRate || rates[0].Lambda != 0.42 {
		t.Errorf("Unexpected rate: %+v", rates[0])
	}
	if _, ok := rates[0].Prior(); ok {
		t.Error("A Poisson rate must not offer a direct prior")
	}
}

func TestEstimator_DistributionKind(t *testing.T) {
	client := newTestClient(`{"distribution": {"median": 4570, "p5": 1600, "p95": 7900}, "quality_score": 0.85}`)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("year-end closes"))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	rate := rates[0]
	if rate.Kind != model.BaseRateDistribution || rate.Distribution == nil {
		t.Fatalf("Expected a distribution, got %+v", rate)
	}
	if rate.Distribution.Median != 4570 || rate.Distribution.P5 != 1600 || rate.Distribution.P95 != 7900 {
		t.Errorf("Unexpected distribution: %+v", rate.Distribution)
	}
}

func TestEstimator_ProportionWinsOverOtherGroups(t *testing.T) {
	client := newTestClient(`{"frequency": 0.3, "lambda": 1.5, "distribution": {"median": 1, "p5": 0, "p95": 2}}`)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("c"))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if rates[0].Kind != model.BaseRateProportion {
		t.Errorf("Expected proportion to win, got %v", rates[0].Kind)
	}
}

func TestEstimator_MissingGroupIsRetried(t *testing.T) {
	client := newTestClient(
		`{"reasoning": "could not find numbers"}`,
		`{"frequency": 0.1}`,
	)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("c"))
	if err != nil {
		t.Fatalf("Expected the repair loop to recover, got %v", err)
	}
	if rates[0].Frequency != 0.1 {
		t.Errorf("Expected frequency 0.1, got %v", rates[0].Frequency)
	}
}

func TestEstimator_RepairedReplyMaySwitchFieldGroup(t *testing.T) {
	// An out-of-range frequency is corrected by a lambda-only reply;
	// nothing from the rejected attempt may stick to the result.
	client := newTestClient(
		`{"frequency": 2.0}`,
		`{"lambda": 0.42}`,
	)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("c"))
	if err != nil {
		t.Fatalf("Expected the repaired reply accepted, got %v", err)
	}
	if rates[0].Kind != model.BaseRateRate {
		t.Fatalf("Expected rate kind, got %v", rates[0].Kind)
	}
	if rates[0].Lambda != 0.42 {
		t.Errorf("Expected lambda 0.42, got %v", rates[0].Lambda)
	}
	if rates[0].Frequency != 0 {
		t.Errorf("Expected no frequency carried over, got %v", rates[0].Frequency)
	}
}

func TestEstimator_InvalidFrequencyIsContractViolation(t *testing.T) {
	bad := `{"frequency": 1.3}`
	client := newTestClient(bad, bad, bad)

	_, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("c"))
	if !oracle.IsContractError(err) {
		t.Fatalf("Expected a ContractError, got %v", err)
	}
}

func TestEstimator_FailureAbortsWholeRun(t *testing.T) {
	bad := "no json here"
	client := newTestClient(`{"frequency": 0.2}`, bad, bad, bad)

	_, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("a", "b"))
	if err == nil {
		t.Fatal("Expected the second class failure to abort the run")
	}
}

func TestEstimator_KeepsInputOrder(t *testing.T) {
	client := newTestClient(`{"frequency": 0.1}`, `{"frequency": 0.2}`, `{"frequency": 0.3}`)

	rates, err := New(client, 1, nil).Estimate(context.Background(), "q", classes("a", "b", "c"))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	for i, want := range []float64{0.1, 0.2, 0.3} {
		if rates[i].Frequency != want {
			t.Errorf("Rate %d: expected %v, got %v", i, want, rates[i].Frequency)
		}
	}
}

func TestEstimator_NoClasses(t *testing.T) {
	client := newTestClient()
	if _, err := New(client, 1, nil).Estimate(context.Background(), "q", nil); err == nil {
		t.Fatal("Expected an error with no reference classes")
	}
}
