package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/eppie/foresight/internal/bayes"
	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

type stubOracle struct {
	replies  []string
	requests []oracle.ChatRequest
}

func (s *stubOracle) Name() string                       { return "stub" }
func (s *stubOracle) IsAvailable(_ context.Context) bool { return true }
func (s *stubOracle) Chat(_ context.Context, req oracle.ChatRequest) (string, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i >= len(s.replies) {
		return "", fmt.Errorf("no reply scripted for call %d", i)
	}
	return s.replies[i], nil
}

func newTestClient(replies ...string) (*oracle.Client, *stubOracle) {
	stub := &stubOracle{replies: replies}
	client := oracle.NewClient(stub, model.OracleConfig{Retries: 3, RetryDelay: time.Millisecond}, nil)
	return client, stub
}

func TestAuditor_Audit(t *testing.T) {
	client, stub := newTestClient("The forecast leans too hard on one vivid data point.")

	question := model.Question{ClarifiedText: "Will the event happen by 2026-12-31?"}
	baseRates := []model.BaseRate{
		{ReferenceClass: "historical seasons", Kind: model.BaseRateProportion, Frequency: 0.3, Reasoning: "30 of 100 seasons."},
	}
	items := []model.EvidenceItem{
		{Description: "active season forecast", LikelihoodRatio: 2},
		{Description: "context item"},
	}
	decomposition := &model.Decomposition{FinalAnswer: "around 0.5"}

	critique, err := New(client, nil).Audit(context.Background(), 0.46, baseRates, question, decomposition, items)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if critique != "The forecast leans too hard on one vivid data point." {
		t.Errorf("Unexpected critique: %q", critique)
	}

	// The critique prompt must carry the full audit context.
	user := stub.requests[0].User
	for _, fragment := range []string{
		"Will the event happen by 2026-12-31?",
		"0.4600",
		"historical seasons",
		"around 0.5",
		"active season forecast (LR 2.00)",
		"context item",
	} {
		if !strings.Contains(user, fragment) {
			t.Errorf("Expected the prompt to contain %q", fragment)
		}
	}
}

func TestAuditor_NilDecomposition(t *testing.T) {
	client, stub := newTestClient("fine")

	_, err := New(client, nil).Audit(context.Background(), 0.5, nil, model.Question{ClarifiedText: "q"}, nil, nil)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if strings.Contains(stub.requests[0].User, "Decomposition conclusion") {
		t.Error("Expected no decomposition section without a trace")
	}
}

func TestAuditor_OutOfRangePosteriorIsFatal(t *testing.T) {
	client, _ := newTestClient("never asked")

	_, err := New(client, nil).Audit(context.Background(), 1.7, nil, model.Question{}, nil, nil)
	var rangeErr *bayes.RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("Expected a RangeError, got %v", err)
	}
}
