package evidence

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
	"github.com/eppie/foresight/internal/retrieval"
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

func newTestClient(replies ...string) *oracle.Client {
	return oracle.NewClient(&stubOracle{replies: replies},
		model.OracleConfig{Retries: 3, RetryDelay: time.Millisecond}, nil)
}

func newRecordingClient(replies ...string) (*oracle.Client, *stubOracle) {
	stub := &stubOracle{replies: replies}
	client := oracle.NewClient(stub, model.OracleConfig{Retries: 3, RetryDelay: time.Millisecond}, nil)
	return client, stub
}

func TestGatherer_Gather(t *testing.T) {
	client := newTestClient(`[
		{"description": "Forecast agencies predict an active season.", "likelihood_ratio": 2.0},
		{"description": "Sea surface temperatures are above average.", "likelihood_ratio": 1.5},
		{"description": "Background context without a defensible number."}
	]`)

	items, err := New(client, nil).Gather(context.Background(), "clarified")
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if !items[0].Informative() || items[0].LikelihoodRatio != 2.0 {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[2].Informative() {
		t.Error("An item without a ratio must be non-informative")
	}
}

func TestGatherer_EmptyListIsAllowed(t *testing.T) {
	client := newTestClient(`[]`)

	items, err := New(client, nil).Gather(context.Background(), "clarified")
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
}

func TestGatherer_NegativeRatioIsRetried(t *testing.T) {
	client := newTestClient(
		`[{"description": "bad item", "likelihood_ratio": -2}]`,
		`[{"description": "fixed item", "likelihood_ratio": 0.5}]`,
	)

	items, err := New(client, nil).Gather(context.Background(), "clarified")
	if err != nil {
		t.Fatalf("Expected the repair loop to recover, got %v", err)
	}
	if len(items) != 1 || items[0].LikelihoodRatio != 0.5 {
		t.Errorf("Unexpected items: %+v", items)
	}
}

func TestGatherer_ExplicitZeroRatioIsRetried(t *testing.T) {
	// A supplied zero is not the same as an omitted ratio; the oracle
	// must either justify a positive number or drop the field.
	client := newTestClient(
		`[{"description": "hedged item", "likelihood_ratio": 0}]`,
		`[{"description": "hedged item"}]`,
	)

	items, err := New(client, nil).Gather(context.Background(), "clarified")
	if err != nil {
		t.Fatalf("Expected the repair loop to recover, got %v", err)
	}
	if len(items) != 1 || items[0].Informative() {
		t.Errorf("Expected one non-informative item, got %+v", items)
	}
}

func TestGatherer_EmptyDescriptionIsContractViolation(t *testing.T) {
	bad := `[{"description": "   ", "likelihood_ratio": 2}]`
	client := newTestClient(bad, bad, bad)

	_, err := New(client, nil).Gather(context.Background(), "clarified")
	if !oracle.IsContractError(err) {
		t.Fatalf("Expected a ContractError, got %v", err)
	}
}

type stubSource struct {
	docs []retrieval.Document
	err  error
}

func (s *stubSource) Retrieve(_ context.Context, _ string, _ int) ([]retrieval.Document, error) {
	return s.docs, s.err
}

func TestGatherer_IncludesRetrievedDocuments(t *testing.T) {
	client, stub := newRecordingClient(`[{"description": "grounded item", "likelihood_ratio": 2}]`)
	source := &stubSource{docs: []retrieval.Document{
		{SourceName: "noaa.gov", SourceURL: "https://noaa.gov/data", Text: "42 storms recorded since 1924."},
	}}

	gatherer := New(client, nil).WithDocuments(source, 3)
	if _, err := gatherer.Gather(context.Background(), "clarified"); err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	user := stub.requests[0].User
	for _, want := range []string{"noaa.gov", "42 storms recorded since 1924."} {
		if !strings.Contains(user, want) {
			t.Errorf("Expected %q in the prompt, got %q", want, user)
		}
	}
}

func TestGatherer_RetrievalFailureIsNonFatal(t *testing.T) {
	client, stub := newRecordingClient(`[{"description": "item", "likelihood_ratio": 1.5}]`)
	source := &stubSource{err: fmt.Errorf("search API down")}

	gatherer := New(client, nil).WithDocuments(source, 3)
	items, err := gatherer.Gather(context.Background(), "clarified")
	if err != nil {
		t.Fatalf("Expected retrieval failure to be non-fatal, got %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected the oracle-only items, got %+v", items)
	}
	if strings.Contains(stub.requests[0].User, "Context documents") {
		t.Error("Expected no document section after a retrieval failure")
	}
}

func TestGatherer_ObjectReplyIsContractViolation(t *testing.T) {
	bad := `{"description": "not an array"}`
	client := newTestClient(bad, bad, bad)

	_, err := New(client, nil).Gather(context.Background(), "clarified")
	if !oracle.IsContractError(err) {
		t.Fatalf("Expected a ContractError, got %v", err)
	}
}
