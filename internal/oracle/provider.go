package oracle

import "context"

// ChatRequest is one prompt for the reasoning oracle.
type ChatRequest struct {
	// System is the system prompt framing the task.
	System string

	// User is the user prompt with the actual question.
	User string

	// JSON asks the backend to constrain the reply to JSON where the
	// backend supports a native JSON mode. Backends without one rely on
	// the structured client's retry-and-repair loop instead.
	JSON bool
}

// Provider defines the interface for reasoning-oracle backends.
// The oracle is a black box: given a prompt it returns text that may
// or may not conform to what the caller asked for.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Chat sends one prompt and returns the raw reply text
	Chat(ctx context.Context, req ChatRequest) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}
