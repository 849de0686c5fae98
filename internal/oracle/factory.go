package oracle

import (
	"fmt"
	"strings"

	"github.com/eppie/foresight/internal/model"
)

// NewProvider creates a new oracle provider based on configuration
func NewProvider(config model.OracleConfig) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIOracle(config)

	case "ollama":
		return NewOllamaOracle(config)

	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: openai, ollama)", config.Provider)
	}
}
