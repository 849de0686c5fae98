package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/eppie/foresight/internal/model"
	"github.com/sashabaranov/go-openai"
)

// OpenAIOracle implements the Provider interface on the OpenAI Chat
// Completions API. A custom BaseURL also covers LM Studio and
// llama.cpp servers, which speak the same protocol.
type OpenAIOracle struct {
	client *openai.Client
	config model.OracleConfig
}

// NewOpenAIOracle creates a new OpenAI-backed oracle
func NewOpenAIOracle(config model.OracleConfig) (*OpenAIOracle, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIOracle{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (o *OpenAIOracle) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (o *OpenAIOracle) IsAvailable(ctx context.Context) bool {
	_, err := o.client.ListModels(ctx)
	return err == nil
}

// Chat sends one prompt and returns the assistant reply text
func (o *OpenAIOracle) Chat(ctx context.Context, req ChatRequest) (string, error) {
	mdl := o.config.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}

	maxTokens := o.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	chatReq := openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3, // focused, repeatable estimates
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	callCtx := ctx
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	resp, err := o.client.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
