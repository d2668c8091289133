package llm

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIChat calls an OpenAI-compatible chat-completions endpoint.
type OpenAIChat struct {
	client      openai.Client
	modelID     string
	maxTokens   int64
	temperature float64
}

// Config configures the chat client.
type Config struct {
	ModelID   string
	BaseURL   string
	APIKey    string
	MaxTokens int64
}

// NewOpenAIChat creates the chat client. Temperature is pinned to 0 so
// retrieval-augmented answers stay reproducible.
func NewOpenAIChat(cfg Config) *OpenAIChat {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &OpenAIChat{
		client:    openai.NewClient(opts...),
		modelID:   cfg.ModelID,
		maxTokens: maxTokens,
	}
}

// Verify interface implementation at compile time.
var _ LLM = (*OpenAIChat)(nil)

// Generate returns the completion for prompt, or an in-band failure string.
func (o *OpenAIChat) Generate(ctx context.Context, prompt string) string {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.modelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful assistant."),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(o.maxTokens),
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		slog.Error("llm_call_failed", slog.String("error", err.Error()))
		return FailurePrefixGenerate + ": " + err.Error()
	}
	if len(resp.Choices) == 0 {
		return FailurePrefixAPI + ": 响应中没有候选输出"
	}
	return resp.Choices[0].Message.Content
}
