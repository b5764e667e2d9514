// Package openai talks to an OpenAI-compatible chat completion API using the
// official OpenAI Go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/llm"
)

const (
	// ProviderName is the name of this provider in logs.
	ProviderName = "openai"
	// DefaultAPIKeyEnv is the environment variable holding the API key.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

// Config is the provider configuration. It is read once at startup.
type Config struct {
	// APIKey authenticates requests. An empty key is allowed; calls will fail.
	APIKey string

	// BaseURL overrides the API endpoint (e.g., a local OpenAI-compatible server).
	BaseURL string
}

// Client streams chat completions and lists models.
type Client struct {
	client *openai.Client
	logger *zap.Logger
}

// NewClient creates a client from an explicit configuration.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if config.APIKey == "" {
		logger.Warn("no API key configured, provider calls will fail",
			zap.String("env", DefaultAPIKeyEnv),
		)
	} else {
		logger.Info("API key configured", zap.String("prefix", keyPrefix(config.APIKey)))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// a failed turn is reported to the user, never retried
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client: &client,
		logger: logger,
	}
}

// StreamCompletion starts a streaming chat completion. Connection and HTTP
// errors surface through the returned stream's Err.
func (c *Client) StreamCompletion(ctx context.Context, req *llm.ChatRequest) (llm.FragmentStream, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       req.Model,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}

	c.logger.Debug("opening completion stream",
		zap.String("provider", ProviderName),
		zap.String("model", req.Model),
		zap.Int("messages_count", len(req.Messages)),
	)

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	return &fragmentStream{stream: stream, logger: c.logger}, nil
}

// ListModels returns the identifiers of the models the provider offers, in
// the order the provider reports them.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		logStatus(c.logger, err)
		return nil, fmt.Errorf("list models: %w", err)
	}

	ids := make([]string, 0, len(page.Data))
	for _, model := range page.Data {
		ids = append(ids, model.ID)
	}

	c.logger.Debug("listed models", zap.Strings("models", ids))
	return ids, nil
}

func convertMessages(messages []llm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			return nil, fmt.Errorf("%w: %q", llm.ErrInvalidRole, msg.Role)
		}
	}
	return out, nil
}

// fragmentStream adapts the SDK's server-sent event stream to llm.FragmentStream.
type fragmentStream struct {
	stream   *ssestream.Stream[openai.ChatCompletionChunk]
	logger   *zap.Logger
	fragment string
}

func (s *fragmentStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		s.fragment = chunk.Choices[0].Delta.Content
		s.logger.Debug("received chunk",
			zap.String("id", chunk.ID),
			zap.Int("length", len(s.fragment)),
		)
		return true
	}
	s.fragment = ""
	return false
}

func (s *fragmentStream) Fragment() string {
	return s.fragment
}

func (s *fragmentStream) Err() error {
	err := s.stream.Err()
	if err != nil {
		logStatus(s.logger, err)
	}
	return err
}

func (s *fragmentStream) Close() error {
	return s.stream.Close()
}

// logStatus records the HTTP status of provider API errors. Callers treat all
// provider failures alike; the status is only for operators.
func logStatus(logger *zap.Logger, err error) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		logger.Warn("provider API error",
			zap.String("provider", ProviderName),
			zap.Int("status", apiErr.StatusCode),
		)
	}
}

func keyPrefix(key string) string {
	if len(key) <= 5 {
		return "*****"
	}
	return key[:5] + "..."
}
