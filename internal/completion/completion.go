// Package completion wraps an OpenAI-compatible chat model behind a single
// Complete call used by kiosk chat.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/openclaw/checkin-kiosk-go/internal/model"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultTimeout   = 30 * time.Second
	defaultRate      = 1.0
	defaultBurst     = 5
	defaultMaxTokens = 512
)

var (
	ErrDisabled    = errors.New("completion: no API key configured")
	ErrEmptyResult = errors.New("completion: model returned no choices")
)

type Completer interface {
	Complete(ctx context.Context, system string, history []model.Turn, message string) (string, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	RatePerSec float64
}

// generator is the langchaingo surface Client uses.
type generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Client struct {
	llm     generator
	limiter *rate.Limiter
	timeout time.Duration
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRate
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	return &Client{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), defaultBurst),
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) Complete(ctx context.Context, system string, history []model.Turn, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("completion rate limit: %w", err)
	}

	resp, err := c.llm.GenerateContent(ctx, BuildMessages(system, history, message),
		llms.WithMaxTokens(defaultMaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResult
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// BuildMessages orders the prompt as system, prior turns, then the new
// user message.
func BuildMessages(system string, history []model.Turn, message string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	if system != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	for _, turn := range history {
		role := schema.ChatMessageTypeHuman
		if turn.Role == model.TurnRoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	return append(messages, llms.TextParts(schema.ChatMessageTypeHuman, message))
}

// Disabled fails every call. It stands in when no API key is configured so
// the rest of the kiosk keeps working.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, []model.Turn, string) (string, error) {
	return "", ErrDisabled
}
