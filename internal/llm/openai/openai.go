package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/llm"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/trace"
	"market-signal-bot/internal/types"
)

const DefaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// OpenAIDecider talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIDecider struct {
	cfg      *store.Config
	client   *api.Client
	endpoint string
	apiKey   string
}

func NewOpenAIDecider(cfg *store.Config) *OpenAIDecider {
	endpoint := cfg.LLM.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	timeout := cfg.Market.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIDecider{
		cfg:      cfg,
		client:   api.NewClient(api.WithTimeout(timeout), api.WithLogging(true)),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (d *OpenAIDecider) Decide(ctx context.Context, symbol string, snap types.Snapshot, news string) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if d.apiKey == "" {
		return types.Decision{}, fmt.Errorf("%s missing", d.cfg.LLM.APIKeyEnv)
	}

	system := d.cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystem
	}
	body := chatRequest{
		Model: d.cfg.LLM.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: llm.BuildPrompt(symbol, snap, news)},
		},
		Temperature: d.cfg.LLM.Temperature,
		MaxTokens:   d.cfg.LLM.MaxTokens,
	}

	resp, err := d.client.POST(ctx, d.endpoint, body, map[string]string{"Authorization": "Bearer " + d.apiKey})
	if err != nil {
		return types.Decision{}, fmt.Errorf("chat completion: %w", err)
	}

	var r chatResponse
	if err := resp.ParseJSON(&r); err != nil {
		return types.Decision{}, err
	}
	if len(r.Choices) == 0 {
		return types.Decision{}, errors.New("no choices")
	}

	return llm.ParseDecision(strings.TrimSpace(r.Choices[0].Message.Content))
}
