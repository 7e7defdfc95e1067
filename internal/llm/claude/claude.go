package claude

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/llm"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/trace"
	"market-signal-bot/internal/types"
)

const (
	defaultEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// ClaudeDecider implements the Decider interface using the Anthropic Messages API
type ClaudeDecider struct {
	cfg      *store.Config
	client   *api.Client
	endpoint string
	apiKey   string
}

// NewClaudeDecider creates a new Claude-based decider
func NewClaudeDecider(cfg *store.Config) *ClaudeDecider {
	endpoint := defaultEndpoint
	// proxies and gateways override the endpoint
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	timeout := cfg.Market.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClaudeDecider{
		cfg:      cfg,
		client:   api.NewClient(api.WithTimeout(timeout), api.WithLogging(true)),
		endpoint: endpoint,
		apiKey:   os.Getenv("CLAUDE_API_KEY"),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Decide makes a trading decision using Claude's API
func (d *ClaudeDecider) Decide(ctx context.Context, symbol string, snap types.Snapshot, news string) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if d.apiKey == "" {
		return types.Decision{}, errors.New("CLAUDE_API_KEY missing")
	}

	system := d.cfg.LLM.System
	if system == "" {
		system = llm.DefaultSystem
	}
	reqBody := messagesRequest{
		Model:       d.cfg.LLM.Model,
		System:      system,
		Messages:    []message{{Role: "user", Content: llm.BuildPrompt(symbol, snap, news)}},
		MaxTokens:   d.cfg.LLM.MaxTokens,
		Temperature: d.cfg.LLM.Temperature,
	}

	resp, err := d.client.POST(ctx, d.endpoint, reqBody, map[string]string{
		"x-api-key":         d.apiKey,
		"anthropic-version": anthropicVersion,
	})
	if err != nil {
		return types.Decision{}, fmt.Errorf("claude messages: %w", err)
	}

	var r messagesResponse
	if err := resp.ParseJSON(&r); err != nil {
		return types.Decision{}, err
	}
	for _, block := range r.Content {
		if block.Type == "text" || block.Type == "" {
			return llm.ParseDecision(block.Text)
		}
	}
	return types.Decision{}, errors.New("claude reply had no text content")
}
