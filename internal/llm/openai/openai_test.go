package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/llm"
	"market-signal-bot/internal/store"
	"market-signal-bot/internal/types"
)

func newTestDecider(t *testing.T, reply string, status int) (*OpenAIDecider, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("GROQ_API_KEY", "test-key")
	cfg, err := store.Default()
	require.NoError(t, err)
	cfg.LLM.Endpoint = srv.URL + "/openai/v1/chat/completions"
	return NewOpenAIDecider(cfg), &got
}

func TestDecideParsesReply(t *testing.T) {
	d, req := newTestDecider(t, `{"verdict":"SELL","confidence":88,"reason":"MACD crossed down"}`, http.StatusOK)

	dec, err := d.Decide(context.Background(), "GBP/USD", types.Snapshot{Price: 1.27, Limited: true}, "headline")
	require.NoError(t, err)
	assert.Equal(t, types.Decision{Verdict: types.Sell, Confidence: 88, Reason: "MACD crossed down"}, dec)

	assert.Equal(t, "llama-3.1-8b-instant", req.Model)
	assert.Equal(t, 120, req.MaxTokens)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.DefaultSystem, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "Asset: GBP/USD")
}

func TestDecideRejectsMalformedReply(t *testing.T) {
	d, _ := newTestDecider(t, "Verdict: BUY\nConfidence: 90%", http.StatusOK)

	_, err := d.Decide(context.Background(), "EUR/USD", types.Snapshot{}, "")
	var pe *llm.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestDecideSurfacesHTTPError(t *testing.T) {
	d, _ := newTestDecider(t, "", http.StatusTooManyRequests)

	_, err := d.Decide(context.Background(), "EUR/USD", types.Snapshot{}, "")
	var he *api.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
}

func TestDecideWithoutKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := store.Default()
	require.NoError(t, err)

	_, err = NewOpenAIDecider(cfg).Decide(context.Background(), "EUR/USD", types.Snapshot{}, "")
	assert.ErrorContains(t, err, "GROQ_API_KEY")
}
