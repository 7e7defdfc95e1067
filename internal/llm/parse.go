package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"market-signal-bot/internal/types"
)

const (
	MinConfidence  = 50
	MaxConfidence  = 100
	MaxReasonRunes = 70
)

// ParseError reports an oracle reply that does not match the decision contract.
type ParseError struct {
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid decision: %s: %v", e.Reason, e.Err)
	}
	return "invalid decision: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

type rawDecision struct {
	Verdict    *string `json:"verdict"`
	Confidence *int    `json:"confidence"`
	Reason     *string `json:"reason"`
}

// ParseDecision accepts exactly one JSON object with the keys verdict,
// confidence and reason. Anything else is a *ParseError.
func ParseDecision(text string) (types.Decision, error) {
	trimmed := strings.TrimSpace(text)
	fail := func(reason string, err error) (types.Decision, error) {
		return types.Decision{}, &ParseError{Text: trimmed, Reason: reason, Err: err}
	}
	if trimmed == "" {
		return fail("empty reply", nil)
	}
	if !strings.HasPrefix(trimmed, "{") {
		return fail("reply is not a JSON object", nil)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.DisallowUnknownFields()
	var raw rawDecision
	if err := dec.Decode(&raw); err != nil {
		return fail("malformed JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fail("trailing data after object", err)
	}

	switch {
	case raw.Verdict == nil:
		return fail("missing verdict", nil)
	case raw.Confidence == nil:
		return fail("missing confidence", nil)
	case raw.Reason == nil:
		return fail("missing reason", nil)
	}

	v := types.Verdict(*raw.Verdict)
	if v != types.Buy && v != types.Sell && v != types.Wait {
		return fail(fmt.Sprintf("verdict %q not in BUY|SELL|WAIT", *raw.Verdict), nil)
	}
	if c := *raw.Confidence; c < MinConfidence || c > MaxConfidence {
		return fail(fmt.Sprintf("confidence %d outside %d..%d", c, MinConfidence, MaxConfidence), nil)
	}
	reason := strings.TrimSpace(*raw.Reason)
	if reason == "" {
		return fail("empty reason", nil)
	}
	if n := utf8.RuneCountInString(reason); n > MaxReasonRunes {
		return fail(fmt.Sprintf("reason has %d runes, max %d", n, MaxReasonRunes), nil)
	}

	return types.Decision{Verdict: v, Confidence: *raw.Confidence, Reason: reason}, nil
}
