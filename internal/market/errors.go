package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"market-signal-bot/internal/api"
	"market-signal-bot/internal/types"
)

// ErrorKind is decided once, at the provider boundary.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindTransient
	KindQuota
	KindData
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuota:
		return "quota"
	case KindData:
		return "data"
	default:
		return "other"
	}
}

var (
	ErrNoData           = errors.New("no data")
	ErrInsufficientBars = errors.New("insufficient bars")
	ErrNotConfigured    = errors.New("provider not configured")
)

// quotaMarkers are matched case-insensitively against provider error text.
var quotaMarkers = []string{"429", "credits", "limit", "quota"}

type ProviderError struct {
	Provider types.ProviderID
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ChainError collects one failure per provider tried for a symbol.
type ChainError struct {
	Symbol   string
	Failures []*ProviderError
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("all providers failed for %s: %s", e.Symbol, strings.Join(parts, "; "))
}

func (e *ChainError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Quota reports whether any provider in the chain refused on quota.
func (e *ChainError) Quota() bool {
	for _, f := range e.Failures {
		if f.Kind == KindQuota {
			return true
		}
	}
	return false
}

// IsQuota reports whether err is a quota or rate-limit refusal from the data layer.
func IsQuota(err error) bool {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Quota()
	}
	return KindOf(err) == KindQuota
}

// KindOf returns the kind of the first ProviderError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

func classify(p types.ProviderID, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Provider: p, Kind: kindFor(err), Err: err}
}

func kindFor(err error) ErrorKind {
	var he *api.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == 429:
			return KindQuota
		case he.Temporary():
			return KindTransient
		case hasQuotaMarker(string(he.Body)):
			return KindQuota
		default:
			return KindOther
		}
	}
	if errors.Is(err, ErrNoData) || errors.Is(err, ErrInsufficientBars) {
		return KindData
	}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return KindData
	}
	if errors.Is(err, context.Canceled) {
		return KindOther
	}
	if api.IsTransient(err) {
		return KindTransient
	}
	if hasQuotaMarker(err.Error()) {
		return KindQuota
	}
	return KindOther
}

func hasQuotaMarker(s string) bool {
	s = strings.ToLower(s)
	for _, m := range quotaMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
