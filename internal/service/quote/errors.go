package quote

import (
	"errors"
	"fmt"
	"strings"
)

// FetchErrorKind classifies a single failed provider call.
type FetchErrorKind int

const (
	FetchTimeout FetchErrorKind = iota + 1
	FetchHTTPStatus
	FetchMalformed
	FetchTransport
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchHTTPStatus:
		return "http_status"
	case FetchMalformed:
		return "malformed_payload"
	case FetchTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// FetchError is returned by Fetcher for one provider and one symbol.
type FetchError struct {
	Provider string
	Symbol   string
	Kind     FetchErrorKind
	Status   int // set when Kind is FetchHTTPStatus
	Err      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPStatus:
		return fmt.Sprintf("%s %s: http status %d", e.Provider, e.Symbol, e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Symbol, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Symbol, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is an HTTP 429 from a provider.
func IsRateLimited(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchHTTPStatus && fe.Status == 429
}

// ErrNoPrice is the soft failure for a well-formed response without a usable last price.
var ErrNoPrice = errors.New("no usable last price")

// Attempt records one provider's failure inside a fallback chain.
type Attempt struct {
	Provider string
	Err      error
}

// ExhaustedError means every provider in the chain failed for Symbol.
type ExhaustedError struct {
	Symbol   string
	Attempts []Attempt
}

// Tried lists the provider names in the order they were attempted.
func (e *ExhaustedError) Tried() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Provider
	}
	return names
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no providers configured", e.Symbol)
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Provider, a.Err)
	}
	return fmt.Sprintf("%s: all providers failed (%s)", e.Symbol, strings.Join(parts, "; "))
}
