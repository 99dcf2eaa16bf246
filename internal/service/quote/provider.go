package quote

import (
	"net/url"
	"strings"
	"time"

	"BreakScan/internal/domain/models"
)

// Provider describes how to ask one upstream for one symbol.
type Provider struct {
	Name        string
	Tag         models.ProviderTag
	URLTemplate string // "{symbol}" is replaced with the escaped instrument symbol
	Headers     map[string]string
	Timeout     time.Duration
	// RPS caps outbound requests per second for this provider; zero disables pacing.
	RPS float64
	// RetryOn429 grants one delayed retry when the provider answers 429.
	RetryOn429 bool
	// Session, when set, supplies cookies obtained from a handshake before each request.
	Session SessionSource
}

// URL renders the request URL for symbol.
func (p Provider) URL(symbol string) string {
	return strings.ReplaceAll(p.URLTemplate, "{symbol}", url.QueryEscape(symbol))
}
