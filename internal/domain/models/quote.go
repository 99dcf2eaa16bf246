package models

import "time"

// ProviderTag selects the payload parser for a provider response.
type ProviderTag string

const (
	TagKite     ProviderTag = "kite"
	TagLegacy   ProviderTag = "legacy"
	TagNSE      ProviderTag = "nse"
	TagNSEIndex ProviderTag = "nse_index"
)

// Quote is one provider's view of one instrument at fetch time.
type Quote struct {
	Symbol    string    `json:"symbol"`
	LTP       float64   `json:"ltp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Usable reports whether the quote carries a tradable last price.
func (q Quote) Usable() bool {
	return q.LTP > 0
}

// Instrument is one entry of the tracked universe.
type Instrument struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Sector   string `yaml:"sector" json:"sector"`
	Exchange string `yaml:"exchange" json:"exchange"`
	Token    int    `yaml:"token" json:"token,omitempty"`
}
