package universe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"BreakScan/internal/domain/models"
)

// Universe is the tracked instrument list plus the index names to capture.
type Universe struct {
	Instruments []models.Instrument `yaml:"instruments"`
	Indices     []string            `yaml:"indices"`
}

// Symbols returns instrument symbols in file order.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.Instruments))
	for i, in := range u.Instruments {
		out[i] = in.Symbol
	}
	return out
}

// BySymbol indexes instruments by symbol.
func (u *Universe) BySymbol() map[string]models.Instrument {
	m := make(map[string]models.Instrument, len(u.Instruments))
	for _, in := range u.Instruments {
		m[in.Symbol] = in
	}
	return m
}

// Load reads the universe file. Symbols are upper-cased; duplicates are rejected.
func Load(path string) (*Universe, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	var u Universe
	if err := yaml.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}
	seen := make(map[string]bool, len(u.Instruments))
	for i := range u.Instruments {
		in := &u.Instruments[i]
		in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
		if in.Symbol == "" {
			return nil, fmt.Errorf("universe: instrument %d has no symbol", i)
		}
		if seen[in.Symbol] {
			return nil, fmt.Errorf("universe: duplicate symbol %s", in.Symbol)
		}
		seen[in.Symbol] = true
		if in.Exchange == "" {
			in.Exchange = "NSE"
		}
	}
	if len(u.Instruments) == 0 {
		return nil, fmt.Errorf("universe: no instruments in %s", path)
	}
	return &u, nil
}
