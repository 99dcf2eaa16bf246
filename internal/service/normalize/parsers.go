package normalize

import (
	"encoding/json"
	"strings"

	"BreakScan/internal/domain/models"
)

// kite: {"status":"success","data":{"NSE:INFY":{"last_price":..,"volume":..,"ohlc":{..}}}}
type kiteEnvelope struct {
	Status string                    `json:"status"`
	Data   map[string]kiteQuoteEntry `json:"data"`
}

type kiteQuoteEntry struct {
	LastPrice flexFloat `json:"last_price"`
	Volume    flexFloat `json:"volume"`
	OHLC      struct {
		Open  flexFloat `json:"open"`
		High  flexFloat `json:"high"`
		Low   flexFloat `json:"low"`
		Close flexFloat `json:"close"`
	} `json:"ohlc"`
}

func parseKite(raw []byte, symbol string) (models.Quote, error) {
	var env kiteEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Quote{}, malformed("kite: %v", err)
	}
	if env.Status != "" && env.Status != "success" {
		return models.Quote{}, malformed("kite: status %q", env.Status)
	}
	entry, ok := env.Data[symbol]
	if !ok {
		for k, v := range env.Data {
			if strings.HasSuffix(k, ":"+symbol) {
				entry, ok = v, true
				break
			}
		}
	}
	if !ok {
		return models.Quote{}, malformed("kite: no entry for %s", symbol)
	}
	return ohlc{
		ltp:    entry.LastPrice,
		open:   entry.OHLC.Open,
		high:   entry.OHLC.High,
		low:    entry.OHLC.Low,
		close:  entry.OHLC.Close,
		volume: entry.Volume,
	}.quote(), nil
}

// legacy: one flat object per symbol.
type legacyQuote struct {
	Symbol     string    `json:"symbol"`
	LastPrice  flexFloat `json:"last_price"`
	OpenPrice  flexFloat `json:"open_price"`
	HighPrice  flexFloat `json:"high_price"`
	LowPrice   flexFloat `json:"low_price"`
	ClosePrice flexFloat `json:"close_price"`
	Volume     flexFloat `json:"total_volume"`
}

func parseLegacy(raw []byte, symbol string) (models.Quote, error) {
	var lq legacyQuote
	if err := json.Unmarshal(raw, &lq); err != nil {
		return models.Quote{}, malformed("legacy: %v", err)
	}
	if lq.Symbol != "" && !strings.EqualFold(lq.Symbol, symbol) {
		return models.Quote{}, malformed("legacy: payload is for %s, want %s", lq.Symbol, symbol)
	}
	return ohlc{
		ltp:    lq.LastPrice,
		open:   lq.OpenPrice,
		high:   lq.HighPrice,
		low:    lq.LowPrice,
		close:  lq.ClosePrice,
		volume: lq.Volume,
	}.quote(), nil
}

// nse: exchange quote-equity endpoint.
type nseQuote struct {
	Info struct {
		Symbol string `json:"symbol"`
	} `json:"info"`
	PriceInfo *struct {
		LastPrice       flexFloat `json:"lastPrice"`
		Open            flexFloat `json:"open"`
		Close           flexFloat `json:"close"`
		IntraDayHighLow struct {
			Min flexFloat `json:"min"`
			Max flexFloat `json:"max"`
		} `json:"intraDayHighLow"`
	} `json:"priceInfo"`
	PreOpenMarket struct {
		TotalTradedVolume flexFloat `json:"totalTradedVolume"`
	} `json:"preOpenMarket"`
}

func parseNSE(raw []byte, symbol string) (models.Quote, error) {
	var nq nseQuote
	if err := json.Unmarshal(raw, &nq); err != nil {
		return models.Quote{}, malformed("nse: %v", err)
	}
	if nq.PriceInfo == nil {
		return models.Quote{}, malformed("nse: missing priceInfo for %s", symbol)
	}
	p := nq.PriceInfo
	return ohlc{
		ltp:    p.LastPrice,
		open:   p.Open,
		high:   p.IntraDayHighLow.Max,
		low:    p.IntraDayHighLow.Min,
		close:  p.Close,
		volume: nq.PreOpenMarket.TotalTradedVolume,
	}.quote(), nil
}

// nse_index: exchange allIndices endpoint, one row per index.
type nseIndexRow struct {
	Index       string    `json:"index"`
	IndexSymbol string    `json:"indexSymbol"`
	Last        flexFloat `json:"last"`
	Open        flexFloat `json:"open"`
	High        flexFloat `json:"high"`
	Low         flexFloat `json:"low"`
	Close       flexFloat `json:"close"`
}

type nseIndexEnvelope struct {
	Data []nseIndexRow `json:"data"`
}

func (r nseIndexRow) quote() models.Quote {
	return ohlc{ltp: r.Last, open: r.Open, high: r.High, low: r.Low, close: r.Close}.quote()
}

func parseNSEIndex(raw []byte, symbol string) (models.Quote, error) {
	rows, err := decodeIndexRows(raw)
	if err != nil {
		return models.Quote{}, err
	}
	for _, r := range rows {
		if strings.EqualFold(r.Index, symbol) || strings.EqualFold(r.IndexSymbol, symbol) {
			return r.quote(), nil
		}
	}
	return models.Quote{}, malformed("nse_index: no row for %s", symbol)
}

// Indices returns every index row in an allIndices payload keyed by index name.
func Indices(raw []byte) (map[string]models.Quote, error) {
	rows, err := decodeIndexRows(raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Quote, len(rows))
	for _, r := range rows {
		if r.Index == "" {
			continue
		}
		q := r.quote()
		q.Symbol = r.Index
		out[r.Index] = q
	}
	return out, nil
}

func decodeIndexRows(raw []byte) ([]nseIndexRow, error) {
	var env nseIndexEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, malformed("nse_index: %v", err)
	}
	if env.Data == nil {
		return nil, malformed("nse_index: missing data array")
	}
	return env.Data, nil
}
