package quote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"BreakScan/internal/domain/models"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// KiteHistorical pulls the day candle from the Kite Connect historical API.
// Instruments need their exchange token set.
type KiteHistorical struct {
	kite *kiteconnect.Client
	loc  *time.Location
}

func NewKiteHistorical(apiKey, accessToken, baseURI string, timeout time.Duration, loc *time.Location) *KiteHistorical {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	if baseURI != "" {
		kc.SetBaseURI(baseURI)
	}
	if timeout > 0 {
		kc.SetHTTPClient(&http.Client{Timeout: timeout})
	}
	return &KiteHistorical{kite: kc, loc: loc}
}

func (k *KiteHistorical) Name() string { return "kite_historical" }

func (k *KiteHistorical) DailyCandle(ctx context.Context, inst models.Instrument, day time.Time) (models.Quote, error) {
	if inst.Token == 0 {
		return models.Quote{}, fmt.Errorf("kite historical: %s has no instrument token", inst.Symbol)
	}
	if err := ctx.Err(); err != nil {
		return models.Quote{}, err
	}
	d := day.In(k.loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, k.loc)
	to := from.Add(24*time.Hour - time.Second)

	candles, err := k.kite.GetHistoricalData(inst.Token, "day", from, to, false, false)
	if err != nil {
		return models.Quote{}, fmt.Errorf("kite historical %s: %w", inst.Symbol, err)
	}
	if len(candles) == 0 {
		return models.Quote{}, ErrNoCandle
	}
	c := candles[len(candles)-1]
	return models.Quote{
		Symbol:    inst.Symbol,
		LTP:       c.Close,
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    int64(c.Volume),
		Source:    k.Name(),
		FetchedAt: time.Now(),
	}, nil
}
