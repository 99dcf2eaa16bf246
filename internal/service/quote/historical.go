package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"BreakScan/internal/domain/models"
	xhttp "BreakScan/pkg/http"
)

// HistoricalProvider returns a completed daily candle for one instrument.
// It backs the rollover fallback pass when live quote providers fail.
type HistoricalProvider interface {
	Name() string
	DailyCandle(ctx context.Context, inst models.Instrument, day time.Time) (models.Quote, error)
}

// ErrNoCandle means the provider answered but had no candle for the requested day.
var ErrNoCandle = errors.New("no candle for day")

// ChartHistorical reads daily bars from a public chart endpoint.
type ChartHistorical struct {
	client  *xhttp.Client
	baseURL string
	suffix  string // exchange suffix appended to symbols, e.g. ".NS"
	headers map[string]string
	timeout time.Duration
	loc     *time.Location
}

// NewChartHistorical bounds every candle request by timeout; zero leaves only the client's limit.
func NewChartHistorical(client *xhttp.Client, baseURL, suffix string, timeout time.Duration, loc *time.Location) *ChartHistorical {
	return &ChartHistorical{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		suffix:  suffix,
		headers: map[string]string{"User-Agent": "Mozilla/5.0"},
		timeout: timeout,
		loc:     loc,
	}
}

func (c *ChartHistorical) Name() string { return "chart" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *ChartHistorical) DailyCandle(ctx context.Context, inst models.Instrument, day time.Time) (models.Quote, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(inst.Symbol+c.suffix))
	resp, err := c.client.SendRequest(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: u, Headers: c.headers})
	if err != nil {
		return models.Quote{}, fmt.Errorf("chart fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Quote{}, fmt.Errorf("chart read: %w", err)
	}
	if resp.StatusCode != 200 {
		return models.Quote{}, fmt.Errorf("chart: http status %d", resp.StatusCode)
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return models.Quote{}, fmt.Errorf("chart decode: %w", err)
	}
	if cr.Chart.Error != nil {
		return models.Quote{}, fmt.Errorf("chart api error: %s", cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return models.Quote{}, ErrNoCandle
	}

	res := cr.Chart.Result[0]
	bars := res.Indicators.Quote[0]
	want := day.In(c.loc).Format(dayLayout)
	for i := len(res.Timestamp) - 1; i >= 0; i-- {
		if time.Unix(res.Timestamp[i], 0).In(c.loc).Format(dayLayout) != want {
			continue
		}
		q := models.Quote{
			Symbol:    inst.Symbol,
			Open:      at(bars.Open, i),
			High:      at(bars.High, i),
			Low:       at(bars.Low, i),
			Close:     at(bars.Close, i),
			Volume:    int64(at(bars.Volume, i)),
			Source:    c.Name(),
			FetchedAt: time.Now(),
		}
		q.LTP = q.Close
		if q.High <= 0 || q.Low <= 0 {
			return models.Quote{}, ErrNoCandle
		}
		return q, nil
	}
	return models.Quote{}, ErrNoCandle
}

const dayLayout = "2006-01-02"

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}
