package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/service/ratelimit"
	"BreakScan/internal/usecase"
	"BreakScan/pkg/cache"
	xhttp "BreakScan/pkg/http"
	applogger "BreakScan/pkg/logger"
)

// MarketHandler serves the read side: replay frames, snapshot history and the current signals.
type MarketHandler struct {
	replay   *usecase.ReplayUseCase
	history  *usecase.HistoryUseCase
	cache    cache.Service
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	loc      *time.Location
	l        *applogger.Logger
}

// NewMarketHandler creates a MarketHandler. cache and rl may be nil.
func NewMarketHandler(replay *usecase.ReplayUseCase, history *usecase.HistoryUseCase, c cache.Service, cacheTTL time.Duration, rl *ratelimit.Limiter, loc *time.Location, l *applogger.Logger) *MarketHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &MarketHandler{replay: replay, history: history, cache: c, cacheTTL: cacheTTL, rl: rl, loc: loc, l: l}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.limit)
	g.GET("/replay", h.Replay)
	g.GET("/history", h.History)
	g.GET("/signals", h.Signals)
}

func (h *MarketHandler) limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.rl.Allow(c.RealIP()) {
			return xhttp.TooManyRequestsResponse(c)
		}
		return next(c)
	}
}

// Replay returns the frame nearest to ?at, or 404 no_data.
func (h *MarketHandler) Replay(c echo.Context) error {
	req := &models.ReplayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	target, ok := xhttp.ParseTimeIn(req.At, h.loc)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("at", "cannot parse time %q", req.At))
	}
	q := models.ReplayQuery{
		Kind:     models.InstrumentKind(req.Kind),
		Target:   target,
		Window:   time.Duration(req.WindowS) * time.Second,
		MaxDrift: time.Duration(req.MaxDrift) * time.Second,
		Symbols:  xhttp.SplitSymbols(req.Symbols),
	}

	ctx := c.Request().Context()
	key := cache.GenerateKeyWithParams("replay", q.Kind, target.Unix(), req.WindowS, req.MaxDrift, cache.HashKey(req.Symbols))
	if h.cache != nil {
		var cached models.ReplayFrame
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			return xhttp.SuccessResponse(c, renderFrame(cached))
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.l.Warn("replay cache read failed", applogger.Error(err))
		}
	}

	frame, err := h.replay.Resolve(ctx, q)
	if errors.Is(err, usecase.ErrNoDataFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no_data", "no snapshot within tolerance").
			WithParam("at", target.Format(time.RFC3339)))
	}
	if err != nil {
		h.l.Error("replay failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, frame, h.cacheTTL); err != nil {
			h.l.Warn("replay cache write failed", applogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, renderFrame(frame))
}

// History lists snapshots between ?from and ?to.
func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, ok := xhttp.ParseTimeIn(req.From, h.loc)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("from", "cannot parse time %q", req.From))
	}
	to, ok := xhttp.ParseTimeIn(req.To, h.loc)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("to", "cannot parse time %q", req.To))
	}

	rows, err := h.history.Query(c.Request().Context(), from, to, models.SnapshotFilter{
		Kind:    models.InstrumentKind(req.Kind),
		Symbols: xhttp.SplitSymbols(req.Symbols),
		Sector:  req.Sector,
	})
	if errors.Is(err, usecase.ErrInvalidRange) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to", err.Error()).WithError(err))
	}
	if err != nil {
		h.l.Error("history query failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, renderSnapshots(rows), int64(len(rows)))
}

// Signals returns the latest breakout and breakdown sets.
func (h *MarketHandler) Signals(c echo.Context) error {
	sets, err := h.history.Signals(c.Request().Context())
	if err != nil {
		h.l.Error("signals read failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, models.SignalSets{
		Breakouts:  renderSignals(sets.Breakouts),
		Breakdowns: renderSignals(sets.Breakdowns),
	})
}
