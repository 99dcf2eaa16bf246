package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"BreakScan/internal/domain/models"
	"BreakScan/internal/usecase"
	xhttp "BreakScan/pkg/http"
	"BreakScan/pkg/http/middleware"
	applogger "BreakScan/pkg/logger"
)

// Trigger runs one pipeline path.
type Trigger interface {
	Run(ctx context.Context, path models.RunPath, force bool) (*models.RunSummary, error)
}

// CronHandler exposes the scheduler-facing trigger endpoints.
type CronHandler struct {
	runner Trigger
	secret string
	l      *applogger.Logger
}

func NewCronHandler(runner Trigger, secret string, l *applogger.Logger) *CronHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &CronHandler{runner: runner, secret: secret, l: l}
}

func (h *CronHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/cron", middleware.BearerAuth(h.secret))
	g.GET("/:path", h.Trigger)
}

// Trigger answers with the run summary itself. 500 is reserved for run-level failures.
func (h *CronHandler) Trigger(c echo.Context) error {
	path, err := usecase.ParsePath(c.Param("path"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("ERR_UNKNOWN_PATH", err.Error()))
	}
	req := &models.TriggerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// A run finishes even when the caller hangs up.
	sum, err := h.runner.Run(context.WithoutCancel(c.Request().Context()), path, req.Force)
	if err != nil {
		h.l.Error("trigger failed", applogger.String("path", string(path)), applogger.Error(err))
		if sum == nil {
			return c.JSON(http.StatusInternalServerError, xhttp.FailureBody{Success: false, Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, sum)
	}
	return c.JSON(http.StatusOK, sum)
}
