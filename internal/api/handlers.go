package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"trading-backtestv1/internal/metrics"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/pattern"
	"trading-backtestv1/internal/service"
)

// Handler serves the REST and WebSocket endpoints.
type Handler struct {
	svc     *service.Service
	health  http.Handler
	metrics *metrics.Metrics

	// streamInterval paces WebSocket replay events; zero sends them back to back.
	streamInterval time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHealth serves h at /api/v1/health instead of a static ok.
func WithHealth(h http.Handler) HandlerOption {
	return func(hd *Handler) { hd.health = h }
}

// WithMetrics tracks WebSocket clients.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(hd *Handler) { hd.metrics = m }
}

// WithStreamInterval paces replayed backtest events.
func WithStreamInterval(d time.Duration) HandlerOption {
	return func(hd *Handler) { hd.streamInterval = d }
}

// NewHandler builds a Handler over svc.
func NewHandler(svc *service.Service, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts every endpoint on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")

	v1.GET("/health", h.healthCheck)

	v1.POST("/candles", h.ingestCandles)
	v1.GET("/indicators", h.indicators)
	v1.GET("/patterns", h.patterns)

	v1.GET("/presets", h.presets)
	v1.GET("/strategies", h.listStrategies)
	v1.POST("/strategies", h.createStrategy)
	v1.GET("/strategies/:id", h.getStrategy)
	v1.PUT("/strategies/:id", h.updateStrategy)
	v1.DELETE("/strategies/:id", h.deleteStrategy)

	v1.POST("/backtests", h.runBacktest)
	v1.POST("/backtests/compare", h.compare)
	v1.GET("/backtests", h.listRuns)
	v1.GET("/backtests/:id", h.getRun)

	e.GET("/ws/backtests", h.streamBacktest)
}

func (h *Handler) healthCheck(c echo.Context) error {
	if h.health != nil {
		h.health.ServeHTTP(c.Response(), c.Request())
		return nil
	}
	return SuccessResponse(c, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	Symbol    string         `json:"symbol" validate:"required"`
	Timeframe string         `json:"timeframe" validate:"required"`
	Candles   []model.Candle `json:"candles" validate:"required,min=1"`
}

func (h *Handler) ingestCandles(c echo.Context) error {
	var req ingestRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	n, err := h.svc.IngestCandles(c.Request().Context(), req.Symbol, req.Timeframe, req.Candles)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return CreatedResponse(c, map[string]int{"written": n})
}

type indicatorsQuery struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" validate:"required"`
	From      int64  `query:"from" validate:"gte=0"`
	To        int64  `query:"to" validate:"gte=0"`
	Names     string `query:"names" validate:"required"`
}

func (h *Handler) indicators(c echo.Context) error {
	var q indicatorsQuery
	if errs := ReadAndValidateRequest(c, &q); errs != nil {
		return BadRequestResponse(c, errs)
	}
	res, err := h.svc.Indicators(c.Request().Context(), toRange(q.Symbol, q.Timeframe, q.From, q.To), splitNames(q.Names))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, res)
}

type patternsQuery struct {
	Symbol    string   `query:"symbol" validate:"required"`
	Timeframe string   `query:"timeframe" validate:"required"`
	From      int64    `query:"from" validate:"gte=0"`
	To        int64    `query:"to" validate:"gte=0"`
	Lookback  int      `query:"lookback" validate:"omitempty,gte=1,lte=50"`
	Tolerance *float64 `query:"tolerance" validate:"omitempty,gte=0,lte=1"`
}

func (h *Handler) patterns(c echo.Context) error {
	var q patternsQuery
	if errs := ReadAndValidateRequest(c, &q); errs != nil {
		return BadRequestResponse(c, errs)
	}
	var opts *pattern.Options
	if q.Lookback > 0 || q.Tolerance != nil {
		opts = &pattern.Options{PivotLookback: q.Lookback, Tolerance: q.Tolerance}
	}
	res, err := h.svc.Patterns(c.Request().Context(), toRange(q.Symbol, q.Timeframe, q.From, q.To), opts)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, res)
}

func (h *Handler) presets(c echo.Context) error {
	names := h.svc.Presets()
	return ListResponse(c, names, len(names))
}

func (h *Handler) listStrategies(c echo.Context) error {
	list, err := h.svc.ListStrategies(c.Request().Context())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return ListResponse(c, list, len(list))
}

// Strategy bodies are only bound here; the service compiles them and
// reports every problem at once.
func (h *Handler) createStrategy(c echo.Context) error {
	var st model.Strategy
	if err := c.Bind(&st); err != nil {
		return BadRequestResponse(c, validationErrors(err))
	}
	created, err := h.svc.CreateStrategy(c.Request().Context(), st)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return CreatedResponse(c, created)
}

func (h *Handler) getStrategy(c echo.Context) error {
	st, err := h.svc.GetStrategy(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, st)
}

func (h *Handler) updateStrategy(c echo.Context) error {
	var st model.Strategy
	if err := c.Bind(&st); err != nil {
		return BadRequestResponse(c, validationErrors(err))
	}
	updated, err := h.svc.UpdateStrategy(c.Request().Context(), c.Param("id"), st)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, updated)
}

func (h *Handler) deleteStrategy(c echo.Context) error {
	if err := h.svc.DeleteStrategy(c.Request().Context(), c.Param("id")); err != nil {
		return ErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) runBacktest(c echo.Context) error {
	var req service.BacktestRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	run, err := h.svc.RunBacktest(c.Request().Context(), req)
	if err != nil {
		return ErrorResponse(c, err)
	}
	if req.Save {
		return CreatedResponse(c, run)
	}
	return SuccessResponse(c, run)
}

func (h *Handler) compare(c echo.Context) error {
	var req service.CompareRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return BadRequestResponse(c, errs)
	}
	if len(req.StrategyIDs)+len(req.Presets) == 0 {
		return ErrorResponse(c, BadRequestError("strategyIds or presets must name at least one strategy"))
	}
	rows, err := h.svc.Compare(c.Request().Context(), req)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return ListResponse(c, rows, len(rows))
}

func (h *Handler) listRuns(c echo.Context) error {
	runs, err := h.svc.ListRuns(c.Request().Context(), c.QueryParam("strategy_id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return ListResponse(c, runs, len(runs))
}

func (h *Handler) getRun(c echo.Context) error {
	run, err := h.svc.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, run)
}

func toRange(symbol, timeframe string, from, to int64) service.Range {
	return service.Range{Symbol: symbol, Timeframe: timeframe, From: from, To: to}
}

// splitNames splits a comma separated list and drops blanks.
func splitNames(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
