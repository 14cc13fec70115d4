package api

import (
	"encoding/json"
	"net/http"
	"time"

	models "SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	icache "SignalForge/internal/service/cache"
	"SignalForge/internal/service/metrics"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/settings"
	"SignalForge/internal/usecase"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EngineEchoHandler exposes the signal engine's ops surface over Echo:
// effective settings, fusion presets, the last cycle report, and candle
// windows for debugging.
type EngineEchoHandler struct {
	logger   *xlogger.Logger
	store    domrepo.SettingsStore
	resolver *settings.Resolver
	runner   *usecase.CycleRunner
	candles  *usecase.CandlesUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	ready    func() bool
}

func NewEngineEchoHandler(logger *xlogger.Logger, store domrepo.SettingsStore, resolver *settings.Resolver, runner *usecase.CycleRunner, candles *usecase.CandlesUseCase) *EngineEchoHandler {
	metrics.Register()
	return &EngineEchoHandler{
		logger:   logger,
		store:    store,
		resolver: resolver,
		runner:   runner,
		candles:  candles,
		rl:       ratelimit.New(),
	}
}

// SetCache injects a response cache for the candle endpoint.
func (h *EngineEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetReadyCheck injects a readiness probe, e.g. the stream collector's
// connection state.
func (h *EngineEchoHandler) SetReadyCheck(fn func() bool) { h.ready = fn }

func (h *EngineEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/settings/effective", h.EffectiveSettings)
	g.GET("/presets", h.Presets)
	g.GET("/presets/:name", h.PresetByName)
	g.GET("/report", h.LastReport)
	g.GET("/candles", h.Candles)
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
}

func (h *EngineEchoHandler) EffectiveSettings(c echo.Context) error {
	start := time.Now()
	endpoint := "settings_effective"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.EffectiveSettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	stored, err := h.store.Load(c.Request().Context(), req.UserID)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		if h.logger != nil {
			h.logger.Error("effective settings load error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	resolved, err := h.resolver.Resolve(stored, tf)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		if h.logger != nil {
			h.logger.Error("effective settings resolve error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, resolved)
}

func (h *EngineEchoHandler) Presets(c echo.Context) error {
	return xhttp.SuccessResponse(c, settings.PresetNames())
}

func (h *EngineEchoHandler) PresetByName(c echo.Context) error {
	req := &models.PresetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w, err := settings.Preset(req.Name)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *EngineEchoHandler) LastReport(c echo.Context) error {
	rep := h.runner.LastReport()
	if rep == nil {
		return xhttp.NotFoundResponse(c, "no cycle has completed yet")
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *EngineEchoHandler) Candles(c echo.Context) error {
	start := time.Now()
	endpoint := "candles"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	if !h.rl.Allow(c.RealIP()+":candles", 5, 2) {
		if h.logger != nil {
			h.logger.Warn("candles rate_limited", xlogger.String("remote", c.RealIP()))
		}
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("rate_limited", "", "rate limited", http.StatusTooManyRequests))
	}

	ctx := c.Request().Context()
	cacheKey := "candles:" + req.Symbol + ":" + string(tf)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, cacheKey); err != nil {
			if h.logger != nil {
				h.logger.Warn("candles cache_get_error", xlogger.Error(err))
			}
		} else if ok {
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	res, err := h.candles.GetCandles(ctx, usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		if h.logger != nil {
			h.logger.Error("candles usecase error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			if err := h.cache.SetBytes(ctx, cacheKey, b, 15*time.Second); err != nil && h.logger != nil {
				h.logger.Warn("candles cache_set_error", xlogger.Error(err))
			}
		}
	}
	return c.JSON(http.StatusOK, res)
}

func (h *EngineEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *EngineEchoHandler) Ready(c echo.Context) error {
	if h.ready != nil && !h.ready() {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("not_ready", "", "stream not connected", http.StatusServiceUnavailable))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
}

var _ xhttp.Handler = (*EngineEchoHandler)(nil)
