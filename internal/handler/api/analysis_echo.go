package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	icache "BluffScan/internal/service/cache"
	"BluffScan/internal/service/metrics"
	"BluffScan/internal/service/ratelimit"
	"BluffScan/internal/usecase"
	xhttp "BluffScan/pkg/http"
	xlogger "BluffScan/pkg/logger"
	"BluffScan/pkg/queue"
)

// SessionHeader carries the caller's anonymous session identity. A missing
// or blank header gets a fresh session ID, echoed back in every response.
const SessionHeader = "x-anon-session-id"

// RunSink accepts completed runs for persistence.
type RunSink interface {
	Record(ctx context.Context, sessionID string, run *models.RunResult) error
}

// maxSearchResults caps one ticker-search response.
const maxSearchResults = 100

// AnalysisEchoHandler exposes the analysis API over Echo.
type AnalysisEchoHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.RunAnalyzer
	recorder *usecase.RunRecorder
	sink     RunSink
	jobs     queue.QueueService
	universe domrepo.UniverseResolver
	hub      *ProgressHub
	rl       *ratelimit.Limiter
	cache    icache.MatchCache
	upgrader websocket.Upgrader
}

func NewAnalysisEchoHandler(
	logger *xlogger.Logger,
	analyzer *usecase.RunAnalyzer,
	recorder *usecase.RunRecorder,
	sink RunSink,
	jobs queue.QueueService,
	universe domrepo.UniverseResolver,
	hub *ProgressHub,
) *AnalysisEchoHandler {
	metrics.Register()
	return &AnalysisEchoHandler{
		logger:   logger,
		analyzer: analyzer,
		recorder: recorder,
		sink:     sink,
		jobs:     jobs,
		universe: universe,
		hub:      hub,
		rl:       ratelimit.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetCache injects a short-TTL response cache for search results.
func (h *AnalysisEchoHandler) SetCache(c icache.MatchCache) { h.cache = c }

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/analyze", h.Analyze)
	g.POST("/analyze/async", h.AnalyzeAsync)
	g.GET("/runs", h.Runs)
	g.GET("/runs/:run_id", h.Run)
	g.GET("/runs/:run_id/progress", h.Progress)
	g.GET("/tickers/search", h.SearchTickers)
	g.GET("/universe/default", h.DefaultUniverse)
}

// sessionID resolves the caller's session, minting one when absent.
func sessionID(c echo.Context) string {
	if id := c.Request().Header.Get(SessionHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func (h *AnalysisEchoHandler) Analyze(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("analyze").Observe(time.Since(start).Seconds()) }()

	session := sessionID(c)
	if !h.rl.Allow(session+":analyze", 3, 0.2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, err := h.analyzer.Run(c.Request().Context(), paramsFrom(req), nil)
	if err != nil {
		metrics.APIErrors.WithLabelValues("analyze").Inc()
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	result.RunID = uuid.NewString()

	if err := h.sink.Record(c.Request().Context(), session, result); err != nil {
		// the caller still gets their result; history is best-effort
		h.logger.Error("record run failed",
			xlogger.String("run_id", result.RunID), xlogger.Error(err))
	}

	return xhttp.SuccessResponse(c, &models.AnalyzeResponse{
		SessionID: session,
		RunResult: *result,
	})
}

func (h *AnalysisEchoHandler) AnalyzeAsync(c echo.Context) error {
	session := sessionID(c)
	if !h.rl.Allow(session+":analyze", 3, 0.2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	runID := uuid.NewString()
	payload := usecase.AnalyzeJobPayload{
		RunID:     runID,
		SessionID: session,
		Params:    paramsFrom(req),
	}
	if err := h.jobs.PublishMessage(c.Request().Context(), usecase.AnalyzeJobType, payload); err != nil {
		h.logger.Error("enqueue analysis failed",
			xlogger.String("run_id", runID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.DataResponse(c, http.StatusAccepted, &models.AsyncAnalyzeResponse{
		RunID:     runID,
		SessionID: session,
		Status:    "queued",
	})
}

func (h *AnalysisEchoHandler) Runs(c echo.Context) error {
	session := sessionID(c)

	req := &models.RunsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	runs, err := h.recorder.History(c.Request().Context(), session, req.Limit)
	if err != nil {
		h.logger.Error("list runs error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &models.RunsResponse{SessionID: session, Runs: runs})
}

func (h *AnalysisEchoHandler) Run(c echo.Context) error {
	session := sessionID(c)
	runID := c.Param("run_id")

	run, err := h.recorder.Get(c.Request().Context(), session, runID)
	if errors.Is(err, domrepo.ErrRunNotFound) {
		return xhttp.NotFoundResponse(c, "run not found")
	}
	if err != nil {
		h.logger.Error("get run error",
			xlogger.String("run_id", runID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &models.AnalyzeResponse{SessionID: session, RunResult: *run})
}

// Progress upgrades to WebSocket and streams per-ticker progress for one run
// until the run completes or the client disconnects.
func (h *AnalysisEchoHandler) Progress(c echo.Context) error {
	runID := c.Param("run_id")

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(runID)
	defer cancel()

	// drain client frames so close/ping are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
			if ev.Completed {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run complete")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return nil
			}
		}
	}
}

// SearchTickers is a substring autocomplete over the resolved default
// universe, capped at maxSearchResults.
func (h *AnalysisEchoHandler) SearchTickers(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("search").Observe(time.Since(start).Seconds()) }()

	req := &models.TickerSearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	query := normalizeQuery(req.Q)
	if query == "" {
		return xhttp.SuccessResponse(c, &models.TickerSearchResponse{Query: "", Matches: []models.TickerMatch{}})
	}

	if h.cache != nil {
		if matches, ok := h.cache.GetMatches(query); ok {
			return xhttp.SuccessResponse(c, &models.TickerSearchResponse{Query: query, Matches: matches})
		}
	}

	uni, err := h.universe.DefaultUniverse(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("search").Inc()
		h.logger.Error("ticker search error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	matches := filterUniverse(uni.Tickers, query, maxSearchResults)
	if h.cache != nil {
		h.cache.SetMatches(query, matches, 10*time.Minute)
	}
	return xhttp.SuccessResponse(c, &models.TickerSearchResponse{Query: query, Matches: matches})
}

// normalizeQuery upper-cases the query and maps share-class dots to the
// dashes the universe symbols use.
func normalizeQuery(q string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(q)), ".", "-")
}

func filterUniverse(tickers []string, query string, limit int) []models.TickerMatch {
	matches := make([]models.TickerMatch, 0, 16)
	for _, t := range tickers {
		if !strings.Contains(t, query) {
			continue
		}
		matches = append(matches, models.TickerMatch{Symbol: t})
		if len(matches) >= limit {
			break
		}
	}
	return matches
}

func (h *AnalysisEchoHandler) DefaultUniverse(c echo.Context) error {
	uni, err := h.universe.DefaultUniverse(c.Request().Context())
	if err != nil {
		h.logger.Error("default universe error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	resp := &models.UniverseResponse{
		Source:      uni.Source,
		TickerCount: len(uni.Tickers),
		Tickers:     uni.Tickers,
	}
	if uni.AsOf != nil {
		resp.AsOf = uni.AsOf.Format("2006-01-02")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, resp)
}

func paramsFrom(req *models.AnalyzeRequest) models.RunParameters {
	return models.RunParameters{
		Tickers:             req.Tickers,
		LookbackMonths:      req.LookbackMonths,
		DeclineThresholdPct: req.DeclineThresholdPct,
		MinMarketCapMUSD:    req.MinMarketCapMUSD,
	}
}
