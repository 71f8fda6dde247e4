package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
	icache "BluffScan/internal/service/cache"
	applogger "BluffScan/pkg/logger"
)

type fakeUniverse struct {
	uni   models.Universe
	err   error
	calls int
}

func (f *fakeUniverse) DefaultUniverse(context.Context) (models.Universe, error) {
	f.calls++
	return f.uni, f.err
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newSearchHandler(t *testing.T, uni *fakeUniverse) *AnalysisEchoHandler {
	t.Helper()
	h := NewAnalysisEchoHandler(testLogger(t), nil, nil, nil, nil, uni, NewProgressHub())
	h.SetCache(icache.NewTTLCache())
	return h
}

func doSearch(t *testing.T, h *AnalysisEchoHandler, q string) (int, models.TickerSearchResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickers/search?q="+q, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.SearchTickers(e.NewContext(req, rec)))

	var envelope struct {
		Data models.TickerSearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec.Code, envelope.Data
}

func TestSearchFiltersDefaultUniverse(t *testing.T) {
	uni := &fakeUniverse{uni: models.Universe{
		Source:  "snapshot-top5",
		Tickers: []string{"AAL", "AAPL", "BRK-B", "MSFT", "TSLA"},
	}}
	h := newSearchHandler(t, uni)

	code, resp := doSearch(t, h, "aa")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "AA", resp.Query)
	require.Equal(t, []models.TickerMatch{{Symbol: "AAL"}, {Symbol: "AAPL"}}, resp.Matches)
}

func TestSearchMapsDotToDash(t *testing.T) {
	uni := &fakeUniverse{uni: models.Universe{Tickers: []string{"BRK-B", "MSFT"}}}
	h := newSearchHandler(t, uni)

	_, resp := doSearch(t, h, "brk.b")
	require.Equal(t, []models.TickerMatch{{Symbol: "BRK-B"}}, resp.Matches)
}

func TestSearchCapsResults(t *testing.T) {
	tickers := make([]string, 150)
	for i := range tickers {
		tickers[i] = fmt.Sprintf("T%03d", i)
	}
	uni := &fakeUniverse{uni: models.Universe{Tickers: tickers}}
	h := newSearchHandler(t, uni)

	_, resp := doSearch(t, h, "t")
	require.Len(t, resp.Matches, maxSearchResults)
}

func TestSearchEmptyQuerySkipsResolution(t *testing.T) {
	uni := &fakeUniverse{err: errors.New("must not be called")}
	h := newSearchHandler(t, uni)

	code, resp := doSearch(t, h, "")
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, resp.Matches)
	require.Zero(t, uni.calls)
}

func TestSearchServesFromCache(t *testing.T) {
	uni := &fakeUniverse{uni: models.Universe{Tickers: []string{"AAPL", "MSFT"}}}
	h := newSearchHandler(t, uni)

	_, first := doSearch(t, h, "ms")
	_, second := doSearch(t, h, "MS")
	require.Equal(t, first.Matches, second.Matches)
	require.Equal(t, 1, uni.calls)
}
