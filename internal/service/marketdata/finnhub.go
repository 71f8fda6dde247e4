package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	"BluffScan/internal/service/ratelimit"
	"BluffScan/pkg/cache"
	pkghttp "BluffScan/pkg/http"
	applogger "BluffScan/pkg/logger"
	"BluffScan/pkg/util"
)

// Config holds the Finnhub REST feed configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	IndexSymbol string

	RateCapacity     float64
	RateRefillPerSec float64

	BarsCacheTTL    time.Duration
	CapCacheTTL     time.Duration
	MembersCacheTTL time.Duration
}

// Finnhub is a REST market-data feed. Daily candles, company profiles,
// symbol search and index constituents, with a layered cache in front and a
// token bucket keeping the feed inside its request quota.
type Finnhub struct {
	cfg     Config
	http    *pkghttp.Client
	cache   cache.Service
	limiter *ratelimit.Limiter
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func New(cfg Config, httpClient *pkghttp.Client, cacheSvc cache.Service, limiter *ratelimit.Limiter, metrics domrepo.Metrics, logger *applogger.Logger) *Finnhub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.IndexSymbol == "" {
		cfg.IndexSymbol = "^GSPC"
	}
	if cfg.RateCapacity <= 0 {
		cfg.RateCapacity = 30
	}
	if cfg.RateRefillPerSec <= 0 {
		cfg.RateRefillPerSec = 0.5 // free tier: 30 req/min
	}
	if cfg.BarsCacheTTL <= 0 {
		cfg.BarsCacheTTL = 15 * time.Minute
	}
	if cfg.CapCacheTTL <= 0 {
		cfg.CapCacheTTL = 6 * time.Hour
	}
	if cfg.MembersCacheTTL <= 0 {
		cfg.MembersCacheTTL = 24 * time.Hour
	}
	return &Finnhub{
		cfg:     cfg,
		http:    httpClient,
		cache:   cacheSvc,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

var (
	_ domrepo.MarketData      = (*Finnhub)(nil)
	_ domrepo.TickerDirectory = (*Finnhub)(nil)
)

// candleResponse is Finnhub's column-oriented candle payload.
type candleResponse struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
}

// GetDailyBars fetches daily candles for [from, to], cached per window.
func (f *Finnhub) GetDailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	from, to = util.AlignToDays(from, to)
	key := cache.GenerateKeyWithParams("bluffscan:candles", ticker,
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	var bars []models.PriceBar
	if err := f.cache.Get(ctx, key, &bars); err == nil && len(bars) > 0 {
		return bars, nil
	}

	var resp candleResponse
	err := f.getJSON(ctx, "/stock/candle", map[string][]string{
		"symbol":     {ticker},
		"resolution": {"D"},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", ticker, err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("candles %s: no data (status %q)", ticker, resp.Status)
	}
	if len(resp.T) != len(resp.H) || len(resp.T) != len(resp.L) || len(resp.T) != len(resp.C) {
		return nil, fmt.Errorf("candles %s: ragged columns", ticker)
	}

	bars = make([]models.PriceBar, 0, len(resp.T))
	for i := range resp.T {
		bars = append(bars, models.PriceBar{
			Date:  time.Unix(resp.T[i], 0).UTC().Truncate(24 * time.Hour),
			High:  resp.H[i],
			Low:   resp.L[i],
			Close: resp.C[i],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if err := f.cache.Set(ctx, key, bars, f.cfg.BarsCacheTTL); err != nil {
		f.logger.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return bars, nil
}

// GetIndexBars fetches the benchmark series via the same candle endpoint.
func (f *Finnhub) GetIndexBars(ctx context.Context, from, to time.Time) ([]models.PriceBar, error) {
	return f.GetDailyBars(ctx, f.cfg.IndexSymbol, from, to)
}

// GetMarketCap returns the company's market cap in MUSD, nil when unknown.
func (f *Finnhub) GetMarketCap(ctx context.Context, ticker string) (*float64, error) {
	key := cache.GenerateKey("bluffscan:marketcap", ticker)

	var cached float64
	if err := f.cache.Get(ctx, key, &cached); err == nil && cached > 0 {
		return &cached, nil
	}

	var resp struct {
		MarketCapitalization float64 `json:"marketCapitalization"` // MUSD
	}
	if err := f.getJSON(ctx, "/stock/profile2", map[string][]string{
		"symbol": {ticker},
	}, &resp); err != nil {
		return nil, fmt.Errorf("profile %s: %w", ticker, err)
	}
	if resp.MarketCapitalization <= 0 {
		return nil, nil
	}

	if err := f.cache.Set(ctx, key, resp.MarketCapitalization, f.cfg.CapCacheTTL); err != nil {
		f.logger.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return &resp.MarketCapitalization, nil
}

// SearchTickers returns up to limit symbol matches for a free-text query.
func (f *Finnhub) SearchTickers(ctx context.Context, query string, limit int) ([]models.TickerMatch, error) {
	var resp struct {
		Result []struct {
			Symbol      string `json:"symbol"`
			Description string `json:"description"`
			Type        string `json:"type"`
		} `json:"result"`
	}
	if err := f.getJSON(ctx, "/search", map[string][]string{
		"q": {strings.TrimSpace(query)},
	}, &resp); err != nil {
		return nil, fmt.Errorf("symbol search %q: %w", query, err)
	}

	matches := make([]models.TickerMatch, 0, limit)
	for _, r := range resp.Result {
		if limit > 0 && len(matches) >= limit {
			break
		}
		matches = append(matches, models.TickerMatch{
			Symbol:      util.NormalizeTicker(r.Symbol),
			Description: r.Description,
			Type:        r.Type,
		})
	}
	return matches, nil
}

// IndexConstituents returns the benchmark index's current member symbols.
func (f *Finnhub) IndexConstituents(ctx context.Context) ([]string, error) {
	key := cache.GenerateKey("bluffscan:constituents", f.cfg.IndexSymbol)

	var cached []string
	if err := f.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}

	var resp struct {
		Constituents []string `json:"constituents"`
	}
	if err := f.getJSON(ctx, "/index/constituents", map[string][]string{
		"symbol": {f.cfg.IndexSymbol},
	}, &resp); err != nil {
		return nil, fmt.Errorf("index constituents: %w", err)
	}
	if len(resp.Constituents) == 0 {
		return nil, fmt.Errorf("index constituents: empty membership")
	}

	members := util.DedupeKeepOrder(resp.Constituents)
	if err := f.cache.Set(ctx, key, members, f.cfg.MembersCacheTTL); err != nil {
		f.logger.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return members, nil
}

func (f *Finnhub) getJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if err := f.waitForToken(ctx); err != nil {
		return err
	}

	query["token"] = []string{f.cfg.APIKey}
	start := time.Now()
	err := f.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         f.cfg.BaseURL + path,
		QueryParams: query,
	}, dest)
	f.metrics.RecordFeedLatency(strings.TrimPrefix(path, "/"), time.Since(start).Seconds())
	if err != nil {
		f.metrics.RecordError("feed_request")
	}
	return err
}

// waitForToken blocks until the shared bucket grants a request or ctx ends.
func (f *Finnhub) waitForToken(ctx context.Context) error {
	for {
		if f.limiter.Allow("finnhub", f.cfg.RateCapacity, f.cfg.RateRefillPerSec) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
