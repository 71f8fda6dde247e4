package universe

import (
	"context"
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	"BluffScan/pkg/cache"
	applogger "BluffScan/pkg/logger"
	"BluffScan/pkg/util"
)

const cacheKey = "bluffscan:universe:default"

type Config struct {
	Size         int    // target universe size
	SnapshotPath string // CSV with ticker[,as_of] columns
	CacheTTL     time.Duration
}

// Resolver resolves the default ticker universe through a fallback chain:
// cached result, live index membership, the on-disk snapshot, and finally
// the built-in seed list. Every level yields a well-formed universe, so a
// run never fails for lack of a universe.
type Resolver struct {
	directory domrepo.TickerDirectory
	cache     cache.Service
	cfg       Config
	logger    *applogger.Logger
}

func NewResolver(directory domrepo.TickerDirectory, cacheSvc cache.Service, cfg Config, logger *applogger.Logger) *Resolver {
	if cfg.Size <= 0 {
		cfg.Size = 300
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Resolver{directory: directory, cache: cacheSvc, cfg: cfg, logger: logger}
}

var _ domrepo.UniverseResolver = (*Resolver)(nil)

func (r *Resolver) DefaultUniverse(ctx context.Context) (models.Universe, error) {
	var cached models.Universe
	if err := r.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached.Tickers) > 0 {
		return cached, nil
	}

	uni := r.resolve(ctx)
	uni = r.resize(uni)

	if err := r.cache.Set(ctx, cacheKey, uni, r.cfg.CacheTTL); err != nil {
		r.logger.Warn("universe cache set failed", applogger.Error(err))
	}
	return uni, nil
}

func (r *Resolver) resolve(ctx context.Context) models.Universe {
	if members, err := r.directory.IndexConstituents(ctx); err == nil && len(members) > 0 {
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		now := time.Now().UTC()
		return models.Universe{Source: "index-live", AsOf: &now, Tickers: sorted}
	} else if err != nil {
		r.logger.Warn("live index membership unavailable", applogger.Error(err))
	}

	if uni, ok := r.loadSnapshot(); ok {
		return uni
	}

	return models.Universe{Source: "fallback-static", Tickers: util.DedupeKeepOrder(seedTickers)}
}

func (r *Resolver) loadSnapshot() (models.Universe, bool) {
	if r.cfg.SnapshotPath == "" {
		return models.Universe{}, false
	}
	f, err := os.Open(r.cfg.SnapshotPath)
	if err != nil {
		r.logger.Warn("universe snapshot unavailable",
			applogger.String("path", r.cfg.SnapshotPath), applogger.Error(err))
		return models.Universe{}, false
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) < 2 {
		return models.Universe{}, false
	}

	tickerCol, asOfCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ticker":
			tickerCol = i
		case "as_of":
			asOfCol = i
		}
	}
	if tickerCol < 0 {
		return models.Universe{}, false
	}

	uni := models.Universe{Source: "snapshot"}
	tickers := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tickerCol < len(row) {
			tickers = append(tickers, row[tickerCol])
		}
	}
	uni.Tickers = util.DedupeKeepOrder(tickers)
	sort.Strings(uni.Tickers)

	if asOfCol >= 0 && asOfCol < len(rows[1]) {
		if asOf, err := time.Parse("2006-01-02", strings.TrimSpace(rows[1][asOfCol])); err == nil {
			uni.AsOf = &asOf
		}
	}
	return uni, len(uni.Tickers) > 0
}

// resize pads a short universe from the seed list and truncates a long one,
// tagging the source with the effective size.
func (r *Resolver) resize(uni models.Universe) models.Universe {
	tickers := util.DedupeKeepOrder(uni.Tickers)

	if len(tickers) < r.cfg.Size {
		present := make(map[string]struct{}, len(tickers))
		for _, t := range tickers {
			present[t] = struct{}{}
		}
		for _, t := range util.DedupeKeepOrder(seedTickers) {
			if len(tickers) >= r.cfg.Size {
				break
			}
			if _, ok := present[t]; !ok {
				tickers = append(tickers, t)
			}
		}
	}
	if len(tickers) > r.cfg.Size {
		tickers = tickers[:r.cfg.Size]
	}

	uni.Tickers = tickers
	if uni.Source != "" && !strings.HasSuffix(uni.Source, sizeSuffix(r.cfg.Size)) {
		uni.Source += sizeSuffix(r.cfg.Size)
	}
	return uni
}

func sizeSuffix(n int) string {
	return "-top" + strconv.Itoa(n)
}
