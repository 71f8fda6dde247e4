package engine

import (
	"time"

	"BluffScan/internal/domain/models"
)

const dateKeyLayout = "2006-01-02"

// dailyReturns computes day-over-day simple returns r_t = C_t/C_{t-1} - 1
// from closes, keyed by the date of the later bar. Bars with a non-positive
// close break the chain and contribute no return.
func dailyReturns(bars []models.PriceBar) map[string]float64 {
	out := make(map[string]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		out[bars[i].Date.Format(dateKeyLayout)] = cur/prev - 1
	}
	return out
}

// AlignReturns computes the pairwise date-aligned return series of a ticker
// and the index. Dates present on only one side are dropped from both.
// The two result slices have equal length and share date order.
func AlignReturns(ticker, index []models.PriceBar) (tickerReturns, indexReturns []float64) {
	tr := dailyReturns(ticker)
	ir := dailyReturns(index)

	// walk the index series in date order so alignment is deterministic
	tickerReturns = make([]float64, 0, len(ir))
	indexReturns = make([]float64, 0, len(ir))
	for i := 1; i < len(index); i++ {
		key := index[i].Date.Format(dateKeyLayout)
		iv, ok := ir[key]
		if !ok {
			continue
		}
		tv, ok := tr[key]
		if !ok {
			continue
		}
		tickerReturns = append(tickerReturns, tv)
		indexReturns = append(indexReturns, iv)
	}
	return tickerReturns, indexReturns
}

// DayCount returns whole calendar days from a to b.
func DayCount(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
