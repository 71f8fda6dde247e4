package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"BluffScan/internal/domain/models"
)

// Beta estimates the ticker's sensitivity to the index: the slope of ticker
// returns regressed on index returns, i.e. Cov(ticker, index) / Var(index)
// over the aligned window. Sample (n-1) statistics, matching gonum defaults.
//
// Beta is undefined (and the ticker must be excluded from the run) when fewer
// than 2 aligned observations exist or the index variance is zero. The sign
// is never clamped; a negative beta only affects the threshold through the
// max-with-1 rule applied by the caller.
func Beta(ticker, index []models.PriceBar) (float64, error) {
	rs, ri := AlignReturns(ticker, index)
	if len(rs) < 2 {
		return 0, ErrInsufficientHistory
	}

	variance := stat.Variance(ri, nil)
	if variance <= 0 || math.IsNaN(variance) {
		return 0, ErrDegenerateBeta
	}

	beta := stat.Covariance(rs, ri, nil) / variance
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, ErrDegenerateBeta
	}
	return beta, nil
}

// EffectiveThreshold scales the requested decline threshold by max(1, beta):
// more market-sensitive stocks must fall further to count as a genuine
// decline rather than routine beta-driven noise.
func EffectiveThreshold(requestedPct, beta float64) float64 {
	return requestedPct * math.Max(1, beta)
}
