package engine

import (
	"math"
	"sort"

	"BluffScan/internal/domain/models"
)

// Percentile computes the p-th percentile (0..100) of values using linear
// interpolation between order statistics: the value at fractional rank
// p/100*(n-1) of the sorted sample. Returns 0 for an empty slice.
//
// gonum's stat.Quantile cumulant kinds interpolate the empirical CDF, which
// is not the same estimator; this is kept local so percentiles match the
// conventional (numpy-style) definition exactly.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// RecoveryDistribution builds the p25/median/p75 distribution over recovery
// days. All percentiles are nil when values is empty.
func RecoveryDistribution(values []float64) models.RecoveryDistribution {
	if len(values) == 0 {
		return models.RecoveryDistribution{}
	}
	p25 := Round4(Percentile(values, 25))
	med := Round4(Percentile(values, 50))
	p75 := Round4(Percentile(values, 75))
	return models.RecoveryDistribution{P25: &p25, Median: &med, P75: &p75}
}

// Round4 rounds to 4 decimal places (result rows and rates).
func Round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// Round3 rounds to 3 decimal places (market caps).
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// SafeRatio returns numerator/denominator, or 0 when the denominator is not
// positive.
func SafeRatio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}
