package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	require.InDelta(t, 1.75, Percentile(values, 25), 1e-9)
	require.InDelta(t, 2.5, Percentile(values, 50), 1e-9)
	require.InDelta(t, 3.25, Percentile(values, 75), 1e-9)
}

func TestPercentileBounds(t *testing.T) {
	values := []float64{5, 1, 9}

	require.Equal(t, 1.0, Percentile(values, 0))
	require.Equal(t, 9.0, Percentile(values, 100))
	require.Equal(t, 0.0, Percentile(nil, 50))
	require.Equal(t, 7.0, Percentile([]float64{7}, 50))
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 50)
	require.Equal(t, []float64{3, 1, 2}, values)
}

func TestRecoveryDistribution(t *testing.T) {
	dist := RecoveryDistribution([]float64{2, 9, 4, 7})
	require.NotNil(t, dist.P25)
	require.NotNil(t, dist.Median)
	require.NotNil(t, dist.P75)
	require.LessOrEqual(t, *dist.P25, *dist.Median)
	require.LessOrEqual(t, *dist.Median, *dist.P75)
}

func TestRecoveryDistributionEmpty(t *testing.T) {
	dist := RecoveryDistribution(nil)
	require.Nil(t, dist.P25)
	require.Nil(t, dist.Median)
	require.Nil(t, dist.P75)
}

func TestRounding(t *testing.T) {
	require.Equal(t, 33.3333, Round4(100.0/3))
	require.Equal(t, 33.333, Round3(100.0/3))
}

func TestSafeRatio(t *testing.T) {
	require.Equal(t, 0.5, SafeRatio(1, 2))
	require.Equal(t, 0.0, SafeRatio(1, 0))
	require.Equal(t, 0.0, SafeRatio(1, -3))
}
