package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

func closeBar(d int, c float64) models.PriceBar {
	return models.PriceBar{Date: day(d), High: c, Low: c, Close: c}
}

func TestBetaOfIndexIsOne(t *testing.T) {
	series := []models.PriceBar{
		closeBar(1, 100), closeBar(2, 102), closeBar(3, 101),
		closeBar(4, 105), closeBar(5, 103),
	}

	beta, err := Beta(series, series)
	require.NoError(t, err)
	require.InDelta(t, 1.0, beta, 1e-9)
}

func TestBetaDoubledReturns(t *testing.T) {
	index := []models.PriceBar{closeBar(1, 100), closeBar(2, 110), closeBar(3, 99)}
	// ticker returns are exactly twice the index returns
	ticker := []models.PriceBar{closeBar(1, 100), closeBar(2, 120), closeBar(3, 96)}

	beta, err := Beta(ticker, index)
	require.NoError(t, err)
	require.InDelta(t, 2.0, beta, 1e-9)
}

func TestBetaFlatIndexIsDegenerate(t *testing.T) {
	index := []models.PriceBar{closeBar(1, 100), closeBar(2, 100), closeBar(3, 100)}
	ticker := []models.PriceBar{closeBar(1, 100), closeBar(2, 110), closeBar(3, 95)}

	_, err := Beta(ticker, index)
	require.ErrorIs(t, err, ErrDegenerateBeta)
}

func TestBetaTooFewAlignedObservations(t *testing.T) {
	index := []models.PriceBar{closeBar(1, 100), closeBar(2, 101), closeBar(3, 102)}
	// only the day-2 return aligns
	ticker := []models.PriceBar{closeBar(1, 50), closeBar(2, 51), closeBar(7, 52)}

	_, err := Beta(ticker, index)
	require.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestEffectiveThreshold(t *testing.T) {
	require.Equal(t, 40.0, EffectiveThreshold(20, 2))
	require.Equal(t, 20.0, EffectiveThreshold(20, 0.5))
	require.Equal(t, 20.0, EffectiveThreshold(20, -1.3))
	require.Equal(t, 20.0, EffectiveThreshold(20, 1))
}
