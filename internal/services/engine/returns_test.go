package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

func TestAlignReturnsPairwiseDrop(t *testing.T) {
	index := []models.PriceBar{
		closeBar(1, 100), closeBar(2, 110), closeBar(3, 121), closeBar(4, 133.1),
	}
	// ticker has no bar on day 3: the day-3 and day-4 returns drop on both sides
	ticker := []models.PriceBar{
		closeBar(1, 10), closeBar(2, 12), closeBar(4, 15),
	}

	tr, ir := AlignReturns(ticker, index)
	require.Len(t, tr, 1)
	require.Len(t, ir, 1)
	require.InDelta(t, 0.2, tr[0], 1e-9)
	require.InDelta(t, 0.1, ir[0], 1e-9)
}

func TestAlignReturnsSameDates(t *testing.T) {
	index := []models.PriceBar{closeBar(1, 100), closeBar(2, 105), closeBar(3, 110)}
	ticker := []models.PriceBar{closeBar(1, 50), closeBar(2, 55), closeBar(3, 44)}

	tr, ir := AlignReturns(ticker, index)
	require.Len(t, tr, 2)
	require.Len(t, ir, 2)
}

func TestDailyReturnsSkipNonPositiveClose(t *testing.T) {
	bars := []models.PriceBar{
		closeBar(1, 100),
		{Date: day(2), Close: 0},
		closeBar(3, 110),
	}

	rs := dailyReturns(bars)
	// the broken close contributes nothing on either side of the chain
	require.Empty(t, rs)
}

func TestDayCount(t *testing.T) {
	require.Equal(t, 2, DayCount(day(3), day(5)))
	require.Equal(t, 0, DayCount(day(3), day(3)))
}
