package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BluffScan/internal/domain/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, high, low float64) models.PriceBar {
	return models.PriceBar{Date: day(d), High: high, Low: low, Close: (high + low) / 2}
}

func TestFindEpisodesDeclineAndRecovery(t *testing.T) {
	bars := []models.PriceBar{
		bar(1, 100, 100),
		bar(2, 100, 100),
		bar(3, 70, 70),
		bar(5, 100, 100),
	}

	episodes, skipped := FindEpisodes(bars, 20)
	require.Zero(t, skipped)
	require.Len(t, episodes, 1)

	ep := episodes[0]
	require.Equal(t, day(1), ep.PeakDate)
	require.Equal(t, 100.0, ep.PeakPrice)
	require.Equal(t, day(3), ep.TroughDate)
	require.Equal(t, 70.0, ep.TroughPrice)
	require.InDelta(t, 30.0, ep.DeclinePct, 1e-9)
	require.True(t, ep.Recovered)
	require.NotNil(t, ep.RecoveryDate)
	require.Equal(t, day(5), *ep.RecoveryDate)
	require.NotNil(t, ep.RecoveryPrice)
	require.Equal(t, 100.0, *ep.RecoveryPrice)
	require.NotNil(t, ep.RecoveryDays)
	require.Equal(t, 2, *ep.RecoveryDays)
}

func TestFindEpisodesEndsAtTrough(t *testing.T) {
	bars := []models.PriceBar{
		bar(1, 100, 100),
		bar(2, 100, 100),
		bar(3, 70, 70),
	}

	episodes, _ := FindEpisodes(bars, 20)
	require.Len(t, episodes, 1)
	require.False(t, episodes[0].Recovered)
	require.Nil(t, episodes[0].RecoveryDate)
	require.Nil(t, episodes[0].RecoveryPrice)
	require.Nil(t, episodes[0].RecoveryDays)
}

func TestFindEpisodesBelowThreshold(t *testing.T) {
	bars := []models.PriceBar{
		bar(1, 100, 100),
		bar(2, 70, 70),
		bar(3, 100, 100),
	}

	// a 30% drawdown against a 40% effective threshold does not qualify
	episodes, _ := FindEpisodes(bars, 40)
	require.Empty(t, episodes)
}

func TestFindEpisodesSkipsBadBars(t *testing.T) {
	bars := []models.PriceBar{
		bar(1, 100, 100),
		{Date: day(2), High: 100, Low: -1},
		bar(3, 70, 70),
		bar(5, 100, 100),
	}

	episodes, skipped := FindEpisodes(bars, 20)
	require.Equal(t, 1, skipped)
	require.Len(t, episodes, 1)
	require.Equal(t, day(3), episodes[0].TroughDate)
}

func TestFindEpisodesPeakResetOnNewHigh(t *testing.T) {
	bars := []models.PriceBar{
		bar(1, 100, 100),
		bar(2, 75, 75),
		bar(3, 110, 110), // new high finalizes the first episode
		bar(4, 80, 80),
	}

	episodes, _ := FindEpisodes(bars, 20)
	require.Len(t, episodes, 2)

	first := episodes[0]
	require.Equal(t, day(1), first.PeakDate)
	require.InDelta(t, 25.0, first.DeclinePct, 1e-9)
	require.True(t, first.Recovered)
	require.Equal(t, day(3), *first.RecoveryDate)
	require.Equal(t, 1, *first.RecoveryDays)

	second := episodes[1]
	require.Equal(t, day(3), second.PeakDate)
	require.InDelta(t, (110.0-80.0)/110.0*100, second.DeclinePct, 1e-9)
	require.False(t, second.Recovered)
}

func TestFindEpisodesTooFewBars(t *testing.T) {
	episodes, _ := FindEpisodes([]models.PriceBar{bar(1, 100, 100)}, 20)
	require.Empty(t, episodes)

	episodes, skipped := FindEpisodes(nil, 20)
	require.Empty(t, episodes)
	require.Zero(t, skipped)
}

func TestFindEpisodesInvariants(t *testing.T) {
	bars := []models.PriceBar{
		bar(1, 100, 95),
		bar(2, 98, 60),
		bar(3, 105, 90),
		bar(4, 80, 50),
		bar(6, 120, 100),
	}

	episodes, _ := FindEpisodes(bars, 20)
	require.NotEmpty(t, episodes)
	for _, ep := range episodes {
		require.True(t, ep.TroughDate.After(ep.PeakDate))
		require.GreaterOrEqual(t, ep.DeclinePct, ep.ThresholdPct)
		if ep.Recovered {
			require.True(t, ep.RecoveryDate.After(ep.TroughDate))
			require.GreaterOrEqual(t, *ep.RecoveryPrice, ep.PeakPrice)
			require.GreaterOrEqual(t, *ep.RecoveryDays, 0)
		}
	}
}

func TestPrimaryEpisodeLargestDecline(t *testing.T) {
	episodes := []models.Episode{
		{PeakDate: day(1), DeclinePct: 25},
		{PeakDate: day(5), DeclinePct: 40},
		{PeakDate: day(9), DeclinePct: 30},
	}
	require.Equal(t, 40.0, PrimaryEpisode(episodes).DeclinePct)
}

func TestPrimaryEpisodeTieBreaksEarliestPeak(t *testing.T) {
	episodes := []models.Episode{
		{PeakDate: day(5), DeclinePct: 30},
		{PeakDate: day(1), DeclinePct: 30},
	}
	require.Equal(t, day(1), PrimaryEpisode(episodes).PeakDate)
}

func TestCountRecovered(t *testing.T) {
	episodes := []models.Episode{
		{Recovered: true},
		{Recovered: false},
		{Recovered: true},
	}
	require.Equal(t, 2, CountRecovered(episodes))
}
