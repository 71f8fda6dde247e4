package engine

import (
	"BluffScan/internal/domain/models"
)

// FindEpisodes walks one ticker's date-ordered bars and returns every
// qualifying decline/recovery episode, in peak-date order.
//
// The walk is a single O(n) pass with explicit peak/trough state:
//   - a bar whose High exceeds the running peak finalizes the previous
//     peak/trough candidate (if it qualifies) and starts a fresh one;
//   - a bar whose Low undercuts the running trough deepens the candidate;
//   - the candidate still open at the end of the series is finalized the
//     same way (a drawdown in progress is evaluated against bars seen so far).
//
// A candidate qualifies when its drawdown, measured in basis points of the
// peak, reaches thresholdPct and the trough falls strictly after the peak.
// Recovery is the first bar after the trough whose High reaches the peak
// price again; episodes with no such bar inside the window stay unrecovered.
//
// Bars with a non-positive High or Low (or Low > High) are bad data: they are
// skipped and counted in skipped, never failing the whole ticker. Fewer than
// 2 usable bars yields no episodes.
func FindEpisodes(bars []models.PriceBar, thresholdPct float64) (episodes []models.Episode, skipped int) {
	usable := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.High <= 0 || b.Low <= 0 || b.Low > b.High {
			skipped++
			continue
		}
		usable = append(usable, b)
	}
	if len(usable) < 2 {
		return nil, skipped
	}

	thresholdBps := thresholdPct * 100

	peak := usable[0]
	trough := usable[0]
	troughIdx := 0

	finalize := func() {
		if !trough.Date.After(peak.Date) {
			return
		}
		declineBps := (peak.High - trough.Low) / peak.High * 10000
		if declineBps < thresholdBps {
			return
		}

		ep := models.Episode{
			PeakDate:     peak.Date,
			PeakPrice:    peak.High,
			TroughDate:   trough.Date,
			TroughPrice:  trough.Low,
			DeclinePct:   declineBps / 100,
			ThresholdPct: thresholdPct,
		}
		for j := troughIdx + 1; j < len(usable); j++ {
			if usable[j].High >= peak.High {
				d := usable[j].Date
				p := usable[j].High
				days := DayCount(trough.Date, d)
				ep.Recovered = true
				ep.RecoveryDate = &d
				ep.RecoveryPrice = &p
				ep.RecoveryDays = &days
				break
			}
		}
		episodes = append(episodes, ep)
	}

	for i := 1; i < len(usable); i++ {
		b := usable[i]
		switch {
		case b.High > peak.High:
			finalize()
			peak = b
			trough = b
			troughIdx = i
		case b.Low < trough.Low:
			trough = b
			troughIdx = i
		}
	}
	finalize()

	return episodes, skipped
}

// PrimaryEpisode selects the episode representing a ticker in result rows:
// the largest decline, ties broken by the earliest peak date. Episodes must
// be non-empty.
func PrimaryEpisode(episodes []models.Episode) models.Episode {
	primary := episodes[0]
	for _, ep := range episodes[1:] {
		if ep.DeclinePct > primary.DeclinePct ||
			(ep.DeclinePct == primary.DeclinePct && ep.PeakDate.Before(primary.PeakDate)) {
			primary = ep
		}
	}
	return primary
}

// CountRecovered returns how many of the episodes recovered.
func CountRecovered(episodes []models.Episode) int {
	n := 0
	for _, ep := range episodes {
		if ep.Recovered {
			n++
		}
	}
	return n
}
