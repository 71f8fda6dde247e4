package engine

import "errors"

// Ticker-level failures. Each removes the ticker from evaluation and is
// surfaced in the run's failed_tickers list; none of them aborts a run.
var (
	// ErrDataUnavailable means the feed could not return bars or market cap
	// for the ticker (delisted, unknown symbol, feed outage).
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientHistory means fewer than 2 usable bars or fewer than 2
	// aligned return observations exist in the requested window.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrDegenerateBeta means the index return variance is zero, so beta and
	// the effective threshold are undefined.
	ErrDegenerateBeta = errors.New("degenerate beta: index variance is zero")
)

// FailureReason maps a ticker-level error to the stable reason string stored
// in failed_tickers.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrDegenerateBeta):
		return "degenerate_beta"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	default:
		return "internal"
	}
}
