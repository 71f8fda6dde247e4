package models

import "time"

// PriceBar is one trading day of a ticker's price history. High/Low drive
// peak/trough detection; Close drives return series for beta estimation.
// Immutable once retrieved from the feed.
type PriceBar struct {
	Date  time.Time
	High  float64
	Low   float64
	Close float64
}

// Episode is one decline-then-(optional)recovery cycle for a ticker.
// Invariants: TroughDate > PeakDate; DeclinePct >= ThresholdPct for every
// qualifying episode; RecoveryDate > TroughDate when present.
type Episode struct {
	PeakDate     time.Time `json:"peak_date"`
	PeakPrice    float64   `json:"peak_price"`
	TroughDate   time.Time `json:"trough_date"`
	TroughPrice  float64   `json:"trough_price"`
	DeclinePct   float64   `json:"decline_pct"`
	ThresholdPct float64   `json:"threshold_pct"` // effective (beta-scaled) threshold

	Recovered     bool       `json:"recovered"`
	RecoveryDate  *time.Time `json:"recovery_date,omitempty"`
	RecoveryPrice *float64   `json:"recovery_price,omitempty"`
	RecoveryDays  *int       `json:"recovery_days,omitempty"`
}

// TickerResult is one ticker's reportable row: the primary episode (largest
// decline, earliest peak on ties) flattened, plus per-ticker event counts.
type TickerResult struct {
	Ticker       string  `json:"ticker"`
	DeclinePct   float64 `json:"decline_pct"`
	ThresholdPct float64 `json:"threshold_pct"`
	Beta         float64 `json:"beta"`

	PeakDate   time.Time `json:"peak_date"`
	TroughDate time.Time `json:"trough_date"`

	PeakPrice   float64 `json:"peak_price"`
	TroughPrice float64 `json:"trough_price"`

	MarketCapMUSD *float64 `json:"market_cap_musd,omitempty"`

	Recovered     bool       `json:"recovered"`
	RecoveryDate  *time.Time `json:"recovery_date,omitempty"`
	RecoveryPrice *float64   `json:"recovery_price,omitempty"`
	RecoveryDays  *int       `json:"recovery_days,omitempty"`

	QualifyingEvents int `json:"qualifying_events"`
	RecoveredEvents  int `json:"recovered_events"`
}

// RunParameters is the immutable input of one analysis run.
type RunParameters struct {
	Tickers             []string `json:"tickers"`
	LookbackMonths      int      `json:"lookback_months"`
	DeclineThresholdPct float64  `json:"decline_threshold_pct"`
	MinMarketCapMUSD    float64  `json:"min_market_cap_musd"`
	UsedDefaultUniverse bool     `json:"used_default_universe"`
}

// FailedTicker records a ticker removed from evaluation and why.
type FailedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// RecoveryDistribution holds percentiles over recovery days of recovered
// episodes. All fields are nil when no episode recovered.
type RecoveryDistribution struct {
	P25    *float64 `json:"p25"`
	Median *float64 `json:"median"`
	P75    *float64 `json:"p75"`
}

// RunResult is the full output of one analysis run. Built once by the
// aggregator and never mutated afterwards.
type RunResult struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Params RunParameters `json:"params"`

	UniverseSize         int `json:"universe_size"`
	EvaluatedTickerCount int `json:"evaluated_ticker_count"`

	DeclinedStockCount  int     `json:"declined_stock_count"`
	RecoveredStockCount int     `json:"recovered_stock_count"`
	StockBluffRatePct   float64 `json:"stock_bluff_rate_pct"`

	DeclinedEventCount  int     `json:"declined_event_count"`
	RecoveredEventCount int     `json:"recovered_event_count"`
	EventBluffRatePct   float64 `json:"event_bluff_rate_pct"`

	RecoveryDaysDistribution RecoveryDistribution `json:"recovery_days_distribution"`

	FailedTickerCount int            `json:"failed_ticker_count"`
	FailedTickers     []FailedTicker `json:"failed_tickers"`

	DeclinedStocks  []TickerResult `json:"declined_stocks"`
	RecoveredStocks []TickerResult `json:"recovered_stocks"`
}

// RunEvent is the wire envelope for completed runs flowing through the event
// backend (Kafka topic or queue payload).
type RunEvent struct {
	SessionID string    `json:"session_id"`
	Run       RunResult `json:"run"`
}

// RunSummary is the compact row returned by run-history listings.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	LookbackMonths      int     `json:"lookback_months"`
	DeclineThresholdPct float64 `json:"decline_threshold_pct"`
	MinMarketCapMUSD    float64 `json:"min_market_cap_musd"`

	DeclinedStockCount  int     `json:"declined_stock_count"`
	RecoveredStockCount int     `json:"recovered_stock_count"`
	StockBluffRatePct   float64 `json:"stock_bluff_rate_pct"`
}
