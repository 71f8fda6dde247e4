package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Tickers             []string `json:"tickers"`
	LookbackMonths      int      `json:"lookback_months" default:"6" validate:"gte=1,lte=60"`
	DeclineThresholdPct float64  `json:"decline_threshold_pct" default:"20" validate:"gt=0,lte=100"`
	MinMarketCapMUSD    float64  `json:"min_market_cap_musd" validate:"gte=0"`
}

type RunsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type TickerSearchRequest struct {
	Q string `query:"q" json:"q" validate:"max=32"`
}

// RunsResponse wraps a session's run history.
type RunsResponse struct {
	SessionID string       `json:"session_id"`
	Runs      []RunSummary `json:"runs"`
}

// AnalyzeResponse is a stored or fresh run plus its session binding.
type AnalyzeResponse struct {
	SessionID string `json:"session_id"`
	RunResult
}

// AsyncAnalyzeResponse acknowledges an enqueued run job.
type AsyncAnalyzeResponse struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type UniverseResponse struct {
	Source      string   `json:"source"`
	AsOf        string   `json:"as_of,omitempty"`
	TickerCount int      `json:"ticker_count"`
	Tickers     []string `json:"tickers"`
}

type TickerSearchResponse struct {
	Query   string        `json:"query"`
	Matches []TickerMatch `json:"matches"`
}
