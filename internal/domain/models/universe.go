package models

import "time"

// Universe is a resolved default-universe ticker list with provenance.
type Universe struct {
	Source  string     `json:"source"`
	AsOf    *time.Time `json:"as_of,omitempty"`
	Tickers []string   `json:"tickers"`
}

// TickerMatch is one symbol-search hit.
type TickerMatch struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ProgressEvent is one per-ticker progress update pushed to WebSocket
// subscribers while a run is executing.
type ProgressEvent struct {
	RunID     string `json:"run_id"`
	Ticker    string `json:"ticker"`
	Done      int    `json:"done"`
	Total     int    `json:"total"`
	Failed    bool   `json:"failed"`
	Completed bool   `json:"completed"`
}
