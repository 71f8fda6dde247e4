package cache

import (
	"time"

	"BluffScan/internal/domain/models"
)

// MatchCache is a short-TTL cache for ticker-search responses, keyed by the
// normalized query.
type MatchCache interface {
	GetMatches(query string) ([]models.TickerMatch, bool)
	SetMatches(query string, matches []models.TickerMatch, ttl time.Duration)
}
