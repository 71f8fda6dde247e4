package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BluffScan/internal/domain/models"
	domrepo "BluffScan/internal/domain/repository"
	pkgch "BluffScan/pkg/clickhouse"
	applogger "BluffScan/pkg/logger"
)

// ClickHouseRunStore implements RunStore backed by ClickHouse. Summary
// columns are materialized for listings; the full result rides along as a
// JSON payload for single-run reads.
type ClickHouseRunStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewClickHouseRunStore(ch *pkgch.Client) *ClickHouseRunStore {
	return &ClickHouseRunStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseRunStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.RunStore = (*ClickHouseRunStore)(nil)

// Schema returns the idempotent DDL for the run store.
func Schema() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS bluffscan`,
		`CREATE TABLE IF NOT EXISTS bluffscan.runs (
            session_id            String,
            run_id                String,
            created_at            DateTime64(3, 'UTC'),
            lookback_months       Int32,
            decline_threshold_pct Float64,
            min_market_cap_musd   Float64,
            universe_size         Int32,
            evaluated_count       Int32,
            declined_stock_count  Int32,
            recovered_stock_count Int32,
            stock_bluff_rate_pct  Float64,
            event_bluff_rate_pct  Float64,
            failed_ticker_count   Int32,
            payload               String
        ) ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMM(created_at)
        ORDER BY (session_id, run_id)`,
	}
}

func (s *ClickHouseRunStore) SaveRun(ctx context.Context, sessionID string, run *models.RunResult) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("run is nil or missing id")
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	start := time.Now()
	const q = `INSERT INTO bluffscan.runs (
        session_id, run_id, created_at,
        lookback_months, decline_threshold_pct, min_market_cap_musd,
        universe_size, evaluated_count,
        declined_stock_count, recovered_stock_count, stock_bluff_rate_pct,
        event_bluff_rate_pct, failed_ticker_count, payload
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		sessionID,
		run.RunID,
		run.GeneratedAt,
		int32(run.Params.LookbackMonths),
		run.Params.DeclineThresholdPct,
		run.Params.MinMarketCapMUSD,
		int32(run.UniverseSize),
		int32(run.EvaluatedTickerCount),
		int32(run.DeclinedStockCount),
		int32(run.RecoveredStockCount),
		run.StockBluffRatePct,
		run.EventBluffRatePct,
		int32(run.FailedTickerCount),
		string(payload),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_run error",
				applogger.String("run_id", run.RunID), applogger.Error(err))
		}
		return fmt.Errorf("save run: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse save_run ok",
			applogger.String("run_id", run.RunID),
			applogger.Duration("duration_ms", time.Since(start)))
	}
	return nil
}

func (s *ClickHouseRunStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
        SELECT run_id, created_at,
               lookback_months, decline_threshold_pct, min_market_cap_musd,
               declined_stock_count, recovered_stock_count, stock_bluff_rate_pct
        FROM bluffscan.runs FINAL
        WHERE session_id = ?
        ORDER BY created_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_runs error", applogger.Error(err))
		}
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunSummary, 0, limit)
	for rows.Next() {
		var r models.RunSummary
		var lookback, declined, recovered int32
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &lookback,
			&r.DeclineThresholdPct, &r.MinMarketCapMUSD,
			&declined, &recovered, &r.StockBluffRatePct); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		r.LookbackMonths = int(lookback)
		r.DeclinedStockCount = int(declined)
		r.RecoveredStockCount = int(recovered)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseRunStore) GetRun(ctx context.Context, sessionID, runID string) (*models.RunResult, error) {
	const q = `SELECT payload FROM bluffscan.runs FINAL WHERE session_id = ? AND run_id = ? LIMIT 1`

	var payload string
	err := s.db.QueryRowContext(ctx, q, sessionID, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrRunNotFound
	}
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_run error",
				applogger.String("run_id", runID), applogger.Error(err))
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run models.RunResult
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", runID, err)
	}
	return &run, nil
}

func (s *ClickHouseRunStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseRunStore) Close() error {
	return nil // pool managed by pkg client
}
