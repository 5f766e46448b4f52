// Package db persists the job-run ledger and trade results in SQLite.
// All trade_result writes are upserts on the natural key so re-running a
// reconciliation batch is idempotent.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

const tradeResultColumns = `
	id, exchange, market_type, symbol, side, entry_time, holding_minutes,
	exit_time, entry_price, exit_price, max_roi_pct, min_roi_pct,
	exit_roi_pct, max_price_during, min_price_during, price_basis,
	timezone, status, COALESCE(note, ''), run_id, created_at`

// CreateJobRun inserts a batch header and returns its id.
func (d *Database) CreateJobRun(ctx context.Context, run JobRun) (int64, error) {
	res, err := d.DB.ExecContext(ctx, `
		INSERT INTO job_run (exchange, schedule_interval, base_holding_minutes, price_basis, timezone, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Exchange, run.ScheduleInterval, run.BaseHoldingMinutes, run.PriceBasis, run.Timezone, nullIfEmpty(run.Note))
	if err != nil {
		return 0, fmt.Errorf("insert job_run: %w", err)
	}
	return res.LastInsertId()
}

// UpsertTradeResult inserts or overwrites the row identified by the natural
// key (exchange, symbol, side, entry_time, holding_minutes).
func (d *Database) UpsertTradeResult(ctx context.Context, r TradeResult) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trade_result
			(exchange, market_type, symbol, side, entry_time, holding_minutes,
			 exit_time, entry_price, exit_price, max_roi_pct, min_roi_pct,
			 exit_roi_pct, max_price_during, min_price_during, price_basis,
			 timezone, status, note, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exchange, symbol, side, entry_time, holding_minutes) DO UPDATE SET
			market_type = excluded.market_type,
			exit_time = excluded.exit_time,
			entry_price = excluded.entry_price,
			exit_price = excluded.exit_price,
			max_roi_pct = excluded.max_roi_pct,
			min_roi_pct = excluded.min_roi_pct,
			exit_roi_pct = excluded.exit_roi_pct,
			max_price_during = excluded.max_price_during,
			min_price_during = excluded.min_price_during,
			price_basis = excluded.price_basis,
			timezone = excluded.timezone,
			status = excluded.status,
			note = excluded.note,
			run_id = excluded.run_id
	`,
		r.Exchange, r.MarketType, r.Symbol, r.Side, r.EntryTime.UTC(), r.HoldingMinutes,
		r.ExitTime.UTC(), r.EntryPrice, r.ExitPrice, r.MaxROIPct, r.MinROIPct,
		r.ExitROIPct, r.MaxPriceDuring, r.MinPriceDuring, r.PriceBasis,
		r.Timezone, r.Status, nullIfEmpty(r.Note), r.RunID)
	if err != nil {
		return fmt.Errorf("upsert trade_result %s/%s: %w", r.Exchange, r.Symbol, err)
	}
	return nil
}

// FindTradeResult looks up one row by natural key.
func (d *Database) FindTradeResult(ctx context.Context, exchange, symbol, side string, entryTime time.Time, holdingMinutes int) (*TradeResult, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT `+tradeResultColumns+`
		FROM trade_result
		WHERE exchange = ? AND symbol = ? AND side = ? AND entry_time = ? AND holding_minutes = ?
	`, exchange, symbol, side, entryTime.UTC(), holdingMinutes)

	r, err := scanTradeResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query trade_result: %w", err)
	}
	return r, nil
}

// ListDueWaiting returns WAITING rows whose holding window has elapsed.
func (d *Database) ListDueWaiting(ctx context.Context, now time.Time) ([]TradeResult, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+tradeResultColumns+`
		FROM trade_result
		WHERE status = ? AND exit_time <= ?
		ORDER BY exit_time ASC
	`, StatusWaiting, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query waiting trade_result: %w", err)
	}
	defer rows.Close()
	return collectTradeResults(rows)
}

// ListTradeResults returns the most recent rows, optionally for one exchange.
func (d *Database) ListTradeResults(ctx context.Context, exchange string, limit int) ([]TradeResult, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + tradeResultColumns + ` FROM trade_result`
	args := []any{}
	if exchange != "" {
		query += ` WHERE exchange = ?`
		args = append(args, exchange)
	}
	query += ` ORDER BY entry_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade_result: %w", err)
	}
	defer rows.Close()
	return collectTradeResults(rows)
}

// ListJobRuns returns the most recent batch headers.
func (d *Database) ListJobRuns(ctx context.Context, limit int) ([]JobRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, exchange, schedule_interval, base_holding_minutes,
		       price_basis, timezone, COALESCE(note, ''), created_at
		FROM job_run
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query job_run: %w", err)
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var r JobRun
		if err := rows.Scan(&r.ID, &r.Exchange, &r.ScheduleInterval, &r.BaseHoldingMinutes,
			&r.PriceBasis, &r.Timezone, &r.Note, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job_run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTradeResult(row rowScanner) (*TradeResult, error) {
	var r TradeResult
	err := row.Scan(&r.ID, &r.Exchange, &r.MarketType, &r.Symbol, &r.Side,
		&r.EntryTime, &r.HoldingMinutes, &r.ExitTime, &r.EntryPrice,
		&r.ExitPrice, &r.MaxROIPct, &r.MinROIPct, &r.ExitROIPct,
		&r.MaxPriceDuring, &r.MinPriceDuring, &r.PriceBasis, &r.Timezone,
		&r.Status, &r.Note, &r.RunID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectTradeResults(rows *sql.Rows) ([]TradeResult, error) {
	var results []TradeResult
	for rows.Next() {
		r, err := scanTradeResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade_result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
