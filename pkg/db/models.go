package db

import (
	"database/sql"
	"time"
)

// TradeResult statuses. A row is born WAITING when a position opens and is
// finalized exactly once by the reconciliation pass.
const (
	StatusWaiting     = "WAITING"
	StatusOK          = "OK"
	StatusSkipped     = "SKIPPED"
	StatusMissingData = "MISSING_DATA"
	StatusError       = "ERROR"
)

// JobRun groups the trade results created by one scheduled batch invocation.
// Insert-only; never updated after creation.
type JobRun struct {
	ID                 int64
	Exchange           string
	ScheduleInterval   string
	BaseHoldingMinutes int
	PriceBasis         string
	Timezone           string
	Note               string
	CreatedAt          time.Time
}

// TradeResult is one ledger row per (exchange, symbol, side, entry_time,
// holding_minutes). Prices and percentages are stored as fixed-digit decimal
// strings to avoid rounding drift downstream; exit fields stay NULL until
// the window is reconciled.
type TradeResult struct {
	ID             int64
	Exchange       string
	MarketType     string
	Symbol         string
	Side           string
	EntryTime      time.Time
	HoldingMinutes int
	ExitTime       time.Time
	EntryPrice     string
	ExitPrice      sql.NullString
	MaxROIPct      sql.NullString
	MinROIPct      sql.NullString
	ExitROIPct     sql.NullString
	MaxPriceDuring sql.NullString
	MinPriceDuring sql.NullString
	PriceBasis     string
	Timezone       string
	Status         string
	Note           string
	RunID          sql.NullInt64
	CreatedAt      time.Time
}
