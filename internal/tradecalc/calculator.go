// Package tradecalc reconciles finished trade windows: it fetches the minute
// candles spanning [entry, exit], derives entry/exit/extreme prices and ROI
// and upserts the result on its natural key. Persisted numerics are
// fixed-digit decimal strings: 10 fractional digits for prices, 5 for
// percentages.
package tradecalc

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/common"
)

// CandleSource fetches minute candles covering [entry, exit]. Sources may
// return extra bars around the window; the calculator filters strictly.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, entry, exit time.Time) ([]common.Candle, error)
}

type resultStore interface {
	UpsertTradeResult(ctx context.Context, r db.TradeResult) error
}

// Request identifies one trade window to reconcile.
type Request struct {
	Exchange       common.Exchange
	MarketType     common.MarketType
	Symbol         string
	Side           common.Side
	EntryTime      time.Time
	HoldingMinutes int
	PriceBasis     string
	RunID          sql.NullInt64
	// RecordedEntryPrice is the WAITING row's entry price, kept on the ERROR
	// path where no candle data replaces it.
	RecordedEntryPrice string
}

// Calculator computes and persists trade results.
type Calculator struct {
	sources map[common.Exchange]CandleSource
	store   resultStore
	tzTag   string
}

// New creates a calculator over one candle source per exchange.
func New(sources map[common.Exchange]CandleSource, store resultStore, tzTag string) *Calculator {
	return &Calculator{sources: sources, store: store, tzTag: tzTag}
}

// Reconcile closes out one trade window. An empty or fully-out-of-range
// candle response persists MISSING_DATA and returns nil: that is a normal
// outcome near data-retention edges, not a failure. A fetch or store failure
// persists ERROR and returns the error so batch callers can log and continue.
func (c *Calculator) Reconcile(ctx context.Context, req Request) error {
	exit := req.EntryTime.Add(time.Duration(req.HoldingMinutes) * time.Minute)
	row := db.TradeResult{
		Exchange:       string(req.Exchange),
		MarketType:     string(req.MarketType),
		Symbol:         req.Symbol,
		Side:           string(req.Side),
		EntryTime:      req.EntryTime,
		HoldingMinutes: req.HoldingMinutes,
		ExitTime:       exit,
		PriceBasis:     req.PriceBasis,
		Timezone:       c.tzTag,
		RunID:          req.RunID,
	}

	source, ok := c.sources[req.Exchange]
	if !ok {
		return fmt.Errorf("no candle source for exchange %s", req.Exchange)
	}

	candles, err := source.Candles(ctx, req.Symbol, req.EntryTime, exit)
	if err != nil {
		row.Status = db.StatusError
		row.EntryPrice = req.RecordedEntryPrice
		row.Note = fmt.Sprintf("candle fetch failed: %v", err)
		if storeErr := c.store.UpsertTradeResult(ctx, row); storeErr != nil {
			return storeErr
		}
		return fmt.Errorf("fetch candles %s/%s: %w", req.Exchange, req.Symbol, err)
	}

	inWindow := filterWindow(candles, req.EntryTime, exit)
	if len(inWindow) == 0 {
		row.Status = db.StatusMissingData
		row.EntryPrice = "0"
		row.ExitPrice = sql.NullString{String: "0", Valid: true}
		if len(candles) == 0 {
			row.Note = "no candles returned for window"
		} else {
			row.Note = fmt.Sprintf("all %d candles fell outside the window", len(candles))
		}
		return c.store.UpsertTradeResult(ctx, row)
	}

	entryPrice := inWindow[0].Open
	exitPrice := inWindow[len(inWindow)-1].Close
	maxPrice := inWindow[0].High
	minPrice := inWindow[0].Low
	for _, bar := range inWindow[1:] {
		if bar.High > maxPrice {
			maxPrice = bar.High
		}
		if bar.Low < minPrice {
			minPrice = bar.Low
		}
	}

	exitROI := roiPct(entryPrice, exitPrice, req.Side)
	// The favorable extreme inverts for shorts: best case comes from the
	// window low, worst case from the window high.
	maxROI := roiPct(entryPrice, maxPrice, req.Side)
	minROI := roiPct(entryPrice, minPrice, req.Side)
	if req.Side == common.SideShort {
		maxROI, minROI = minROI, maxROI
	}

	row.Status = db.StatusOK
	row.EntryPrice = priceString(entryPrice)
	row.ExitPrice = nullPrice(exitPrice)
	row.MaxPriceDuring = nullPrice(maxPrice)
	row.MinPriceDuring = nullPrice(minPrice)
	row.ExitROIPct = nullPct(exitROI)
	row.MaxROIPct = nullPct(maxROI)
	row.MinROIPct = nullPct(minROI)
	return c.store.UpsertTradeResult(ctx, row)
}

// filterWindow keeps candles with entry <= t <= exit, sorted ascending.
func filterWindow(candles []common.Candle, entry, exit time.Time) []common.Candle {
	var kept []common.Candle
	for _, c := range candles {
		if c.Time.Before(entry) || c.Time.After(exit) {
			continue
		}
		kept = append(kept, c)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Time.Before(kept[j].Time) })
	return kept
}

// roiPct is the signed percentage change of price vs entry for the side:
// (price-entry)/entry*100 long, (entry-price)/entry*100 short.
func roiPct(entry, price float64, side common.Side) decimal.Decimal {
	e := decimal.NewFromFloat(entry)
	p := decimal.NewFromFloat(price)
	diff := p.Sub(e)
	if side == common.SideShort {
		diff = e.Sub(p)
	}
	return diff.Div(e).Mul(decimal.NewFromInt(100))
}

func priceString(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(10)
}

func nullPrice(v float64) sql.NullString {
	return sql.NullString{String: priceString(v), Valid: true}
}

func nullPct(v decimal.Decimal) sql.NullString {
	return sql.NullString{String: v.StringFixed(5), Valid: true}
}
