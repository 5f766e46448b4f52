// Package gateway executes orders through one generic Trader interface per
// venue: open a ranked market, reserve a take-profit exit, force-close after
// the hold window. Sizing and minimum-order rules are enforced here so the
// exchange never sees an order it would reject for being under-minimum.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"momentum-core/pkg/exchanges/common"
)

// Position is the runtime state of one open trade. It is owned by a single
// strategy runner and passed explicitly through each transition.
type Position struct {
	Exchange    common.Exchange
	Symbol      string
	DisplayName string
	Side        common.Side
	EntryPrice  float64
	OrderIDs    []string
	OpenedAt    time.Time
}

// OpenParams selects what to open. Rank is 1-based into the venue's current
// top-N. StopLossROEPct applies to margined venues only: a return-on-equity
// percentage converted to a price offset by dividing by leverage.
type OpenParams struct {
	Rank           int
	Side           common.Side
	StopLossROEPct float64
}

// Trader is the per-venue execution surface used by the scheduler.
type Trader interface {
	Exchange() common.Exchange

	// Open picks the market at p.Rank and submits a market open order.
	Open(ctx context.Context, p OpenParams) (*Position, error)

	// ReserveExit places a limit order at entry price offset by targetPct
	// in the favorable direction.
	ReserveExit(ctx context.Context, pos *Position, targetPct float64) error

	// ForceClose cancels open orders and market-closes whatever remains.
	ForceClose(ctx context.Context, pos *Position) error
}

// offsetPrice applies a signed percentage to entry. The arithmetic runs in
// decimal space so a clean percentage never lands a float ulp under the next
// tick boundary before flooring.
func offsetPrice(entry, pct float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100)))
	price, _ := decimal.NewFromFloat(entry).Mul(factor).Float64()
	return price
}
