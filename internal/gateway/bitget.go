package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"momentum-core/internal/ranking"
	"momentum-core/internal/ticksize"
	"momentum-core/pkg/exchanges/bitget"
	"momentum-core/pkg/exchanges/common"
)

const (
	// defaultLeverage is applied to every symbol before opening.
	defaultLeverage = 3
	// marginBufferUSDT is held back from the available balance to absorb
	// fee deductions between the balance read and the fill.
	marginBufferUSDT = 2
	// minNotionalUSDT is the exchange-side minimum order value.
	minNotionalUSDT = 5.5
	// sizeDigits is the contract size granularity, 1e-6 contracts.
	sizeDigits = 6
)

// bitgetOrderAPI is the slice of the Bitget client the trader needs.
type bitgetOrderAPI interface {
	GetFuturesTicker(ctx context.Context, symbol string) (*bitget.FuturesTicker, error)
	GetAccount(ctx context.Context, symbol string) (*bitget.Account, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	GetAllPositions(ctx context.Context) ([]bitget.Position, error)
	PlaceOrder(ctx context.Context, p bitget.PlaceOrderParams) (*bitget.OrderAck, error)
	FlashClosePosition(ctx context.Context, symbol, holdSide string) error
}

// BitgetTrader executes USDT perpetual futures orders on crossed margin.
type BitgetTrader struct {
	api    bitgetOrderAPI
	ranker ranking.Provider
}

// NewBitget creates the Bitget execution gateway.
func NewBitget(api bitgetOrderAPI, ranker ranking.Provider) *BitgetTrader {
	return &BitgetTrader{api: api, ranker: ranker}
}

func (t *BitgetTrader) Exchange() common.Exchange { return common.ExchangeBitget }

// Open sets leverage, sizes the order from the available margin and submits
// a market open with a preset stop-loss. When the default margin would fall
// under the exchange minimum notional, the margin shrinks to exactly the
// minimum instead of aborting.
func (t *BitgetTrader) Open(ctx context.Context, p OpenParams) (*Position, error) {
	market, err := t.pickMarket(ctx, p.Rank)
	if err != nil {
		return nil, err
	}
	symbol := market.Symbol

	if err := t.api.SetLeverage(ctx, symbol, defaultLeverage); err != nil {
		return nil, err
	}

	account, err := t.api.GetAccount(ctx, symbol)
	if err != nil {
		return nil, err
	}
	available := parseFloat(account.CrossedMaxAvailable)
	margin := available - marginBufferUSDT
	if margin <= 0 {
		return nil, common.NewAPIError(common.CodeInsufficientFunds,
			fmt.Sprintf("available %.4f USDT leaves no margin after the %.0f USDT buffer", available, float64(marginBufferUSDT)))
	}
	notional := margin * defaultLeverage
	if notional < minNotionalUSDT {
		// Shrink to exactly the minimum instead of aborting, as long as the
		// required margin is still affordable.
		if minNotionalUSDT/defaultLeverage > available {
			return nil, common.NewAPIError(common.CodeInsufficientFunds,
				fmt.Sprintf("available %.4f USDT cannot cover the %.1f USDT minimum notional", available, minNotionalUSDT))
		}
		notional = minNotionalUSDT
	}

	ticker, err := t.api.GetFuturesTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	entry := parseFloat(ticker.LastPr)
	if entry <= 0 {
		return nil, common.NewAPIError(common.CodeExchangeRejected, "ticker returned a non-positive price for "+symbol)
	}

	size := decimal.NewFromFloat(notional).
		Div(decimal.NewFromFloat(entry)).
		RoundFloor(sizeDigits)
	if !size.IsPositive() {
		return nil, common.NewAPIError(common.CodeSizeTooSmall,
			fmt.Sprintf("computed size for %s rounds to zero at price %.6f", symbol, entry))
	}

	ack, err := t.api.PlaceOrder(ctx, bitget.PlaceOrderParams{
		Symbol:              symbol,
		Size:                size.String(),
		Side:                openSide(p.Side),
		TradeSide:           "open",
		OrderType:           "market",
		ClientOid:           uuid.NewString(),
		PresetStopLossPrice: strconv.FormatFloat(stopLossPrice(entry, p.Side, p.StopLossROEPct), 'f', -1, 64),
	})
	if err != nil {
		return nil, err
	}

	return &Position{
		Exchange:    common.ExchangeBitget,
		Symbol:      symbol,
		DisplayName: market.DisplayName,
		Side:        p.Side,
		EntryPrice:  entry,
		OrderIDs:    []string{ack.OrderID},
		OpenedAt:    time.Now(),
	}, nil
}

// ReserveExit places a limit close for the whole held size at the target
// price floored to tick.
func (t *BitgetTrader) ReserveExit(ctx context.Context, pos *Position, targetPct float64) error {
	positions, err := t.api.GetAllPositions(ctx)
	if err != nil {
		return err
	}
	size := ""
	for _, held := range positions {
		if held.Symbol == pos.Symbol && held.HoldSide == holdSide(pos.Side) {
			size = held.Total
			break
		}
	}
	if parseFloat(size) <= 0 {
		return common.NewAPIError(common.CodeNoBalanceToSell,
			fmt.Sprintf("no open %s %s position to reserve an exit", pos.Symbol, pos.Side))
	}

	pct := targetPct
	if pos.Side == common.SideShort {
		pct = -targetPct
	}
	price := ticksize.Bitget.Floor(offsetPrice(pos.EntryPrice, pct))

	ack, err := t.api.PlaceOrder(ctx, bitget.PlaceOrderParams{
		Symbol:    pos.Symbol,
		Size:      size,
		Price:     strconv.FormatFloat(price, 'f', -1, 64),
		Side:      openSide(pos.Side), // hedge mode: close orders keep the position's direction
		TradeSide: "close",
		OrderType: "limit",
		Force:     "gtc",
		ClientOid: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	pos.OrderIDs = append(pos.OrderIDs, ack.OrderID)
	return nil
}

// ForceClose flash-closes the position at market. The endpoint cancels the
// symbol's resting close orders as part of the flash close.
func (t *BitgetTrader) ForceClose(ctx context.Context, pos *Position) error {
	return t.api.FlashClosePosition(ctx, pos.Symbol, holdSide(pos.Side))
}

func (t *BitgetTrader) pickMarket(ctx context.Context, rank int) (*common.Market, error) {
	if rank < 1 {
		rank = 1
	}
	markets, err := t.ranker.TopN(ctx, rank)
	if err != nil {
		return nil, err
	}
	if len(markets) < rank {
		return nil, common.NewAPIError(common.CodeExchangeRejected,
			fmt.Sprintf("ranking returned %d markets, need rank %d", len(markets), rank))
	}
	return &markets[rank-1], nil
}

// stopLossPrice converts a return-on-equity percentage into a price offset
// by dividing by leverage, applies it against the entry in the losing
// direction and floors to tick.
func stopLossPrice(entry float64, side common.Side, roePct float64) float64 {
	move := decimal.NewFromFloat(roePct).Div(decimal.NewFromInt(100 * defaultLeverage))
	factor := decimal.NewFromInt(1).Sub(move)
	if side == common.SideShort {
		factor = decimal.NewFromInt(1).Add(move)
	}
	price, _ := decimal.NewFromFloat(entry).Mul(factor).Float64()
	return ticksize.Bitget.Floor(price)
}

func openSide(side common.Side) string {
	if side == common.SideShort {
		return "sell"
	}
	return "buy"
}

func holdSide(side common.Side) string {
	if side == common.SideShort {
		return "short"
	}
	return "long"
}
