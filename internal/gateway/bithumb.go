package gateway

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"momentum-core/internal/ranking"
	"momentum-core/internal/ticksize"
	"momentum-core/pkg/exchanges/bithumb"
	"momentum-core/pkg/exchanges/common"
)

// minKRWOrder is the exchange-side minimum order value in KRW.
const minKRWOrder = 5000

// bithumbOrderAPI is the slice of the Bithumb client the trader needs.
type bithumbOrderAPI interface {
	GetOrderChance(ctx context.Context, market string) (*bithumb.OrderChance, error)
	PlaceOrder(ctx context.Context, p bithumb.OrderParams) (*bithumb.Order, error)
	ListOpenOrders(ctx context.Context) ([]bithumb.Order, error)
	CancelOrder(ctx context.Context, orderUUID string) (*bithumb.Order, error)
}

// BithumbTrader executes KRW spot orders. Spot has no short side; only LONG
// positions are accepted.
type BithumbTrader struct {
	api    bithumbOrderAPI
	ranker ranking.Provider
	sleep  func(time.Duration) // injectable for tests
}

// NewBithumb creates the Bithumb execution gateway.
func NewBithumb(api bithumbOrderAPI, ranker ranking.Provider) *BithumbTrader {
	return &BithumbTrader{api: api, ranker: ranker, sleep: time.Sleep}
}

func (t *BithumbTrader) Exchange() common.Exchange { return common.ExchangeBithumb }

// Open market-buys the market at p.Rank with the full available KRW balance.
// The spend amount reserves the taker fee up front:
// floor(balance) - ceil(balance*fee) - 1.
func (t *BithumbTrader) Open(ctx context.Context, p OpenParams) (*Position, error) {
	if p.Side != common.SideLong {
		return nil, common.NewAPIError(common.CodeExchangeRejected, "spot market supports LONG only")
	}
	market, err := t.pickMarket(ctx, p.Rank)
	if err != nil {
		return nil, err
	}

	chance, err := t.api.GetOrderChance(ctx, market.Symbol)
	if err != nil {
		return nil, err
	}
	krw := parseFloat(chance.BidAccount.Balance)
	if krw < minKRWOrder {
		return nil, common.NewAPIError(common.CodeInsufficientFunds,
			fmt.Sprintf("available %.2f KRW is under the %d KRW order minimum", krw, minKRWOrder))
	}

	bidFee := parseFloat(chance.BidFee)
	bidKRW := math.Floor(krw) - math.Ceil(krw*bidFee) - 1

	order, err := t.api.PlaceOrder(ctx, bithumb.OrderParams{
		Market:  market.Symbol,
		Side:    "bid",
		OrdType: "price", // market buy by total KRW spend
		Price:   strconv.FormatFloat(bidKRW, 'f', -1, 64),
	})
	if err != nil {
		return nil, err
	}

	return &Position{
		Exchange:    common.ExchangeBithumb,
		Symbol:      market.Symbol,
		DisplayName: market.DisplayName,
		Side:        common.SideLong,
		EntryPrice:  market.LastPrice,
		OrderIDs:    []string{order.UUID},
		OpenedAt:    time.Now(),
	}, nil
}

// ReserveExit limit-sells the whole free balance at the target price floored
// to the exchange tick.
func (t *BithumbTrader) ReserveExit(ctx context.Context, pos *Position, targetPct float64) error {
	chance, err := t.api.GetOrderChance(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	volume := chance.AskAccount.Balance
	if parseFloat(volume) <= 0 {
		return common.NewAPIError(common.CodeNoBalanceToSell,
			fmt.Sprintf("no free %s balance to reserve an exit", pos.Symbol))
	}

	price := ticksize.Bithumb.Floor(offsetPrice(pos.EntryPrice, targetPct))
	order, err := t.api.PlaceOrder(ctx, bithumb.OrderParams{
		Market:  pos.Symbol,
		Side:    "ask",
		OrdType: "limit",
		Volume:  volume,
		Price:   strconv.FormatFloat(price, 'f', -1, 64),
	})
	if err != nil {
		return err
	}
	pos.OrderIDs = append(pos.OrderIDs, order.UUID)
	return nil
}

// ForceClose cancels every open order, waits for the cancellations to free
// the balance, then market-sells whatever is left.
func (t *BithumbTrader) ForceClose(ctx context.Context, pos *Position) error {
	open, err := t.api.ListOpenOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range open {
		if _, err := t.api.CancelOrder(ctx, o.UUID); err != nil {
			return err
		}
	}
	if len(open) > 0 {
		t.sleep(time.Second)
	}

	chance, err := t.api.GetOrderChance(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	volume := chance.AskAccount.Balance
	if parseFloat(volume) <= 0 {
		return common.NewAPIError(common.CodeNoBalanceToSell,
			fmt.Sprintf("no free %s balance to close", pos.Symbol))
	}

	_, err = t.api.PlaceOrder(ctx, bithumb.OrderParams{
		Market:  pos.Symbol,
		Side:    "ask",
		OrdType: "market",
		Volume:  volume,
	})
	return err
}

func (t *BithumbTrader) pickMarket(ctx context.Context, rank int) (*common.Market, error) {
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

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
