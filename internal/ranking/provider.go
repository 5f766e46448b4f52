// Package ranking produces the top-N markets of a venue ordered by 24h
// change rate. Providers merge catalog metadata with live tickers, drop a
// fixed blacklist and keep upstream order for ties.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"momentum-core/pkg/exchanges/bitget"
	"momentum-core/pkg/exchanges/bithumb"
	"momentum-core/pkg/exchanges/common"
)

// Provider ranks a venue's markets by signed 24h change rate, descending.
type Provider interface {
	Exchange() common.Exchange
	TopN(ctx context.Context, n int) ([]common.Market, error)
}

// blacklist holds symbols excluded from ranking regardless of change rate:
// stablecoins and chronically illiquid listings.
var blacklist = map[string]struct{}{
	"KRW-NFT":  {},
	"KRW-BTT":  {},
	"KRW-USDT": {},
	"KRW-USDC": {},
}

type bithumbMarketAPI interface {
	GetMarkets(ctx context.Context) ([]bithumb.MarketInfo, error)
	GetTickers(ctx context.Context, markets []string) ([]bithumb.Ticker, error)
}

// BithumbProvider ranks KRW spot markets.
type BithumbProvider struct {
	api bithumbMarketAPI
}

// NewBithumb creates a ranking provider backed by the Bithumb client.
func NewBithumb(api bithumbMarketAPI) *BithumbProvider {
	return &BithumbProvider{api: api}
}

func (p *BithumbProvider) Exchange() common.Exchange { return common.ExchangeBithumb }

// TopN fetches the KRW market catalog and its tickers, merges them and
// returns the n markets with the highest signed change rate. The ticker
// endpoint caps query length, so the catalog is queried in two halves.
func (p *BithumbProvider) TopN(ctx context.Context, n int) ([]common.Market, error) {
	catalog, err := p.api.GetMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch market catalog: %w", err)
	}

	names := make(map[string]string)
	var symbols []string
	for _, m := range catalog {
		if !strings.HasPrefix(m.Market, "KRW-") {
			continue
		}
		symbols = append(symbols, m.Market)
		names[m.Market] = m.EnglishName
	}

	tickers, err := p.fetchTickersBatched(ctx, symbols)
	if err != nil {
		return nil, err
	}

	markets := make([]common.Market, 0, len(tickers))
	for _, t := range tickers {
		if _, banned := blacklist[t.Market]; banned {
			continue
		}
		markets = append(markets, common.Market{
			Symbol:        t.Market,
			DisplayName:   names[t.Market],
			LastPrice:     t.TradePrice,
			ChangeRatePct: t.SignedChangeRate * 100,
		})
	}

	sortByChangeRate(markets)
	return truncate(markets, n), nil
}

// fetchTickersBatched splits the symbol list into two requests to stay under
// the upstream query-length limit.
func (p *BithumbProvider) fetchTickersBatched(ctx context.Context, symbols []string) ([]bithumb.Ticker, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	half := (len(symbols) + 1) / 2
	var tickers []bithumb.Ticker
	for _, batch := range [][]string{symbols[:half], symbols[half:]} {
		if len(batch) == 0 {
			continue
		}
		part, err := p.api.GetTickers(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch tickers: %w", err)
		}
		tickers = append(tickers, part...)
	}
	return tickers, nil
}

type bitgetMarketAPI interface {
	GetSpotTickers(ctx context.Context) ([]bitget.SpotTicker, error)
}

// BitgetProvider ranks USDT markets by their spot 24h change.
type BitgetProvider struct {
	api bitgetMarketAPI
}

// NewBitget creates a ranking provider backed by the Bitget client.
func NewBitget(api bitgetMarketAPI) *BitgetProvider {
	return &BitgetProvider{api: api}
}

func (p *BitgetProvider) Exchange() common.Exchange { return common.ExchangeBitget }

// TopN returns the n USDT-quoted markets with the highest 24h UTC change.
func (p *BitgetProvider) TopN(ctx context.Context, n int) ([]common.Market, error) {
	tickers, err := p.api.GetSpotTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch spot tickers: %w", err)
	}

	markets := make([]common.Market, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") {
			continue
		}
		change, err := strconv.ParseFloat(t.ChangeUtc24h, 64)
		if err != nil {
			continue
		}
		last, _ := strconv.ParseFloat(t.LastPr, 64)
		markets = append(markets, common.Market{
			Symbol:        t.Symbol,
			DisplayName:   t.Symbol,
			LastPrice:     last,
			ChangeRatePct: change * 100,
		})
	}

	sortByChangeRate(markets)
	return truncate(markets, n), nil
}

// sortByChangeRate orders descending; the stable sort keeps upstream order
// for equal change rates rather than inventing a tie-break.
func sortByChangeRate(markets []common.Market) {
	sort.SliceStable(markets, func(i, j int) bool {
		return markets[i].ChangeRatePct > markets[j].ChangeRatePct
	})
}

func truncate(markets []common.Market, n int) []common.Market {
	if n > 0 && len(markets) > n {
		return markets[:n]
	}
	return markets
}
