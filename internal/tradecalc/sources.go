package tradecalc

import (
	"context"
	"fmt"
	"time"

	"momentum-core/pkg/exchanges/bithumb"
	"momentum-core/pkg/exchanges/common"
)

type bithumbCandleAPI interface {
	GetMinuteCandles(ctx context.Context, market string, to time.Time, count int) ([]bithumb.Candle, error)
}

// BithumbSource fetches Bithumb minute candles. The endpoint pages backwards
// from a "to" timestamp, so the request asks for the bar after the exit and
// a count padded past the holding window to absorb upstream gaps.
type BithumbSource struct {
	api bithumbCandleAPI
}

// NewBithumbSource wraps the Bithumb client as a candle source.
func NewBithumbSource(api bithumbCandleAPI) *BithumbSource {
	return &BithumbSource{api: api}
}

func (s *BithumbSource) Candles(ctx context.Context, symbol string, entry, exit time.Time) ([]common.Candle, error) {
	count := int(exit.Sub(entry).Minutes()) + 10
	raw, err := s.api.GetMinuteCandles(ctx, symbol, exit.Add(time.Minute), count)
	if err != nil {
		return nil, err
	}
	candles := make([]common.Candle, 0, len(raw))
	for _, c := range raw {
		ts, err := bithumb.ParseCandleTime(c.DateTimeUTC)
		if err != nil {
			return nil, fmt.Errorf("parse candle time %q: %w", c.DateTimeUTC, err)
		}
		candles = append(candles, common.Candle{
			Time:  ts,
			Open:  c.OpeningPrice,
			High:  c.HighPrice,
			Low:   c.LowPrice,
			Close: c.TradePrice,
		})
	}
	return candles, nil
}

type bitgetCandleAPI interface {
	GetFuturesCandles(ctx context.Context, symbol string, start, end time.Time) ([]common.Candle, error)
}

// BitgetSource fetches Bitget futures minute candles with a one-minute
// buffer on each side of the window.
type BitgetSource struct {
	api bitgetCandleAPI
}

// NewBitgetSource wraps the Bitget client as a candle source.
func NewBitgetSource(api bitgetCandleAPI) *BitgetSource {
	return &BitgetSource{api: api}
}

func (s *BitgetSource) Candles(ctx context.Context, symbol string, entry, exit time.Time) ([]common.Candle, error) {
	return s.api.GetFuturesCandles(ctx, symbol, entry.Add(-time.Minute), exit.Add(time.Minute))
}
