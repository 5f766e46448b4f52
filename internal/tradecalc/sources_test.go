package tradecalc

import (
	"context"
	"testing"
	"time"

	"momentum-core/pkg/exchanges/bithumb"
)

type fakeBithumbCandleAPI struct {
	gotTo    time.Time
	gotCount int
	candles  []bithumb.Candle
}

func (f *fakeBithumbCandleAPI) GetMinuteCandles(ctx context.Context, market string, to time.Time, count int) ([]bithumb.Candle, error) {
	f.gotTo = to
	f.gotCount = count
	return f.candles, nil
}

func TestBithumbSourceRequestShape(t *testing.T) {
	api := &fakeBithumbCandleAPI{candles: []bithumb.Candle{
		{DateTimeUTC: "2024-01-01T06:00:00", OpeningPrice: 1000, HighPrice: 1010, LowPrice: 990, TradePrice: 1005},
	}}
	source := NewBithumbSource(api)

	entry := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	exit := entry.Add(120 * time.Minute)
	candles, err := source.Candles(context.Background(), "KRW-BTC", entry, exit)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if !api.gotTo.Equal(exit.Add(time.Minute)) {
		t.Errorf("to = %v, want exit+1m", api.gotTo)
	}
	if api.gotCount != 130 {
		t.Errorf("count = %d, want holding+10 = 130", api.gotCount)
	}
	if len(candles) != 1 || !candles[0].Time.Equal(entry) {
		t.Errorf("candles = %+v", candles)
	}
	if candles[0].Close != 1005 {
		t.Errorf("close = %v", candles[0].Close)
	}
}

func TestBithumbSourceBadTimestamp(t *testing.T) {
	api := &fakeBithumbCandleAPI{candles: []bithumb.Candle{{DateTimeUTC: "garbage"}}}
	source := NewBithumbSource(api)

	_, err := source.Candles(context.Background(), "KRW-BTC", time.Now(), time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected parse error")
	}
}
