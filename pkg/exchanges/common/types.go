package common

import "time"

// Exchange identifies a trading venue.
type Exchange string

const (
	ExchangeBithumb Exchange = "bithumb"
	ExchangeBitget  Exchange = "bitget"
)

// Side denotes position direction.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// MarketType distinguishes the traded instrument class.
type MarketType string

const (
	MarketSpotKRW  MarketType = "SPOT_KRW"
	MarketUSDTPerp MarketType = "USDT_PERP"
)

// Candle is a one-minute OHLC bar.
type Candle struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Market is a ranked entry produced by a ranking provider.
// Ticker fields override catalog fields when both are present.
type Market struct {
	Symbol        string
	DisplayName   string
	LastPrice     float64
	ChangeRatePct float64
}
