package bitget

// Product and margin constants for the USDT perpetual venue.
const (
	ProductUSDTFutures = "USDT-FUTURES"
	MarginCoinUSDT     = "USDT"
)

// envelope is the uniform Bitget response wrapper. code "00000" is success;
// anything else is a business-rule rejection.
type envelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

const codeOK = "00000"

// SpotTicker is one entry from /api/v2/spot/market/tickers.
// Bitget returns all numerics as strings.
type SpotTicker struct {
	Symbol       string `json:"symbol"`
	LastPr       string `json:"lastPr"`
	ChangeUtc24h string `json:"changeUtc24h"`
}

// FuturesTicker is one entry from /api/v2/mix/market/ticker.
type FuturesTicker struct {
	Symbol string `json:"symbol"`
	LastPr string `json:"lastPr"`
	BidPr  string `json:"bidPr"`
	AskPr  string `json:"askPr"`
}

// Account is the crossed-margin account view from /api/v2/mix/account/account.
type Account struct {
	MarginCoin            string `json:"marginCoin"`
	CrossedMaxAvailable   string `json:"crossedMaxAvailable"`
	CrossedMarginLeverage string `json:"crossedMarginLeverage"`
}

// Position is one entry from /api/v2/mix/position/all-position.
type Position struct {
	Symbol   string `json:"symbol"`
	HoldSide string `json:"holdSide"` // "long" or "short"
	Total    string `json:"total"`
}

// PlaceOrderParams describes a futures order.
type PlaceOrderParams struct {
	Symbol              string `json:"symbol"`
	ProductType         string `json:"productType"`
	MarginMode          string `json:"marginMode"`
	MarginCoin          string `json:"marginCoin"`
	Size                string `json:"size"`
	Price               string `json:"price,omitempty"` // required for limit orders
	Side                string `json:"side"`            // "buy" or "sell"
	TradeSide           string `json:"tradeSide,omitempty"`
	OrderType           string `json:"orderType"` // "limit" or "market"
	Force               string `json:"force,omitempty"`
	ClientOid           string `json:"clientOid,omitempty"`
	PresetStopLossPrice string `json:"presetStopLossPrice,omitempty"`
}

// OrderAck is the exchange acknowledgement for a placed order.
type OrderAck struct {
	OrderID   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
}
