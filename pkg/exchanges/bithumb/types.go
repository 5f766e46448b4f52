package bithumb

// MarketInfo is one catalog entry from /v1/market/all.
type MarketInfo struct {
	Market      string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

// Ticker is one snapshot entry from /v1/ticker.
type Ticker struct {
	Market           string  `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	SignedChangeRate float64 `json:"signed_change_rate"`
}

// Candle is one minute bar from /v1/candles/minutes/1.
// Timestamps arrive as wall-clock strings without an offset.
type Candle struct {
	Market       string  `json:"market"`
	DateTimeUTC  string  `json:"candle_date_time_utc"`
	OpeningPrice float64 `json:"opening_price"`
	HighPrice    float64 `json:"high_price"`
	LowPrice     float64 `json:"low_price"`
	TradePrice   float64 `json:"trade_price"`
}

// Account is one balance entry from /v1/accounts. Bithumb returns numeric
// fields as strings.
type Account struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	Locked      string `json:"locked"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

// OrderChance is the per-market order constraint set from /v1/orders/chance.
type OrderChance struct {
	BidFee     string `json:"bid_fee"`
	AskFee     string `json:"ask_fee"`
	BidAccount Account `json:"bid_account"`
	AskAccount Account `json:"ask_account"`
}

// Order identifies a placed or open order.
type Order struct {
	UUID   string `json:"uuid"`
	Market string `json:"market"`
	Side   string `json:"side"`
	State  string `json:"state"`
}

// OrderParams describes an order to submit. OrdType "price" is a market buy
// (price = total KRW to spend), "market" a market sell (volume only),
// "limit" requires both.
type OrderParams struct {
	Market  string
	Side    string // "bid" or "ask"
	Volume  string
	Price   string
	OrdType string // "limit", "price", "market"
}

type apiErrorBody struct {
	Error struct {
		Name    any    `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}
