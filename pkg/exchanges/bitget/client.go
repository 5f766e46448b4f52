// Package bitget implements the Bitget v2 REST API for USDT perpetual
// futures plus the public spot ticker list. Authenticated requests carry an
// HMAC-SHA256 signature over timestamp+method+path+query+body in headers.
package bitget

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"momentum-core/pkg/exchanges/common"
)

const defaultBaseURL = "https://api.bitget.com"

// Config holds Bitget credentials.
type Config struct {
	APIKey     string
	APISecret  string
	Passphrase string
	BaseURL    string // override for tests
}

// Client is a Bitget REST client.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time // injectable for signing tests
}

// New creates a Bitget client.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		now:        time.Now,
	}
}

// GetSpotTickers fetches the full spot ticker list.
func (c *Client) GetSpotTickers(ctx context.Context) ([]SpotTicker, error) {
	var out []SpotTicker
	if err := c.do(ctx, http.MethodGet, "/api/v2/spot/market/tickers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFuturesTicker fetches the ticker for one futures symbol.
func (c *Client) GetFuturesTicker(ctx context.Context, symbol string) (*FuturesTicker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("productType", ProductUSDTFutures)
	var out []FuturesTicker
	if err := c.do(ctx, http.MethodGet, "/api/v2/mix/market/ticker", params, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NewAPIError(common.CodeExchangeRejected, "empty ticker response for "+symbol)
	}
	return &out[0], nil
}

// GetFuturesCandles fetches one-minute candles between start and end.
func (c *Client) GetFuturesCandles(ctx context.Context, symbol string, start, end time.Time) ([]common.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("productType", ProductUSDTFutures)
	params.Set("granularity", "1m")
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))

	var raw [][]string
	if err := c.do(ctx, http.MethodGet, "/api/v2/mix/market/candles", params, nil, &raw); err != nil {
		return nil, err
	}

	candles := make([]common.Candle, 0, len(raw))
	for _, item := range raw {
		// ts, open, high, low, close, volume, ...
		if len(item) < 5 {
			continue
		}
		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			continue
		}
		candles = append(candles, common.Candle{
			Time:  time.UnixMilli(ms).UTC(),
			Open:  parseFloat(item[1]),
			High:  parseFloat(item[2]),
			Low:   parseFloat(item[3]),
			Close: parseFloat(item[4]),
		})
	}
	return candles, nil
}

// GetAccount fetches the crossed-margin account for a symbol.
func (c *Client) GetAccount(ctx context.Context, symbol string) (*Account, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("productType", ProductUSDTFutures)
	params.Set("marginCoin", MarginCoinUSDT)
	var out Account
	if err := c.do(ctx, http.MethodGet, "/api/v2/mix/account/account", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetLeverage sets crossed leverage for a symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": ProductUSDTFutures,
		"marginCoin":  MarginCoinUSDT,
		"marginMode":  "cross",
		"leverage":    strconv.Itoa(leverage),
	}
	return c.do(ctx, http.MethodPost, "/api/v2/mix/account/set-leverage", nil, body, nil)
}

// GetAllPositions fetches every open futures position.
func (c *Client) GetAllPositions(ctx context.Context) ([]Position, error) {
	params := url.Values{}
	params.Set("productType", ProductUSDTFutures)
	params.Set("marginCoin", MarginCoinUSDT)
	var out []Position
	if err := c.do(ctx, http.MethodGet, "/api/v2/mix/position/all-position", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PlaceOrder submits a futures order.
func (c *Client) PlaceOrder(ctx context.Context, p PlaceOrderParams) (*OrderAck, error) {
	if p.ProductType == "" {
		p.ProductType = ProductUSDTFutures
	}
	if p.MarginCoin == "" {
		p.MarginCoin = MarginCoinUSDT
	}
	if p.MarginMode == "" {
		p.MarginMode = "crossed"
	}
	var out OrderAck
	if err := c.do(ctx, http.MethodPost, "/api/v2/mix/order/place-order", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FlashClosePosition market-closes the position on a symbol. holdSide may be
// empty to close whichever side is open.
func (c *Client) FlashClosePosition(ctx context.Context, symbol, holdSide string) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": ProductUSDTFutures,
	}
	if holdSide != "" {
		body["holdSide"] = holdSide
	}
	return c.do(ctx, http.MethodPost, "/api/v2/mix/order/close-positions", nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return common.WrapTransport(err)
	}

	query := ""
	if len(params) > 0 {
		query = "?" + params.Encode()
	}

	var bodyBytes []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return common.WrapTransport(err)
		}
		bodyBytes = raw
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	signature := c.sign(timestamp, method, path+query, bodyBytes)

	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+query, reader)
	if err != nil {
		return common.WrapTransport(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("ACCESS-KEY", c.cfg.APIKey)
	req.Header.Set("ACCESS-SIGN", signature)
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-PASSPHRASE", c.cfg.Passphrase)
	req.Header.Set("locale", "en-US")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return common.WrapTransport(err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return common.WrapTransport(err)
	}

	var env struct {
		envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return common.NewAPIError(common.CodeExchangeRejected,
			fmt.Sprintf("status %d: undecodable response", res.StatusCode))
	}
	if env.Code != codeOK {
		// Business-rule rejection: pass upstream code+message through verbatim.
		return common.NewAPIError(env.Code, env.Msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return common.WrapTransport(fmt.Errorf("decode data: %w", err))
	}
	return nil
}

// sign computes base64(HMAC-SHA256(timestamp + METHOD + requestPath + body)).
func (c *Client) sign(timestamp, method, requestPath string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(requestPath))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
