// Package bithumb implements the Bithumb KRW spot REST API (v1). Private
// endpoints authenticate with a bearer JWT signed by the symmetric API
// secret; request parameters are bound into the token as a SHA512 hash.
package bithumb

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"momentum-core/pkg/exchanges/common"
)

const defaultBaseURL = "https://api.bithumb.com"

// Config holds Bithumb credentials.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // override for tests
}

// Client is a Bithumb REST client.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Bithumb client.
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
	}
}

// GetMarkets fetches the full market catalog.
func (c *Client) GetMarkets(ctx context.Context) ([]MarketInfo, error) {
	var out []MarketInfo
	if err := c.doPublic(ctx, http.MethodGet, "/v1/market/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTickers fetches ticker snapshots for the given markets. Upstream limits
// query length, so callers batch large market lists themselves.
func (c *Client) GetTickers(ctx context.Context, markets []string) ([]Ticker, error) {
	params := url.Values{}
	params.Set("markets", strings.Join(markets, ","))
	var out []Ticker
	if err := c.doPublic(ctx, http.MethodGet, "/v1/ticker", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMinuteCandles fetches up to count one-minute candles ending at to.
// The endpoint expects the to parameter as a KST wall-clock string.
func (c *Client) GetMinuteCandles(ctx context.Context, market string, to time.Time, count int) ([]Candle, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("to", toKSTString(to))
	params.Set("count", strconv.Itoa(count))
	var out []Candle
	if err := c.doPublic(ctx, http.MethodGet, "/v1/candles/minutes/1", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAccounts fetches all account balances.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrderChance fetches fees and sellable/buyable balances for a market.
func (c *Client) GetOrderChance(ctx context.Context, market string) (*OrderChance, error) {
	params := url.Values{}
	params.Set("market", market)
	var out OrderChance
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/orders/chance", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlaceOrder submits an order and returns its uuid.
func (c *Client) PlaceOrder(ctx context.Context, p OrderParams) (*Order, error) {
	params := url.Values{}
	params.Set("market", p.Market)
	params.Set("side", p.Side)
	params.Set("ord_type", p.OrdType)
	if p.Volume != "" {
		params.Set("volume", p.Volume)
	}
	if p.Price != "" {
		params.Set("price", p.Price)
	}
	var out Order
	if err := c.doPrivate(ctx, http.MethodPost, "/v1/orders", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOpenOrders fetches orders currently waiting in the book.
func (c *Client) ListOpenOrders(ctx context.Context) ([]Order, error) {
	params := url.Values{}
	params.Set("state", "wait")
	var out []Order
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/orders", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder cancels one open order by uuid.
func (c *Client) CancelOrder(ctx context.Context, orderUUID string) (*Order, error) {
	params := url.Values{}
	params.Set("uuid", orderUUID)
	var out Order
	if err := c.doPrivate(ctx, http.MethodDelete, "/v1/order", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doPublic(ctx context.Context, method, path string, params url.Values, out any) error {
	return c.do(ctx, method, path, params, "", out)
}

func (c *Client) doPrivate(ctx context.Context, method, path string, params url.Values, out any) error {
	token, err := c.signToken(params)
	if err != nil {
		return common.WrapTransport(fmt.Errorf("sign request: %w", err))
	}
	return c.do(ctx, method, path, params, token, out)
}

// signToken builds the bearer JWT: access key, uuid nonce, ms timestamp and,
// when parameters are present, a SHA512 hash of the encoded query string.
func (c *Client) signToken(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.cfg.APIKey,
		"nonce":      uuid.NewString(),
		"timestamp":  time.Now().UnixMilli(),
	}
	if len(params) > 0 {
		hash := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(hash[:])
		claims["query_hash_alg"] = "SHA512"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.cfg.APISecret))
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, bearer string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return common.WrapTransport(err)
	}

	endpoint := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
	} else if len(params) > 0 {
		payload := make(map[string]string, len(params))
		for key := range params {
			payload[key] = params.Get(key)
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return common.WrapTransport(err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return common.WrapTransport(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return common.WrapTransport(err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return common.WrapTransport(err)
	}

	if res.StatusCode >= 300 {
		return parseAPIError(res.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.WrapTransport(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// parseAPIError passes upstream rejections through verbatim as code+message.
func parseAPIError(status int, raw []byte) error {
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		code := fmt.Sprintf("%v", body.Error.Name)
		if code == "" || code == "<nil>" {
			code = common.CodeExchangeRejected
		}
		return common.NewAPIError(code, body.Error.Message)
	}
	return common.NewAPIError(common.CodeExchangeRejected,
		fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(raw))))
}

var kst = time.FixedZone("KST", 9*60*60)

// toKSTString renders t as the KST wall-clock format the candle endpoint expects.
func toKSTString(t time.Time) string {
	return t.In(kst).Format("2006-01-02 15:04:05")
}

// ParseCandleTime converts a candle's UTC wall-clock timestamp.
func ParseCandleTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05", s)
}
