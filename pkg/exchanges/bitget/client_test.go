package bitget

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"momentum-core/pkg/exchanges/common"
)

const testSecret = "test-secret"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{APIKey: "test-key", APISecret: testSecret, Passphrase: "test-pass", BaseURL: srv.URL})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func expectSign(preimage string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(preimage))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestGetRequestSigning(t *testing.T) {
	var gotHeaders http.Header
	var gotURI string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotURI = r.URL.RequestURI()
		w.Write([]byte(`{"code":"00000","msg":"success","data":{"marginCoin":"USDT","crossedMaxAvailable":"100","crossedMarginLeverage":"3"}}`))
	})

	account, err := c.GetAccount(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if account.CrossedMaxAvailable != "100" {
		t.Errorf("account = %+v", account)
	}

	if gotHeaders.Get("ACCESS-KEY") != "test-key" {
		t.Errorf("ACCESS-KEY = %s", gotHeaders.Get("ACCESS-KEY"))
	}
	if gotHeaders.Get("ACCESS-PASSPHRASE") != "test-pass" {
		t.Errorf("ACCESS-PASSPHRASE = %s", gotHeaders.Get("ACCESS-PASSPHRASE"))
	}
	if gotHeaders.Get("ACCESS-TIMESTAMP") != "1700000000000" {
		t.Errorf("ACCESS-TIMESTAMP = %s", gotHeaders.Get("ACCESS-TIMESTAMP"))
	}
	// Pre-image: timestamp + METHOD + requestPath?query (no body on GET).
	want := expectSign("1700000000000GET" + gotURI)
	if gotHeaders.Get("ACCESS-SIGN") != want {
		t.Errorf("ACCESS-SIGN = %s, want %s", gotHeaders.Get("ACCESS-SIGN"), want)
	}
}

func TestPostRequestSignsBody(t *testing.T) {
	var gotSign, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSign = r.Header.Get("ACCESS-SIGN")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(`{"code":"00000","msg":"success","data":{"orderId":"123","clientOid":"abc"}}`))
	})

	ack, err := c.PlaceOrder(context.Background(), PlaceOrderParams{
		Symbol:    "BTCUSDT",
		Size:      "0.006",
		Side:      "buy",
		TradeSide: "open",
		OrderType: "market",
		ClientOid: "abc",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if ack.OrderID != "123" {
		t.Errorf("ack = %+v", ack)
	}

	want := expectSign("1700000000000POST/api/v2/mix/order/place-order" + gotBody)
	if gotSign != want {
		t.Errorf("ACCESS-SIGN = %s, want %s", gotSign, want)
	}
}

func TestPlaceOrderDefaultsProductAndMargin(t *testing.T) {
	var gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Write([]byte(`{"code":"00000","msg":"success","data":{"orderId":"1"}}`))
	})

	if _, err := c.PlaceOrder(context.Background(), PlaceOrderParams{
		Symbol: "BTCUSDT", Size: "1", Side: "buy", OrderType: "market",
	}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"productType":"USDT-FUTURES"`, `"marginCoin":"USDT"`, `"marginMode":"crossed"`} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("body %q missing %s", gotBody, want)
		}
	}
}

func TestBusinessRejectionPassesCodeVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"40762","msg":"The order size is greater than the max open size"}`))
	})

	_, err := c.GetAccount(context.Background(), "BTCUSDT")
	if common.ErrorCode(err) != "40762" {
		t.Fatalf("code = %q (err %v)", common.ErrorCode(err), err)
	}
}

func TestGetFuturesCandlesParsesRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("granularity") != "1m" || q.Get("symbol") != "BTCUSDT" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"code":"00000","msg":"success","data":[
			["1700000000000","65000","65100","64900","65050","12.5","812000"],
			["bogus","1","1","1","1","1","1"]
		]}`))
	})

	start := time.UnixMilli(1700000000000).Add(-time.Minute)
	candles, err := c.GetFuturesCandles(context.Background(), "BTCUSDT", start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetFuturesCandles: %v", err)
	}
	// Undecodable rows are skipped.
	if len(candles) != 1 {
		t.Fatalf("candles = %d, want 1", len(candles))
	}
	got := candles[0]
	if !got.Time.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Errorf("time = %v", got.Time)
	}
	if got.Open != 65000 || got.High != 65100 || got.Low != 64900 || got.Close != 65050 {
		t.Errorf("candle = %+v", got)
	}
}

func TestGetFuturesTickerEmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"00000","msg":"success","data":[]}`))
	})

	_, err := c.GetFuturesTicker(context.Background(), "BTCUSDT")
	if common.ErrorCode(err) != common.CodeExchangeRejected {
		t.Fatalf("err = %v, want EXCHANGE_REJECTED", err)
	}
}
