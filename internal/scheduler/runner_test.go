package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"momentum-core/internal/gateway"
	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/common"
)

type fakeTrader struct {
	openErr    error
	reserveErr error
	closeErr   error

	opened   []gateway.OpenParams
	reserved []float64
	closed   []string
}

func (f *fakeTrader) Exchange() common.Exchange { return common.ExchangeBithumb }

func (f *fakeTrader) Open(ctx context.Context, p gateway.OpenParams) (*gateway.Position, error) {
	f.opened = append(f.opened, p)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &gateway.Position{
		Exchange:   common.ExchangeBithumb,
		Symbol:     "KRW-BTC",
		Side:       p.Side,
		EntryPrice: 50000000,
		OpenedAt:   time.Date(2024, 3, 1, 9, 1, 1, 500, time.UTC),
	}, nil
}

func (f *fakeTrader) ReserveExit(ctx context.Context, pos *gateway.Position, targetPct float64) error {
	f.reserved = append(f.reserved, targetPct)
	return f.reserveErr
}

func (f *fakeTrader) ForceClose(ctx context.Context, pos *gateway.Position) error {
	f.closed = append(f.closed, pos.Symbol)
	return f.closeErr
}

type memStore struct {
	mu   sync.Mutex
	rows []db.TradeResult
}

func (s *memStore) UpsertTradeResult(ctx context.Context, r db.TradeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return nil
}

type memSink struct {
	mu   sync.Mutex
	sent []string
}

func (s *memSink) Send(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
}

func testConfig() StrategyConfig {
	return StrategyConfig{
		Name:      "krw-top1",
		Exchange:  "bithumb",
		Hour:      9,
		Second:    1,
		HoldHours: 2,
		Rank:      1,
		TargetPct: 1.5,
		Side:      "LONG",
	}
}

func newTestRunner(trader *fakeTrader, store *memStore, sink *memSink) *Runner {
	r := NewRunner(testConfig(), trader, store, sink, time.UTC, "UTC")
	r.sleep = func(time.Duration) {}
	return r
}

func TestOpenCycleHappyPath(t *testing.T) {
	trader := &fakeTrader{}
	store := &memStore{}
	sink := &memSink{}
	r := newTestRunner(trader, store, sink)

	r.openCycle(context.Background())

	if len(trader.opened) != 1 {
		t.Fatalf("open calls = %d", len(trader.opened))
	}
	if trader.opened[0].Rank != 1 || trader.opened[0].Side != common.SideLong {
		t.Errorf("open params = %+v", trader.opened[0])
	}
	if len(trader.reserved) != 1 || trader.reserved[0] != 1.5 {
		t.Errorf("reserve calls = %v", trader.reserved)
	}
	pos := r.Position()
	if pos == nil || pos.Symbol != "KRW-BTC" {
		t.Fatalf("position = %+v", pos)
	}

	if len(store.rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.Status != db.StatusWaiting {
		t.Errorf("status = %s, want WAITING", row.Status)
	}
	if row.HoldingMinutes != 120 {
		t.Errorf("holding = %d, want 120", row.HoldingMinutes)
	}
	if row.EntryPrice != "50000000.0000000000" {
		t.Errorf("entry price = %s", row.EntryPrice)
	}
	// Entry time is truncated to the minute so the entry candle is in range.
	want := time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC)
	if !row.EntryTime.Equal(want) {
		t.Errorf("entry time = %v, want %v", row.EntryTime, want)
	}
	if !row.ExitTime.Equal(want.Add(120 * time.Minute)) {
		t.Errorf("exit time = %v", row.ExitTime)
	}
}

func TestOpenCycleFailureStaysIdle(t *testing.T) {
	trader := &fakeTrader{openErr: common.NewAPIError(common.CodeInsufficientFunds, "4999 KRW")}
	store := &memStore{}
	sink := &memSink{}
	r := newTestRunner(trader, store, sink)

	r.openCycle(context.Background())

	if r.Position() != nil {
		t.Error("position set after failed open")
	}
	if len(store.rows) != 0 {
		t.Error("row persisted after failed open")
	}
	if len(trader.reserved) != 0 {
		t.Error("reserve attempted after failed open")
	}
	if len(sink.sent) != 1 {
		t.Fatalf("notifications = %v", sink.sent)
	}
}

func TestOpenCycleSkipsWhenPositionHeld(t *testing.T) {
	trader := &fakeTrader{}
	r := newTestRunner(trader, &memStore{}, &memSink{})

	r.openCycle(context.Background())
	r.openCycle(context.Background())

	if len(trader.opened) != 1 {
		t.Errorf("open calls = %d, want 1 (second trigger skipped)", len(trader.opened))
	}
}

func TestReserveFailureKeepsPositionForClose(t *testing.T) {
	trader := &fakeTrader{reserveErr: common.NewAPIError(common.CodeTransportError, "timeout")}
	sink := &memSink{}
	r := newTestRunner(trader, &memStore{}, sink)

	r.openCycle(context.Background())
	if r.Position() == nil {
		t.Fatal("position cleared by reserve failure")
	}

	r.closeCycle(context.Background())
	if len(trader.closed) != 1 {
		t.Errorf("close calls = %d, want 1", len(trader.closed))
	}
	if r.Position() != nil {
		t.Error("position not cleared after close")
	}
}

func TestCloseCycleWithoutPosition(t *testing.T) {
	trader := &fakeTrader{}
	r := newTestRunner(trader, &memStore{}, &memSink{})

	r.closeCycle(context.Background())
	if len(trader.closed) != 0 {
		t.Error("close attempted with no position")
	}
}

func TestCloseCycleTreatsNoBalanceAsFilled(t *testing.T) {
	trader := &fakeTrader{closeErr: common.NewAPIError(common.CodeNoBalanceToSell, "nothing held")}
	sink := &memSink{}
	r := newTestRunner(trader, &memStore{}, sink)

	r.openCycle(context.Background())
	r.closeCycle(context.Background())

	if r.Position() != nil {
		t.Error("position not cleared when exit already filled")
	}
}

func TestNextAt(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		now  time.Time
		hour int
		sec  int
		want time.Time
	}{
		{
			"before today's trigger",
			time.Date(2024, 3, 1, 8, 0, 0, 0, loc), 9, 1,
			time.Date(2024, 3, 1, 9, 1, 1, 0, loc),
		},
		{
			"after today's trigger rolls to tomorrow",
			time.Date(2024, 3, 1, 9, 1, 2, 0, loc), 9, 1,
			time.Date(2024, 3, 2, 9, 1, 1, 0, loc),
		},
		{
			"exactly at trigger rolls to tomorrow",
			time.Date(2024, 3, 1, 9, 1, 1, 0, loc), 9, 1,
			time.Date(2024, 3, 2, 9, 1, 1, 0, loc),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextAt(tc.now, tc.hour, tc.sec, loc); !got.Equal(tc.want) {
				t.Errorf("nextAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNextAtConvertsZone(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	// 23:30 UTC = 08:30 KST next day; trigger at 09 KST fires 31 minutes later.
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	got := nextAt(now, 9, 0, seoul)
	want := time.Date(2024, 3, 2, 9, 1, 0, 0, seoul)
	if !got.Equal(want) {
		t.Errorf("nextAt = %v, want %v", got, want)
	}
}

func TestNewEngineUnknownExchange(t *testing.T) {
	cfg := testConfig()
	cfg.Exchange = "bitget"
	_, err := NewEngine([]StrategyConfig{cfg}, map[common.Exchange]gateway.Trader{
		common.ExchangeBithumb: &fakeTrader{},
	}, &memStore{}, &memSink{}, time.UTC, "UTC")
	if err == nil {
		t.Fatal("expected error for missing trader")
	}
}
