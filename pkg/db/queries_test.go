package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	if err := ApplyMigrations(d); err != nil {
		t.Fatal(err)
	}
	return d
}

func sampleResult(entry time.Time) TradeResult {
	return TradeResult{
		Exchange:       "bithumb",
		MarketType:     "SPOT_KRW",
		Symbol:         "KRW-BTC",
		Side:           "LONG",
		EntryTime:      entry,
		HoldingMinutes: 120,
		ExitTime:       entry.Add(120 * time.Minute),
		EntryPrice:     "100000000.0000000000",
		PriceBasis:     "last",
		Timezone:       "KST",
		Status:         StatusWaiting,
	}
}

func TestUpsertTradeResultIdempotent(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	entry := time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC)

	if err := d.UpsertTradeResult(ctx, sampleResult(entry)); err != nil {
		t.Fatal(err)
	}

	// Second write on the same natural key overwrites instead of duplicating.
	updated := sampleResult(entry)
	updated.Status = StatusOK
	updated.ExitPrice = sql.NullString{String: "101500000.0000000000", Valid: true}
	updated.ExitROIPct = sql.NullString{String: "1.50000", Valid: true}
	if err := d.UpsertTradeResult(ctx, updated); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := d.DB.QueryRow(`SELECT COUNT(*) FROM trade_result`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}

	got, err := d.FindTradeResult(ctx, "bithumb", "KRW-BTC", "LONG", entry, 120)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusOK {
		t.Errorf("status = %s, want OK", got.Status)
	}
	if !got.ExitROIPct.Valid || got.ExitROIPct.String != "1.50000" {
		t.Errorf("exit roi = %+v", got.ExitROIPct)
	}
}

func TestUpsertDistinguishesNaturalKey(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	entry := time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC)

	first := sampleResult(entry)
	second := sampleResult(entry)
	second.Side = "SHORT"
	third := sampleResult(entry)
	third.HoldingMinutes = 60
	third.ExitTime = entry.Add(time.Hour)

	for _, r := range []TradeResult{first, second, third} {
		if err := d.UpsertTradeResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	var count int
	if err := d.DB.QueryRow(`SELECT COUNT(*) FROM trade_result`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("rows = %d, want 3 distinct keys", count)
	}
}

func TestFindTradeResultNotFound(t *testing.T) {
	d := newTestDB(t)
	_, err := d.FindTradeResult(context.Background(), "bithumb", "KRW-NONE", "LONG", time.Now(), 60)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListDueWaiting(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	due := sampleResult(now.Add(-3 * time.Hour))
	notYet := sampleResult(now.Add(-30 * time.Minute))
	notYet.Symbol = "KRW-ETH"
	finished := sampleResult(now.Add(-4 * time.Hour))
	finished.Symbol = "KRW-XRP"
	finished.Status = StatusOK

	for _, r := range []TradeResult{due, notYet, finished} {
		if err := d.UpsertTradeResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := d.ListDueWaiting(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("due rows = %d, want 1", len(got))
	}
	if got[0].Symbol != "KRW-BTC" {
		t.Errorf("due symbol = %s", got[0].Symbol)
	}
	if !got[0].EntryTime.Equal(due.EntryTime) {
		t.Errorf("entry time = %v, want %v", got[0].EntryTime, due.EntryTime)
	}
}

func TestCreateAndListJobRuns(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	id, err := d.CreateJobRun(ctx, JobRun{
		Exchange:           "bitget",
		ScheduleInterval:   "hourly",
		BaseHoldingMinutes: 60,
		PriceBasis:         "last",
		Timezone:           "KST",
		Note:               "first batch",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("id = 0")
	}

	runs, err := d.ListJobRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id || runs[0].Note != "first batch" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestListTradeResultsFilter(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	entry := time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC)

	a := sampleResult(entry)
	b := sampleResult(entry)
	b.Exchange = "bitget"
	b.Symbol = "BTCUSDT"
	for _, r := range []TradeResult{a, b} {
		if err := d.UpsertTradeResult(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := d.ListTradeResults(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d", len(all))
	}

	only, err := d.ListTradeResults(ctx, "bitget", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].Exchange != "bitget" {
		t.Errorf("filtered = %+v", only)
	}
}
