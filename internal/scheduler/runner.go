// Package scheduler drives the per-strategy state machine
// Idle -> Opened -> ReservedExit -> Closed on daily wall-clock triggers.
// Every transition catches its own failures, logs and notifies; nothing ever
// propagates back into the timer loop and nothing is retried before the next
// scheduled trigger.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"momentum-core/internal/gateway"
	"momentum-core/internal/notify"
	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/common"
)

const (
	// triggerMinute is the fixed minute-of-hour every trigger fires at.
	triggerMinute = 1
	// settleDelay lets a market open fill and reflect in balances before
	// the exit reservation reads them.
	settleDelay = 10 * time.Second
)

type resultStore interface {
	UpsertTradeResult(ctx context.Context, r db.TradeResult) error
}

// Runner owns one strategy's runtime position state. The mutex serializes
// overlapping transitions: a slow open cannot interleave with the close
// trigger of the same strategy.
type Runner struct {
	cfg      StrategyConfig
	trader   gateway.Trader
	store    resultStore
	notifier notify.Sink
	loc      *time.Location
	tzTag    string

	mu  sync.Mutex
	pos *gateway.Position

	now   func() time.Time    // injectable for tests
	sleep func(time.Duration) // injectable for tests
}

// NewRunner creates the runner for one configured strategy.
func NewRunner(cfg StrategyConfig, trader gateway.Trader, store resultStore, notifier notify.Sink, loc *time.Location, tzTag string) *Runner {
	return &Runner{
		cfg:      cfg,
		trader:   trader,
		store:    store,
		notifier: notifier,
		loc:      loc,
		tzTag:    tzTag,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Start launches the open and close trigger loops. They run until ctx is
// cancelled.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx, r.cfg.Hour, r.openCycle)
	go r.loop(ctx, (r.cfg.Hour+r.cfg.HoldHours)%24, r.closeCycle)
}

func (r *Runner) loop(ctx context.Context, hour int, transition func(context.Context)) {
	for {
		next := nextAt(r.now(), hour, r.cfg.Second, r.loc)
		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			transition(ctx)
		}
	}
}

// Position returns a copy of the current runtime position, nil when idle.
func (r *Runner) Position() *gateway.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos == nil {
		return nil
	}
	cp := *r.pos
	return &cp
}

// openCycle runs Idle -> Opened -> ReservedExit: open the ranked market,
// persist the WAITING ledger row, wait for the fill to settle, then reserve
// the take-profit exit. A reserve failure is notified but leaves the
// position in place for the close trigger.
func (r *Runner) openCycle(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos != nil {
		log.Printf("strategy %s: previous position %s still open, skipping open trigger", r.cfg.Name, r.pos.Symbol)
		return
	}

	pos, err := r.trader.Open(ctx, gateway.OpenParams{
		Rank:           r.cfg.Rank,
		Side:           common.Side(r.cfg.Side),
		StopLossROEPct: r.cfg.StopLossPct,
	})
	if err != nil {
		r.fail(ctx, "open", err)
		return
	}
	r.pos = pos
	log.Printf("strategy %s: opened %s %s at %v", r.cfg.Name, pos.Side, pos.Symbol, pos.EntryPrice)
	r.notifier.Send(ctx, fmt.Sprintf("[%s] opened %s %s @ %v", r.cfg.Name, pos.Side, pos.Symbol, pos.EntryPrice))

	if err := r.persistWaiting(ctx, pos); err != nil {
		log.Printf("strategy %s: record waiting trade: %v", r.cfg.Name, err)
	}

	r.sleep(settleDelay)

	if err := r.trader.ReserveExit(ctx, pos, r.cfg.TargetPct); err != nil {
		r.fail(ctx, "reserve exit", err)
		return
	}
	log.Printf("strategy %s: reserved exit for %s at +%.2f%%", r.cfg.Name, pos.Symbol, r.cfg.TargetPct)
}

// closeCycle runs ReservedExit -> Closed: cancel and market-close whatever
// is still held, then return to Idle. State clears even on failure; the
// exchange-side position outlives the process and the ledger row stays
// WAITING for the recorder to reconcile.
func (r *Runner) closeCycle(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos == nil {
		log.Printf("strategy %s: close trigger with no open position", r.cfg.Name)
		return
	}
	pos := r.pos
	r.pos = nil

	if err := r.trader.ForceClose(ctx, pos); err != nil {
		if common.ErrorCode(err) == common.CodeNoBalanceToSell {
			// The reserved exit already filled; nothing left to close.
			log.Printf("strategy %s: %s already closed: %v", r.cfg.Name, pos.Symbol, err)
			r.notifier.Send(ctx, fmt.Sprintf("[%s] %s closed via reserved exit", r.cfg.Name, pos.Symbol))
			return
		}
		r.fail(ctx, "force close", err)
		return
	}
	log.Printf("strategy %s: force closed %s", r.cfg.Name, pos.Symbol)
	r.notifier.Send(ctx, fmt.Sprintf("[%s] force closed %s", r.cfg.Name, pos.Symbol))
}

func (r *Runner) persistWaiting(ctx context.Context, pos *gateway.Position) error {
	entry := pos.OpenedAt.UTC().Truncate(time.Minute)
	holding := r.cfg.HoldHours * 60
	return r.store.UpsertTradeResult(ctx, db.TradeResult{
		Exchange:       string(pos.Exchange),
		MarketType:     string(marketTypeFor(pos.Exchange)),
		Symbol:         pos.Symbol,
		Side:           string(pos.Side),
		EntryTime:      entry,
		HoldingMinutes: holding,
		ExitTime:       entry.Add(time.Duration(holding) * time.Minute),
		EntryPrice:     decimal.NewFromFloat(pos.EntryPrice).StringFixed(10),
		PriceBasis:     "last",
		Timezone:       r.tzTag,
		Status:         db.StatusWaiting,
		Note:           "strategy " + r.cfg.Name,
	})
}

func (r *Runner) fail(ctx context.Context, step string, err error) {
	log.Printf("strategy %s: %s failed: %v", r.cfg.Name, step, err)
	r.notifier.Send(ctx, fmt.Sprintf("[%s] %s failed: %v", r.cfg.Name, step, err))
}

func marketTypeFor(exchange common.Exchange) common.MarketType {
	if exchange == common.ExchangeBitget {
		return common.MarketUSDTPerp
	}
	return common.MarketSpotKRW
}

// nextAt returns the next wall-clock instant at hour:01:second in loc that
// is strictly after now.
func nextAt(now time.Time, hour, second int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, triggerMinute, second, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Engine groups the runners built from one strategy file.
type Engine struct {
	runners []*Runner
}

// NewEngine builds one runner per configured strategy, matched to its
// exchange's trader.
func NewEngine(cfgs []StrategyConfig, traders map[common.Exchange]gateway.Trader, store resultStore, notifier notify.Sink, loc *time.Location, tzTag string) (*Engine, error) {
	e := &Engine{}
	for _, cfg := range cfgs {
		trader, ok := traders[common.Exchange(cfg.Exchange)]
		if !ok {
			return nil, fmt.Errorf("strategy %q: no trader for exchange %s", cfg.Name, cfg.Exchange)
		}
		e.runners = append(e.runners, NewRunner(cfg, trader, store, notifier, loc, tzTag))
	}
	return e, nil
}

// Start launches every runner's trigger loops.
func (e *Engine) Start(ctx context.Context) {
	for _, r := range e.runners {
		r.Start(ctx)
	}
	log.Printf("scheduler: %d strategies running", len(e.runners))
}
