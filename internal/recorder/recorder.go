// Package recorder runs the hourly bookkeeping job: it reconciles WAITING
// trade results whose holding window has elapsed, then opens a fresh batch
// of WAITING rows for the current top-N markets of each venue under a new
// job run. The recorder never trades; its rows track what the momentum
// signal would have done.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"momentum-core/internal/ranking"
	"momentum-core/internal/tradecalc"
	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/common"
)

// triggerMinute matches the scheduler: hourly jobs fire at minute 1.
const triggerMinute = 1

type store interface {
	CreateJobRun(ctx context.Context, run db.JobRun) (int64, error)
	UpsertTradeResult(ctx context.Context, r db.TradeResult) error
	ListDueWaiting(ctx context.Context, now time.Time) ([]db.TradeResult, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, req tradecalc.Request) error
}

// batchSpec describes what one venue's hourly batch records.
type batchSpec struct {
	exchange       common.Exchange
	marketType     common.MarketType
	holdingMinutes int
	sides          []common.Side
}

var batchSpecs = []batchSpec{
	{common.ExchangeBitget, common.MarketUSDTPerp, 60, []common.Side{common.SideLong, common.SideShort}},
	{common.ExchangeBithumb, common.MarketSpotKRW, 120, []common.Side{common.SideLong}},
}

// Recorder is the hourly reconcile-and-record job.
type Recorder struct {
	store   store
	calc    reconciler
	rankers map[common.Exchange]ranking.Provider
	loc     *time.Location
	tzTag   string
	topN    int

	now func() time.Time // injectable for tests
}

// New creates the recorder.
func New(store store, calc reconciler, rankers map[common.Exchange]ranking.Provider, loc *time.Location, tzTag string, topN int) *Recorder {
	if topN <= 0 {
		topN = 5
	}
	return &Recorder{
		store:   store,
		calc:    calc,
		rankers: rankers,
		loc:     loc,
		tzTag:   tzTag,
		topN:    topN,
		now:     time.Now,
	}
}

// Start runs the hourly loop until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		for {
			next := nextHourlyAt(r.now(), r.loc)
			timer := time.NewTimer(next.Sub(r.now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				r.RunOnce(ctx)
			}
		}
	}()
	log.Printf("recorder: hourly job scheduled (top %d)", r.topN)
}

// RunOnce executes one tick: reconcile due rows, then record new batches.
// Failures are logged per item; one bad symbol never aborts the rest.
func (r *Recorder) RunOnce(ctx context.Context) {
	r.reconcileDue(ctx)
	for _, spec := range batchSpecs {
		if err := r.recordBatch(ctx, spec); err != nil {
			log.Printf("recorder: %s batch: %v", spec.exchange, err)
		}
	}
}

func (r *Recorder) reconcileDue(ctx context.Context) {
	due, err := r.store.ListDueWaiting(ctx, r.now())
	if err != nil {
		log.Printf("recorder: list due waiting rows: %v", err)
		return
	}
	for _, row := range due {
		req := tradecalc.Request{
			Exchange:           common.Exchange(row.Exchange),
			MarketType:         common.MarketType(row.MarketType),
			Symbol:             row.Symbol,
			Side:               common.Side(row.Side),
			EntryTime:          row.EntryTime,
			HoldingMinutes:     row.HoldingMinutes,
			PriceBasis:         row.PriceBasis,
			RunID:              row.RunID,
			RecordedEntryPrice: row.EntryPrice,
		}
		if err := r.calc.Reconcile(ctx, req); err != nil {
			log.Printf("recorder: reconcile %s/%s: %v", row.Exchange, row.Symbol, err)
		}
	}
	if len(due) > 0 {
		log.Printf("recorder: reconciled %d due rows", len(due))
	}
}

func (r *Recorder) recordBatch(ctx context.Context, spec batchSpec) error {
	ranker, ok := r.rankers[spec.exchange]
	if !ok {
		return fmt.Errorf("no ranking provider")
	}
	markets, err := ranker.TopN(ctx, r.topN)
	if err != nil {
		return fmt.Errorf("rank markets: %w", err)
	}
	if len(markets) == 0 {
		return fmt.Errorf("ranking returned no markets")
	}

	runID, err := r.store.CreateJobRun(ctx, db.JobRun{
		Exchange:           string(spec.exchange),
		ScheduleInterval:   "hourly",
		BaseHoldingMinutes: spec.holdingMinutes,
		PriceBasis:         "last",
		Timezone:           r.tzTag,
	})
	if err != nil {
		return fmt.Errorf("create job run: %w", err)
	}

	entry := r.now().UTC().Truncate(time.Minute)
	exit := entry.Add(time.Duration(spec.holdingMinutes) * time.Minute)
	for _, m := range markets {
		for _, side := range spec.sides {
			row := db.TradeResult{
				Exchange:       string(spec.exchange),
				MarketType:     string(spec.marketType),
				Symbol:         m.Symbol,
				Side:           string(side),
				EntryTime:      entry,
				HoldingMinutes: spec.holdingMinutes,
				ExitTime:       exit,
				EntryPrice:     decimal.NewFromFloat(m.LastPrice).StringFixed(10),
				PriceBasis:     "last",
				Timezone:       r.tzTag,
				Status:         db.StatusWaiting,
				RunID:          sql.NullInt64{Int64: runID, Valid: true},
			}
			if err := r.store.UpsertTradeResult(ctx, row); err != nil {
				log.Printf("recorder: record %s/%s %s: %v", spec.exchange, m.Symbol, side, err)
			}
		}
	}
	log.Printf("recorder: run %d recorded %d markets on %s", runID, len(markets), spec.exchange)
	return nil
}

// nextHourlyAt returns the next instant at minute 1 of an hour in loc,
// strictly after now.
func nextHourlyAt(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), triggerMinute, 0, 0, loc)
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}
