// Package monitor sends an hourly top-movers summary to the notification
// sink. It is informational only and shares nothing with the trading path.
package monitor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"momentum-core/internal/notify"
	"momentum-core/internal/ranking"
)

const (
	triggerMinute = 1
	topCount      = 5
)

// quietHours are local hours with no summary: overnight and the Seoul
// morning session where the operator is already watching.
var quietHours = map[int]struct{}{
	0: {}, 7: {}, 8: {}, 9: {}, 22: {}, 23: {},
}

// Monitor is the hourly market summary job.
type Monitor struct {
	rankers  []ranking.Provider
	notifier notify.Sink
	loc      *time.Location

	now func() time.Time // injectable for tests
}

// New creates the monitor.
func New(rankers []ranking.Provider, notifier notify.Sink, loc *time.Location) *Monitor {
	return &Monitor{rankers: rankers, notifier: notifier, loc: loc, now: time.Now}
}

// Start runs the hourly loop until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		for {
			next := m.nextAt(m.now())
			timer := time.NewTimer(next.Sub(m.now()))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				m.RunOnce(ctx)
			}
		}
	}()
	log.Printf("monitor: hourly summary scheduled")
}

// RunOnce sends one summary unless the current local hour is quiet.
func (m *Monitor) RunOnce(ctx context.Context) {
	hour := m.now().In(m.loc).Hour()
	if _, quiet := quietHours[hour]; quiet {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top movers %02d:00\n", hour)
	for _, ranker := range m.rankers {
		markets, err := ranker.TopN(ctx, topCount)
		if err != nil {
			log.Printf("monitor: rank %s: %v", ranker.Exchange(), err)
			continue
		}
		fmt.Fprintf(&b, "[%s]\n", ranker.Exchange())
		for i, market := range markets {
			fmt.Fprintf(&b, "%d. %s %+.2f%%\n", i+1, market.Symbol, market.ChangeRatePct)
		}
	}
	m.notifier.Send(ctx, b.String())
}

func (m *Monitor) nextAt(now time.Time) time.Time {
	local := now.In(m.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), triggerMinute, 0, 0, m.loc)
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}
