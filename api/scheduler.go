/*
scheduler.go - Receivables scheduler

PURPOSE:
  Periodically rolls up unpaid invoices so overdue receivables show up in
  metrics and logs without anyone opening the invoice history.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check reads the invoice history through billing.Service
  - PAID invoices are settled and never counted
  - The latest rollup is kept for the dashboard and exported as gauges

CONFIGURATION:
  - CheckInterval: How often to check (scheduler.interval, default: 1 hour)
  - Enabled: Whether scheduler is active (scheduler.enabled, default: true)

USAGE:
  scheduler := NewReceivablesScheduler(svc, metrics, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GetReceivables endpoint (on-demand rollup)
  - billing/receivables.go: SummarizeReceivables
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/billing-engine/billing"
	"go.uber.org/zap"
)

// ReceivablesScheduler periodically checks for overdue invoices.
type ReceivablesScheduler struct {
	Service       *billing.Service
	Metrics       *Metrics
	Log           *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	last   *billing.Receivables
}

// NewReceivablesScheduler creates a new scheduler. metrics may be nil.
func NewReceivablesScheduler(svc *billing.Service, metrics *Metrics, log *zap.Logger) *ReceivablesScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReceivablesScheduler{
		Service:       svc,
		Metrics:       metrics,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *ReceivablesScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("receivables scheduler disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.Log.Info("receivables scheduler started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (rs *ReceivablesScheduler) Stop() {
	rs.mu.Lock()
	if rs.ticker == nil {
		rs.mu.Unlock()
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.ticker = nil
	rs.mu.Unlock()

	rs.wg.Wait()
	rs.Log.Info("receivables scheduler stopped")
}

func (rs *ReceivablesScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			rs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs a check immediately (for testing/admin).
func (rs *ReceivablesScheduler) RunNow(ctx context.Context) (billing.Receivables, error) {
	r, err := rs.Service.Receivables(ctx)
	if err != nil {
		rs.Log.Error("receivables check failed", zap.Error(err))
		return billing.Receivables{}, err
	}

	rs.mu.Lock()
	rs.last = &r
	rs.mu.Unlock()

	if rs.Metrics != nil {
		rs.Metrics.ObserveReceivables(r)
	}
	if r.Overdue > 0 {
		rs.Log.Warn("overdue invoices",
			zap.Int("count", r.Overdue),
			zap.String("amount", r.OverdueAmount.StringFixed(2)),
			zap.Int("oldest_days", r.OldestOverdue),
		)
	} else {
		rs.Log.Debug("no overdue invoices", zap.Int("open", r.Open))
	}
	return r, nil
}

// Last returns the most recent rollup, if a check has completed.
func (rs *ReceivablesScheduler) Last() (billing.Receivables, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.last == nil {
		return billing.Receivables{}, false
	}
	return *rs.last, true
}
