/*
scheduler.go - Automated overdue sweep

PURPOSE:
  Periodically scans the catalog for loans past their due date and logs a
  summary per sweep. The sweep never mutates anything: lateness is priced
  at return time, so the sweep exists for operator visibility between
  returns.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reads the same catalog snapshot the overview endpoints use
  - Keeps the result of the last sweep for UI display

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewOverdueSweeper(books)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: GetOverdueLoans (on-demand variant of the same scan)
  - library/overview.go: OverdueLoans
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/library-engine/library"
)

// OverdueSweeper periodically reports loans past their due date.
type OverdueSweeper struct {
	Books         library.CatalogStore
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastSweep   time.Time
	lastOverdue []library.LoanInfo
}

// NewOverdueSweeper creates a new sweeper over the given catalog.
func NewOverdueSweeper(books library.CatalogStore) *OverdueSweeper {
	return &OverdueSweeper{
		Books:         books,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the sweeper.
func (sw *OverdueSweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	sw.ticker = time.NewTicker(sw.CheckInterval)
	sw.wg.Add(1)

	go sw.run()

	log.Printf("[Sweeper] Started with check interval: %v", sw.CheckInterval)
}

// Stop stops the sweeper.
func (sw *OverdueSweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ticker != nil {
		sw.ticker.Stop()
		close(sw.stop)
		sw.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

// LastSweep returns when the last sweep ran and what it found.
func (sw *OverdueSweeper) LastSweep() (time.Time, []library.LoanInfo) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.lastSweep, append([]library.LoanInfo(nil), sw.lastOverdue...)
}

func (sw *OverdueSweeper) run() {
	defer sw.wg.Done()

	// Sweep immediately on start
	sw.sweep()

	for {
		select {
		case <-sw.ticker.C:
			sw.sweep()
		case <-sw.stop:
			return
		}
	}
}

func (sw *OverdueSweeper) sweep() {
	ctx := context.Background()
	now := time.Now()

	rows, err := sw.Books.List(ctx)
	if err != nil {
		log.Printf("[Sweeper] Catalog read failed: %v", err)
		return
	}
	overdue := library.OverdueLoans(rows, now)

	sw.mu.Lock()
	sw.lastSweep = now
	sw.lastOverdue = overdue
	sw.mu.Unlock()

	if len(overdue) == 0 {
		log.Printf("[Sweeper] No overdue loans at %v", now.Format(time.RFC3339))
		return
	}
	log.Printf("[Sweeper] %d overdue loan(s):", len(overdue))
	for _, info := range overdue {
		log.Printf("[Sweeper]   %q held by %s, due %s",
			info.Title, info.Borrower, info.DueDate.Format("2006-01-02"))
	}
}
