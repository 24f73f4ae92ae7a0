package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alytics/alytics/internal/domain/run"
	"github.com/alytics/alytics/internal/domain/tenant"
	"github.com/alytics/alytics/internal/port/tenantstore"
)

// Runner executes one tenant's report workflow to completion.
type Runner interface {
	Run(ctx context.Context, t tenant.Config) run.Result
}

// Scheduler periodically dispatches report runs for every tenant whose next
// run date has arrived. Tenants advance regardless of run outcome: a failed
// report waits for the next cycle instead of retrying every tick.
type Scheduler struct {
	log      *slog.Logger
	store    tenantstore.Store
	runner   Runner
	interval time.Duration
	limit    int
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

// NewScheduler creates a Scheduler checking for due tenants every interval
// and running at most limit reports concurrently per tick.
func NewScheduler(log *slog.Logger, store tenantstore.Store, runner Runner, interval time.Duration, limit int) *Scheduler {
	if limit < 1 {
		limit = 1
	}
	return &Scheduler{
		log:      log,
		store:    store,
		runner:   runner,
		interval: interval,
		limit:    limit,
		now:      time.Now,
		inflight: make(map[string]bool),
	}
}

// Start runs the dispatch loop until ctx is cancelled. An initial tick runs
// immediately so overdue tenants are not kept waiting a full interval after
// a restart.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("scheduler started", "interval", s.interval, "dispatch_limit", s.limit)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick dispatches every due tenant and waits for the batch to finish.
func (s *Scheduler) tick(ctx context.Context) {
	today := tenant.DateOnly(s.now())

	due, err := s.store.ListDueTenants(ctx, today)
	if err != nil {
		s.log.Error("list due tenants failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("dispatching due tenants", "count", len(due))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, t := range due {
		if !s.claim(t.ID) {
			s.log.Warn("tenant already running, skipped", "tenant_id", t.ID)
			continue
		}
		g.Go(func() error {
			defer s.release(t.ID)
			s.dispatch(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

// dispatch advances the tenant's next run date and executes the workflow.
// The advance happens first and unconditionally so a persistently failing
// tenant cannot wedge the schedule.
func (s *Scheduler) dispatch(ctx context.Context, t tenant.Config) {
	next := tenant.NextRunFrom(s.now(), t.Frequency)
	if err := s.store.UpdateNextRun(ctx, t.ID, next); err != nil {
		s.log.Error("advance next run failed", "tenant_id", t.ID, "error", err)
	}

	res := s.runner.Run(ctx, t)
	if res.Err != nil {
		s.log.Error("scheduled run failed",
			"tenant_id", t.ID,
			"run_id", res.RunID,
			"status", res.Status,
			"error", res.Err,
		)
		return
	}
	s.log.Info("scheduled run finished",
		"tenant_id", t.ID,
		"run_id", res.RunID,
		"next_run", next.Format(time.DateOnly),
	)
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}
