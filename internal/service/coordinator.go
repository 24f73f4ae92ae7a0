package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/alytics/alytics/internal/adapter/otel"
	"github.com/alytics/alytics/internal/domain/report"
	"github.com/alytics/alytics/internal/domain/run"
	"github.com/alytics/alytics/internal/domain/tenant"
	"github.com/alytics/alytics/internal/graph"
	"github.com/alytics/alytics/internal/port/messagequeue"
)

// Coordinator owns the lifecycle of report runs: admission, deadline,
// execution, and lifecycle events. Admission is a weighted semaphore so a
// burst of due tenants cannot swamp the collaborators.
type Coordinator struct {
	log     *slog.Logger
	def     *graph.Definition
	exec    *graph.Executor
	reg     graph.Registry
	queue   messagequeue.Queue
	metrics *otel.Metrics
	sem     *semaphore.Weighted
	timeout time.Duration
	newID   func() string
}

// NewCoordinator creates a Coordinator admitting at most maxConcurrent
// simultaneous runs, each bounded by timeout.
func NewCoordinator(
	log *slog.Logger,
	def *graph.Definition,
	reg graph.Registry,
	queue messagequeue.Queue,
	metrics *otel.Metrics,
	maxConcurrent int64,
	timeout time.Duration,
) *Coordinator {
	return &Coordinator{
		log:     log,
		def:     def,
		exec:    graph.NewExecutor(log),
		reg:     reg,
		queue:   queue,
		metrics: metrics,
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
		newID:   uuid.NewString,
	}
}

// Run executes the full report workflow for one tenant and blocks until it
// finishes, fails, or exceeds the deadline.
func (c *Coordinator) Run(ctx context.Context, t tenant.Config) run.Result {
	return c.run(ctx, c.newID(), t)
}

// Dispatch starts a run in the background and returns its ID immediately.
// The run detaches from the caller's context; an HTTP client disconnecting
// must not abort a half-published report.
func (c *Coordinator) Dispatch(t tenant.Config) string {
	runID := c.newID()
	go func() {
		c.run(context.Background(), runID, t)
	}()
	return runID
}

func (c *Coordinator) run(ctx context.Context, runID string, t tenant.Config) run.Result {
	log := c.log.With("run_id", runID, "tenant_id", t.ID)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		log.Error("run rejected at admission", "error", err)
		return run.Result{RunID: runID, TenantID: t.ID, Status: run.StatusFailed, Err: err}
	}
	defer c.sem.Release(1)

	started := time.Now()
	log.Info("run started", "frequency", t.Frequency)
	c.metrics.RunsStarted.Add(ctx, 1)
	c.publishEvent(ctx, messagequeue.SubjectRunStarted, runID, t.ID, "")

	initial := report.State{Tenant: t.Context()}

	type outcome struct {
		state *report.State
		err   error
	}
	// The executor keeps running past the deadline; the deadline bounds how
	// long the coordinator waits, not the collaborators' own timeouts.
	done := make(chan outcome, 1)
	go func() {
		state, err := c.exec.Run(ctx, c.def, c.reg, initial)
		done <- outcome{state: state, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var res run.Result
	select {
	case out := <-done:
		res = run.Result{
			RunID:    runID,
			TenantID: t.ID,
			State:    out.state,
			Err:      out.err,
			Duration: time.Since(started),
		}
		if out.err != nil {
			res.Status = run.StatusFailed
		} else {
			res.Status = run.StatusCompleted
		}
	case <-timer.C:
		res = run.Result{
			RunID:    runID,
			TenantID: t.ID,
			Status:   run.StatusTimedOut,
			Err:      &run.TimeoutError{RunID: runID, Limit: c.timeout},
			Duration: time.Since(started),
		}
	}

	c.metrics.RunDuration.Record(ctx, res.Duration.Seconds(),
		metric.WithAttributes(attribute.String("status", string(res.Status))))

	switch res.Status {
	case run.StatusCompleted:
		log.Info("run completed", "duration", res.Duration)
		c.metrics.RunsCompleted.Add(ctx, 1)
		c.publishEvent(ctx, messagequeue.SubjectRunCompleted, runID, t.ID, "")
	case run.StatusTimedOut:
		log.Error("run timed out", "duration", res.Duration, "limit", c.timeout)
		c.metrics.RunsTimedOut.Add(ctx, 1)
		c.publishEvent(ctx, messagequeue.SubjectRunFailed, runID, t.ID, res.Err.Error())
	default:
		log.Error("run failed", "duration", res.Duration, "error", res.Err)
		c.metrics.RunsFailed.Add(ctx, 1)
		c.publishEvent(ctx, messagequeue.SubjectRunFailed, runID, t.ID, res.Err.Error())
	}

	return res
}

// runEvent is the payload published on run lifecycle subjects.
type runEvent struct {
	RunID    string    `json:"run_id"`
	TenantID string    `json:"tenant_id"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

func (c *Coordinator) publishEvent(ctx context.Context, subject, runID, tenantID, errMsg string) {
	data, err := json.Marshal(runEvent{
		RunID:    runID,
		TenantID: tenantID,
		Error:    errMsg,
		At:       time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := c.queue.Publish(ctx, subject, data); err != nil {
		c.log.Warn("lifecycle event publish failed", "subject", subject, "run_id", runID, "error", err)
	}
}
