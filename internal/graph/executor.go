package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alytics/alytics/internal/domain/report"
)

// Step is one named unit of work in the graph. Execute receives a cloned
// snapshot of the merged state and returns a partial update; it must not
// mutate the snapshot and must be safe to run concurrently with steps
// sharing no state fields. External I/O side effects are allowed.
type Step interface {
	Name() string
	Requires() []report.Field
	Writes() []report.Field
	Execute(ctx context.Context, snapshot report.State) (report.Update, error)
}

// Registry maps step names to their implementations.
type Registry map[string]Step

// Executor walks a Definition in topological layers, dispatching each
// layer's steps concurrently and merging their updates at layer boundaries.
// No locks guard the state: merges happen only between layers, under the
// executor's exclusive control.
type Executor struct {
	log         *slog.Logger
	eagerCancel bool
}

// NewExecutor creates an Executor logging step lifecycle through log.
func NewExecutor(log *slog.Logger) *Executor {
	return &Executor{log: log}
}

// SetEagerCancel makes the executor cancel a layer's context as soon as one
// of its steps fails, instead of letting siblings run to completion.
// Discarded-sibling semantics are unchanged either way.
func (e *Executor) SetEagerCancel(v bool) {
	e.eagerCancel = v
}

type stepOutcome struct {
	name   string
	update report.Update
	err    error
}

// Run executes every step of def exactly once, respecting the DAG, and
// returns the final merged state. On failure it returns the first failing
// step's error (*StepError) ordered by layer, then step name; wiring
// defects surface as *ConfigError.
func (e *Executor) Run(ctx context.Context, def *Definition, reg Registry, initial report.State) (*report.State, error) {
	for _, name := range def.Steps() {
		if _, ok := reg[name]; !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("no implementation registered for step %q", name)}
		}
	}

	state := initial
	total := len(def.Steps())
	done := make(map[string]bool, total)

	// Dependency satisfaction is structural: a field counts once a
	// predecessor wrote it, even if the written value is empty. Only the
	// initial state is judged by value.
	written := make(map[report.Field]bool)
	for _, f := range initial.Populated() {
		written[f] = true
	}

	for len(done) < total {
		layer := e.nextLayer(def, done)
		if len(layer) == 0 {
			return nil, &ConfigError{Reason: "no runnable step remains; definition validation missed a defect"}
		}

		for _, name := range layer {
			for _, f := range reg[name].Requires() {
				if !written[f] {
					return nil, &ConfigError{Reason: fmt.Sprintf(
						"step %q requires field %q which no predecessor populated", name, f)}
				}
			}
		}

		outcomes, err := e.runLayer(ctx, reg, layer, state)
		if err != nil {
			return nil, err
		}

		writtenBy := make(map[report.Field]string)
		for _, out := range outcomes {
			for _, f := range out.update.Fields() {
				if prev, clash := writtenBy[f]; clash {
					return nil, &ConfigError{Reason: fmt.Sprintf(
						"steps %q and %q both wrote field %q in one layer", prev, out.name, f)}
				}
				writtenBy[f] = out.name
				written[f] = true
			}
			state.Apply(out.update)
			done[out.name] = true
		}
	}

	return &state, nil
}

// nextLayer selects all not-yet-run steps whose predecessors have completed,
// sorted by name for deterministic dispatch and failure ordering.
func (e *Executor) nextLayer(def *Definition, done map[string]bool) []string {
	var layer []string
	for _, name := range def.Steps() {
		if done[name] {
			continue
		}
		ready := true
		for _, p := range def.Predecessors(name) {
			if !done[p] {
				ready = false
				break
			}
		}
		if ready {
			layer = append(layer, name)
		}
	}
	sort.Strings(layer)
	return layer
}

// runLayer dispatches every step of the layer concurrently against clones
// of the current state and waits for all of them. When any step fails, the
// lowest-named failure wins and the remaining outcomes are discarded.
func (e *Executor) runLayer(ctx context.Context, reg Registry, layer []string, state report.State) ([]stepOutcome, error) {
	layerCtx := ctx
	var cancel context.CancelFunc
	if e.eagerCancel {
		layerCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	outcomes := make([]stepOutcome, len(layer))
	var wg sync.WaitGroup
	for i, name := range layer {
		wg.Add(1)
		go func(i int, step Step) {
			defer wg.Done()
			started := time.Now()
			e.log.Info("step started", "step", step.Name())
			update, err := step.Execute(layerCtx, state.Clone())
			if err != nil {
				e.log.Error("step failed", "step", step.Name(), "duration", time.Since(started), "error", err)
				outcomes[i] = stepOutcome{name: step.Name(), err: err}
				if cancel != nil {
					cancel()
				}
				return
			}
			e.log.Info("step completed",
				"step", step.Name(),
				"duration", time.Since(started),
				"fields", len(update.Fields()),
			)
			outcomes[i] = stepOutcome{name: step.Name(), update: update}
		}(i, reg[name])
	}
	wg.Wait()

	// layer is sorted, so the first error encountered is the lowest-named.
	for _, out := range outcomes {
		if out.err != nil {
			return nil, &StepError{Step: out.name, Err: out.err}
		}
	}
	return outcomes, nil
}
