// Package graph provides a statically validated DAG of named report steps
// and an executor that runs independent steps concurrently over a shared,
// incrementally merged state.
package graph

import (
	"fmt"
	"sort"
)

// Pseudo-step names marking the entry and exit of every definition.
const (
	Start = "__start__"
	End   = "__end__"
)

// Definition is a static description of steps and "must complete before"
// edges. It is built once, validated eagerly, and never mutated afterwards.
type Definition struct {
	nodes map[string]bool
	succ  map[string][]string
	pred  map[string][]string
}

// Edge is one directed "From must complete before To" constraint.
type Edge struct {
	From string
	To   string
}

// NewDefinition builds and validates a graph from its node names and edges.
// Validation fails fast with a *ConfigError on duplicate or reserved node
// names, edges referencing unknown nodes, cycles, nodes unreachable from
// Start, and nodes that cannot reach End.
func NewDefinition(nodes []string, edges []Edge) (*Definition, error) {
	d := &Definition{
		nodes: make(map[string]bool, len(nodes)),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
	}

	for _, n := range nodes {
		if n == "" {
			return nil, &ConfigError{Reason: "empty step name"}
		}
		if n == Start || n == End {
			return nil, &ConfigError{Reason: fmt.Sprintf("step name %q is reserved", n)}
		}
		if d.nodes[n] {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate step %q", n)}
		}
		d.nodes[n] = true
	}

	for _, e := range edges {
		if !d.known(e.From) || !d.known(e.To) {
			return nil, &ConfigError{Reason: fmt.Sprintf("edge %s->%s references unknown step", e.From, e.To)}
		}
		if e.From == End || e.To == Start {
			return nil, &ConfigError{Reason: fmt.Sprintf("edge %s->%s uses a pseudo-step on the wrong side", e.From, e.To)}
		}
		d.succ[e.From] = append(d.succ[e.From], e.To)
		d.pred[e.To] = append(d.pred[e.To], e.From)
	}

	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Definition) known(name string) bool {
	return name == Start || name == End || d.nodes[name]
}

// validate checks acyclicity (Kahn's algorithm, guaranteed to terminate)
// and that every step lies on a Start→End path.
func (d *Definition) validate() error {
	indegree := map[string]int{Start: 0, End: 0}
	for n := range d.nodes {
		indegree[n] = len(d.pred[n])
	}
	indegree[End] = len(d.pred[End])

	var queue []string
	for n, deg := range indegree {
		if deg == 0 {
			queue = append(queue, n)
		}
	}

	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range d.succ[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(d.nodes)+2 {
		return &ConfigError{Reason: "graph contains a cycle"}
	}

	reachable := d.walk(Start, d.succ)
	for n := range d.nodes {
		if !reachable[n] {
			return &ConfigError{Reason: fmt.Sprintf("step %q is not reachable from start", n)}
		}
	}
	converging := d.walk(End, d.pred)
	for n := range d.nodes {
		if !converging[n] {
			return &ConfigError{Reason: fmt.Sprintf("step %q does not reach end", n)}
		}
	}
	return nil
}

func (d *Definition) walk(from string, adj map[string][]string) map[string]bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[n] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return seen
}

// Steps returns all step names in sorted order, excluding the pseudo-steps.
func (d *Definition) Steps() []string {
	names := make([]string, 0, len(d.nodes))
	for n := range d.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Predecessors returns the real (non-pseudo) steps that must complete
// before the named step may start.
func (d *Definition) Predecessors(name string) []string {
	var preds []string
	for _, p := range d.pred[name] {
		if p != Start {
			preds = append(preds, p)
		}
	}
	sort.Strings(preds)
	return preds
}
