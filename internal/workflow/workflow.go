// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow executes a directed graph of authoring stages over a
// shared DocumentState. Execution is single-threaded and cooperative:
// exactly one stage runs at a time, and the next stage is selected only
// after the previous one returns. Implements: prd008-authoring (R1, R6);
// docs/ARCHITECTURE § Workflow Engine.
package workflow

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Terminal is the marker a router or edge uses to end the run. It is not
// a stage: reaching it returns the current state to the caller.
const Terminal = "__end__"

// StageFunc transforms the document state. A stage mutates only its
// documented field set and returns the (same) state, or an error that
// aborts the run. Per prd008-authoring R6.1.
type StageFunc func(ctx context.Context, state *types.DocumentState) (*types.DocumentState, error)

// Router selects the next stage name from the current state snapshot.
// Routers must be pure: no side effects on state or the engine.
type Router func(state *types.DocumentState) string

// Graph is a compiled workflow: named stages plus, for each stage, either
// a fixed next stage or a router evaluated against the state.
type Graph struct {
	stages  map[string]StageFunc
	next    map[string]string
	routers map[string]Router
	entry   string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		stages:  make(map[string]StageFunc),
		next:    make(map[string]string),
		routers: make(map[string]Router),
	}
}

// AddStage registers a named stage. Duplicate names are a construction
// defect and surface as an EngineError.
func (g *Graph) AddStage(name string, fn StageFunc) error {
	if name == "" || name == Terminal {
		return &EngineError{Msg: fmt.Sprintf("invalid stage name %q", name)}
	}
	if fn == nil {
		return &EngineError{Msg: "stage " + name + ": nil stage function"}
	}
	if _, ok := g.stages[name]; ok {
		return &EngineError{Msg: "duplicate stage: " + name}
	}
	g.stages[name] = fn
	return nil
}

// AddEdge wires a fixed transition from one stage to the next stage or to
// Terminal.
func (g *Graph) AddEdge(from, to string) error {
	if err := g.checkFrom(from); err != nil {
		return err
	}
	g.next[from] = to
	return nil
}

// AddConditionalEdge wires a router evaluated after the stage returns.
func (g *Graph) AddConditionalEdge(from string, route Router) error {
	if err := g.checkFrom(from); err != nil {
		return err
	}
	if route == nil {
		return &EngineError{Msg: "stage " + from + ": nil router"}
	}
	g.routers[from] = route
	return nil
}

// SetEntry designates the stage a run starts at.
func (g *Graph) SetEntry(name string) error {
	if _, ok := g.stages[name]; !ok {
		return &EngineError{Msg: "entry stage not registered: " + name}
	}
	g.entry = name
	return nil
}

func (g *Graph) checkFrom(from string) error {
	if _, ok := g.stages[from]; !ok {
		return &EngineError{Msg: "edge from unregistered stage: " + from}
	}
	if _, dup := g.next[from]; dup {
		return &EngineError{Msg: "stage " + from + " already has an edge"}
	}
	if _, dup := g.routers[from]; dup {
		return &EngineError{Msg: "stage " + from + " already has a router"}
	}
	return nil
}

// Options configures a run.
type Options struct {
	// MaxSteps bounds total stage executions. The structural loops are
	// bounded by routing policy; this is the engine's defense against a
	// miswired graph. 0 means the default (100).
	MaxSteps int

	// Progress receives one line per stage transition. Nil discards.
	Progress io.Writer
}

const defaultMaxSteps = 100

// Run executes the graph from its entry stage until Terminal is reached.
//
// A stage error aborts the run and is returned as a *StageError carrying
// the failing stage's name and the state at failure time, so the caller
// can inspect partial progress. A router naming an unregistered stage, a
// stage with no outgoing edge, or an exceeded MaxSteps return an
// *EngineError. Cancellation is run-granular: the context is checked at
// stage boundaries only, never mid-stage.
func Run(ctx context.Context, g *Graph, initial *types.DocumentState, opts Options) (*types.DocumentState, error) {
	if g.entry == "" {
		return initial, &EngineError{Msg: "no entry stage set"}
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	state := initial
	current := g.entry

	for step := 1; ; step++ {
		if step > maxSteps {
			return state, &EngineError{Msg: fmt.Sprintf("exceeded %d steps at stage %s", maxSteps, current)}
		}

		select {
		case <-ctx.Done():
			return state, &StageError{Stage: current, State: state, Err: ctx.Err()}
		default:
		}

		fn, ok := g.stages[current]
		if !ok {
			return state, &EngineError{Msg: "routed to unregistered stage: " + current}
		}

		fmt.Fprintf(progress, "stage %s\n", current)

		next, err := fn(ctx, state)
		if err != nil {
			return state, &StageError{Stage: current, State: state, Err: err}
		}
		state = next

		// Edge evaluation is a pure function of the state snapshot here.
		target, err := g.route(current, state)
		if err != nil {
			return state, err
		}
		if target == Terminal {
			return state, nil
		}
		current = target
	}
}

// route resolves the stage's outgoing edge against the state.
func (g *Graph) route(from string, state *types.DocumentState) (string, error) {
	if to, ok := g.next[from]; ok {
		return to, nil
	}
	if router, ok := g.routers[from]; ok {
		to := router(state)
		if to == Terminal {
			return Terminal, nil
		}
		if _, registered := g.stages[to]; !registered {
			return "", &EngineError{Msg: fmt.Sprintf("router for %s returned unknown stage %q", from, to)}
		}
		return to, nil
	}
	return "", &EngineError{Msg: "no outgoing edge from stage: " + from}
}
