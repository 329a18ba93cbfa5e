// Package history provides a linear, bounded undo/redo engine over
// annotation snapshots. The engine is a small state machine: idle while
// nothing happens, recording while a snapshot is pushed, applying while an
// undo/redo restores state. Mutations observed during applying are replay
// artifacts and never become new history entries.
package history

import (
	"github.com/kilupskalvis/labelkit/internal/models"
)

// State is the engine's current mode.
type State int

const (
	Idle State = iota
	Recording
	Applying
)

// Snapshot is one immutable capture of annotation state. Data is opaque to
// the engine; the target produces and consumes it.
type Snapshot struct {
	Data       []byte
	SelectedID string
	Structural bool
	Reason     models.HistoryReason
}

// Target is the object the engine snapshots and restores, in practice the
// annotation aggregate.
type Target interface {
	TakeSnapshot() Snapshot
	RestoreSnapshot(s Snapshot)
}

// Engine keeps the undo and redo stacks for one annotation.
type Engine struct {
	target Target
	limit  int

	undo []Snapshot
	redo []Snapshot

	state State
}

// New creates an engine bound to a target. limit bounds the undo stack;
// values below 1 fall back to 100.
func New(target Target, limit int) *Engine {
	if limit < 1 {
		limit = 100
	}
	e := &Engine{target: target, limit: limit}
	// Baseline snapshot so the first mutation can be undone back to the
	// initial state.
	e.undo = append(e.undo, target.TakeSnapshot())
	return e
}

// State returns the engine's current mode.
func (e *Engine) State() State {
	return e.state
}

// CanUndo reports whether an undo step exists.
func (e *Engine) CanUndo() bool {
	return len(e.undo) > 1
}

// CanRedo reports whether a redo step exists.
func (e *Engine) CanRedo() bool {
	return len(e.redo) > 0
}

// Depth returns the number of undoable steps.
func (e *Engine) Depth() int {
	return len(e.undo) - 1
}

// Record captures the target's current state after a mutation. Calls made
// while a restore is applying are suppressed; any fresh mutation clears the
// redo stack (linear history).
func (e *Engine) Record(reason models.HistoryReason) {
	if e.state == Applying {
		return
	}
	e.state = Recording
	defer func() { e.state = Idle }()

	snap := e.target.TakeSnapshot()
	snap.Reason = reason
	e.undo = append(e.undo, snap)
	e.redo = nil

	if len(e.undo) > e.limit+1 {
		// Drop the oldest entry; the baseline shifts forward.
		e.undo = e.undo[len(e.undo)-e.limit-1:]
	}
}

// Undo restores the previous snapshot. Empty-stack undo is a no-op.
func (e *Engine) Undo() {
	if !e.CanUndo() || e.state != Idle {
		return
	}
	e.state = Applying
	defer func() { e.state = Idle }()

	top := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, top)

	prev := e.undo[len(e.undo)-1]
	prev.Reason = models.ReasonUndo
	e.target.RestoreSnapshot(prev)
}

// Redo re-applies the most recently undone snapshot. No-op when the redo
// stack is empty.
func (e *Engine) Redo() {
	if !e.CanRedo() || e.state != Idle {
		return
	}
	e.state = Applying
	defer func() { e.state = Idle }()

	top := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, top)

	top.Reason = models.ReasonRedo
	e.target.RestoreSnapshot(top)
}

// Reset drops all history and re-captures the baseline. Used when a new
// annotation is loaded into the editor.
func (e *Engine) Reset() {
	e.undo = e.undo[:0]
	e.redo = nil
	e.state = Idle
	e.undo = append(e.undo, e.target.TakeSnapshot())
}
