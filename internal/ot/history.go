package ot

import "github.com/serroba/rich-docs/internal/delta"

// DefaultMaxUndos is the default depth of each history stack.
const DefaultMaxUndos = 20

// History keeps the undo and redo stacks of a document. Every undo entry is the
// delta that reverses the edit which produced the current state; redo entries
// reverse an undo.
//
// History is not safe for concurrent use; it belongs to a single Document.
type History struct {
	undos    []*delta.Delta
	redos    []*delta.Delta
	capacity int
}

// NewHistory creates a history retaining at most capacity entries per stack.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultMaxUndos
	}

	return &History{capacity: capacity}
}

// CanUndo returns true if the undo stack has an entry.
func (h *History) CanUndo() bool {
	return len(h.undos) > 0
}

// CanRedo returns true if the redo stack has an entry.
func (h *History) CanRedo() bool {
	return len(h.redos) > 0
}

// Undo pops the most recent undo entry.
func (h *History) Undo() (*delta.Delta, bool) {
	return pop(&h.undos)
}

// Redo pops the most recent redo entry.
func (h *History) Redo() (*delta.Delta, bool) {
	return pop(&h.redos)
}

// AddUndo pushes an entry onto the undo stack, dropping the oldest entry past
// capacity.
func (h *History) AddUndo(d *delta.Delta) {
	h.undos = push(h.undos, d, h.capacity)
}

// AddRedo pushes an entry onto the redo stack, dropping the oldest entry past
// capacity.
func (h *History) AddRedo(d *delta.Delta) {
	h.redos = push(h.redos, d, h.capacity)
}

// ClearRedo empties the redo stack.
func (h *History) ClearRedo() {
	h.redos = nil
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.undos = nil
	h.redos = nil
}

// Capacity returns the maximum number of entries kept per stack.
func (h *History) Capacity() int {
	return h.capacity
}

func push(stack []*delta.Delta, d *delta.Delta, capacity int) []*delta.Delta {
	stack = append(stack, d)

	if len(stack) > capacity {
		stack = stack[len(stack)-capacity:]
	}

	return stack
}

func pop(stack *[]*delta.Delta) (*delta.Delta, bool) {
	n := len(*stack)
	if n == 0 {
		return nil, false
	}

	d := (*stack)[n-1]
	*stack = (*stack)[:n-1]

	return d, true
}
