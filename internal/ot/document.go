package ot

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/serroba/rich-docs/internal/delta"
)

// Common errors.
var (
	// ErrInvalidPosition is returned when an edit targets a position outside
	// [0, Len()].
	ErrInvalidPosition = errors.New("invalid position")

	// ErrInvalidInterval is returned when a delete or format targets a range
	// outside the document.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrUndoFail is returned by Undo when there is nothing to undo.
	ErrUndoFail = errors.New("nothing to undo")

	// ErrRedoFail is returned by Redo when there is nothing to redo.
	ErrRedoFail = errors.New("nothing to redo")
)

// UndoResult describes the state reached by an undo or redo.
type UndoResult struct {
	// Len is the document length after the step.
	Len int
	// Change is the delta that was composed into the document.
	Change *delta.Delta
}

// Document is the editing core of a rich-text document. It owns the current
// delta, the undo/redo history and a revision counter.
//
// A Document assumes a single writer: it does no locking, and two deltas must
// never be applied to it concurrently. Independent editors each own a Document
// and are reconciled with Transform.
type Document struct {
	delta    *delta.Delta
	history  *History
	revision int
	logger   *zap.Logger
}

// NewDocument creates an empty document at revision 1.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		delta:    delta.New(),
		history:  NewHistory(DefaultMaxUndos),
		revision: 1,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Edit inserts text at pos. The inserted text takes the formatting found at
// [pos, pos+1), and follows its surroundings when there is none.
// It returns the change composed into the document.
func (d *Document) Edit(pos int, text string) (*delta.Delta, error) {
	if pos < 0 || pos > d.Len() {
		d.logger.Debug("edit out of bounds", zap.Int("pos", pos), zap.Int("len", d.Len()))

		return nil, fmt.Errorf("%w: %d not in [0,%d]", ErrInvalidPosition, pos, d.Len())
	}

	attrs := d.delta.Attributes(delta.NewInterval(pos, pos+1))
	if attrs.Kind() == delta.AttrsEmpty {
		attrs = delta.Follow
	}

	insert := delta.NewInsert(text, attrs)

	return d.updateWithOp(insert, delta.NewInterval(pos, pos)), nil
}

// Delete removes the text covered by iv.
func (d *Document) Delete(iv delta.Interval) (*delta.Delta, error) {
	if err := d.checkInterval(iv); err != nil {
		return nil, err
	}

	return d.updateWithOp(delta.NewDelete(iv.Size()), iv), nil
}

// Format switches the named attribute on or off over iv.
func (d *Document) Format(iv delta.Interval, name delta.Attribute, enable bool) (*delta.Delta, error) {
	b := delta.NewAttrs()
	if enable {
		b.Add(name)
	} else {
		b.Remove(name)
	}

	return d.UpdateWithAttributes(b.Build(), iv)
}

// UpdateWithAttributes restyles iv. Follow takes the formatting already
// present; a Custom set is completed with the existing entries it does not
// name itself.
func (d *Document) UpdateWithAttributes(attrs delta.Attributes, iv delta.Interval) (*delta.Delta, error) {
	if err := d.checkInterval(iv); err != nil {
		return nil, err
	}

	old := d.delta.Attributes(iv)

	var merged delta.Attributes

	switch attrs.Kind() {
	case delta.AttrsFollow:
		merged = old
	case delta.AttrsCustom:
		merged = attrs.Merge(old)
	case delta.AttrsEmpty:
		merged = delta.Empty
	}

	d.logger.Debug("merge attributes",
		zap.Stringer("requested", attrs),
		zap.Stringer("existing", old),
		zap.Stringer("merged", merged),
	)

	retain := delta.NewRetain(iv.Size(), merged)

	return d.updateWithOp(retain, iv), nil
}

// CanUndo reports whether Undo would succeed.
func (d *Document) CanUndo() bool {
	return d.history.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (d *Document) CanRedo() bool {
	return d.history.CanRedo()
}

// Undo reverts the most recent edit and makes it available to Redo.
func (d *Document) Undo() (UndoResult, error) {
	undo, ok := d.history.Undo()
	if !ok {
		return UndoResult{}, ErrUndoFail
	}

	redo := d.replay(undo)
	d.history.AddRedo(redo)

	return UndoResult{Len: d.Len(), Change: undo}, nil
}

// Redo reapplies the most recently undone edit and makes it available to Undo.
func (d *Document) Redo() (UndoResult, error) {
	redo, ok := d.history.Redo()
	if !ok {
		return UndoResult{}, ErrRedoFail
	}

	undo := d.replay(redo)
	d.history.AddUndo(undo)

	return UndoResult{Len: d.Len(), Change: redo}, nil
}

// replay composes a history entry into the document and returns the entry
// that reverses it.
func (d *Document) replay(entry *delta.Delta) *delta.Delta {
	next, err := d.delta.Compose(entry)
	assert(err == nil, "history entry does not fit document: ", err)

	reverse, err := entry.Invert(d.delta)
	assert(err == nil, "history entry is not invertible: ", err)

	d.delta = next
	d.revision++

	return reverse
}

// Compose applies a change produced elsewhere, typically a remote edit that
// was already transformed against this document's state. The history is
// cleared because older entries no longer address the new state.
func (d *Document) Compose(change *delta.Delta) error {
	next, err := d.delta.Compose(change)
	if err != nil {
		return err
	}

	d.replace(next)

	return nil
}

// Delta returns a copy of the current document delta.
func (d *Document) Delta() *delta.Delta {
	return d.delta.Clone()
}

// SetDelta replaces the document state wholesale and clears the history.
func (d *Document) SetDelta(state *delta.Delta) {
	d.replace(state.Clone())
}

// ToJSON exports the current state in its canonical serialized form.
func (d *Document) ToJSON() string {
	return d.delta.ToJSON()
}

// SetJSON replaces the document state with a serialized delta.
func (d *Document) SetJSON(s string) error {
	state, err := delta.FromJSON(s)
	if err != nil {
		return err
	}

	d.replace(state)

	return nil
}

// Text returns the plain content of the document.
func (d *Document) Text() (string, error) {
	return d.delta.Text()
}

// Len returns the document length in runes.
func (d *Document) Len() int {
	return d.delta.TargetLen()
}

// Revision returns the current revision. It starts at 1 and advances on every
// change of state.
func (d *Document) Revision() int {
	return d.revision
}

func (d *Document) replace(state *delta.Delta) {
	d.delta = state
	d.history.Clear()
	d.revision++
}

func (d *Document) checkInterval(iv delta.Interval) error {
	if iv.Start < 0 || iv.End < iv.Start || iv.End > d.Len() {
		return fmt.Errorf("%w: %s not within [0,%d)", ErrInvalidInterval, iv, d.Len())
	}

	return nil
}

// updateWithOp rebuilds a change around op so that it spans the whole
// document, composes it and records its inverse.
func (d *Document) updateWithOp(op delta.Operation, iv delta.Interval) *delta.Delta {
	prefix, iv, suffix := splitLengthWithInterval(d.Len(), iv)
	change := delta.New()

	if !prefix.IsEmpty() && prefix != iv {
		d.retainRuns(change, prefix)
	}

	d.logger.Debug("add op", zap.Stringer("op", op), zap.Stringer("interval", iv))
	change.Add(op)

	if !suffix.IsEmpty() {
		d.retainRuns(change, suffix)
	}

	next, err := d.delta.Compose(change)
	assert(err == nil, "rebuilt change does not span the document: ", err)

	inverse, err := change.Invert(d.delta)
	d.revision++

	switch {
	case err != nil:
		d.logger.Warn("edit cannot be undone, dropping history", zap.Error(err))
		d.history.Clear()
	case !inverse.IsNoop() && !next.Equal(d.delta):
		d.history.AddUndo(inverse)
		d.history.ClearRedo()
	}

	d.delta = next

	return change
}

// retainRuns appends one retain per formatting run of the current document
// inside iv, each carrying that run's attributes.
func (d *Document) retainRuns(change *delta.Delta, iv delta.Interval) {
	for _, run := range splitIntervalWithDelta(d.delta, iv) {
		attrs := d.delta.Attributes(run)
		d.logger.Debug("retain run", zap.Stringer("interval", run), zap.Stringer("attributes", attrs))
		change.Retain(run.Size(), attrs)
	}
}

// splitLengthWithInterval splits [0, length) into the parts before, at and
// after iv.
func splitLengthWithInterval(length int, iv delta.Interval) (delta.Interval, delta.Interval, delta.Interval) {
	whole := delta.NewInterval(0, length)

	return whole.Prefix(iv), iv, whole.Suffix(iv)
}

// splitIntervalWithDelta cuts iv at the operation boundaries of d's output.
// Deletes produce no output and contribute no boundary.
func splitIntervalWithDelta(d *delta.Delta, iv delta.Interval) []delta.Interval {
	var (
		runs  []delta.Interval
		start int
	)

	for _, op := range d.Ops() {
		if op.IsDelete() {
			continue
		}

		end := start + op.Len()

		if run := iv.Intersect(delta.NewInterval(start, end)); !run.IsEmpty() {
			runs = append(runs, run)
		}

		start = end
	}

	return runs
}

func assert(ok bool, v ...any) {
	if !ok {
		panic(fmt.Sprint(v...))
	}
}
