package delta

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"
)

// Common errors.
var (
	// ErrIncompatibleLengths is returned when two deltas cannot be combined
	// because their lengths do not line up.
	ErrIncompatibleLengths = errors.New("incompatible delta lengths")

	// ErrNotInvertible is returned when a delta deletes content its base only
	// retains, so the removed text is unknown.
	ErrNotInvertible = errors.New("delta is not invertible against base")
)

// Delta is an ordered sequence of operations transforming a document of
// BaseLen runes into one of TargetLen runes.
//
// The builder methods normalize as they append: zero-length operations are
// dropped, adjacent operations of the same kind and attributes are merged, and
// inserts are kept ahead of an adjacent delete.
type Delta struct {
	ops       []Operation
	baseLen   int
	targetLen int
}

// New creates an empty delta.
func New() *Delta {
	return &Delta{}
}

// FromOps builds a delta by appending every operation in order.
func FromOps(ops ...Operation) *Delta {
	d := New()

	for _, op := range ops {
		d.Add(op)
	}

	return d
}

// BaseLen returns the length of the document the delta applies to.
func (d *Delta) BaseLen() int {
	return d.baseLen
}

// TargetLen returns the length of the document the delta produces.
func (d *Delta) TargetLen() int {
	return d.targetLen
}

// Ops returns a copy of the operations.
func (d *Delta) Ops() []Operation {
	return slices.Clone(d.ops)
}

// Clone returns an independent copy of the delta.
func (d *Delta) Clone() *Delta {
	return &Delta{
		ops:       slices.Clone(d.ops),
		baseLen:   d.baseLen,
		targetLen: d.targetLen,
	}
}

// Add appends an operation.
func (d *Delta) Add(op Operation) *Delta {
	switch op.Type {
	case Insert:
		return d.Insert(op.Text, op.Attrs)
	case Retain:
		return d.Retain(op.N, op.Attrs)
	case Delete:
		return d.Delete(op.N)
	default:
		return d
	}
}

// Insert appends text carrying attrs.
func (d *Delta) Insert(text string, attrs Attributes) *Delta {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return d
	}

	d.targetLen += n
	last := len(d.ops) - 1

	if last >= 0 && d.ops[last].IsDelete() {
		if last >= 1 && d.ops[last-1].IsInsert() && d.ops[last-1].Attrs.Equal(attrs) {
			d.ops[last-1].Text += text

			return d
		}

		d.ops = slices.Insert(d.ops, last, NewInsert(text, attrs))

		return d
	}

	if last >= 0 && d.ops[last].IsInsert() && d.ops[last].Attrs.Equal(attrs) {
		d.ops[last].Text += text

		return d
	}

	d.ops = append(d.ops, NewInsert(text, attrs))

	return d
}

// Retain appends a retain of n positions carrying attrs.
func (d *Delta) Retain(n int, attrs Attributes) *Delta {
	if n <= 0 {
		return d
	}

	d.baseLen += n
	d.targetLen += n

	if last := len(d.ops) - 1; last >= 0 && d.ops[last].IsRetain() && d.ops[last].Attrs.Equal(attrs) {
		d.ops[last].N += n

		return d
	}

	d.ops = append(d.ops, NewRetain(n, attrs))

	return d
}

// Delete appends a delete of n positions.
func (d *Delta) Delete(n int) *Delta {
	if n <= 0 {
		return d
	}

	d.baseLen += n

	if last := len(d.ops) - 1; last >= 0 && d.ops[last].IsDelete() {
		d.ops[last].N += n

		return d
	}

	d.ops = append(d.ops, NewDelete(n))

	return d
}

// IsEmpty reports whether the delta has no operations.
func (d *Delta) IsEmpty() bool {
	return len(d.ops) == 0
}

// IsNoop reports whether applying the delta changes nothing: it only retains
// without formatting changes.
func (d *Delta) IsNoop() bool {
	for _, op := range d.ops {
		if !op.IsRetain() || !op.Attrs.IsEmpty() {
			return false
		}
	}

	return true
}

// Equal reports whether both deltas hold the same operations.
func (d *Delta) Equal(other *Delta) bool {
	if d.baseLen != other.baseLen || d.targetLen != other.targetLen {
		return false
	}

	return slices.EqualFunc(d.ops, other.ops, Operation.Equal)
}

// Attributes returns the formatting covering iv in the delta's output.
// When iv spans several runs, only the entries every run shares are returned.
// An empty or out-of-range interval yields Empty.
func (d *Delta) Attributes(iv Interval) Attributes {
	if iv.IsEmpty() {
		return Empty
	}

	var (
		result Attributes
		found  bool
		pos    int
	)

	for _, op := range d.ops {
		if pos >= iv.End {
			break
		}

		if op.IsDelete() {
			continue
		}

		end := pos + op.Len()

		if !iv.Intersect(Interval{Start: pos, End: end}).IsEmpty() {
			if found {
				result = intersect(result, op.Attrs)
			} else {
				result = op.Attrs.resolved()
				found = true
			}
		}

		pos = end
	}

	return result
}

// Apply runs the delta over plain text and returns the result.
func (d *Delta) Apply(text string) (string, error) {
	runes := []rune(text)
	if len(runes) != d.baseLen {
		return "", ErrIncompatibleLengths
	}

	var (
		sb  strings.Builder
		pos int
	)

	for _, op := range d.ops {
		switch op.Type {
		case Insert:
			sb.WriteString(op.Text)
		case Retain:
			sb.WriteString(string(runes[pos : pos+op.N]))
			pos += op.N
		case Delete:
			pos += op.N
		}
	}

	return sb.String(), nil
}

// Text returns the document content of a delta built from an empty document.
func (d *Delta) Text() (string, error) {
	return d.Apply("")
}

func (d *Delta) String() string {
	parts := make([]string, len(d.ops))
	for i, op := range d.ops {
		parts[i] = op.String()
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
