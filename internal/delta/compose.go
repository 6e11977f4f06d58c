package delta

import "fmt"

// Compose merges d and other into one delta equivalent to applying d and then
// other. d's target length must equal other's base length.
//
// Inserts coming from other are stored with their resolved formatting: Follow
// and removal markers leave no entries on new content.
func (d *Delta) Compose(other *Delta) (*Delta, error) {
	if d.targetLen != other.baseLen {
		return nil, fmt.Errorf("compose target %d with base %d: %w",
			d.targetLen, other.baseLen, ErrIncompatibleLengths)
	}

	result := New()
	a := newOpIterator(d.ops)
	b := newOpIterator(other.ops)

	for a.hasNext() || b.hasNext() {
		switch {
		case b.hasNext() && b.peekType() == Insert:
			op := b.next(b.peekLen())
			result.Insert(op.Text, op.Attrs.resolved())
		case a.hasNext() && a.peekType() == Delete:
			result.Delete(a.next(a.peekLen()).N)
		case !a.hasNext() || !b.hasNext():
			return nil, ErrIncompatibleLengths
		default:
			n := min(a.peekLen(), b.peekLen())
			opA := a.next(n)
			opB := b.next(n)

			switch {
			case opB.IsDelete():
				// Deleting freshly inserted text cancels out.
				if opA.IsRetain() {
					result.Delete(n)
				}
			case opA.IsInsert():
				result.Insert(opA.Text, opB.Attrs.applyTo(opA.Attrs))
			default:
				result.Retain(n, composeRetain(opA.Attrs, opB.Attrs))
			}
		}
	}

	return result, nil
}
