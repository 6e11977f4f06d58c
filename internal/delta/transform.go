package delta

import "fmt"

// Transform takes two deltas built against the same document and returns
// transformed versions that can be applied in either order to reach the same
// final state.
//
// Given: d and other share a base length.
// Returns: d' (d transformed against other, applies after other) and other'
// (other transformed against d, applies after d).
//
// d has priority: when both insert at the same position d's text comes first,
// and when both change the same attribute d's value wins.
func (d *Delta) Transform(other *Delta) (*Delta, *Delta, error) {
	if d.baseLen != other.baseLen {
		return nil, nil, fmt.Errorf("transform base %d against base %d: %w",
			d.baseLen, other.baseLen, ErrIncompatibleLengths)
	}

	aPrime := New()
	bPrime := New()
	a := newOpIterator(d.ops)
	b := newOpIterator(other.ops)

	for a.hasNext() || b.hasNext() {
		switch {
		case a.hasNext() && a.peekType() == Insert:
			op := a.next(a.peekLen())
			aPrime.Insert(op.Text, op.Attrs)
			bPrime.Retain(op.Len(), Empty)
		case b.hasNext() && b.peekType() == Insert:
			op := b.next(b.peekLen())
			aPrime.Retain(op.Len(), Empty)
			bPrime.Insert(op.Text, op.Attrs)
		case !a.hasNext() || !b.hasNext():
			return nil, nil, ErrIncompatibleLengths
		default:
			n := min(a.peekLen(), b.peekLen())
			opA := a.next(n)
			opB := b.next(n)

			switch {
			case opA.IsDelete() && opB.IsDelete():
				// Both sides removed the same text.
			case opA.IsDelete():
				aPrime.Delete(n)
			case opB.IsDelete():
				bPrime.Delete(n)
			default:
				aPrime.Retain(n, opA.Attrs)
				bPrime.Retain(n, transformRetain(opA.Attrs, opB.Attrs, true))
			}
		}
	}

	return aPrime, bPrime, nil
}
