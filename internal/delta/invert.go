package delta

import "fmt"

// Invert returns the delta that undoes d, where base is the document d was
// applied to. Composing base with d and then with the result yields base again.
func (d *Delta) Invert(base *Delta) (*Delta, error) {
	if d.baseLen != base.targetLen {
		return nil, fmt.Errorf("invert base %d against document %d: %w",
			d.baseLen, base.targetLen, ErrIncompatibleLengths)
	}

	inverted := New()
	content := newOutputIterator(base.ops)

	for _, op := range d.ops {
		switch op.Type {
		case Insert:
			inverted.Delete(op.Len())
		case Retain:
			parts := content.take(op.N)
			if op.Attrs.IsEmpty() {
				inverted.Retain(op.N, Empty)

				continue
			}

			for _, part := range parts {
				inverted.Retain(part.Len(), invertRetain(op.Attrs, part.Attrs))
			}
		case Delete:
			for _, part := range content.take(op.N) {
				if !part.IsInsert() {
					return nil, ErrNotInvertible
				}

				inverted.Insert(part.Text, part.Attrs.resolved())
			}
		}
	}

	return inverted, nil
}
