package delta

import "math"

// opIterator walks a list of operations, handing out pieces of a requested
// length so two deltas can be zipped position by position.
type opIterator struct {
	ops    []Operation
	index  int
	offset int
}

func newOpIterator(ops []Operation) *opIterator {
	return &opIterator{ops: ops}
}

// newOutputIterator iterates only the operations that produce output.
func newOutputIterator(ops []Operation) *opIterator {
	out := make([]Operation, 0, len(ops))

	for _, op := range ops {
		if !op.IsDelete() {
			out = append(out, op)
		}
	}

	return &opIterator{ops: out}
}

func (it *opIterator) hasNext() bool {
	return it.index < len(it.ops)
}

// peekType returns the type of the current operation. Callers check hasNext first.
func (it *opIterator) peekType() OpType {
	return it.ops[it.index].Type
}

// peekLen returns what is left of the current operation.
func (it *opIterator) peekLen() int {
	if !it.hasNext() {
		return math.MaxInt
	}

	return it.ops[it.index].Len() - it.offset
}

// next consumes up to n positions of the current operation.
func (it *opIterator) next(n int) Operation {
	op := it.ops[it.index]
	length := op.Len()

	if remaining := length - it.offset; n > remaining {
		n = remaining
	}

	part := op.slice(it.offset, it.offset+n)

	if it.offset+n == length {
		it.index++
		it.offset = 0
	} else {
		it.offset += n
	}

	return part
}

// take consumes n positions, possibly spanning several operations.
func (it *opIterator) take(n int) []Operation {
	var parts []Operation

	for n > 0 && it.hasNext() {
		part := it.next(n)
		n -= part.Len()
		parts = append(parts, part)
	}

	return parts
}
