package delta

import (
	"fmt"
	"unicode/utf8"
)

// OpType represents the type of operation.
type OpType int

const (
	Insert OpType = iota
	Retain
	Delete
)

// String returns the string representation of the operation type.
func (t OpType) String() string {
	switch t {
	case Insert:
		return "insert"
	case Retain:
		return "retain"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is a single step of a delta. Text is set for inserts, N for
// retains and deletes. Deletes never carry attributes.
type Operation struct {
	Type  OpType
	Text  string
	N     int
	Attrs Attributes
}

// NewInsert creates an insert operation.
func NewInsert(text string, attrs Attributes) Operation {
	return Operation{Type: Insert, Text: text, Attrs: attrs}
}

// NewRetain creates a retain operation.
func NewRetain(n int, attrs Attributes) Operation {
	return Operation{Type: Retain, N: n, Attrs: attrs}
}

// NewDelete creates a delete operation.
func NewDelete(n int) Operation {
	return Operation{Type: Delete, N: n}
}

// Len returns the number of positions the operation spans, in runes.
func (o Operation) Len() int {
	switch o.Type {
	case Insert:
		return utf8.RuneCountInString(o.Text)
	case Retain, Delete:
		return o.N
	default:
		return 0
	}
}

// IsInsert returns true if this is an insert operation.
func (o Operation) IsInsert() bool {
	return o.Type == Insert
}

// IsRetain returns true if this is a retain operation.
func (o Operation) IsRetain() bool {
	return o.Type == Retain
}

// IsDelete returns true if this is a delete operation.
func (o Operation) IsDelete() bool {
	return o.Type == Delete
}

// Equal reports whether both operations are identical.
func (o Operation) Equal(other Operation) bool {
	return o.Type == other.Type &&
		o.Text == other.Text &&
		o.N == other.N &&
		o.Attrs.Equal(other.Attrs)
}

// slice returns the part of o covering [from, to) of its own length.
func (o Operation) slice(from, to int) Operation {
	switch o.Type {
	case Insert:
		runes := []rune(o.Text)

		return Operation{Type: Insert, Text: string(runes[from:to]), Attrs: o.Attrs}
	case Retain:
		return Operation{Type: Retain, N: to - from, Attrs: o.Attrs}
	case Delete:
		return Operation{Type: Delete, N: to - from}
	default:
		return o
	}
}

func (o Operation) String() string {
	switch o.Type {
	case Insert:
		return fmt.Sprintf("insert(%q %s)", o.Text, o.Attrs)
	case Retain:
		return fmt.Sprintf("retain(%d %s)", o.N, o.Attrs)
	case Delete:
		return fmt.Sprintf("delete(%d)", o.N)
	default:
		return "unknown"
	}
}
