package delta

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidOperation is returned when a serialized operation is malformed.
var ErrInvalidOperation = errors.New("invalid operation")

// wireOp is the serialized form of one operation. Attribute removal markers
// are written as null.
type wireOp struct {
	Insert     *string            `json:"insert,omitempty"`
	Retain     *int               `json:"retain,omitempty"`
	Delete     *int               `json:"delete,omitempty"`
	Attributes map[string]*string `json:"attributes,omitempty"`
}

// MarshalJSON encodes the delta as a JSON array of operations. Attribute keys
// are sorted, so equal deltas always encode to the same bytes.
func (d *Delta) MarshalJSON() ([]byte, error) {
	wire := make([]wireOp, 0, len(d.ops))

	for _, op := range d.ops {
		var w wireOp

		switch op.Type {
		case Insert:
			text := op.Text
			w.Insert = &text
			w.Attributes = encodeAttrs(op.Attrs)
		case Retain:
			n := op.N
			w.Retain = &n
			w.Attributes = encodeAttrs(op.Attrs)
		case Delete:
			n := op.N
			w.Delete = &n
		default:
			return nil, fmt.Errorf("%w: type %d", ErrInvalidOperation, op.Type)
		}

		wire = append(wire, w)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON replaces d with the decoded delta.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var wire []wireOp
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	decoded := New()

	for i, w := range wire {
		op, err := decodeOp(w)
		if err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}

		decoded.Add(op)
	}

	*d = *decoded

	return nil
}

// ToJSON returns the canonical serialized form of the delta.
func (d *Delta) ToJSON() string {
	data, err := d.MarshalJSON()
	if err != nil {
		return "[]"
	}

	return string(data)
}

// FromJSON decodes a delta produced by ToJSON.
func FromJSON(s string) (*Delta, error) {
	d := New()
	if err := d.UnmarshalJSON([]byte(s)); err != nil {
		return nil, err
	}

	return d, nil
}

func decodeOp(w wireOp) (Operation, error) {
	set := 0

	for _, present := range []bool{w.Insert != nil, w.Retain != nil, w.Delete != nil} {
		if present {
			set++
		}
	}

	if set != 1 {
		return Operation{}, fmt.Errorf("%w: expected exactly one of insert, retain, delete", ErrInvalidOperation)
	}

	if w.Delete == nil {
		attrs, err := decodeAttrs(w.Attributes)
		if err != nil {
			return Operation{}, err
		}

		if w.Insert != nil {
			return NewInsert(*w.Insert, attrs), nil
		}

		if *w.Retain < 0 {
			return Operation{}, fmt.Errorf("%w: negative retain", ErrInvalidOperation)
		}

		return NewRetain(*w.Retain, attrs), nil
	}

	if w.Attributes != nil {
		return Operation{}, fmt.Errorf("%w: delete carries attributes", ErrInvalidOperation)
	}

	if *w.Delete < 0 {
		return Operation{}, fmt.Errorf("%w: negative delete", ErrInvalidOperation)
	}

	return NewDelete(*w.Delete), nil
}

func encodeAttrs(a Attributes) map[string]*string {
	if a.IsEmpty() {
		return nil
	}

	out := make(map[string]*string, len(a.data))

	for k, v := range a.data {
		if v == removeValue {
			out[string(k)] = nil

			continue
		}

		value := v
		out[string(k)] = &value
	}

	return out
}

// decodeAttrs maps null to removal. An empty string is refused because it
// would otherwise be indistinguishable from null once decoded.
func decodeAttrs(m map[string]*string) (Attributes, error) {
	if len(m) == 0 {
		return Empty, nil
	}

	data := make(map[Attribute]string, len(m))

	for k, v := range m {
		if v == nil {
			data[Attribute(k)] = removeValue

			continue
		}

		if *v == removeValue {
			return Empty, fmt.Errorf("%w: empty value for attribute %q, use null to remove it", ErrInvalidOperation, k)
		}

		data[Attribute(k)] = *v
	}

	return Custom(data), nil
}
