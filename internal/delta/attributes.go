package delta

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// AttrsKind tags the form of an Attributes value.
type AttrsKind int

const (
	// AttrsEmpty means no formatting.
	AttrsEmpty AttrsKind = iota
	// AttrsFollow means inherit whatever formatting exists at the target position.
	AttrsFollow
	// AttrsCustom carries explicit add/remove entries.
	AttrsCustom
)

// String returns the string representation of the kind.
func (k AttrsKind) String() string {
	switch k {
	case AttrsEmpty:
		return "empty"
	case AttrsFollow:
		return "follow"
	case AttrsCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Attribute names a formatting attribute.
type Attribute string

// Well-known formatting attributes.
const (
	Bold          Attribute = "bold"
	Italic        Attribute = "italic"
	Underline     Attribute = "underline"
	Strikethrough Attribute = "strikethrough"
)

const (
	// enabledValue is stored for attributes switched on by Format.
	enabledValue = "true"
	// removeValue marks an entry that removes the attribute.
	removeValue = ""
)

// Attributes is the formatting state attached to an insert or retain.
// The zero value is Empty.
type Attributes struct {
	kind AttrsKind
	data map[Attribute]string
}

// Empty carries no formatting.
var Empty = Attributes{}

// Follow inherits the surrounding formatting.
var Follow = Attributes{kind: AttrsFollow}

// Custom builds an explicit attribute set. An entry whose value is the empty
// string removes that attribute. A nil or empty map yields Empty.
func Custom(data map[Attribute]string) Attributes {
	if len(data) == 0 {
		return Empty
	}

	return Attributes{kind: AttrsCustom, data: maps.Clone(data)}
}

// Kind returns the form of the attribute set.
func (a Attributes) Kind() AttrsKind {
	return a.kind
}

// IsEmpty reports whether the set carries no explicit entries.
func (a Attributes) IsEmpty() bool {
	return a.kind != AttrsCustom || len(a.data) == 0
}

// Get returns the value stored for name. Removal entries report ok with an
// empty value.
func (a Attributes) Get(name Attribute) (string, bool) {
	v, ok := a.data[name]

	return v, ok
}

// Has reports whether name is set to a non-removal value.
func (a Attributes) Has(name Attribute) bool {
	v, ok := a.data[name]

	return ok && v != removeValue
}

// Data returns a copy of the explicit entries, nil for Empty and Follow.
func (a Attributes) Data() map[Attribute]string {
	if a.kind != AttrsCustom {
		return nil
	}

	return maps.Clone(a.data)
}

// Equal reports whether both sets have the same kind and entries.
func (a Attributes) Equal(other Attributes) bool {
	if a.kind != other.kind {
		return false
	}

	return maps.Equal(a.data, other.data)
}

// Merge returns a copy of a extended with the entries of other that a does not
// already define. Only Custom sets gain entries; Empty and Follow are returned
// unchanged.
func (a Attributes) Merge(other Attributes) Attributes {
	if a.kind != AttrsCustom || other.kind != AttrsCustom {
		return a
	}

	merged := maps.Clone(a.data)

	for k, v := range other.data {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}

	return Attributes{kind: AttrsCustom, data: merged}
}

func (a Attributes) String() string {
	if a.kind != AttrsCustom {
		return a.kind.String()
	}

	keys := slices.Sorted(maps.Keys(a.data))
	parts := make([]string, 0, len(keys))

	for _, k := range keys {
		v := a.data[k]
		if v == removeValue {
			parts = append(parts, "-"+string(k))

			continue
		}

		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}

	return "{" + strings.Join(parts, " ") + "}"
}

// AttrsBuilder accumulates add/remove entries.
type AttrsBuilder struct {
	data map[Attribute]string
}

// NewAttrs starts an empty attribute builder.
func NewAttrs() *AttrsBuilder {
	return &AttrsBuilder{data: make(map[Attribute]string)}
}

// Add switches name on.
func (b *AttrsBuilder) Add(name Attribute) *AttrsBuilder {
	b.data[name] = enabledValue

	return b
}

// Set stores an explicit value for name. An empty value removes it.
func (b *AttrsBuilder) Set(name Attribute, value string) *AttrsBuilder {
	b.data[name] = value

	return b
}

// Remove marks name for removal.
func (b *AttrsBuilder) Remove(name Attribute) *AttrsBuilder {
	b.data[name] = removeValue

	return b
}

// Build returns the accumulated set.
func (b *AttrsBuilder) Build() Attributes {
	return Custom(b.data)
}

// resolved returns only the entries that leave formatting on content: Follow
// and removal markers resolve to nothing.
func (a Attributes) resolved() Attributes {
	if a.kind != AttrsCustom {
		return Empty
	}

	out := make(map[Attribute]string, len(a.data))

	for k, v := range a.data {
		if v != removeValue {
			out[k] = v
		}
	}

	return Custom(out)
}

// applyTo returns the formatting of content carrying base after a retain
// carrying a has passed over it.
func (a Attributes) applyTo(base Attributes) Attributes {
	out := base.resolved().Data()
	if a.kind != AttrsCustom {
		return Custom(out)
	}

	if out == nil {
		out = make(map[Attribute]string, len(a.data))
	}

	for k, v := range a.data {
		if v == removeValue {
			delete(out, k)

			continue
		}

		out[k] = v
	}

	return Custom(out)
}

// composeRetain combines two consecutive retains; later entries win and
// removal markers are kept.
func composeRetain(first, second Attributes) Attributes {
	if second.kind != AttrsCustom {
		if first.kind == AttrsCustom {
			return first
		}

		return Empty
	}

	if first.kind != AttrsCustom {
		return second
	}

	out := maps.Clone(first.data)
	maps.Copy(out, second.data)

	return Custom(out)
}

// transformRetain drops from b every entry that a already decides when a has
// priority.
func transformRetain(a, b Attributes, aPriority bool) Attributes {
	if !aPriority || a.kind != AttrsCustom || b.kind != AttrsCustom {
		return b
	}

	out := make(map[Attribute]string, len(b.data))

	for k, v := range b.data {
		if _, taken := a.data[k]; !taken {
			out[k] = v
		}
	}

	return Custom(out)
}

// invertRetain returns the entries that restore base after a retain carrying a.
func invertRetain(a, base Attributes) Attributes {
	if a.kind != AttrsCustom {
		return Empty
	}

	out := make(map[Attribute]string, len(a.data))

	for k := range a.data {
		if v, ok := base.data[k]; ok && v != removeValue {
			out[k] = v

			continue
		}

		out[k] = removeValue
	}

	return Custom(out)
}

// intersect keeps the resolved entries both sets agree on.
func intersect(a, b Attributes) Attributes {
	out := make(map[Attribute]string)

	for k, v := range a.resolved().data {
		if w, ok := b.data[k]; ok && w == v {
			out[k] = v
		}
	}

	return Custom(out)
}
