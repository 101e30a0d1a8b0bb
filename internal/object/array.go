package object

import (
	"strings"

	"github.com/FrederikTobner/cellox/internal/value"
)

// Array is a dynamically-growing sequence of values, created by an array
// literal and grown geometrically (spec.md §3).
type Array struct {
	Header
	Elements []value.Value
}

// NewArray wraps elements (already in source order: "first listed
// element at index 0," per spec.md §9's open-question resolution) as an
// Array.
func NewArray(elements []value.Value) *Array {
	a := &Array{Elements: elements}
	a.Kind = value.ObjKindArray
	return a
}

// Equal is the one kind that compares structurally rather than by
// identity (spec.md §3): same length and every element Equal pairwise.
func (a *Array) Equal(other value.Obj) bool {
	o, ok := other.(*Array)
	if !ok {
		return false
	}
	if a == o {
		return true
	}
	if len(a.Elements) != len(o.Elements) {
		return false
	}
	for i := range a.Elements {
		if !value.Equal(a.Elements[i], o.Elements[i]) {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range a.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
