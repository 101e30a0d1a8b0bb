// Package intern owns the string-interning table shared by the compiler
// and the VM (spec.md §3: "Strings interned... table keyed by hash+bytes
// ⇒ O(1) identity equality"), grounded on original_source/object.c's
// tableFindString/vm.strings: the original keeps this table on the VM
// singleton; here it is an explicit, injectable dependency instead of a
// global, so the compiler can intern constants into the same table the
// VM will later run against without either package importing the other.
package intern

import (
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/table"
	"github.com/FrederikTobner/cellox/internal/value"
)

// Table deduplicates string objects: two calls to Intern with equal byte
// contents return the identical *object.String, which is what lets
// OP_EQUAL on strings reduce to a pointer/identity comparison.
type Table struct {
	strings *table.Table
}

// New returns an empty interning table.
func New() *Table {
	return &Table{strings: table.New()}
}

// Intern returns the canonical *object.String for chars, allocating and
// registering a new one on first sight. isNew reports whether this call
// allocated (rather than reused) the string, which the VM uses to decide
// whether the object needs to be linked onto the GC's object list.
func (t *Table) Intern(chars []byte) (s *object.String, isNew bool) {
	hash := fnv1a32(chars)
	if existing, ok := t.strings.FindByBytes(chars, hash); ok {
		return existing.(*object.String), false
	}
	s = object.NewString(append([]byte(nil), chars...))
	t.strings.Set(s, value.Null())
	return s, true
}

// RemoveUnmarked deletes every interned string whose backing object is
// not currently marked, implementing the GC's weak-root pass over the
// intern table (spec.md §4.7).
func (t *Table) RemoveUnmarked(isMarked func(*object.String) bool) {
	t.strings.RemoveIf(func(k table.Key) bool {
		return !isMarked(k.(*object.String))
	})
}

func fnv1a32(data []byte) uint32 {
	var h uint32 = 2166136261
	for _, b := range data {
		h ^= uint32(b)
		h *= 16777619
	}
	return h
}
