// Package object implements the heap object kinds of spec.md §3: string,
// function, closure, upvalue, native, class, instance, bound method, and
// array. Every kind embeds Header as its first field, giving it the
// {kind, is_marked, next} object header spec.md requires and letting the
// garbage collector (package vm) thread every live object through one
// object list for sweep.
package object

import (
	"github.com/FrederikTobner/cellox/internal/value"
)

// Header is the common prefix of every heap object: its kind, the
// collector's mark bit, and the object-list link. It must be embedded as
// the very first field of every concrete type in this package — the
// NaN-boxed Value representation (value_nanbox.go, build tag nanbox)
// relies on that layout to recover an object's kind from a bare pointer.
type Header struct {
	Kind   value.ObjKind
	Marked bool
	Next   value.Obj
	size   int
}

// ObjKind satisfies the fixed part of value.Obj; embedding types get it
// for free.
func (h *Header) ObjKind() value.ObjKind { return h.Kind }

// IsMarked, SetMarked, NextObj and SetNext expose the collector's mark
// bit and object-list link. Defined on *Header and promoted to every
// concrete kind through embedding, they let package vm's garbage
// collector walk and mark the object list without a type switch for
// anything but tracing referents (spec.md §4.7).
func (h *Header) IsMarked() bool      { return h.Marked }
func (h *Header) SetMarked(m bool)    { h.Marked = m }
func (h *Header) NextObj() value.Obj  { return h.Next }
func (h *Header) SetNext(n value.Obj) { h.Next = n }

// ObjSize and SetObjSize hold the byte count the collector charged
// against bytes_allocated when this object was linked, so sweep can
// subtract the right amount back off when the object is freed.
func (h *Header) ObjSize() int      { return h.size }
func (h *Header) SetObjSize(n int) { h.size = n }

// Traceable is value.Obj plus the mark/link/size accessors every
// concrete kind gets for free via Header embedding. The garbage
// collector holds objects as Traceable so it can walk the object list
// and flip mark bits generically, type-switching only to discover each
// kind's referents.
type Traceable interface {
	value.Obj
	IsMarked() bool
	SetMarked(bool)
	NextObj() value.Obj
	SetNext(value.Obj)
	ObjSize() int
	SetObjSize(int)
}

// identityEqual is the "compare by identity" half of spec.md §3's
// equality rule, shared by every kind except Array.
func identityEqual(self, other value.Obj) bool {
	return self == other
}

// fnv1a32 is the hash spec.md §3 names for strings ("FNV-1a hash").
func fnv1a32(data []byte) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for _, b := range data {
		h ^= uint32(b)
		h *= prime
	}
	return h
}
