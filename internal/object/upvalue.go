package object

import "github.com/FrederikTobner/cellox/internal/value"

// Upvalue is either open — Location points into a live VM stack slot —
// or closed, owning its own copy in Closed. NextOpen threads the VM's
// open-upvalue list, which spec.md §3 requires to stay sorted by
// descending stack address.
type Upvalue struct {
	Header
	Location *value.Value
	Closed   value.Value
	NextOpen *Upvalue
}

// NewUpvalue creates an open upvalue referring to slot.
func NewUpvalue(slot *value.Value) *Upvalue {
	u := &Upvalue{Location: slot}
	u.Kind = value.ObjKindUpvalue
	return u
}

// Get returns the current value, open or closed.
func (u *Upvalue) Get() value.Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through to the stack slot if open, or to the closed copy.
func (u *Upvalue) Set(v value.Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// IsOpen reports whether Location still points into the stack.
func (u *Upvalue) IsOpen() bool { return u.Location != nil }

// Close copies the current stack value into Closed and clears Location,
// so the upvalue survives its enclosing frame returning.
func (u *Upvalue) Close() {
	if u.Location != nil {
		u.Closed = *u.Location
		u.Location = nil
	}
}

func (u *Upvalue) Equal(other value.Obj) bool { return identityEqual(u, other) }

func (u *Upvalue) String() string { return "<upvalue>" }
