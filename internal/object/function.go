package object

import (
	"fmt"

	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/value"
)

// Function is a compiled Cellox function: arity, upvalue count, an
// optional name (none for the top-level script), and the chunk it owns
// exclusively (spec.md §3: "A function's chunk is owned exclusively by
// that function").
type Function struct {
	Header
	Name         *String
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
}

// NewFunction allocates an (initially anonymous, empty-chunk) function;
// the compiler fills in Name/Arity/UpvalueCount/Chunk as it compiles the
// function body.
func NewFunction() *Function {
	f := &Function{Chunk: chunk.New()}
	f.Kind = value.ObjKindFunction
	return f
}

func (f *Function) Equal(other value.Obj) bool { return identityEqual(f, other) }

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.String())
}

// Closure pairs a Function with the upvalues it captured at creation
// time — "one per runtime call-expression that captures" (spec.md §3).
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

// NewClosure wraps fn, allocating (but not yet filling) its upvalue
// slots.
func NewClosure(fn *Function) *Closure {
	c := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	c.Kind = value.ObjKindClosure
	return c
}

func (c *Closure) Equal(other value.Obj) bool { return identityEqual(c, other) }

func (c *Closure) String() string { return c.Function.String() }

// NativeFn is the host-implemented ABI of spec.md §4.10: given argc and a
// slice of argc values, return a result or a runtime-error message. A
// non-empty errMsg is turned into a runtime error by the VM (SPEC_FULL:
// "unwind to the main loop, report" — the same path every other runtime
// error takes, never a hard process exit).
type NativeFn func(args []value.Value) (value.Value, string)

// Native is a host function exposed to Cellox through the globals table
// (spec.md §4.10).
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

// NewNative wraps fn under name.
func NewNative(name string, fn NativeFn) *Native {
	n := &Native{Name: name, Fn: fn}
	n.Kind = value.ObjKindNative
	return n
}

func (n *Native) Equal(other value.Obj) bool { return identityEqual(n, other) }

func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
