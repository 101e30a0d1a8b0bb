//go:build nanbox

// NaN-boxed alternative to value.go: Value is a single 64-bit word. An
// IEEE-754 quiet-NaN payload encodes the tag bits distinguishing
// null/true/false/object; ordinary doubles are stored bit-for-bit.
// Object references set the sign bit plus the quiet-NaN pattern and carry
// a pointer to the heap object in the low 48 bits — the same trick
// clox's NAN_BOXING build uses (see original_source/value.h). Go has no
// way to smuggle an interface value's dynamic type through a raw pointer,
// so the low bits hold the object's *data* pointer only; reconstructing
// the Obj interface reads the kind back out of the object's own header
// (every concrete type in package object embeds object.Header as its
// first field) via a resolver the object package registers at init time —
// this keeps package value from importing package object and creating a
// cycle (object.Function owns a *chunk.Chunk, whose constants are
// Values).
package value

import (
	"math"
	"reflect"
	"unsafe"
)

const (
	signBit = uint64(1) << 63
	qnan    = uint64(0x7ffc000000000000)

	tagNull  = uint64(1)
	tagFalse = uint64(2)
	tagTrue  = uint64(3)
)

// Value is the NaN-boxed 64-bit word representation.
type Value uint64

var (
	nullVal  = Value(qnan | tagNull)
	falseVal = Value(qnan | tagFalse)
	trueVal  = Value(qnan | tagTrue)
)

// Null returns the singleton null value.
func Null() Value { return nullVal }

// Bool wraps a boolean.
func Bool(b bool) Value {
	if b {
		return trueVal
	}
	return falseVal
}

// Number wraps a 64-bit IEEE-754 double.
func Number(n float64) Value { return Value(math.Float64bits(n)) }

// FromObj wraps a heap-object reference.
func FromObj(o Obj) Value {
	ptr := objDataPointer(o)
	return Value(signBit | qnan | uint64(uintptr(ptr)))
}

func (v Value) IsNull() bool   { return v == nullVal }
func (v Value) IsBool() bool   { return (v | 1) == trueVal }
func (v Value) IsNumber() bool { return (uint64(v) & qnan) != qnan }
func (v Value) IsObj() bool    { return (uint64(v) & (qnan | signBit)) == (qnan | signBit) }

// IsObjKind reports whether v holds a heap object of the given kind.
func (v Value) IsObjKind(k ObjKind) bool {
	return v.IsObj() && v.AsObj().ObjKind() == k
}

func (v Value) AsBool() bool      { return v == trueVal }
func (v Value) AsNumber() float64 { return math.Float64frombits(uint64(v)) }

func (v Value) AsObj() Obj {
	ptr := unsafe.Pointer(uintptr(uint64(v) &^ (signBit | qnan)))
	return objFromDataPointer(ptr)
}

// Truthy implements spec.md's falsiness rule: null and false are falsy,
// everything else (including 0 and "") is truthy.
func Truthy(v Value) bool {
	if v.IsNull() {
		return false
	}
	if v.IsBool() {
		return v.AsBool()
	}
	return true
}

// Equal implements spec.md §3's equality rules.
func Equal(a, b Value) bool {
	switch {
	case a.IsNumber() && b.IsNumber():
		return a.AsNumber() == b.AsNumber()
	case a.IsObj() && b.IsObj():
		return a.AsObj().Equal(b.AsObj())
	default:
		// Bool/null are represented by distinct bit patterns per value,
		// so raw word equality already matches spec.md's by-value rule,
		// and differing kinds naturally compare unequal.
		return a == b
	}
}

func (v Value) String() string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsNumber())
	case v.IsObj():
		return v.AsObj().String()
	default:
		return "<invalid value>"
	}
}

// TypeName names a value's runtime type for diagnostics.
func (v Value) TypeName() string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		return "boolean"
	case v.IsNumber():
		return "number"
	case v.IsObj():
		return v.AsObj().ObjKind().String()
	default:
		return "invalid"
	}
}

// objResolver is registered by package object (in an init function) so
// that AsObj can turn a bare data pointer back into the correctly-typed
// Obj interface value without package value importing package object.
var objResolver func(unsafe.Pointer) Obj

// RegisterObjResolver wires the NaN-boxed representation's pointer-to-Obj
// resolver. Package object calls this exactly once from an init
// function; like this file, it exists only in builds with the nanbox
// tag.
func RegisterObjResolver(resolve func(unsafe.Pointer) Obj) {
	objResolver = resolve
}

func objFromDataPointer(ptr unsafe.Pointer) Obj {
	if objResolver == nil {
		panic("value: nanbox build used before object.init registered a resolver")
	}
	return objResolver(ptr)
}

// objDataPointer extracts the single data pointer carried by an Obj
// interface value. Every concrete type implementing Obj is a pointer to
// a struct (never a value type), so reflect.Value.Pointer is well
// defined here; this is the one place outside object's own header the
// nanbox code needs to see "through" the interface.
func objDataPointer(o Obj) unsafe.Pointer {
	return unsafe.Pointer(reflect.ValueOf(o).Pointer())
}
