//go:build !nanbox

// Package value implements the Cellox runtime value (spec.md §3): a
// tagged union of boolean, null, 64-bit double, and heap-object reference.
//
// Two representations are provided behind the same API, matching
// spec.md's requirement that switching representations must not affect
// observable behaviour. This file is the default, straightforward tagged
// union. Build with -tags nanbox to select the NaN-boxed 64-bit-word
// encoding in value_nanbox.go instead.
package value

// Value is the tagged-union representation: {tag, payload}.
type Value struct {
	kind    kind
	boolean bool
	number  float64
	obj     Obj
}

type kind uint8

const (
	kindBool kind = iota
	kindNull
	kindNumber
	kindObj
)

var nullValue = Value{kind: kindNull}

// Null returns the singleton null value.
func Null() Value { return nullValue }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: kindBool, boolean: b} }

// Number wraps a 64-bit IEEE-754 double.
func Number(n float64) Value { return Value{kind: kindNumber, number: n} }

// FromObj wraps a heap-object reference.
func FromObj(o Obj) Value { return Value{kind: kindObj, obj: o} }

func (v Value) IsBool() bool   { return v.kind == kindBool }
func (v Value) IsNull() bool   { return v.kind == kindNull }
func (v Value) IsNumber() bool { return v.kind == kindNumber }
func (v Value) IsObj() bool    { return v.kind == kindObj }

// IsObjKind reports whether v holds a heap object of the given kind.
func (v Value) IsObjKind(k ObjKind) bool {
	return v.kind == kindObj && v.obj.ObjKind() == k
}

func (v Value) AsBool() bool      { return v.boolean }
func (v Value) AsNumber() float64 { return v.number }
func (v Value) AsObj() Obj        { return v.obj }

// Truthy implements spec.md's falsiness rule: null and false are falsy,
// everything else (including 0 and "") is truthy.
func Truthy(v Value) bool {
	switch v.kind {
	case kindNull:
		return false
	case kindBool:
		return v.boolean
	default:
		return true
	}
}

// Equal implements spec.md §3's equality rules: different runtime types
// are never equal; booleans/null/numbers compare by value; objects
// delegate to Obj.Equal (identity, except arrays which compare
// structurally).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kindNull:
		return true
	case kindBool:
		return a.boolean == b.boolean
	case kindNumber:
		return a.number == b.number
	case kindObj:
		return a.obj.Equal(b.obj)
	default:
		return false
	}
}

// String renders a value the way the VM's `print` opcode and error
// messages do: booleans/null/numbers directly, objects via their own
// String method (so arrays print "[1, 2, 3]" per spec.md §8 scenario 5).
func (v Value) String() string {
	switch v.kind {
	case kindNull:
		return "null"
	case kindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case kindNumber:
		return formatNumber(v.number)
	case kindObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

// TypeName names a value's runtime type for diagnostics (spec.md §4.9:
// "runtime error citing operand types").
func (v Value) TypeName() string {
	switch v.kind {
	case kindNull:
		return "null"
	case kindBool:
		return "boolean"
	case kindNumber:
		return "number"
	case kindObj:
		return v.obj.ObjKind().String()
	default:
		return "invalid"
	}
}
