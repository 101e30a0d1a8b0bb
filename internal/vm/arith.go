package vm

import (
	"math"

	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// add implements OP_ADD's overload set (spec.md §4.9): string
// concatenation, numeric addition, and array append/concatenation.
func (vm *VM) add() *errors.CelloxError {
	b, a := vm.peek(0), vm.peek(1)

	switch {
	case a.IsObjKind(value.ObjKindString) && b.IsObjKind(value.ObjKindString):
		as := a.AsObj().(*object.String)
		bs := b.AsObj().(*object.String)
		vm.pop()
		vm.pop()
		concat := append(append([]byte(nil), as.Chars...), bs.Chars...)
		vm.internAndPush(concat)
		return nil

	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
		return nil

	case a.IsObjKind(value.ObjKindArray):
		arrA := a.AsObj().(*object.Array)
		vm.pop()
		vm.pop()
		var elements []value.Value
		if b.IsObjKind(value.ObjKindArray) {
			arrB := b.AsObj().(*object.Array)
			elements = make([]value.Value, 0, len(arrA.Elements)+len(arrB.Elements))
			elements = append(elements, arrA.Elements...)
			elements = append(elements, arrB.Elements...)
		} else {
			elements = make([]value.Value, 0, len(arrA.Elements)+1)
			elements = append(elements, arrA.Elements...)
			elements = append(elements, b)
		}
		arr := object.NewArray(elements)
		vm.push(value.FromObj(arr))
		vm.linkObject(arr, objSizeArray(arr))
		return nil

	default:
		return vm.runtimeError("cannot add operands of type %s and %s", a.TypeName(), b.TypeName())
	}
}

// internAndPush interns chars (creating a fresh string only if it isn't
// already interned), pushes it onto the stack, and — per spec.md §4.7's
// write barrier — links it onto the object list only after it has
// become a stack root.
func (vm *VM) internAndPush(chars []byte) {
	s, isNew := vm.interner.Intern(chars)
	vm.push(value.FromObj(s))
	if isNew {
		vm.linkObject(s, objSizeString(s))
	}
}

func (vm *VM) numericBinary(op func(a, b float64) float64) *errors.CelloxError {
	b, a := vm.peek(0), vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Number(op(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) numericCompare(op func(a, b float64) bool) *errors.CelloxError {
	b, a := vm.peek(0), vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Bool(op(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) numericModulo() *errors.CelloxError {
	b, a := vm.peek(0), vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	vm.pop()
	vm.pop()
	ai, bi := int64(a.AsNumber()), int64(b.AsNumber())
	if bi == 0 {
		return vm.runtimeError("modulo by zero")
	}
	vm.push(value.Number(float64(ai % bi)))
	return nil
}

func (vm *VM) numericExponent() *errors.CelloxError {
	b, a := vm.peek(0), vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Number(math.Pow(a.AsNumber(), b.AsNumber())))
	return nil
}

// getIndex implements OP_GET_INDEX_OF on strings and arrays (spec.md §4.9).
func (vm *VM) getIndex() *errors.CelloxError {
	idxV := vm.pop()
	collection := vm.pop()
	if !idxV.IsNumber() {
		return vm.runtimeError("index must be a number")
	}
	idx := int(idxV.AsNumber())

	switch {
	case collection.IsObjKind(value.ObjKindString):
		s := collection.AsObj().(*object.String)
		if idx < 0 || idx >= len(s.Chars) {
			return vm.runtimeError("string index out of range")
		}
		vm.internAndPush(s.Chars[idx : idx+1])
		return nil
	case collection.IsObjKind(value.ObjKindArray):
		arr := collection.AsObj().(*object.Array)
		if idx < 0 || idx >= len(arr.Elements) {
			return vm.runtimeError("array index out of range")
		}
		vm.push(arr.Elements[idx])
		return nil
	default:
		return vm.runtimeError("only strings and arrays can be indexed")
	}
}

// setIndex implements OP_SET_INDEX_OF. Strings are immutable byte
// buffers internally, so a string index-assignment produces a fresh
// interned string rather than mutating in place; arrays mutate in
// place (spec.md §4.9).
func (vm *VM) setIndex() *errors.CelloxError {
	v := vm.pop()
	idxV := vm.pop()
	collection := vm.pop()
	if !idxV.IsNumber() {
		return vm.runtimeError("index must be a number")
	}
	idx := int(idxV.AsNumber())

	switch {
	case collection.IsObjKind(value.ObjKindString):
		s := collection.AsObj().(*object.String)
		if idx < 0 || idx >= len(s.Chars) {
			return vm.runtimeError("string index out of range")
		}
		if !v.IsObjKind(value.ObjKindString) || len(v.AsObj().(*object.String).Chars) != 1 {
			return vm.runtimeError("can only assign a single character into a string")
		}
		replaced := append([]byte(nil), s.Chars...)
		replaced[idx] = v.AsObj().(*object.String).Chars[0]
		vm.internAndPush(replaced)
		return nil
	case collection.IsObjKind(value.ObjKindArray):
		arr := collection.AsObj().(*object.Array)
		if idx < 0 || idx >= len(arr.Elements) {
			return vm.runtimeError("array index out of range")
		}
		arr.Elements[idx] = v
		vm.push(v)
		return nil
	default:
		return vm.runtimeError("only strings and arrays can be indexed")
	}
}

// getSlice implements OP_GET_SLICE_OF: operands collection, lo, hi with
// hi on top (spec.md §4.9).
func (vm *VM) getSlice() *errors.CelloxError {
	hiV := vm.pop()
	loV := vm.pop()
	collection := vm.pop()
	if !hiV.IsNumber() || !loV.IsNumber() {
		return vm.runtimeError("slice bounds must be numbers")
	}
	lo, hi := int(loV.AsNumber()), int(hiV.AsNumber())

	switch {
	case collection.IsObjKind(value.ObjKindString):
		s := collection.AsObj().(*object.String)
		if lo < 0 || hi > len(s.Chars) || lo >= hi {
			return vm.runtimeError("slice bounds out of range")
		}
		vm.internAndPush(s.Chars[lo:hi])
		return nil
	case collection.IsObjKind(value.ObjKindArray):
		arr := collection.AsObj().(*object.Array)
		if lo < 0 || hi > len(arr.Elements) || lo >= hi {
			return vm.runtimeError("slice bounds out of range")
		}
		sliced := append([]value.Value(nil), arr.Elements[lo:hi]...)
		out := object.NewArray(sliced)
		vm.push(value.FromObj(out))
		vm.linkObject(out, objSizeArray(out))
		return nil
	default:
		return vm.runtimeError("only strings and arrays can be sliced")
	}
}
