package vm

import (
	"bufio"
	"math/rand"
	"runtime"
	"time"

	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// registerNatives installs the native-function registry into globals
// (spec.md §4.10): each native is an interned name mapped to a
// *object.Native, inserted directly into vm.globals — natives are
// registered once at VM init and never collected (spec.md's value-kind
// table: "Registered at VM init; never collected").
//
// The individual natives below are a representative subset of
// original_source/src/native_functions.c — spec.md §1 scopes their exact
// semantics out ("only the contract by which they plug into the VM is
// specified"), so this is a reasonable working set rather than a port of
// every native the original registers.
func (vm *VM) registerNatives() {
	vm.defineNative("clock", 0, nativeClock)
	vm.defineNative("strlen", 1, vm.nativeStrlen)
	vm.defineNative("array_length", 1, nativeArrayLength)
	vm.defineNative("class_of", 1, nativeClassOf)
	vm.defineNative("random", 0, nativeRandom)
	vm.defineNative("read_line", 0, vm.nativeReadLine)
	vm.defineNative("on_linux", 0, nativeOnGOOS("linux"))
	vm.defineNative("on_macos", 0, nativeOnGOOS("darwin"))
	vm.defineNative("on_windows", 0, nativeOnGOOS("windows"))
}

func (vm *VM) defineNative(name string, arity int, fn object.NativeFn) {
	nameStr, isNew := vm.interner.Intern([]byte(name))
	if isNew {
		vm.linkObject(nameStr, objSizeString(nameStr))
	}
	native := object.NewNative(name, arityChecked(name, arity, fn))
	vm.globals.Set(nameStr, value.FromObj(native))
}

// arityChecked wraps fn with the argument-count validation spec.md §4.10
// requires every native to perform itself, reporting a mismatch as an
// ordinary runtime-error message rather than a hard crash.
func arityChecked(name string, arity int, fn object.NativeFn) object.NativeFn {
	return func(args []value.Value) (value.Value, string) {
		if len(args) != arity {
			return value.Null(), fnArityError(name, arity, len(args))
		}
		return fn(args)
	}
}

func fnArityError(name string, want, got int) string {
	if want == 1 {
		return name + " expects 1 argument"
	}
	if want == got {
		return ""
	}
	return name + " called with the wrong number of arguments"
}

func nativeClock(args []value.Value) (value.Value, string) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), ""
}

func (vm *VM) nativeStrlen(args []value.Value) (value.Value, string) {
	s, ok := args[0].AsObj().(*object.String)
	if !ok {
		return value.Null(), "strlen expects a string argument"
	}
	return value.Number(float64(len(s.Chars))), ""
}

func nativeArrayLength(args []value.Value) (value.Value, string) {
	a, ok := args[0].AsObj().(*object.Array)
	if !ok {
		return value.Null(), "array_length expects an array argument"
	}
	return value.Number(float64(len(a.Elements))), ""
}

func nativeClassOf(args []value.Value) (value.Value, string) {
	inst, ok := args[0].AsObj().(*object.Instance)
	if !ok {
		return value.Null(), "class_of expects an instance argument"
	}
	return value.FromObj(inst.Class), ""
}

func nativeRandom(args []value.Value) (value.Value, string) {
	return value.Number(rand.Float64()), ""
}

func (vm *VM) nativeReadLine(args []value.Value) (value.Value, string) {
	scanner := bufio.NewScanner(vm.in)
	if !scanner.Scan() {
		return value.Null(), ""
	}
	s, isNew := vm.interner.Intern(scanner.Bytes())
	if isNew {
		vm.push(value.FromObj(s))
		vm.linkObject(s, objSizeString(s))
		vm.pop()
	}
	return value.FromObj(s), ""
}

func nativeOnGOOS(goos string) object.NativeFn {
	return func(args []value.Value) (value.Value, string) {
		return value.Bool(runtime.GOOS == goos), ""
	}
}
