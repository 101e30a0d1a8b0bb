package vm

import (
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/table"
	"github.com/FrederikTobner/cellox/internal/value"
)

// callValue implements OP_CALL's dispatch over every callable kind
// (spec.md §4.8).
func (vm *VM) callValue(callee value.Value, argc int) *errors.CelloxError {
	if !callee.IsObj() {
		return vm.runtimeError("can only call functions and classes")
	}
	switch o := callee.AsObj().(type) {
	case *object.Closure:
		return vm.call(o, argc)
	case *object.Class:
		instance := object.NewInstance(o)
		vm.stack[vm.stackTop-argc-1] = value.FromObj(instance)
		vm.linkObject(instance, objSizeInstance())
		if initV, ok := o.Methods.Get(vm.initString); ok {
			closure := initV.AsObj().(*object.Closure)
			return vm.call(closure, argc)
		}
		if argc != 0 {
			return vm.runtimeError("expected 0 arguments but got %d", argc)
		}
		return nil
	case *object.BoundMethod:
		vm.stack[vm.stackTop-argc-1] = o.Receiver
		return vm.call(o.Method, argc)
	case *object.Native:
		args := vm.stack[vm.stackTop-argc : vm.stackTop]
		result, errMsg := o.Fn(args)
		if errMsg != "" {
			return vm.runtimeError("%s", errMsg)
		}
		vm.stackTop -= argc + 1
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("can only call functions and classes")
	}
}

// call pushes a new frame for closure, checking arity and stack/frame
// capacity (spec.md §4.8).
func (vm *VM) call(closure *object.Closure, argc int) *errors.CelloxError {
	if argc != closure.Function.Arity {
		return vm.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argc)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError("stack overflow")
	}
	if vm.stackTop+256 > StackSize {
		return vm.runtimeError("stack overflow")
	}
	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.ip = 0
	frame.slots = vm.stackTop - argc - 1
	vm.frameCount++
	return nil
}

// getProperty implements OP_GET_PROPERTY: a field read if the instance
// has one, otherwise a bound method, otherwise a runtime error.
func (vm *VM) getProperty(frame *CallFrame, name *object.String) *errors.CelloxError {
	instance, ok := vm.peek(0).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("only instances have properties")
	}
	if v, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	if !vm.bindMethod(instance.Class, name) {
		return vm.runtimeError("undefined property '%s'", name.String())
	}
	return nil
}

func (vm *VM) setProperty(name *object.String) *errors.CelloxError {
	instance, ok := vm.peek(1).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("only instances have fields")
	}
	instance.Fields.Set(name, vm.peek(0))
	v := vm.pop()
	vm.pop()
	vm.push(v)
	return nil
}

// bindMethod looks up name in class's methods table and, if found,
// replaces the receiver on top of stack with a fresh BoundMethod.
func (vm *VM) bindMethod(class *object.Class, name *object.String) bool {
	methodV, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	method := methodV.AsObj().(*object.Closure)
	receiver := vm.pop()
	bound := object.NewBoundMethod(receiver, method)
	vm.push(value.FromObj(bound))
	vm.linkObject(bound, objSizeBoundMethod())
	return true
}

// invoke implements OP_INVOKE: look up name on the instance's fields
// (callable field shadows a method, called like any other value) or its
// class's methods (called directly, skipping the BoundMethod
// allocation) — spec.md §4.8.
func (vm *VM) invoke(name *object.String, argc int) *errors.CelloxError {
	receiver, ok := vm.peek(argc).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError("only instances have methods")
	}
	if v, ok := receiver.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argc-1] = v
		return vm.callValue(v, argc)
	}
	return vm.invokeFromClass(receiver.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argc int) *errors.CelloxError {
	methodV, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("undefined property '%s'", name.String())
	}
	return vm.call(methodV.AsObj().(*object.Closure), argc)
}

func (vm *VM) inheritMethods(superclass, subclass *object.Class) {
	superclass.Methods.ForEach(func(k table.Key, v value.Value) {
		subclass.Methods.Set(k, v)
	})
}

func (vm *VM) defineMethod(name *object.String) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*object.Class)
	class.Methods.Set(name, method)
	vm.pop()
}
