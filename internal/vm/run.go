package vm

import (
	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// run is the VM's single dispatch loop (spec.md §4.8): "a single tight
// function over the current frame's bytecode." The current frame is
// cached in the local `frame` and refreshed after CALL/INVOKE/
// SUPER_INVOKE/RETURN, the only operations that push or pop frames.
func (vm *VM) run() (value.Value, *errors.CelloxError) {
	frame := &vm.frames[vm.frameCount-1]

	for {
		if vm.tracer != nil {
			vm.tracer.TraceInstruction(frame.closure.Function.Chunk, frame.ip)
		}
		op := chunk.OpCode(vm.readByte(frame))

		switch op {
		case chunk.OpConstant:
			vm.push(vm.readConstant(frame))

		case chunk.OpNull:
			vm.push(value.Null())
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()
		case chunk.OpPrint:
			vm.fprintf("%s\n", vm.pop().String())

		case chunk.OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.slots+slot])
		case chunk.OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.slots+slot] = vm.peek(0)

		case chunk.OpGetUpvalue:
			slot := int(vm.readByte(frame))
			vm.push(frame.closure.Upvalues[slot].Get())
		case chunk.OpSetUpvalue:
			slot := int(vm.readByte(frame))
			frame.closure.Upvalues[slot].Set(vm.peek(0))

		case chunk.OpGetGlobal:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return value.Null(), vm.runtimeError("undefined variable '%s'", name.String())
			}
			vm.push(v)
		case chunk.OpSetGlobal:
			name := vm.readString(frame)
			if _, ok := vm.globals.Get(name); !ok {
				return value.Null(), vm.runtimeError("undefined variable '%s'", name.String())
			}
			vm.globals.Set(name, vm.peek(0))
		case chunk.OpDefineGlobal:
			name := vm.readString(frame)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case chunk.OpGetProperty:
			if errv := vm.getProperty(frame, vm.readString(frame)); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpSetProperty:
			if errv := vm.setProperty(vm.readString(frame)); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpGetSuper:
			name := vm.readString(frame)
			superclass := vm.pop().AsObj().(*object.Class)
			if !vm.bindMethod(superclass, name) {
				return value.Null(), vm.runtimeError("undefined property '%s'", name.String())
			}

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if errv := vm.numericCompare(func(a, b float64) bool { return a > b }); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpLess:
			if errv := vm.numericCompare(func(a, b float64) bool { return a < b }); errv != nil {
				return value.Null(), errv
			}

		case chunk.OpAdd:
			if errv := vm.add(); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpSubtract:
			if errv := vm.numericBinary(func(a, b float64) float64 { return a - b }); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpMultiply:
			if errv := vm.numericBinary(func(a, b float64) float64 { return a * b }); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpDivide:
			if errv := vm.numericBinary(func(a, b float64) float64 { return a / b }); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpModulo:
			if errv := vm.numericModulo(); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpExponent:
			if errv := vm.numericExponent(); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return value.Null(), vm.runtimeError("operand of unary '-' must be a number")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))
		case chunk.OpNot:
			vm.push(value.Bool(!value.Truthy(vm.pop())))

		case chunk.OpJump:
			offset := vm.readShort(frame)
			frame.ip += offset
		case chunk.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if !value.Truthy(vm.peek(0)) {
				frame.ip += offset
			}
		case chunk.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case chunk.OpCall:
			argc := int(vm.readByte(frame))
			if errv := vm.callValue(vm.peek(argc), argc); errv != nil {
				return value.Null(), errv
			}
			frame = &vm.frames[vm.frameCount-1]
		case chunk.OpInvoke:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			if errv := vm.invoke(name, argc); errv != nil {
				return value.Null(), errv
			}
			frame = &vm.frames[vm.frameCount-1]
		case chunk.OpSuperInvoke:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			superclass := vm.pop().AsObj().(*object.Class)
			if errv := vm.invokeFromClass(superclass, name, argc); errv != nil {
				return value.Null(), errv
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpClosure:
			fn := vm.readConstant(frame).AsObj().(*object.Function)
			closure := object.NewClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(value.FromObj(closure))
			vm.linkObject(closure, objSizeClosure(closure))

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return result, nil
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpClass:
			name := vm.readString(frame)
			class := object.NewClass(name)
			vm.push(value.FromObj(class))
			vm.linkObject(class, objSizeClass())
		case chunk.OpInherit:
			superclass, ok := vm.peek(1).AsObj().(*object.Class)
			if !ok {
				return value.Null(), vm.runtimeError("superclass must be a class")
			}
			subclass := vm.peek(0).AsObj().(*object.Class)
			vm.inheritMethods(superclass, subclass)
			vm.pop()
		case chunk.OpMethod:
			vm.defineMethod(vm.readString(frame))

		case chunk.OpArrayLiteral:
			n := int(vm.readByte(frame))
			elements := make([]value.Value, n)
			copy(elements, vm.stack[vm.stackTop-n:vm.stackTop])
			vm.stackTop -= n
			arr := object.NewArray(elements)
			vm.push(value.FromObj(arr))
			vm.linkObject(arr, objSizeArray(arr))
		case chunk.OpGetIndexOf:
			if errv := vm.getIndex(); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpSetIndexOf:
			if errv := vm.setIndex(); errv != nil {
				return value.Null(), errv
			}
		case chunk.OpGetSliceOf:
			if errv := vm.getSlice(); errv != nil {
				return value.Null(), errv
			}

		default:
			return value.Null(), vm.runtimeError("unknown opcode %d", byte(op))
		}
	}
}

func (vm *VM) readByte(f *CallFrame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort(f *CallFrame) int {
	hi := vm.readByte(f)
	lo := vm.readByte(f)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant(f *CallFrame) value.Value {
	idx := vm.readByte(f)
	return f.closure.Function.Chunk.Constants[idx]
}

func (vm *VM) readString(f *CallFrame) *object.String {
	return vm.readConstant(f).AsObj().(*object.String)
}
