// Package vm implements the Cellox stack-based virtual machine of
// spec.md §4.8: a fixed-size value stack, a fixed-size call-frame array,
// and a single dispatch loop switching over every opcode in
// internal/chunk. It also owns the tracing mark-and-sweep garbage
// collector (§4.7) and the native-function registry (§4.10).
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/FrederikTobner/cellox/internal/compiler"
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/intern"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/table"
	"github.com/FrederikTobner/cellox/internal/value"
)

// StackSize and FramesMax match spec.md §4.8: "Fixed-size value stack
// (16384 slots ≙ 64 frames × 256), fixed-size call-frame array (64)."
const (
	StackSize = 16384
	FramesMax = 64
)

// CallFrame is one active invocation: the closure being executed, its
// instruction pointer, and the base stack slot its locals start at
// (spec.md §4.8: "slots points into the value stack to the first slot
// of this call (receiver or reserved)").
type CallFrame struct {
	closure *object.Closure
	ip      int
	slots   int
}

// VM is a single Cellox virtual machine instance: its value stack, call
// frames, globals, open upvalues, string interner, and garbage
// collector bookkeeping. Per spec.md §5, all of this is confined to one
// VM; nothing here is shared between instances.
type VM struct {
	id uuid.UUID

	stack    [StackSize]value.Value
	stackTop int

	frames     [FramesMax]CallFrame
	frameCount int

	globals  *table.Table
	interner *intern.Table

	openUpvalues *object.Upvalue
	initString   *object.String

	objects        object.Traceable
	grayStack      []object.Traceable
	bytesAllocated int
	nextGC         int
	gcStress       bool
	gcLogging      bool

	in     io.Reader
	out    io.Writer
	tracer *Tracer
}

// Option configures a VM at construction time (SPEC_FULL's ambient
// configuration layer: functional options in place of a config file,
// grounded on the teacher's constructor-option style).
type Option func(*VM)

// WithOutput redirects `print` and natives' stdout-equivalent output.
// Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithInput redirects read_line's source. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(vm *VM) { vm.in = r }
}

// WithGCStress forces a collection on every allocation, matching the
// original's compile-time DEBUG_STRESS_GC turned into a runtime knob
// (spec.md §4.7; SPEC_FULL item 6).
func WithGCStress(stress bool) Option {
	return func(vm *VM) { vm.gcStress = stress }
}

// WithGCLogging enables collection trace lines on vm.Tracer's writer
// (SPEC_FULL item 6, DEBUG_LOG_GC).
func WithGCLogging(logging bool) Option {
	return func(vm *VM) { vm.gcLogging = logging }
}

// WithTrace enables per-instruction execution tracing to w.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) { vm.tracer = NewTracer(w, vm.id) }
}

const initialNextGC = 1 << 20

// New constructs a VM, registers the native-function set into globals,
// and interns the "init" string that spec.md §4.7 names as a permanent
// mark root.
func New(opts ...Option) *VM {
	vm := &VM{
		id:       uuid.New(),
		globals:  table.New(),
		interner: intern.New(),
		in:       os.Stdin,
		out:      os.Stdout,
		nextGC:   initialNextGC,
	}
	for _, opt := range opts {
		opt(vm)
	}
	init, isNew := vm.interner.Intern([]byte("init"))
	vm.initString = init
	if isNew {
		vm.linkObject(init, objSizeString(init))
	}
	vm.registerNatives()
	return vm
}

// Interner exposes the VM's shared string table so callers (the CLI)
// can compile source against the same table the VM will execute
// against — interned identifiers and literals must be the same objects
// on both sides for OP_EQUAL/global lookups to behave.
func (vm *VM) Interner() *intern.Table { return vm.interner }

// Interpret compiles source and runs it to completion.
func (vm *VM) Interpret(source string) (value.Value, *errors.CelloxError) {
	fn, errs := compiler.Compile(source, vm.interner)
	if errs != nil {
		return value.Null(), errs[0]
	}
	return vm.Run(fn)
}

// Run executes an already-compiled (or loaded-from-disk) top-level
// function. Every object already reachable from fn is registered onto
// the GC's object list before execution starts, since objects created
// during compilation (or chunk-file loading) were never linked — the
// collector only exists once a VM is running.
func (vm *VM) Run(fn *object.Function) (value.Value, *errors.CelloxError) {
	vm.registerCompiledObjects(fn)

	closure := object.NewClosure(fn)
	vm.push(value.FromObj(closure))
	vm.linkObject(closure, objSizeClosure(closure))
	if err := vm.call(closure, 0); err != nil {
		return value.Null(), err
	}
	return vm.run()
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// runtimeError builds a CelloxError carrying a full frame trace
// (innermost first), then resets the VM's stack — spec.md §4.8/§7:
// "print the message, then unwind the call stack ... reset the stack."
func (vm *VM) runtimeError(format string, args ...interface{}) *errors.CelloxError {
	err := errors.NewRuntimeError(format, args...)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.closure.Function.Chunk.LineAt(f.ip - 1)
		name := ""
		if f.closure.Function.Name != nil {
			name = f.closure.Function.Name.String()
		}
		err.PushFrame(line, name)
	}
	vm.resetStack()
	return err
}

func (vm *VM) fprintf(format string, args ...interface{}) {
	fmt.Fprintf(vm.out, format, args...)
}
