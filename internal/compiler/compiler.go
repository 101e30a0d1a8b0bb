// Package compiler implements Cellox's single-pass Pratt compiler
// (spec.md §4.2): it walks tokens once, emitting bytecode directly into
// the chunk of the function currently being built, with no intermediate
// AST.
package compiler

import (
	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/intern"
	"github.com/FrederikTobner/cellox/internal/lexer"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

const maxLocals = 256

// functionType tags what kind of callable a funcState is compiling, which
// changes slot-0 reservation and return-statement rules (spec.md §4.2).
type functionType int

const (
	typeScript functionType = iota
	typeFunction
	typeMethod
	typeInitializer
)

// localVar tracks one declared name in the current scope. depth ==
// uninitializedDepth means the declaration has been seen but its
// initializer has not finished compiling yet — referencing it in its own
// initializer is an error (spec.md §4.2 "Variable resolution").
type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

const uninitializedDepth = -1

// upvalueDesc records how an enclosing function's upvalue slot was
// captured: either directly from a local of the immediately enclosing
// function, or transitively from one of that function's own upvalues.
type upvalueDesc struct {
	index   uint8
	isLocal bool
}

// funcState is one frame of the compiler's frame stack: the function
// presently being built, plus its locals/upvalues/scope tracking.
type funcState struct {
	enclosing *funcState
	fn        *object.Function
	fnType    functionType
	locals    []localVar
	upvalues  []upvalueDesc
	scopeDepth int
}

// classState is one frame of the class-compiler stack, tracking the
// enclosing class for `this`/`super` resolution (spec.md §4.2).
type classState struct {
	enclosing      *classState
	hasSuperclass  bool
}

// Compiler holds all state for one compilation: the token stream, the
// active function/class frame stacks, and the shared string-intern
// table constants must be deduplicated against.
type Compiler struct {
	p            *parser
	current      *funcState
	currentClass *classState
	interner     *intern.Table
	exprStart    int
}

// Compile parses and compiles source into a top-level script function.
// A non-nil error slice means compilation failed; the returned function
// may still be non-nil but must not be run.
func Compile(source string, interner *intern.Table) (*object.Function, []*errors.CelloxError) {
	c := &Compiler{p: newParser(source), interner: interner}
	c.current = newFuncState(nil, typeScript, "")

	for !c.p.match(lexer.TokenEOF) {
		c.declaration()
	}

	fn := c.endFunction()
	if c.p.hadError() {
		return fn, c.p.errs
	}
	return fn, nil
}

func newFuncState(enclosing *funcState, fnType functionType, name string) *funcState {
	fn := object.NewFunction()
	if name != "" {
		fn.Name = object.NewString([]byte(name))
	}
	fs := &funcState{enclosing: enclosing, fn: fn, fnType: fnType}
	// Slot 0 is reserved: "this" in methods/initializers, empty otherwise
	// (spec.md §4.2).
	slotName := ""
	if fnType == typeMethod || fnType == typeInitializer {
		slotName = "this"
	}
	fs.locals = append(fs.locals, localVar{name: slotName, depth: 0})
	return fs
}

func (c *Compiler) chunk() *chunk.Chunk { return c.current.fn.Chunk }

func (c *Compiler) line() int { return c.p.previous.Line }

func (c *Compiler) emitByte(b byte) { c.chunk().Write(b, c.line()) }

func (c *Compiler) emitOp(op chunk.OpCode) { c.chunk().WriteOp(op, c.line()) }

func (c *Compiler) emitOps(op chunk.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitReturn() {
	if c.current.fnType == typeInitializer {
		c.emitOps(chunk.OpGetLocal, 0)
	} else {
		c.emitOp(chunk.OpNull)
	}
	c.emitOp(chunk.OpReturn)
}

// makeConstant appends v to the current function's constant pool,
// enforcing the 256-per-function ceiling of spec.md §4.3.
func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.chunk().AddConstant(v)
	if idx > 255 {
		c.p.error("too many constants in one function")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOps(chunk.OpConstant, c.makeConstant(v))
}

// internString interns s and returns its constant-pool index, used both
// for string literals and for identifier names used as OP_*_GLOBAL /
// OP_GET_PROPERTY / OP_METHOD / OP_CLASS operands.
func (c *Compiler) internString(s string) byte {
	str, _ := c.interner.Intern([]byte(s))
	return c.makeConstant(value.FromObj(str))
}

// emitJump writes a jump opcode with a placeholder 2-byte operand and
// returns the operand's offset for a later patchJump call.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) { c.chunk().PatchJump(offset) }

func (c *Compiler) emitLoop(loopStart int) { c.chunk().EmitLoop(loopStart, c.line()) }

// duplicateRange re-emits the bytecode in code[start:end] verbatim,
// producing a second copy of whatever value(s) that bytecode leaves on
// the stack. Used by compound-assignment on property/index targets,
// which need the receiver/collection twice (once to read the current
// value, once to write the new one) but have no dedicated
// duplicate-top-of-stack opcode.
func (c *Compiler) duplicateRange(start, end int) {
	tail := append([]byte(nil), c.chunk().Code[start:end]...)
	for _, b := range tail {
		c.emitByte(b)
	}
}

func (c *Compiler) beginScope() { c.current.scopeDepth++ }

// endScope pops locals that are leaving scope, emitting OP_CLOSE_UPVALUE
// for any that were captured by a nested closure and a plain OP_POP
// otherwise (spec.md §4.2: "Block... end_scope emits OP_CLOSE_UPVALUE for
// each captured local leaving scope; otherwise OP_POP").
func (c *Compiler) endScope() {
	c.current.scopeDepth--
	fs := c.current
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		last := fs.locals[len(fs.locals)-1]
		if last.isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

// endFunction finalizes the current funcState's function (emitting the
// implicit trailing return) and pops the frame, restoring the enclosing
// one as current.
func (c *Compiler) endFunction() *object.Function {
	c.emitReturn()
	fn := c.current.fn
	c.current = c.current.enclosing
	return fn
}
