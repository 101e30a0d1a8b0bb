package compiler

import (
	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/lexer"
)

// variable is the IDENTIFIER prefix rule: resolve and emit a get, or
// (if canAssign and followed by an assignment operator) a set.
func variable(c *Compiler, canAssign bool) {
	namedVariable(c, c.p.previous.Lexeme, canAssign)
}

// namedVariableGet emits only the read side for name, used internally by
// `this`/`super` handling where assignment never applies.
func (c *Compiler) namedVariableGet(name string) {
	namedVariable(c, name, false)
}

func namedVariable(c *Compiler, name string, canAssign bool) {
	var getOp, setOp chunk.OpCode
	var arg byte

	if slot, found, uninitialized := resolveLocalChecked(c.current, name); uninitialized {
		c.p.error("cannot read local variable in its own initializer")
		return
	} else if found {
		getOp, setOp, arg = chunk.OpGetLocal, chunk.OpSetLocal, slot
	} else if slot, ok := resolveUpvalue(c, c.current, name); ok {
		getOp, setOp, arg = chunk.OpGetUpvalue, chunk.OpSetUpvalue, slot
	} else {
		getOp, setOp, arg = chunk.OpGetGlobal, chunk.OpSetGlobal, c.internString(name)
	}

	switch {
	case canAssign && c.p.match(lexer.TokenEqual):
		c.expression()
		c.emitOps(setOp, arg)
	case canAssign && isCompoundAssign(c.p.current.Type):
		op := c.p.current.Type
		c.p.advance()
		c.emitOps(getOp, arg)
		c.expression()
		c.emitCompoundOp(op)
		c.emitOps(setOp, arg)
	default:
		c.emitOps(getOp, arg)
	}
}

// resolveLocal searches fs's locals top-down (innermost shadow wins),
// per spec.md §4.2's "Variable resolution" step 1. A local whose
// initializer is still being compiled resolves as not-found here (used
// by resolveUpvalue's recursive search, where the distinction doesn't
// matter — namedVariable uses resolveLocalChecked instead to surface the
// "uninitialised in own initialiser" error precisely).
func resolveLocal(fs *funcState, name string) (byte, bool) {
	slot, found, uninitialized := resolveLocalChecked(fs, name)
	if uninitialized {
		return 0, false
	}
	return slot, found
}

func resolveLocalChecked(fs *funcState, name string) (slot byte, found bool, uninitialized bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == uninitializedDepth {
				return 0, true, true
			}
			return byte(i), true, false
		}
	}
	return 0, false, false
}

// resolveUpvalue implements step 2 of spec.md §4.2's resolution
// algorithm: walk outward through enclosing functions, adding an upvalue
// descriptor at each level and uniquing by (index, is_local).
func resolveUpvalue(c *Compiler, fs *funcState, name string) (byte, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, ok := resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[slot].isCaptured = true
		return addUpvalue(c, fs, slot, true)
	}
	if slot, ok := resolveUpvalue(c, fs.enclosing, name); ok {
		return addUpvalue(c, fs, slot, false)
	}
	return 0, false
}

func addUpvalue(c *Compiler, fs *funcState, index byte, isLocal bool) (byte, bool) {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return byte(i), true
		}
	}
	if len(fs.upvalues) >= maxLocals {
		c.p.error("too many closure variables in one function")
		return 0, true
	}
	fs.upvalues = append(fs.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	fs.fn.UpvalueCount = len(fs.upvalues)
	return byte(len(fs.upvalues) - 1), true
}

// declareVariable registers the identifier just consumed as a new local
// in the current scope (a no-op at global scope, where OP_DEFINE_GLOBAL
// handles binding instead).
func (c *Compiler) declareVariable(name string) {
	if c.current.scopeDepth == 0 {
		return
	}
	for i := len(c.current.locals) - 1; i >= 0; i-- {
		l := c.current.locals[i]
		if l.depth != uninitializedDepth && l.depth < c.current.scopeDepth {
			break
		}
		if l.name == name {
			c.p.error("a variable with this name already exists in this scope")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.current.locals) >= maxLocals {
		c.p.error("too many local variables in function")
		return
	}
	c.current.locals = append(c.current.locals, localVar{name: name, depth: uninitializedDepth})
}

func (c *Compiler) markInitialized() {
	if c.current.scopeDepth == 0 {
		return
	}
	c.current.locals[len(c.current.locals)-1].depth = c.current.scopeDepth
}

// parseVariable consumes an identifier, declares it as a local (if
// scoped), and returns its global-name constant index (unused when
// scoped).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.p.consume(lexer.TokenIdentifier, errMsg)
	name := c.p.previous.Lexeme
	c.declareVariable(name)
	if c.current.scopeDepth > 0 {
		return 0
	}
	return c.internString(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.current.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOps(chunk.OpDefineGlobal, global)
}
