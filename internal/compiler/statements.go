package compiler

import (
	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/lexer"
	"github.com/FrederikTobner/cellox/internal/value"
)

func (c *Compiler) declaration() {
	switch {
	case c.p.match(lexer.TokenClass):
		c.classDeclaration()
	case c.p.match(lexer.TokenFun):
		c.funDeclaration()
	case c.p.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.p.panicMode {
		c.p.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.p.match(lexer.TokenPrint):
		c.printStatement()
	case c.p.match(lexer.TokenIf):
		c.ifStatement()
	case c.p.match(lexer.TokenWhile):
		c.whileStatement()
	case c.p.match(lexer.TokenDo):
		c.doWhileStatement()
	case c.p.match(lexer.TokenFor):
		c.forStatement()
	case c.p.match(lexer.TokenReturn):
		c.returnStatement()
	case c.p.match(lexer.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.p.check(lexer.TokenRightBrace) && !c.p.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.p.consume(lexer.TokenRightBrace, "expected '}' after block")
}

// printStatement implements the supplemented `print` statement (dropped
// from the distilled grammar but present throughout the scenario corpus
// and in original_source's TOKEN_PRINT/OP_PRINT).
func (c *Compiler) printStatement() {
	c.expression()
	c.p.consume(lexer.TokenSemicolon, "expected ';' after value")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.p.consume(lexer.TokenSemicolon, "expected ';' after expression")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expected variable name")
	if c.p.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNull)
	}
	c.p.consume(lexer.TokenSemicolon, "expected ';' after variable declaration")
	c.defineVariable(global)
}

func (c *Compiler) ifStatement() {
	c.p.consume(lexer.TokenLeftParen, "expected '(' after 'if'")
	c.expression()
	c.p.consume(lexer.TokenRightParen, "expected ')' after condition")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitOp(chunk.OpPop)

	if c.p.match(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.p.consume(lexer.TokenLeftParen, "expected '(' after 'while'")
	c.expression()
	c.p.consume(lexer.TokenRightParen, "expected ')' after condition")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

// doWhileStatement compiles the `do s while (e);` form (original_source's
// do-while): body first, condition after, backward OP_LOOP when the
// condition holds.
func (c *Compiler) doWhileStatement() {
	bodyStart := len(c.chunk().Code)
	c.statement()
	c.p.consume(lexer.TokenWhile, "expected 'while' after do-block")
	c.p.consume(lexer.TokenLeftParen, "expected '(' after 'while'")
	c.expression()
	c.p.consume(lexer.TokenRightParen, "expected ')' after condition")
	c.p.consume(lexer.TokenSemicolon, "expected ';' after do-while statement")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.emitLoop(bodyStart)
	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

// forStatement desugars `for (init; cond; step) body` to a scoped
// init-statement followed by a while-loop whose body runs step after the
// user's body, per spec.md §4.2.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.p.consume(lexer.TokenLeftParen, "expected '(' after 'for'")

	switch {
	case c.p.match(lexer.TokenSemicolon):
		// no initializer
	case c.p.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.p.match(lexer.TokenSemicolon) {
		c.expression()
		c.p.consume(lexer.TokenSemicolon, "expected ';' after loop condition")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitOp(chunk.OpPop)
	}

	if !c.p.check(lexer.TokenRightParen) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(chunk.OpPop)
		c.p.consume(lexer.TokenRightParen, "expected ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.p.consume(lexer.TokenRightParen, "expected ')' after for clauses")
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(chunk.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.current.fnType == typeScript {
		c.p.error("cannot return from top-level code")
	}
	if c.p.match(lexer.TokenSemicolon) {
		c.emitReturn()
		return
	}
	if c.current.fnType == typeInitializer {
		c.p.error("cannot return a value from an initializer")
	}
	c.expression()
	c.p.consume(lexer.TokenSemicolon, "expected ';' after return value")
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expected function name")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

// function compiles a nested function body into its own funcState/chunk,
// then emits OP_CLOSURE plus its upvalue-capture descriptor bytes
// (spec.md §4.2).
func (c *Compiler) function(fnType functionType) {
	name := c.p.previous.Lexeme
	fs := newFuncState(c.current, fnType, name)
	c.current = fs

	c.beginScope()
	c.p.consume(lexer.TokenLeftParen, "expected '(' after function name")
	if !c.p.check(lexer.TokenRightParen) {
		for {
			c.current.fn.Arity++
			if c.current.fn.Arity > 255 {
				c.p.error("cannot have more than 255 parameters")
			}
			paramConst := c.parseVariable("expected parameter name")
			c.defineVariable(paramConst)
			if !c.p.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.p.consume(lexer.TokenRightParen, "expected ')' after parameters")
	c.p.consume(lexer.TokenLeftBrace, "expected '{' before function body")
	c.block()

	upvalues := fs.upvalues
	fn := c.endFunction()

	constIdx := c.makeConstant(value.FromObj(fn))
	c.emitOps(chunk.OpClosure, constIdx)
	for _, uv := range upvalues {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(uv.index)
	}
}

func (c *Compiler) classDeclaration() {
	c.p.consume(lexer.TokenIdentifier, "expected class name")
	className := c.p.previous.Lexeme
	nameConst := c.internString(className)
	c.declareVariable(className)

	c.emitOps(chunk.OpClass, nameConst)
	c.defineVariable(nameConst)

	classComp := &classState{enclosing: c.currentClass}
	c.currentClass = classComp

	if c.p.match(lexer.TokenColon) {
		c.p.consume(lexer.TokenIdentifier, "expected superclass name")
		variable(c, false)
		if c.p.previous.Lexeme == className {
			c.p.error("a class cannot inherit from itself")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariableGet(className)
		c.emitOp(chunk.OpInherit)
		classComp.hasSuperclass = true
	}

	c.namedVariableGet(className)
	c.p.consume(lexer.TokenLeftBrace, "expected '{' before class body")
	for !c.p.check(lexer.TokenRightBrace) && !c.p.check(lexer.TokenEOF) {
		c.method()
	}
	c.p.consume(lexer.TokenRightBrace, "expected '}' after class body")
	c.emitOp(chunk.OpPop)

	if classComp.hasSuperclass {
		c.endScope()
	}
	c.currentClass = classComp.enclosing
}

func (c *Compiler) method() {
	c.p.consume(lexer.TokenIdentifier, "expected method name")
	name := c.p.previous.Lexeme
	nameConst := c.internString(name)

	fnType := typeMethod
	if name == "init" {
		fnType = typeInitializer
	}
	c.function(fnType)
	c.emitOps(chunk.OpMethod, nameConst)
}
