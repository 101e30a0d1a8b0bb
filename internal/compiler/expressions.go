package compiler

import (
	"strconv"
	"strings"

	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/lexer"
	"github.com/FrederikTobner/cellox/internal/value"
)

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the Pratt-parser core: consume one prefix-position
// token, then keep consuming infix operators whose precedence is at
// least precedence (spec.md §4.2).
//
// exprStart is saved/restored around this call so that dot() and index()
// can find the byte range of "the expression compiled so far" — the
// receiver or collection of a property/index compound assignment, which
// they need to re-emit verbatim to fetch a second copy of (spec.md §4.2's
// compound-assignment targets have no dedicated duplicate-top-of-stack
// opcode, so recompiling the already-emitted bytes stands in for one).
func (c *Compiler) parsePrecedence(precedence Precedence) {
	start := len(c.chunk().Code)
	prevStart := c.exprStart
	c.exprStart = start
	defer func() { c.exprStart = prevStart }()

	c.p.advance()
	rule := getRule(c.p.previous.Type)
	if rule.prefix == nil {
		c.p.error("expected expression")
		return
	}
	canAssign := precedence <= PrecAssignment
	rule.prefix(c, canAssign)

	for precedence <= getRule(c.p.current.Type).precedence {
		c.p.advance()
		infRule := getRule(c.p.previous.Type)
		infRule.infix(c, canAssign)
	}

	if canAssign && (c.p.match(lexer.TokenEqual) || isCompoundAssign(c.p.current.Type)) {
		c.p.error("invalid assignment target")
	}
}

func isCompoundAssign(t lexer.TokenType) bool {
	switch t {
	case lexer.TokenPlusEqual, lexer.TokenMinusEqual, lexer.TokenStarEqual,
		lexer.TokenSlashEqual, lexer.TokenPercentEqual, lexer.TokenStarStarEq:
		return true
	}
	return false
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.p.consume(lexer.TokenRightParen, "expected ')' after expression")
}

func number(c *Compiler, _ bool) {
	n := parseNumberLexeme(c.p.previous.Lexeme)
	c.emitConstant(value.Number(n))
}

func parseNumberLexeme(lexeme string) float64 {
	if strings.HasPrefix(lexeme, "0x") || strings.HasPrefix(lexeme, "0X") {
		n, _ := strconv.ParseUint(lexeme[2:], 16, 64)
		return float64(n)
	}
	if strings.HasPrefix(lexeme, "0b") || strings.HasPrefix(lexeme, "0B") {
		n, _ := strconv.ParseUint(lexeme[2:], 2, 64)
		return float64(n)
	}
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}

func stringLiteral(c *Compiler, _ bool) {
	raw := c.p.previous.Lexeme
	decoded, err := decodeStringLexeme(raw[1 : len(raw)-1])
	if err != "" {
		c.p.error(err)
		return
	}
	str, _ := c.interner.Intern([]byte(decoded))
	c.emitConstant(value.FromObj(str))
}

// decodeStringLexeme interprets the escape sequences the lexer already
// validated (spec.md §4.1/§4.2 split: the lexer checks escapes are
// well-formed, the compiler decodes them into bytes).
func decodeStringLexeme(s string) (string, string) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		i++
		if i >= len(s) {
			return "", "unterminated escape sequence"
		}
		switch s[i] {
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '"':
			sb.WriteByte('"')
		case '\'':
			sb.WriteByte('\'')
		case '\\':
			sb.WriteByte('\\')
		case '?':
			sb.WriteByte('?')
		case 'x':
			if i+2 >= len(s) {
				return "", "invalid \\x escape"
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", "invalid \\x escape"
			}
			sb.WriteByte(byte(n))
			i += 2
		default:
			if s[i] >= '0' && s[i] <= '7' {
				start := i
				for i+1 < len(s) && i-start < 2 && s[i+1] >= '0' && s[i+1] <= '7' {
					i++
				}
				n, _ := strconv.ParseUint(s[start:i+1], 8, 8)
				sb.WriteByte(byte(n))
			} else {
				return "", "invalid escape sequence"
			}
		}
	}
	return sb.String(), ""
}

func literal(c *Compiler, _ bool) {
	switch c.p.previous.Type {
	case lexer.TokenFalse:
		c.emitOp(chunk.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(chunk.OpTrue)
	case lexer.TokenNull:
		c.emitOp(chunk.OpNull)
	}
}

func unary(c *Compiler, _ bool) {
	opType := c.p.previous.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case lexer.TokenMinus:
		c.emitOp(chunk.OpNegate)
	case lexer.TokenBang:
		c.emitOp(chunk.OpNot)
	}
}

func binary(c *Compiler, _ bool) {
	opType := c.p.previous.Type
	rule := getRule(opType)
	if opType == lexer.TokenStarStar {
		// Right-associative: recurse at the same precedence instead of
		// precedence+1 (spec.md §4.2: "right-associative via precedence
		// climb at FACTOR+1").
		c.parsePrecedence(rule.precedence)
	} else {
		c.parsePrecedence(rule.precedence + 1)
	}

	switch opType {
	case lexer.TokenPlus:
		c.emitOp(chunk.OpAdd)
	case lexer.TokenMinus:
		c.emitOp(chunk.OpSubtract)
	case lexer.TokenStar:
		c.emitOp(chunk.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(chunk.OpDivide)
	case lexer.TokenPercent:
		c.emitOp(chunk.OpModulo)
	case lexer.TokenStarStar:
		c.emitOp(chunk.OpExponent)
	case lexer.TokenEqualEqual:
		c.emitOp(chunk.OpEqual)
	case lexer.TokenBangEqual:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case lexer.TokenGreater:
		c.emitOp(chunk.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case lexer.TokenLess:
		c.emitOp(chunk.OpLess)
	case lexer.TokenLessEqual:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	}
}

// and_ short-circuits: if the left operand is false, skip the right
// operand and leave it (false) on the stack.
func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or_ short-circuits: if the left operand is true, skip the right operand.
func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func call(c *Compiler, _ bool) {
	argc := c.argumentList()
	c.emitOps(chunk.OpCall, argc)
}

func (c *Compiler) argumentList() byte {
	var argc int
	if !c.p.check(lexer.TokenRightParen) {
		for {
			c.expression()
			if argc == 255 {
				c.p.error("cannot pass more than 255 arguments")
			}
			argc++
			if !c.p.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.p.consume(lexer.TokenRightParen, "expected ')' after arguments")
	return byte(argc)
}

func dot(c *Compiler, canAssign bool) {
	receiverStart, receiverEnd := c.exprStart, len(c.chunk().Code)
	c.p.consume(lexer.TokenIdentifier, "expected property name after '.'")
	name := c.internString(c.p.previous.Lexeme)

	switch {
	case canAssign && c.p.match(lexer.TokenEqual):
		c.expression()
		c.emitOps(chunk.OpSetProperty, name)
	case canAssign && isCompoundAssign(c.p.current.Type):
		op := c.p.current.Type
		c.p.advance()
		c.duplicateRange(receiverStart, receiverEnd)
		c.emitOps(chunk.OpGetProperty, name)
		c.expression()
		c.emitCompoundOp(op)
		c.emitOps(chunk.OpSetProperty, name)
	case c.p.match(lexer.TokenLeftParen):
		argc := c.argumentList()
		c.emitOps(chunk.OpInvoke, name)
		c.emitByte(argc)
	default:
		c.emitOps(chunk.OpGetProperty, name)
	}
}

// emitCompoundOp emits the arithmetic opcode a compound-assignment
// operator desugars to: get, rhs, op, set (spec.md §4.2).
func (c *Compiler) emitCompoundOp(op lexer.TokenType) {
	switch op {
	case lexer.TokenPlusEqual:
		c.emitOp(chunk.OpAdd)
	case lexer.TokenMinusEqual:
		c.emitOp(chunk.OpSubtract)
	case lexer.TokenStarEqual:
		c.emitOp(chunk.OpMultiply)
	case lexer.TokenSlashEqual:
		c.emitOp(chunk.OpDivide)
	case lexer.TokenPercentEqual:
		c.emitOp(chunk.OpModulo)
	case lexer.TokenStarStarEq:
		c.emitOp(chunk.OpExponent)
	}
}

func this_(c *Compiler, _ bool) {
	if c.currentClass == nil {
		c.p.error("'this' used outside of a class")
		return
	}
	variable(c, false)
}

func super_(c *Compiler, _ bool) {
	if c.currentClass == nil {
		c.p.error("'super' used outside of a class")
	} else if !c.currentClass.hasSuperclass {
		c.p.error("'super' used in a class with no superclass")
	}
	c.p.consume(lexer.TokenDot, "expected '.' after 'super'")
	c.p.consume(lexer.TokenIdentifier, "expected superclass method name")
	name := c.internString(c.p.previous.Lexeme)

	c.namedVariableGet("this")
	if c.p.match(lexer.TokenLeftParen) {
		argc := c.argumentList()
		c.namedVariableGet("super")
		c.emitOps(chunk.OpSuperInvoke, name)
		c.emitByte(argc)
	} else {
		c.namedVariableGet("super")
		c.emitOps(chunk.OpGetSuper, name)
	}
}

func arrayLiteral(c *Compiler, _ bool) {
	var n int
	if !c.p.check(lexer.TokenRightBracket) {
		for {
			c.expression()
			n++
			if !c.p.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.p.consume(lexer.TokenRightBracket, "expected ']' after array elements")
	if n > 255 {
		c.p.error("array literal has too many elements")
	}
	c.emitOps(chunk.OpArrayLiteral, byte(n))
}

// index handles both `e[i]` (get/set) and `e[lo..hi]` (slice), since
// spec.md §4.2 folds the slice form into the same bracket production.
func index(c *Compiler, canAssign bool) {
	collectionStart := c.exprStart
	collectionEnd := len(c.chunk().Code)
	indexStart := collectionEnd
	c.expression()
	if c.p.match(lexer.TokenDotDot) {
		c.expression()
		c.p.consume(lexer.TokenRightBracket, "expected ']' after slice")
		c.emitOp(chunk.OpGetSliceOf)
		return
	}
	indexEnd := len(c.chunk().Code)
	c.p.consume(lexer.TokenRightBracket, "expected ']' after index")

	switch {
	case canAssign && c.p.match(lexer.TokenEqual):
		c.expression()
		c.emitOp(chunk.OpSetIndexOf)
	case canAssign && isCompoundAssign(c.p.current.Type):
		op := c.p.current.Type
		c.p.advance()
		c.duplicateRange(collectionStart, collectionEnd)
		c.duplicateRange(indexStart, indexEnd)
		c.emitOp(chunk.OpGetIndexOf)
		c.expression()
		c.emitCompoundOp(op)
		c.emitOp(chunk.OpSetIndexOf)
	default:
		c.emitOp(chunk.OpGetIndexOf)
	}
}
