package compiler

import "github.com/FrederikTobner/cellox/internal/lexer"

// Precedence levels, low to high, matching spec.md §4.2 exactly.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =  +=  -=  *=  /=  %=  **=
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * / %
	PrecUnary                 // ! -
	PrecCall                  // . () []
	PrecPrimary
)

// parseFn is a prefix or infix parse-rule entry. canAssign is true only
// when the enclosing expression is at or below assignment precedence, so
// `a.b = c` is legal but `a == b = c` is rejected.
type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.TokenLeftParen:    {prefix: grouping, infix: call, precedence: PrecCall},
		lexer.TokenLeftBracket:  {prefix: arrayLiteral, infix: index, precedence: PrecCall},
		lexer.TokenDot:          {infix: dot, precedence: PrecCall},
		lexer.TokenMinus:        {prefix: unary, infix: binary, precedence: PrecTerm},
		lexer.TokenPlus:         {infix: binary, precedence: PrecTerm},
		lexer.TokenSlash:        {infix: binary, precedence: PrecFactor},
		lexer.TokenStar:         {infix: binary, precedence: PrecFactor},
		lexer.TokenPercent:      {infix: binary, precedence: PrecFactor},
		lexer.TokenStarStar:     {infix: binary, precedence: PrecFactor + 1},
		lexer.TokenBang:         {prefix: unary},
		lexer.TokenBangEqual:    {infix: binary, precedence: PrecEquality},
		lexer.TokenEqualEqual:   {infix: binary, precedence: PrecEquality},
		lexer.TokenGreater:      {infix: binary, precedence: PrecComparison},
		lexer.TokenGreaterEqual: {infix: binary, precedence: PrecComparison},
		lexer.TokenLess:         {infix: binary, precedence: PrecComparison},
		lexer.TokenLessEqual:    {infix: binary, precedence: PrecComparison},
		lexer.TokenIdentifier:   {prefix: variable},
		lexer.TokenString:       {prefix: stringLiteral},
		lexer.TokenNumber:       {prefix: number},
		lexer.TokenAnd:          {infix: and_, precedence: PrecAnd},
		lexer.TokenOr:           {infix: or_, precedence: PrecOr},
		lexer.TokenFalse:        {prefix: literal},
		lexer.TokenTrue:         {prefix: literal},
		lexer.TokenNull:         {prefix: literal},
		lexer.TokenThis:         {prefix: this_},
		lexer.TokenSuper:        {prefix: super_},
	}
}

func getRule(t lexer.TokenType) parseRule {
	return rules[t]
}
