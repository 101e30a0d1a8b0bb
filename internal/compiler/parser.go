package compiler

import (
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/lexer"
)

// parser wraps the lexer with one token of lookahead and panic-mode error
// recovery (spec.md §4.2's "Error handling and synchronisation").
type parser struct {
	lex        *lexer.Lexer
	current    lexer.Token
	previous   lexer.Token
	panicMode  bool
	errs       []*errors.CelloxError
}

func newParser(source string) *parser {
	p := &parser{lex: lexer.New(source)}
	p.advance()
	return p
}

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.Next()
		if p.current.Type != lexer.TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(t lexer.TokenType) bool { return p.current.Type == t }

func (p *parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t lexer.TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *parser) error(message string)          { p.errorAt(p.previous, message) }

func (p *parser) errorAt(tok lexer.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	lexeme := tok.Lexeme
	if tok.Type == lexer.TokenEOF {
		lexeme = "end"
	}
	p.errs = append(p.errs, errors.NewCompileError(tok.Line, lexeme, message))
}

func (p *parser) hadError() bool { return len(p.errs) > 0 }

// synchronize discards tokens until it finds a statement boundary: just
// past a `;`, or before one of the keywords class, fun, var, for, if,
// while, return or print.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Type != lexer.TokenEOF {
		if p.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch p.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenReturn, lexer.TokenPrint:
			return
		}
		p.advance()
	}
}
