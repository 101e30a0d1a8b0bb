package lexer

import "testing"

func scanAll(t *testing.T, source string) []Token {
	t.Helper()
	l := New(source)
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}

func TestPunctuationAndOperators(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected []TokenType
	}{
		{"parens and braces", "(){}[]", []TokenType{TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace, TokenLeftBracket, TokenRightBracket, TokenEOF}},
		{"compound assignment", "+= -= *= /= %=", []TokenType{TokenPlusEqual, TokenMinusEqual, TokenStarEqual, TokenSlashEqual, TokenPercentEqual, TokenEOF}},
		{"exponent forms", "** **=", []TokenType{TokenStarStar, TokenStarStarEq, TokenEOF}},
		{"comparisons", "== != <= >= < >", []TokenType{TokenEqualEqual, TokenBangEqual, TokenLessEqual, TokenGreaterEqual, TokenLess, TokenGreater, TokenEOF}},
		{"range dots", "1..5", []TokenType{TokenNumber, TokenDotDot, TokenNumber, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := scanAll(t, tt.source)
			if len(tokens) != len(tt.expected) {
				t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(tt.expected), tokens)
			}
			for i, tok := range tokens {
				if tok.Type != tt.expected[i] {
					t.Errorf("token %d: got %s, want %s", i, tok.Type, tt.expected[i])
				}
			}
		})
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens := scanAll(t, "var x = fun print this")
	want := []TokenType{TokenVar, TokenIdentifier, TokenEqual, TokenFun, TokenPrint, TokenThis, TokenEOF}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tok.Type, want[i])
		}
	}
}

func TestNestedBlockComments(t *testing.T) {
	tokens := scanAll(t, "1 /* outer /* inner */ still outer */ 2")
	want := []TokenType{TokenNumber, TokenNumber, TokenEOF}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tok.Type, want[i])
		}
	}
}

func TestHexAndBinaryLiterals(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"valid hex", "0xFF", false},
		{"valid binary", "0b1010", false},
		{"hex too long", "0x123456789", true},
		{"binary too long", "0b" + repeat("1", 33), true},
		{"hex no digits", "0x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.source)
			tok := l.Next()
			if tt.wantErr && tok.Type != TokenError {
				t.Errorf("got %s, want ERROR", tok.Type)
			}
			if !tt.wantErr && tok.Type != TokenNumber {
				t.Errorf("got %s, want NUMBER", tok.Type)
			}
		})
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"simple escapes", `"a\nb\tc"`, false},
		{"hex byte escape", `"\x41"`, false},
		{"octal byte escape", `"\101"`, false},
		{"invalid escape", `"\q"`, true},
		{"unterminated", `"abc`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.source)
			tok := l.Next()
			if tt.wantErr && tok.Type != TokenError {
				t.Errorf("got %s (%s), want ERROR", tok.Type, tok.Lexeme)
			}
			if !tt.wantErr && tok.Type != TokenString {
				t.Errorf("got %s (%s), want STRING", tok.Type, tok.Lexeme)
			}
		})
	}
}

func TestLineTracking(t *testing.T) {
	tokens := scanAll(t, "1\n2\n\n3")
	wantLines := []int{1, 2, 4, 4}
	for i, want := range wantLines {
		if tokens[i].Line != want {
			t.Errorf("token %d: got line %d, want %d", i, tokens[i].Line, want)
		}
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
