package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Jack lexer
// ---------------------------------------------------------------------------

// TokenType represents the lexical class of a token.
type TokenType int

const (
	// TokenEOF is returned once the input is exhausted. It is not an error.
	TokenEOF TokenType = iota

	TokenKeyword         // class, let, while, ...
	TokenSymbol          // { } ( ) [ ] . , ; + - * / & | < > = ~
	TokenIdentifier      // foo, Bar, _tmp1
	TokenIntegerConstant // 0 .. 32767
	TokenStringConstant  // "hello" (stored without quotes)
)

// Token type names double as the XML element names of the token stream.
var tokenNames = map[TokenType]string{
	TokenEOF:             "EOF",
	TokenKeyword:         "keyword",
	TokenSymbol:          "symbol",
	TokenIdentifier:      "identifier",
	TokenIntegerConstant: "integerConstant",
	TokenStringConstant:  "stringConstant",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token is a single lexical token. Tokens are values and never mutated.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s %q...", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s %q", t.Type, t.Literal)
}

// Is reports whether the token has the given type and, when lit is
// non-empty, the given literal.
func (t Token) Is(typ TokenType, lit string) bool {
	return t.Type == typ && (lit == "" || t.Literal == lit)
}

// Reserved words. An identifier matching one of these is a keyword.
var keywords = map[string]bool{
	"class":       true,
	"constructor": true,
	"function":    true,
	"method":      true,
	"field":       true,
	"static":      true,
	"var":         true,
	"int":         true,
	"char":        true,
	"boolean":     true,
	"void":        true,
	"true":        true,
	"false":       true,
	"null":        true,
	"this":        true,
	"let":         true,
	"do":          true,
	"if":          true,
	"else":        true,
	"while":       true,
	"return":      true,
}

// IsKeyword reports whether s is a reserved word.
func IsKeyword(s string) bool {
	return keywords[s]
}

// IsSymbolChar reports whether r is one of the single-character symbols.
func IsSymbolChar(r rune) bool {
	switch r {
	case '{', '}', '(', ')', '[', ']', '.', ',', ';',
		'+', '-', '*', '/', '&', '|', '<', '>', '=', '~':
		return true
	}
	return false
}

// isBinaryOp reports whether a symbol is an infix operator.
func isBinaryOp(s string) bool {
	switch s {
	case "+", "-", "*", "/", "&", "|", "<", ">", "=":
		return true
	}
	return false
}

// isUnaryOp reports whether a symbol is a prefix operator.
func isUnaryOp(s string) bool {
	return s == "-" || s == "~"
}

// MaxIntegerConstant is the largest integer literal the language allows.
const MaxIntegerConstant = 32767
