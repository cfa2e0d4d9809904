package compiler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: line-buffered tokenizer for Jack source
// ---------------------------------------------------------------------------

// Lexer converts source text into a lazy sequence of tokens. It holds one
// physical line at a time and refills from the reader when the line is
// exhausted.
type Lexer struct {
	reader *bufio.Reader
	line   string // current physical line without its terminator
	lineNo int    // 1-based number of line
	pos    int    // byte offset into line
	eof    bool   // reader exhausted

	inComment    bool     // inside a /* ... */ block spanning lines
	commentStart Position // where the open block comment began

	peeked *Token
	err    error // first error; sticky

	keep   bool
	tokens []Token // consumed tokens, when keep is set
}

// NewLexer creates a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// NewLexerString creates a lexer over an in-memory source.
func NewLexerString(src string) *Lexer {
	return NewLexer(strings.NewReader(src))
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked == nil {
		tok, err := l.scan()
		if err != nil {
			return Token{}, err
		}
		l.peeked = &tok
	}
	return *l.peeked, nil
}

// NextToken returns the next token and advances. At end of input it keeps
// returning a TokenEOF token.
func (l *Lexer) NextToken() (Token, error) {
	tok, err := l.Peek()
	if err != nil {
		return Token{}, err
	}
	if tok.Type != TokenEOF {
		l.peeked = nil
		if l.keep {
			l.tokens = append(l.tokens, tok)
		}
	}
	return tok, nil
}

// KeepTokens makes the lexer remember every token it hands out.
func (l *Lexer) KeepTokens() {
	l.keep = true
}

// Tokens returns the tokens consumed since KeepTokens.
func (l *Lexer) Tokens() []Token {
	return l.tokens
}

// position returns the location of the current read offset.
func (l *Lexer) position() Position {
	return Position{Line: l.lineNo, Column: l.pos + 1}
}

// scan produces the next token, refilling the line buffer as needed.
func (l *Lexer) scan() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}

	for {
		l.skipWhitespaceAndComments()
		if l.pos < len(l.line) {
			break
		}
		if l.eof {
			if l.inComment {
				l.err = &LexError{Pos: l.commentStart, Text: "/*", Reason: "unterminated comment"}
				return Token{}, l.err
			}
			return Token{Type: TokenEOF, Pos: l.position()}, nil
		}
		if err := l.readLine(); err != nil {
			l.err = err
			return Token{}, err
		}
	}

	tok, err := l.readToken()
	if err != nil {
		l.err = err
		return Token{}, err
	}
	return tok, nil
}

// readLine loads the next physical line into the buffer.
func (l *Lexer) readLine() error {
	text, err := l.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("read line %d: %w", l.lineNo+1, err)
		}
		l.eof = true
	}
	l.pos = 0
	if text == "" && l.eof {
		l.line = ""
		return nil
	}
	l.lineNo++
	l.line = strings.TrimRight(text, "\r\n")
	return nil
}

// skipWhitespaceAndComments advances past blanks, // comments and /* */
// comments on the current line. An unclosed block comment consumes the
// rest of the line and carries over to the next one.
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.line) {
		if l.inComment {
			end := strings.Index(l.line[l.pos:], "*/")
			if end < 0 {
				l.pos = len(l.line)
				return
			}
			l.pos += end + 2
			l.inComment = false
			continue
		}

		rest := l.line[l.pos:]
		switch {
		case isSpace(rest[0]):
			l.pos++
		case strings.HasPrefix(rest, "//"):
			l.pos = len(l.line)
		case strings.HasPrefix(rest, "/*"):
			l.commentStart = l.position()
			l.inComment = true
			l.pos += 2
		default:
			return
		}
	}
}

// readToken scans one token at the current offset. Priority: symbol,
// integer, string, identifier/keyword.
func (l *Lexer) readToken() (Token, error) {
	pos := l.position()
	rest := l.line[l.pos:]
	ch := rest[0]

	switch {
	case IsSymbolChar(rune(ch)):
		l.pos++
		return Token{Type: TokenSymbol, Literal: string(ch), Pos: pos}, nil

	case isDigit(ch):
		n := 1
		for n < len(rest) && isDigit(rest[n]) {
			n++
		}
		lit := rest[:n]
		if v, err := strconv.Atoi(lit); err != nil || v > MaxIntegerConstant {
			return Token{}, &LexError{Pos: pos, Text: lit, Reason: "integer constant out of range"}
		}
		l.pos += n
		return Token{Type: TokenIntegerConstant, Literal: lit, Pos: pos}, nil

	case ch == '"':
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return Token{}, &LexError{Pos: pos, Text: clip(rest), Reason: "unterminated string constant"}
		}
		l.pos += end + 2
		return Token{Type: TokenStringConstant, Literal: rest[1 : end+1], Pos: pos}, nil

	case isIdentStart(ch):
		n := 1
		for n < len(rest) && isIdentPart(rest[n]) {
			n++
		}
		lit := rest[:n]
		l.pos += n
		if IsKeyword(lit) {
			return Token{Type: TokenKeyword, Literal: lit, Pos: pos}, nil
		}
		return Token{Type: TokenIdentifier, Literal: lit, Pos: pos}, nil
	}

	return Token{}, &LexError{Pos: pos, Text: clip(rest)}
}

// Helper functions

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// clip shortens offending input for error messages.
func clip(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// Tokenize returns all tokens of src, excluding the trailing EOF token.
func Tokenize(src string) ([]Token, error) {
	l := NewLexerString(src)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
