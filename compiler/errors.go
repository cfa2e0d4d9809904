package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error taxonomy. Every error aborts the compilation unit; there is no
// recovery and no partial output.
// ---------------------------------------------------------------------------

// LexError reports input that matches none of the lexical classes.
type LexError struct {
	Pos    Position
	Text   string // offending input, truncated
	Reason string
}

func (e *LexError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %q", e.Pos, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: unrecognized input %q", e.Pos, e.Text)
}

// ParseError reports a token that does not match the grammar.
type ParseError struct {
	ExpectedKind   TokenType
	ExpectedValues []string // empty when any literal of ExpectedKind is accepted
	Actual         Token
}

func (e *ParseError) Error() string {
	var want string
	switch len(e.ExpectedValues) {
	case 0:
		want = e.ExpectedKind.String()
	case 1:
		want = fmt.Sprintf("%s %q", e.ExpectedKind, e.ExpectedValues[0])
	default:
		quoted := make([]string, len(e.ExpectedValues))
		for i, v := range e.ExpectedValues {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		want = fmt.Sprintf("%s %s", e.ExpectedKind, strings.Join(quoted, " or "))
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Actual.Pos, want, e.Actual)
}

// TrailingTokensError reports input remaining after the class closes.
type TrailingTokensError struct {
	Token Token
}

func (e *TrailingTokensError) Error() string {
	return fmt.Sprintf("%s: only one class may be defined per unit, found trailing %s", e.Token.Pos, e.Token)
}

// RedeclarationError reports a name declared twice in the same scope.
type RedeclarationError struct {
	Pos      Position
	Name     string
	Previous Symbol
}

func (e *RedeclarationError) Error() string {
	return fmt.Sprintf("%s: %q already declared as %s %s", e.Pos, e.Name, e.Previous.Kind, e.Previous.Type)
}

// CodegenError reports a name that cannot be lowered, such as a class name
// used where a value is required.
type CodegenError struct {
	Subroutine string
	Pos        Position
	Name       string
	Reason     string
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("%s: in %s: %s %q", e.Pos, e.Subroutine, e.Reason, e.Name)
}

// UnitError attaches the compilation unit name to any of the errors above.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// ErrorPosition extracts the source position carried by a compiler error.
func ErrorPosition(err error) (Position, bool) {
	for err != nil {
		switch e := err.(type) {
		case *LexError:
			return e.Pos, true
		case *ParseError:
			return e.Actual.Pos, true
		case *TrailingTokensError:
			return e.Token.Pos, true
		case *RedeclarationError:
			return e.Pos, true
		case *CodegenError:
			return e.Pos, true
		case interface{ Unwrap() error }:
			err = e.Unwrap()
		default:
			return Position{}, false
		}
	}
	return Position{}, false
}
