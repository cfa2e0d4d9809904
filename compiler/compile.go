package compiler

import (
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// Compile: one source unit in, one instruction stream out
// ---------------------------------------------------------------------------

// Unit is the result of compiling a single class.
type Unit struct {
	Name         string // unit name, normally the source file stem
	Class        *Class
	Instructions []Instruction
	Tokens       []Token
}

// WriteTo renders the unit's VM text.
func (u *Unit) WriteTo(w io.Writer) (int64, error) {
	return writeInstructions(w, u.Instructions)
}

// String returns the VM text.
func (u *Unit) String() string {
	return FormatInstructions(u.Instructions)
}

// Compile lexes, parses and generates one unit. Instructions are buffered
// privately and returned only when every stage succeeds; any failure is
// wrapped in a UnitError and no Unit is returned.
func Compile(name string, r io.Reader, opts ...GeneratorOption) (*Unit, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, &UnitError{Unit: name, Err: fmt.Errorf("read source: %w", err)}
	}
	return CompileString(name, string(src), opts...)
}

// CompileString is Compile over an in-memory source.
func CompileString(name, src string, opts ...GeneratorOption) (*Unit, error) {
	class, tokens, err := ParseStringTokens(src)
	if err != nil {
		return nil, &UnitError{Unit: name, Err: err}
	}

	w := NewWriter()
	if err := NewGenerator(w, opts...).GenerateClass(class); err != nil {
		return nil, &UnitError{Unit: name, Err: err}
	}

	return &Unit{
		Name:         name,
		Class:        class,
		Instructions: w.Instructions(),
		Tokens:       tokens,
	}, nil
}
