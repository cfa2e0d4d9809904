package compiler

import (
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics on arbitrary input.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	seeds := []string{
		// Symbols
		`{}()[].,;+-*/&|<>=~`,
		// Integers
		`0`, `42`, `32767`, `32768`, `007`,
		// Strings
		`"hello"`, `""`, `"unterminated`, "\"split\nline\"",
		// Identifiers and keywords
		`foo`, `_x1`, `class`, `while`, `classy`,
		// Comments
		`// line`, `/* block */ x`, "/** doc\n * more\n */", `/* open`, `/*/`, `/**/`,
		// Statements
		`let a[i] = b + 1;`, `do Output.printInt(1 + 2);`,
		// Junk
		`#`, `$`, `'single'`, "\x00\xff", `café`,
		// Empty and whitespace
		``, "   ", "\t\n\r\n",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("lexer panicked on input %q: %v", data, r)
			}
		}()

		l := NewLexerString(data)
		for i := 0; i < len(data)+100; i++ {
			tok, err := l.NextToken()
			if err != nil || tok.Type == TokenEOF {
				break
			}
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzParser: ensure the parser never panics on arbitrary input.
// Parse errors are acceptable; panics are not.
// ---------------------------------------------------------------------------

func FuzzParser(f *testing.F) {
	seeds := []string{
		`class A {}`,
		`class A { field int x; }`,
		`class A { function void f() { return; } }`,
		`class A { method int f(int a) { return a + 1; } }`,
		`class A { function void f() { let x = ; } }`,
		`class A { function void f() { do ; } }`,
		`class A { function void f() { if (1) { } else { } } }`,
		`class A { function void f() { while (~x) { } } }`,
		`class A { function void f() { return a[b[c]]; } }`,
		`class A { function void f() { return ((((1)))); } }`,
		`class A { function void f() { return x.y.z; } }`,
		`class`, `class {`, `class A { function`, `}`,
		squareSource,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parser panicked on input %q: %v", data, r)
			}
		}()
		_, _ = ParseString(data)
	})
}

// ---------------------------------------------------------------------------
// FuzzCompile: anything that parses must generate without panicking and
// survive a format round trip.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	seeds := []string{
		`class Main { function void main() { do Output.printInt(1+2); return; } }`,
		`class A { field int x; constructor A new() { let x = 0; return this; } }`,
		`class A { function int f(Array a) { let a[0] = a[1] - a[2]; return a[0]; } }`,
		`class A { function void f() { let B = 1; return; } }`,
		`class A { method void f() { while (true) { if (false) { } } return; } }`,
		squareSource,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("compile panicked on input %q: %v", data, r)
			}
		}()

		for _, order := range []OperatorOrder{OrderLeftToRight, OrderDeferred} {
			_, _ = CompileString("Fuzz", data, WithOperatorOrder(order))
		}

		class, err := ParseString(data)
		if err != nil {
			return
		}
		again, err := ParseString(Format(class.Tree))
		if err != nil {
			t.Fatalf("formatted source does not parse: %v", err)
		}
		if !Equal(class.Tree, again.Tree) {
			t.Fatalf("round trip changed the tree for %q", data)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzSemantic: the analyzer must accept every tree the parser produces.
// ---------------------------------------------------------------------------

func FuzzSemantic(f *testing.F) {
	seeds := []string{
		`class A { function void f() { return; return; } }`,
		`class A { function int f() { if (1) { return 1; } else { } } }`,
		`class A { function void f() { var int a, b; let a = this; } }`,
		squareSource,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("analyzer panicked on input %q: %v", data, r)
			}
		}()
		class, err := ParseString(data)
		if err != nil {
			return
		}
		_ = Analyze(class)
	})
}
