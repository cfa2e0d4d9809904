package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Printer: renders a syntax tree back to canonical Jack source
// ---------------------------------------------------------------------------

// Format renders n as normalized source: one declaration or statement per
// line, two spaces of indentation per block, single spaces around binary
// operators. Comments and original layout are not preserved.
func Format(n Node) string {
	f := &formatter{buf: &strings.Builder{}}
	f.node(n)
	return strings.TrimRight(f.buf.String(), "\n") + "\n"
}

// FormatSource parses src and returns its normalized form.
func FormatSource(src string) (string, error) {
	class, err := ParseString(src)
	if err != nil {
		return "", err
	}
	return Format(class.Tree), nil
}

type formatter struct {
	indent int
	buf    *strings.Builder
}

// line writes one indented line.
func (f *formatter) line(s string) {
	for i := 0; i < f.indent; i++ {
		f.buf.WriteString("  ")
	}
	f.buf.WriteString(s)
	f.buf.WriteByte('\n')
}

func (f *formatter) node(n Node) {
	comp, ok := n.(*Composite)
	if !ok {
		f.line(inline(n))
		return
	}
	switch comp.Production {
	case ProdClass:
		f.class(comp)
	case ProdClassVarDec, ProdVarDec:
		f.line(words(comp.Children))
	case ProdSubroutineDec:
		f.subroutineDec(comp)
	case ProdSubroutineBody:
		f.bodyContents(comp)
	case ProdStatements:
		f.statements(comp)
	case ProdLetStatement, ProdIfStatement, ProdWhileStatement, ProdDoStatement, ProdReturnStatement:
		f.statement(comp)
	default:
		f.line(inline(comp))
	}
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// class children: class Name { classVarDec* subroutineDec* }
func (f *formatter) class(n *Composite) {
	f.line("class " + inline(n.Children[1]) + " {")
	f.indent++
	wrote := false
	for _, child := range n.Children[3 : len(n.Children)-1] {
		dec, ok := child.(*Composite)
		if !ok {
			continue
		}
		if dec.Production == ProdSubroutineDec && wrote {
			f.buf.WriteByte('\n')
		}
		f.node(dec)
		wrote = true
	}
	f.indent--
	f.line("}")
}

// subroutineDec children: kind returnType name ( parameterList ) body
func (f *formatter) subroutineDec(n *Composite) {
	header := inline(n.Children[0]) + " " + inline(n.Children[1]) + " " +
		inline(n.Children[2]) + "(" + inline(n.Children[4]) + ") {"
	f.line(header)
	f.indent++
	f.bodyContents(n.Children[6].(*Composite))
	f.indent--
	f.line("}")
}

// bodyContents writes the var declarations and statements of a
// subroutineBody without its braces.
func (f *formatter) bodyContents(n *Composite) {
	for _, child := range n.Children {
		if comp, ok := child.(*Composite); ok {
			f.node(comp)
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (f *formatter) statements(n *Composite) {
	for _, child := range n.Children {
		if stmt, ok := child.(*Composite); ok {
			f.statement(stmt)
		}
	}
}

func (f *formatter) block(stmts Node) {
	f.indent++
	f.statements(stmts.(*Composite))
	f.indent--
}

func (f *formatter) statement(n *Composite) {
	switch n.Production {
	case ProdLetStatement:
		target := inline(n.Children[1])
		value := n.Children[3]
		if open, ok := n.Children[2].(*Terminal); ok && open.Is(TokenSymbol, "[") {
			target += "[" + inline(n.Children[3]) + "]"
			value = n.Children[6]
		}
		f.line("let " + target + " = " + inline(value) + ";")

	case ProdIfStatement:
		f.line("if (" + inline(n.Children[2]) + ") {")
		f.block(n.Children[5])
		if len(n.Children) > 7 {
			f.line("} else {")
			f.block(n.Children[9])
		}
		f.line("}")

	case ProdWhileStatement:
		f.line("while (" + inline(n.Children[2]) + ") {")
		f.block(n.Children[5])
		f.line("}")

	case ProdDoStatement:
		f.line("do " + concat(n.Children[1:len(n.Children)-1]) + ";")

	case ProdReturnStatement:
		if len(n.Children) == 3 {
			f.line("return " + inline(n.Children[1]) + ";")
		} else {
			f.line("return;")
		}
	}
}

// ---------------------------------------------------------------------------
// Inline forms
// ---------------------------------------------------------------------------

// inline renders a node on a single line.
func inline(n Node) string {
	switch x := n.(type) {
	case *Terminal:
		if x.Token.Type == TokenStringConstant {
			return `"` + x.Token.Literal + `"`
		}
		return x.Token.Literal
	case *IdentifierRef:
		return x.Name
	case *Composite:
		switch x.Production {
		case ProdExpression:
			parts := make([]string, len(x.Children))
			for i, c := range x.Children {
				parts[i] = inline(c)
			}
			return strings.Join(parts, " ")
		case ProdTerm:
			return concat(x.Children)
		default:
			return words(x.Children)
		}
	}
	return ""
}

// concat joins rendered nodes with no separator.
func concat(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(inline(n))
	}
	return sb.String()
}

// words joins rendered nodes with spaces, attaching commas and semicolons
// to the preceding word.
func words(nodes []Node) string {
	var sb strings.Builder
	for i, n := range nodes {
		s := inline(n)
		if i > 0 && s != "," && s != ";" {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	return sb.String()
}
