package compiler

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// XML dumps of the token stream (FooT.xml) and parse tree (Foo.xml)
// ---------------------------------------------------------------------------

// WriteTokensXML writes tokens as a flat <tokens> document.
func WriteTokensXML(w io.Writer, tokens []Token) error {
	x := &xmlWriter{w: bufio.NewWriter(w)}
	x.open("tokens")
	for _, tok := range tokens {
		if tok.Type == TokenEOF {
			continue
		}
		x.leaf(tok.Type.String(), tok.Literal)
	}
	x.close("tokens")
	return x.flush()
}

// WriteXML writes a parse tree. Composite nodes become elements named after
// their production; identifiers carry their binding as child elements.
func WriteXML(w io.Writer, n Node) error {
	x := &xmlWriter{w: bufio.NewWriter(w)}
	x.node(n)
	return x.flush()
}

type xmlWriter struct {
	w     *bufio.Writer
	depth int
	err   error
}

func (x *xmlWriter) printf(format string, args ...any) {
	if x.err != nil {
		return
	}
	_, x.err = fmt.Fprintf(x.w, "%s"+format, append([]any{strings.Repeat("  ", x.depth)}, args...)...)
}

func (x *xmlWriter) open(tag string) {
	x.printf("<%s>\n", tag)
	x.depth++
}

func (x *xmlWriter) close(tag string) {
	x.depth--
	x.printf("</%s>\n", tag)
}

// leaf writes <tag> text </tag> with the text escaped.
func (x *xmlWriter) leaf(tag, text string) {
	x.printf("<%s> %s </%s>\n", tag, escape(text), tag)
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.w.Flush()
}

func (x *xmlWriter) node(n Node) {
	switch v := n.(type) {
	case *Terminal:
		x.leaf(v.Token.Type.String(), v.Token.Literal)
	case *IdentifierRef:
		x.open("identifier")
		x.leaf("name", v.Name)
		x.leaf("kind", v.Kind.String())
		x.leaf("type", v.Type)
		x.leaf("index", strconv.Itoa(v.Index))
		x.leaf("declared", strconv.FormatBool(v.Declared))
		x.close("identifier")
	case *Composite:
		tag := v.Production.String()
		x.open(tag)
		for _, c := range v.Children {
			x.node(c)
		}
		x.close(tag)
	}
}

func escape(s string) string {
	var sb strings.Builder
	// EscapeText only fails when the underlying writer does.
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
