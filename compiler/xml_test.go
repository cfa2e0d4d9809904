package compiler

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
)

func TestWriteTokensXML(t *testing.T) {
	tokens, err := Tokenize(`if (x < 1) { let s = "a&b"; }`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteTokensXML(&buf, tokens); err != nil {
		t.Fatalf("WriteTokensXML: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<tokens>\n",
		"  <keyword> if </keyword>\n",
		"  <symbol> &lt; </symbol>\n",
		"  <integerConstant> 1 </integerConstant>\n",
		"  <stringConstant> a&amp;b </stringConstant>\n",
		"</tokens>\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestWriteXMLWellFormed(t *testing.T) {
	class := mustParse(t, squareSource)
	var buf bytes.Buffer
	if err := WriteXML(&buf, class.Tree); err != nil {
		t.Fatalf("WriteXML: %v", err)
	}

	dec := xml.NewDecoder(&buf)
	depth, maxDepth, elements := 0, 0, 0
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			elements++
			if depth > maxDepth {
				maxDepth = depth
			}
		case xml.EndElement:
			depth--
		}
	}
	if depth != 0 {
		t.Errorf("unbalanced document, final depth %d", depth)
	}
	if elements < 100 || maxDepth < 8 {
		t.Errorf("document too small: %d elements, depth %d", elements, maxDepth)
	}
}

func TestWriteXMLIdentifier(t *testing.T) {
	class := mustParse(t, `class A { field int x; method int f() { return x; } }`)
	var buf bytes.Buffer
	if err := WriteXML(&buf, class.Tree); err != nil {
		t.Fatalf("WriteXML: %v", err)
	}
	want := `<identifier>
                <name> x </name>
                <kind> field </kind>
                <type> int </type>
                <index> 0 </index>
                <declared> false </declared>
              </identifier>`
	if !strings.Contains(buf.String(), want) {
		t.Errorf("identifier element not found\n%s", buf.String())
	}
	if !strings.HasPrefix(buf.String(), "<class>\n  <keyword> class </keyword>\n") {
		t.Errorf("unexpected document start\n%s", buf.String())
	}
}
