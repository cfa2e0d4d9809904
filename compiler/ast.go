package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Syntax tree: a closed set of node variants
// ---------------------------------------------------------------------------

// Node is implemented by *Terminal, *Composite and *IdentifierRef only.
type Node interface {
	Pos() Position
	node() // marker method
}

// Production names a grammar rule.
type Production int

const (
	ProdClass Production = iota
	ProdClassVarDec
	ProdSubroutineDec
	ProdParameterList
	ProdSubroutineBody
	ProdVarDec
	ProdStatements
	ProdLetStatement
	ProdIfStatement
	ProdWhileStatement
	ProdDoStatement
	ProdReturnStatement
	ProdExpression
	ProdExpressionList
	ProdTerm
)

var productionNames = [...]string{
	ProdClass:           "class",
	ProdClassVarDec:     "classVarDec",
	ProdSubroutineDec:   "subroutineDec",
	ProdParameterList:   "parameterList",
	ProdSubroutineBody:  "subroutineBody",
	ProdVarDec:          "varDec",
	ProdStatements:      "statements",
	ProdLetStatement:    "letStatement",
	ProdIfStatement:     "ifStatement",
	ProdWhileStatement:  "whileStatement",
	ProdDoStatement:     "doStatement",
	ProdReturnStatement: "returnStatement",
	ProdExpression:      "expression",
	ProdExpressionList:  "expressionList",
	ProdTerm:            "term",
}

func (p Production) String() string {
	if p >= 0 && int(p) < len(productionNames) {
		return productionNames[p]
	}
	return fmt.Sprintf("Production(%d)", int(p))
}

// Terminal wraps a keyword, symbol or constant token.
type Terminal struct {
	Token Token
}

func (n *Terminal) Pos() Position { return n.Token.Pos }
func (n *Terminal) node()         {}

// Is reports whether the terminal holds the given token.
func (n *Terminal) Is(typ TokenType, lit string) bool {
	return n.Token.Is(typ, lit)
}

// Composite is one grammar production with its children in source order.
type Composite struct {
	Production Production
	Children   []Node
	Start      Position
}

func (n *Composite) Pos() Position { return n.Start }
func (n *Composite) node()         {}

// Len returns the number of children.
func (n *Composite) Len() int { return len(n.Children) }

// Child returns the i-th child, or nil when out of range.
func (n *Composite) Child(i int) Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Find returns the first child composite with production p.
func (n *Composite) Find(p Production) *Composite {
	for _, c := range n.Children {
		if comp, ok := c.(*Composite); ok && comp.Production == p {
			return comp
		}
	}
	return nil
}

// IdentifierRef is an identifier with its resolved binding.
type IdentifierRef struct {
	Name     string
	Kind     Kind
	Type     string
	Index    int
	Declared bool // true where the name is declared, false at a use
	At       Position
}

func (n *IdentifierRef) Pos() Position { return n.At }
func (n *IdentifierRef) node()         {}

// newComposite builds a composite, taking its position from the first child.
func newComposite(p Production, start Position, children []Node) *Composite {
	if len(children) > 0 {
		start = children[0].Pos()
	}
	return &Composite{Production: p, Children: children, Start: start}
}

// Walk calls fn for n and every descendant in source order. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if comp, ok := n.(*Composite); ok {
		for _, c := range comp.Children {
			Walk(c, fn)
		}
	}
}

// Equal reports whether two trees are isomorphic: same variants, same
// productions, same token text and bindings. Positions are ignored.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Terminal:
		y, ok := b.(*Terminal)
		return ok && x.Token.Type == y.Token.Type && x.Token.Literal == y.Token.Literal
	case *IdentifierRef:
		y, ok := b.(*IdentifierRef)
		return ok && x.Name == y.Name && x.Kind == y.Kind && x.Type == y.Type &&
			x.Index == y.Index && x.Declared == y.Declared
	case *Composite:
		y, ok := b.(*Composite)
		if !ok || x.Production != y.Production || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Children {
			if !Equal(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Parse results
// ---------------------------------------------------------------------------

// SubroutineKind distinguishes constructors, functions and methods.
type SubroutineKind int

const (
	SubFunction SubroutineKind = iota
	SubConstructor
	SubMethod
)

func (k SubroutineKind) String() string {
	switch k {
	case SubConstructor:
		return "constructor"
	case SubMethod:
		return "method"
	}
	return "function"
}

// Subroutine is one parsed subroutine together with its private scope.
type Subroutine struct {
	Name       string
	Kind       SubroutineKind
	ReturnType string
	Decl       *Composite // subroutineDec
	Body       *Composite // subroutineBody
	Scope      *Scope     // arguments and locals, fully populated
}

// LocalCount is the number of var declarations in the subroutine.
func (s *Subroutine) LocalCount() int {
	return s.Scope.Count(KindLocal)
}

// Class is a fully parsed compilation unit.
type Class struct {
	Name        string
	Tree        *Composite
	Scope       *Scope // statics and fields
	Subroutines []*Subroutine
}

// FieldCount is the number of field declarations, which sizes instances.
func (c *Class) FieldCount() int {
	return c.Scope.Count(KindField)
}
