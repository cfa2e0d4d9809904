package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Codegen: lower a parsed class to VM instructions
// ---------------------------------------------------------------------------

// OperatorOrder controls when binary operators are emitted relative to
// their operands.
type OperatorOrder int

const (
	// OrderLeftToRight emits each operator right after its right operand,
	// so a - b - c evaluates as (a - b) - c.
	OrderLeftToRight OperatorOrder = iota

	// OrderDeferred pushes every operand first and then applies the
	// operators last-in first-out. Kept for byte-compatibility with output
	// produced by older toolchains.
	OrderDeferred
)

func (o OperatorOrder) String() string {
	if o == OrderDeferred {
		return "deferred"
	}
	return "left-to-right"
}

// ParseOperatorOrder accepts the names produced by OperatorOrder.String.
// The empty string selects the default.
func ParseOperatorOrder(s string) (OperatorOrder, error) {
	switch s {
	case "", "left-to-right":
		return OrderLeftToRight, nil
	case "deferred":
		return OrderDeferred, nil
	}
	return OrderLeftToRight, fmt.Errorf("unknown operator order %q (want left-to-right or deferred)", s)
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithOperatorOrder selects the binary operator emission order.
func WithOperatorOrder(order OperatorOrder) GeneratorOption {
	return func(g *Generator) {
		g.order = order
	}
}

// Generator walks a parsed class and emits instructions to a Writer.
type Generator struct {
	out   *Writer
	order OperatorOrder

	// Current subroutine context
	class      *Class
	sub        *Subroutine
	ifCount    int
	whileCount int
}

// NewGenerator creates a generator emitting into out.
func NewGenerator(out *Writer, opts ...GeneratorOption) *Generator {
	g := &Generator{out: out}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateClass emits every subroutine of c in declaration order.
func (g *Generator) GenerateClass(c *Class) error {
	for _, sub := range c.Subroutines {
		if err := g.GenerateSubroutine(c, sub); err != nil {
			return err
		}
	}
	return nil
}

// GenerateSubroutine emits one subroutine: header, prologue and body.
// Label counters restart at zero for every subroutine.
func (g *Generator) GenerateSubroutine(c *Class, sub *Subroutine) error {
	g.class = c
	g.sub = sub
	g.ifCount = 0
	g.whileCount = 0

	g.out.WriteFunction(c.Name+"."+sub.Name, sub.LocalCount())

	switch sub.Kind {
	case SubConstructor:
		g.out.WritePush(SegConstant, c.FieldCount())
		g.out.WriteCall("Memory.alloc", 1)
		g.out.WritePop(SegPointer, 0)
	case SubMethod:
		g.out.WritePush(SegArgument, 0)
		g.out.WritePop(SegPointer, 0)
	}

	return g.statements(sub.Body.Find(ProdStatements))
}

// errorf builds a CodegenError located at n.
func (g *Generator) errorf(n Node, name, reason string) error {
	qualified := ""
	if g.class != nil && g.sub != nil {
		qualified = g.class.Name + "." + g.sub.Name
	}
	return &CodegenError{Subroutine: qualified, Pos: n.Pos(), Name: name, Reason: reason}
}

// variable returns the segment and index of a variable reference.
func (g *Generator) variable(ref *IdentifierRef) (Segment, int, error) {
	seg, ok := ref.Kind.Segment()
	if !ok {
		return SegInvalid, 0, g.errorf(ref, ref.Name, "undeclared variable")
	}
	return seg, ref.Index, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) statements(n *Composite) error {
	if n == nil {
		return nil
	}
	for _, child := range n.Children {
		stmt, ok := child.(*Composite)
		if !ok {
			continue
		}
		var err error
		switch stmt.Production {
		case ProdLetStatement:
			err = g.letStatement(stmt)
		case ProdIfStatement:
			err = g.ifStatement(stmt)
		case ProdWhileStatement:
			err = g.whileStatement(stmt)
		case ProdDoStatement:
			err = g.doStatement(stmt)
		case ProdReturnStatement:
			err = g.returnStatement(stmt)
		default:
			err = fmt.Errorf("%s: unexpected %s in statements", stmt.Pos(), stmt.Production)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// letStatement children: let name ([ index ])? = value ;
func (g *Generator) letStatement(n *Composite) error {
	ref := n.Children[1].(*IdentifierRef)
	seg, idx, err := g.variable(ref)
	if err != nil {
		return err
	}

	if open, ok := n.Children[2].(*Terminal); ok && open.Is(TokenSymbol, "[") {
		if err := g.expression(n.Children[3].(*Composite)); err != nil {
			return err
		}
		g.out.WritePush(seg, idx)
		g.out.WriteArithmetic(CmdAdd)
		if err := g.expression(n.Children[6].(*Composite)); err != nil {
			return err
		}
		g.out.WritePop(SegTemp, 0)
		g.out.WritePop(SegPointer, 1)
		g.out.WritePush(SegTemp, 0)
		g.out.WritePop(SegThat, 0)
		return nil
	}

	if err := g.expression(n.Children[3].(*Composite)); err != nil {
		return err
	}
	g.out.WritePop(seg, idx)
	return nil
}

// ifStatement children: if ( cond ) { then } (else { otherwise })?
func (g *Generator) ifStatement(n *Composite) error {
	id := g.ifCount
	g.ifCount++
	trueLabel := fmt.Sprintf("IF_TRUE%d", id)
	falseLabel := fmt.Sprintf("IF_FALSE%d", id)
	endLabel := fmt.Sprintf("IF_END%d", id)

	if err := g.expression(n.Children[2].(*Composite)); err != nil {
		return err
	}
	g.out.WriteIf(trueLabel)
	g.out.WriteGoto(falseLabel)
	g.out.WriteLabel(trueLabel)
	if err := g.statements(n.Children[5].(*Composite)); err != nil {
		return err
	}

	if len(n.Children) > 7 {
		g.out.WriteGoto(endLabel)
		g.out.WriteLabel(falseLabel)
		if err := g.statements(n.Children[9].(*Composite)); err != nil {
			return err
		}
		g.out.WriteLabel(endLabel)
		return nil
	}

	g.out.WriteLabel(falseLabel)
	return nil
}

// whileStatement children: while ( cond ) { body }
func (g *Generator) whileStatement(n *Composite) error {
	id := g.whileCount
	g.whileCount++
	expLabel := fmt.Sprintf("WHILE_EXP%d", id)
	endLabel := fmt.Sprintf("WHILE_END%d", id)

	g.out.WriteLabel(expLabel)
	if err := g.expression(n.Children[2].(*Composite)); err != nil {
		return err
	}
	g.out.WriteArithmetic(CmdNot)
	g.out.WriteIf(endLabel)
	if err := g.statements(n.Children[5].(*Composite)); err != nil {
		return err
	}
	g.out.WriteGoto(expLabel)
	g.out.WriteLabel(endLabel)
	return nil
}

// doStatement children: do call... ;
func (g *Generator) doStatement(n *Composite) error {
	if err := g.call(n.Children[1 : len(n.Children)-1]); err != nil {
		return err
	}
	g.out.WritePop(SegTemp, 0)
	return nil
}

// returnStatement children: return value? ;
func (g *Generator) returnStatement(n *Composite) error {
	if value, ok := n.Children[1].(*Composite); ok {
		if err := g.expression(value); err != nil {
			return err
		}
	} else {
		g.out.WritePush(SegConstant, 0)
	}
	g.out.WriteReturn()
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// expression children: term (op term)*
func (g *Generator) expression(n *Composite) error {
	if err := g.term(n.Children[0].(*Composite)); err != nil {
		return err
	}

	var pending []string
	for i := 1; i+1 < len(n.Children); i += 2 {
		op := n.Children[i].(*Terminal).Token.Literal
		if err := g.term(n.Children[i+1].(*Composite)); err != nil {
			return err
		}
		if g.order == OrderDeferred {
			pending = append(pending, op)
			continue
		}
		g.binaryOp(op)
	}
	for i := len(pending) - 1; i >= 0; i-- {
		g.binaryOp(pending[i])
	}
	return nil
}

func (g *Generator) binaryOp(op string) {
	if cmd, ok := binaryCommands[op]; ok {
		g.out.WriteArithmetic(cmd)
		return
	}
	g.out.WriteCall(binaryCalls[op], 2)
}

func (g *Generator) term(n *Composite) error {
	switch first := n.Children[0].(type) {
	case *Terminal:
		return g.terminalTerm(n, first)
	case *IdentifierRef:
		if len(n.Children) == 1 {
			seg, idx, err := g.variable(first)
			if err != nil {
				return err
			}
			g.out.WritePush(seg, idx)
			return nil
		}
		if open, ok := n.Children[1].(*Terminal); ok && open.Is(TokenSymbol, "[") {
			return g.arrayRead(first, n.Children[2].(*Composite))
		}
		return g.call(n.Children)
	}
	return fmt.Errorf("%s: malformed term", n.Pos())
}

func (g *Generator) terminalTerm(n *Composite, t *Terminal) error {
	tok := t.Token
	switch tok.Type {
	case TokenIntegerConstant:
		v, err := strconv.Atoi(tok.Literal)
		if err != nil {
			return fmt.Errorf("%s: integer constant %q: %w", tok.Pos, tok.Literal, err)
		}
		g.out.WritePush(SegConstant, v)

	case TokenStringConstant:
		g.stringConstant(tok.Literal)

	case TokenKeyword:
		switch tok.Literal {
		case "true":
			g.out.WritePush(SegConstant, 0)
			g.out.WriteArithmetic(CmdNot)
		case "false", "null":
			g.out.WritePush(SegConstant, 0)
		case "this":
			g.out.WritePush(SegPointer, 0)
		}

	case TokenSymbol:
		if tok.Literal == "(" {
			return g.expression(n.Children[1].(*Composite))
		}
		if err := g.term(n.Children[1].(*Composite)); err != nil {
			return err
		}
		g.out.WriteArithmetic(unaryCommands[tok.Literal])
	}
	return nil
}

func (g *Generator) stringConstant(s string) {
	chars := []rune(s)
	g.out.WritePush(SegConstant, len(chars))
	g.out.WriteCall("String.new", 1)
	for _, ch := range chars {
		g.out.WritePush(SegConstant, int(ch))
		g.out.WriteCall("String.appendChar", 2)
	}
}

// arrayRead emits base[index] as an rvalue.
func (g *Generator) arrayRead(base *IdentifierRef, index *Composite) error {
	seg, idx, err := g.variable(base)
	if err != nil {
		return err
	}
	if err := g.expression(index); err != nil {
		return err
	}
	g.out.WritePush(seg, idx)
	g.out.WriteArithmetic(CmdAdd)
	g.out.WritePop(SegPointer, 1)
	g.out.WritePush(SegThat, 0)
	return nil
}

// call emits a subroutine call from its inline parts:
//
//	name ( args )
//	receiver . name ( args )
func (g *Generator) call(parts []Node) error {
	if dot, ok := parts[1].(*Terminal); ok && dot.Is(TokenSymbol, ".") {
		recv := parts[0].(*IdentifierRef)
		name := parts[2].(*IdentifierRef).Name
		args := parts[4].(*Composite)

		if recv.Kind.IsVariable() {
			seg, idx, err := g.variable(recv)
			if err != nil {
				return err
			}
			g.out.WritePush(seg, idx)
			n, err := g.expressionList(args)
			if err != nil {
				return err
			}
			g.out.WriteCall(recv.Type+"."+name, n+1)
			return nil
		}

		n, err := g.expressionList(args)
		if err != nil {
			return err
		}
		g.out.WriteCall(recv.Name+"."+name, n)
		return nil
	}

	// Unqualified call: a method on the current object.
	name := parts[0].(*IdentifierRef).Name
	g.out.WritePush(SegPointer, 0)
	n, err := g.expressionList(parts[2].(*Composite))
	if err != nil {
		return err
	}
	g.out.WriteCall(g.class.Name+"."+name, n+1)
	return nil
}

// expressionList emits each argument and returns how many there were.
func (g *Generator) expressionList(n *Composite) (int, error) {
	count := 0
	for _, child := range n.Children {
		expr, ok := child.(*Composite)
		if !ok {
			continue
		}
		if err := g.expression(expr); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
