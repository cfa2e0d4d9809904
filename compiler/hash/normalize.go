package hash

import (
	"fmt"
	"strconv"

	"github.com/chazu/jackc/compiler"
)

// ---------------------------------------------------------------------------
// Normalization: compiler syntax tree → frozen hashing tree
//
// Positions are discarded and variable names are replaced by their kind
// and index. Class and subroutine names are kept verbatim since they appear
// in the generated code.
// ---------------------------------------------------------------------------

var productionBytes = map[compiler.Production]byte{
	compiler.ProdClass:           ProdClass,
	compiler.ProdClassVarDec:     ProdClassVarDec,
	compiler.ProdSubroutineDec:   ProdSubroutineDec,
	compiler.ProdParameterList:   ProdParameterList,
	compiler.ProdSubroutineBody:  ProdSubroutineBody,
	compiler.ProdVarDec:          ProdVarDec,
	compiler.ProdStatements:      ProdStatements,
	compiler.ProdLetStatement:    ProdLetStatement,
	compiler.ProdIfStatement:     ProdIfStatement,
	compiler.ProdWhileStatement:  ProdWhileStatement,
	compiler.ProdDoStatement:     ProdDoStatement,
	compiler.ProdReturnStatement: ProdReturnStatement,
	compiler.ProdExpression:      ProdExpression,
	compiler.ProdExpressionList:  ProdExpressionList,
	compiler.ProdTerm:            ProdTerm,
}

var kindBytes = map[compiler.Kind]byte{
	compiler.KindStatic:   VarStatic,
	compiler.KindField:    VarField,
	compiler.KindArgument: VarArgument,
	compiler.KindLocal:    VarLocal,
}

// Normalize transforms a compiler tree into a frozen hashing tree. It
// panics on a node variant it does not know, which would mean the compiler
// grew a variant without a frozen encoding.
func Normalize(node compiler.Node) HNode {
	switch n := node.(type) {
	case *compiler.Terminal:
		return normalizeTerminal(n.Token)

	case *compiler.IdentifierRef:
		if kb, ok := kindBytes[n.Kind]; ok {
			return &HVarRef{Kind: kb, Index: uint16(n.Index), Type: n.Type, Declared: n.Declared}
		}
		if n.Kind == compiler.KindSubroutine {
			return &HSubroutineRef{Name: n.Name, Type: n.Type, Declared: n.Declared}
		}
		return &HClassRef{Name: n.Name, Declared: n.Declared}

	case *compiler.Composite:
		prod, ok := productionBytes[n.Production]
		if !ok {
			panic(fmt.Sprintf("hash: no frozen encoding for production %s", n.Production))
		}
		children := make([]HNode, len(n.Children))
		for i, c := range n.Children {
			children[i] = Normalize(c)
		}
		return &HComposite{Production: prod, Children: children}
	}
	panic(fmt.Sprintf("hash: unknown node type %T", node))
}

func normalizeTerminal(tok compiler.Token) HNode {
	switch tok.Type {
	case compiler.TokenKeyword:
		return &HKeyword{Word: tok.Literal}
	case compiler.TokenSymbol:
		return &HSymbol{Char: tok.Literal}
	case compiler.TokenIntegerConstant:
		// The lexer only produces digit strings in range.
		v, _ := strconv.ParseInt(tok.Literal, 10, 64)
		return &HIntConst{Value: v}
	case compiler.TokenStringConstant:
		return &HStringConst{Value: tok.Literal}
	}
	panic(fmt.Sprintf("hash: unexpected terminal %s", tok))
}
