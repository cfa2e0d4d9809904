package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: post-parse lint checks
// ---------------------------------------------------------------------------

// Warning is a non-fatal finding. Warnings never stop code generation.
type Warning struct {
	Pos     Position
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: warning: %s", w.Pos, w.Message)
}

// SemanticAnalyzer inspects a parsed class for likely mistakes: unreachable
// statements, missing or mismatched returns, unused locals, misuse of this
// and calls on classes nobody has declared.
type SemanticAnalyzer struct {
	warnings []Warning

	// Class names that may appear as call receivers
	knownClasses map[string]bool

	class *Class
	sub   *Subroutine
}

// NewSemanticAnalyzer creates an analyzer that knows the OS classes.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{
		knownClasses: defaultKnownClasses(),
	}
}

// defaultKnownClasses returns the standard library classes every program
// links against.
func defaultKnownClasses() map[string]bool {
	return map[string]bool{
		"Array":    true,
		"Keyboard": true,
		"Math":     true,
		"Memory":   true,
		"Output":   true,
		"Screen":   true,
		"String":   true,
		"Sys":      true,
	}
}

// AddKnownClass registers a class compiled alongside the current one.
func (s *SemanticAnalyzer) AddKnownClass(name string) {
	s.knownClasses[name] = true
}

// Warnings returns accumulated findings in source order.
func (s *SemanticAnalyzer) Warnings() []Warning {
	sort.SliceStable(s.warnings, func(i, j int) bool {
		a, b := s.warnings[i].Pos, s.warnings[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return s.warnings
}

func (s *SemanticAnalyzer) warnAt(n Node, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{Pos: n.Pos(), Message: fmt.Sprintf(format, args...)})
}

// AnalyzeClass checks every subroutine of c.
func (s *SemanticAnalyzer) AnalyzeClass(c *Class) {
	s.class = c
	s.knownClasses[c.Name] = true
	for _, sub := range c.Subroutines {
		s.AnalyzeSubroutine(sub)
	}
}

// AnalyzeSubroutine checks one subroutine.
func (s *SemanticAnalyzer) AnalyzeSubroutine(sub *Subroutine) {
	s.sub = sub
	stmts := sub.Body.Find(ProdStatements)

	s.analyzeStatements(stmts)
	s.checkUnusedLocals(sub)

	if !alwaysReturns(stmts) {
		closing := sub.Body.Child(sub.Body.Len() - 1)
		s.warnAt(closing, "%s %s may reach its end without return", sub.Kind, sub.Name)
	}
}

func (s *SemanticAnalyzer) analyzeStatements(n *Composite) {
	if n == nil {
		return
	}
	for i, child := range n.Children {
		stmt := child.(*Composite)
		s.analyzeStmt(stmt)
		if stmt.Production == ProdReturnStatement && i < len(n.Children)-1 {
			s.warnAt(n.Children[i+1], "unreachable code after return")
			return // only warn once per block
		}
	}
}

func (s *SemanticAnalyzer) analyzeStmt(stmt *Composite) {
	switch stmt.Production {
	case ProdIfStatement:
		s.analyzeExprs(stmt)
		s.analyzeStatements(stmt.Children[5].(*Composite))
		if len(stmt.Children) > 7 {
			s.analyzeStatements(stmt.Children[9].(*Composite))
		}
	case ProdWhileStatement:
		s.analyzeExprs(stmt)
		s.analyzeStatements(stmt.Children[5].(*Composite))
	case ProdReturnStatement:
		s.checkReturn(stmt)
		s.analyzeExprs(stmt)
	default:
		s.analyzeExprs(stmt)
	}
}

// analyzeExprs inspects the terms and calls directly below a statement,
// not descending into nested statement blocks.
func (s *SemanticAnalyzer) analyzeExprs(stmt *Composite) {
	if stmt.Production == ProdDoStatement {
		s.checkCall(stmt.Children[1 : len(stmt.Children)-1])
	}
	for _, child := range stmt.Children {
		comp, ok := child.(*Composite)
		if !ok || comp.Production == ProdStatements {
			continue
		}
		Walk(comp, func(n Node) bool {
			switch v := n.(type) {
			case *Terminal:
				if v.Is(TokenKeyword, "this") && s.sub.Kind == SubFunction {
					s.warnAt(v, "this used in function %s", s.sub.Name)
				}
			case *Composite:
				if v.Production == ProdTerm && len(v.Children) > 1 {
					if _, isRef := v.Children[0].(*IdentifierRef); isRef {
						if t, ok := v.Children[1].(*Terminal); ok && (t.Is(TokenSymbol, "(") || t.Is(TokenSymbol, ".")) {
							s.checkCall(v.Children)
						}
					}
				}
			}
			return true
		})
	}
}

// checkCall warns about calls on unknown classes and bare method calls from
// functions, which have no object to pass.
func (s *SemanticAnalyzer) checkCall(parts []Node) {
	first := parts[0].(*IdentifierRef)
	if dot, ok := parts[1].(*Terminal); ok && dot.Is(TokenSymbol, ".") {
		if first.Kind == KindClass && !s.knownClasses[first.Name] {
			s.warnAt(first, "call on unknown class %s", first.Name)
		}
		return
	}
	if s.sub.Kind == SubFunction {
		s.warnAt(first, "method call %s from function %s has no receiver", first.Name, s.sub.Name)
	}
}

// checkReturn compares a return statement against the declared type.
func (s *SemanticAnalyzer) checkReturn(stmt *Composite) {
	hasValue := len(stmt.Children) == 3
	switch {
	case s.sub.ReturnType == "void" && hasValue:
		s.warnAt(stmt, "void %s %s returns a value", s.sub.Kind, s.sub.Name)
	case s.sub.ReturnType != "void" && !hasValue:
		s.warnAt(stmt, "%s %s should return %s", s.sub.Kind, s.sub.Name, s.sub.ReturnType)
	}
}

// checkUnusedLocals warns about var declarations that are never referenced.
func (s *SemanticAnalyzer) checkUnusedLocals(sub *Subroutine) {
	used := make(map[string]bool)
	var decls []*IdentifierRef
	Walk(sub.Body, func(n Node) bool {
		ref, ok := n.(*IdentifierRef)
		if !ok || ref.Kind != KindLocal {
			return true
		}
		if ref.Declared {
			decls = append(decls, ref)
		} else {
			used[ref.Name] = true
		}
		return true
	})
	for _, d := range decls {
		if !used[d.Name] {
			s.warnAt(d, "local %s declared but not used", d.Name)
		}
	}
}

// alwaysReturns reports whether every path through stmts ends in return.
func alwaysReturns(stmts *Composite) bool {
	if stmts == nil || len(stmts.Children) == 0 {
		return false
	}
	last := stmts.Children[len(stmts.Children)-1].(*Composite)
	switch last.Production {
	case ProdReturnStatement:
		return true
	case ProdIfStatement:
		if len(last.Children) <= 7 {
			return false
		}
		return alwaysReturns(last.Children[5].(*Composite)) && alwaysReturns(last.Children[9].(*Composite))
	}
	return false
}

// ---------------------------------------------------------------------------
// Integration with Compile
// ---------------------------------------------------------------------------

// Analyze runs the semantic checks on a class. Extra names are treated as
// known classes in addition to the OS classes.
func Analyze(c *Class, knownClasses ...string) []Warning {
	analyzer := NewSemanticAnalyzer()
	for _, name := range knownClasses {
		analyzer.AddKnownClass(name)
	}
	analyzer.AnalyzeClass(c)
	return analyzer.Warnings()
}
