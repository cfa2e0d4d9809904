package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Symbol table: class scope + subroutine scope with per-kind counters
// ---------------------------------------------------------------------------

// Kind is the storage class of a name.
type Kind int

const (
	KindNone Kind = iota
	KindStatic
	KindField
	KindArgument
	KindLocal

	// Synthetic kinds for names that are not variables. They always carry
	// index 0 and never live in a scope.
	KindClass
	KindSubroutine
)

var kindNames = map[Kind]string{
	KindNone:       "none",
	KindStatic:     "static",
	KindField:      "field",
	KindArgument:   "argument",
	KindLocal:      "var",
	KindClass:      "class",
	KindSubroutine: "subroutine",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsVariable reports whether the kind names storage with a VM segment.
func (k Kind) IsVariable() bool {
	switch k {
	case KindStatic, KindField, KindArgument, KindLocal:
		return true
	}
	return false
}

// Segment maps a variable kind to the VM segment that stores it.
func (k Kind) Segment() (Segment, bool) {
	switch k {
	case KindStatic:
		return SegStatic, true
	case KindField:
		return SegThis, true
	case KindArgument:
		return SegArgument, true
	case KindLocal:
		return SegLocal, true
	}
	return SegInvalid, false
}

// Symbol is one scope entry.
type Symbol struct {
	Name  string
	Kind  Kind
	Type  string
	Index int
}

// Scope maps names to symbols and hands out indices per kind. Indices are
// assigned at declaration time and never reused for the life of the scope.
type Scope struct {
	symbols map[string]Symbol
	counts  map[Kind]int
	order   []string
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{
		symbols: make(map[string]Symbol),
		counts:  make(map[Kind]int),
	}
}

// Define inserts name with the next index for kind. The name must not
// already exist in this scope.
func (s *Scope) Define(name string, kind Kind, typ string) (Symbol, error) {
	if prev, ok := s.symbols[name]; ok {
		return prev, &RedeclarationError{Name: name, Previous: prev}
	}
	sym := Symbol{Name: name, Kind: kind, Type: typ, Index: s.counts[kind]}
	s.counts[kind]++
	s.symbols[name] = sym
	s.order = append(s.order, name)
	return sym, nil
}

// Lookup finds name in this scope only.
func (s *Scope) Lookup(name string) (Symbol, bool) {
	if s == nil {
		return Symbol{}, false
	}
	sym, ok := s.symbols[name]
	return sym, ok
}

// Count returns how many symbols of kind have been declared.
func (s *Scope) Count(kind Kind) int {
	if s == nil {
		return 0
	}
	return s.counts[kind]
}

// Symbols returns the entries in declaration order.
func (s *Scope) Symbols() []Symbol {
	if s == nil {
		return nil
	}
	out := make([]Symbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.symbols[name])
	}
	return out
}

// Resolve looks name up in each scope in turn and returns the first hit.
// Callers pass the innermost scope first.
func Resolve(name string, scopes ...*Scope) (Symbol, bool) {
	for _, s := range scopes {
		if sym, ok := s.Lookup(name); ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// SymbolTable holds the two live scopes of one compilation unit. It is
// owned by a single parser; nothing in it is shared between units.
type SymbolTable struct {
	Class      *Scope
	Subroutine *Scope
}

// NewSymbolTable creates a table with empty scopes.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{Class: NewScope(), Subroutine: NewScope()}
}

// ResetClass starts a new class: both scopes are replaced.
func (t *SymbolTable) ResetClass() {
	t.Class = NewScope()
	t.Subroutine = NewScope()
}

// ResetSubroutine replaces the subroutine scope. When receiver is non-empty
// the subroutine is a method and argument 0 is reserved for "this".
// The previous scope is left intact so finished subroutines keep theirs.
func (t *SymbolTable) ResetSubroutine(receiver string) *Scope {
	t.Subroutine = NewScope()
	if receiver != "" {
		t.Subroutine.Define("this", KindArgument, receiver)
	}
	return t.Subroutine
}

// Define inserts a symbol into the scope that owns kind.
func (t *SymbolTable) Define(name string, kind Kind, typ string) (Symbol, error) {
	switch kind {
	case KindStatic, KindField:
		return t.Class.Define(name, kind, typ)
	case KindArgument, KindLocal:
		return t.Subroutine.Define(name, kind, typ)
	}
	return Symbol{}, fmt.Errorf("cannot declare %q with kind %s", name, kind)
}

// Resolve looks name up in subroutine scope, then class scope.
func (t *SymbolTable) Resolve(name string) (Symbol, bool) {
	return Resolve(name, t.Subroutine, t.Class)
}
