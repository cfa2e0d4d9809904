package hash

// ---------------------------------------------------------------------------
// Frozen hashing tree types.
//
// These are stripped-down parallels of the compiler's syntax tree with no
// position data and no variable names. Variables are identified by kind
// and index, which is all code generation reads, so renaming a local or
// reformatting a file leaves the hashing tree unchanged.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing tree nodes.
type HNode interface {
	hnode() // marker method
}

// Terminals

type HKeyword struct{ Word string }
type HSymbol struct{ Char string }
type HIntConst struct{ Value int64 }
type HStringConst struct{ Value string }

func (*HKeyword) hnode()     {}
func (*HSymbol) hnode()      {}
func (*HIntConst) hnode()    {}
func (*HStringConst) hnode() {}

// HVarRef references a variable by storage class and index. Type is kept
// because instance calls are lowered to Type.method.
type HVarRef struct {
	Kind     byte
	Index    uint16
	Type     string
	Declared bool
}

// HClassRef names a class: a declaration, a type, or a static call receiver.
type HClassRef struct {
	Name     string
	Declared bool
}

// HSubroutineRef names a subroutine. Type is the return type at the
// declaration and empty at call sites.
type HSubroutineRef struct {
	Name     string
	Type     string
	Declared bool
}

func (*HVarRef) hnode()        {}
func (*HClassRef) hnode()      {}
func (*HSubroutineRef) hnode() {}

// HComposite is one grammar production.
type HComposite struct {
	Production byte
	Children   []HNode
}

func (*HComposite) hnode() {}
