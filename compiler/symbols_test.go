package compiler

import (
	"errors"
	"testing"
)

func TestScopeIndicesPerKind(t *testing.T) {
	s := NewScope()
	defs := []struct {
		name  string
		kind  Kind
		index int
	}{
		{"a", KindArgument, 0},
		{"x", KindLocal, 0},
		{"b", KindArgument, 1},
		{"y", KindLocal, 1},
		{"z", KindLocal, 2},
	}
	for _, d := range defs {
		sym, err := s.Define(d.name, d.kind, "int")
		if err != nil {
			t.Fatalf("Define(%s): %v", d.name, err)
		}
		if sym.Index != d.index {
			t.Errorf("%s index = %d, want %d", d.name, sym.Index, d.index)
		}
	}
	if s.Count(KindLocal) != 3 || s.Count(KindArgument) != 2 {
		t.Errorf("counts = %d locals, %d args, want 3, 2", s.Count(KindLocal), s.Count(KindArgument))
	}

	order := s.Symbols()
	for i, d := range defs {
		if order[i].Name != d.name {
			t.Errorf("Symbols()[%d] = %s, want %s", i, order[i].Name, d.name)
		}
	}
}

func TestScopeRedeclaration(t *testing.T) {
	s := NewScope()
	if _, err := s.Define("x", KindField, "int"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Define("x", KindStatic, "char")
	var rerr *RedeclarationError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *RedeclarationError", err)
	}
	if rerr.Previous.Kind != KindField {
		t.Errorf("Previous.Kind = %s, want field", rerr.Previous.Kind)
	}
	// The failed definition consumes no index.
	if s.Count(KindStatic) != 0 {
		t.Errorf("static count = %d, want 0", s.Count(KindStatic))
	}
}

func TestResolveOrder(t *testing.T) {
	class := NewScope()
	class.Define("x", KindField, "int")
	class.Define("g", KindStatic, "int")
	sub := NewScope()
	sub.Define("x", KindLocal, "char")

	tests := []struct {
		name string
		kind Kind
		ok   bool
	}{
		{"x", KindLocal, true},
		{"g", KindStatic, true},
		{"missing", KindNone, false},
	}
	for _, tc := range tests {
		sym, ok := Resolve(tc.name, sub, class)
		if ok != tc.ok || sym.Kind != tc.kind {
			t.Errorf("Resolve(%s) = %v, %v, want %v, %v", tc.name, sym.Kind, ok, tc.kind, tc.ok)
		}
	}

	// A nil scope is skipped.
	if _, ok := Resolve("g", nil, class); !ok {
		t.Error("Resolve with nil scope failed")
	}
}

func TestSymbolTableLifecycle(t *testing.T) {
	st := NewSymbolTable()
	st.Define("f", KindField, "int")

	first := st.ResetSubroutine("Point")
	st.Define("a", KindArgument, "int")
	if sym, _ := st.Resolve("a"); sym.Index != 1 {
		t.Errorf("method argument index = %d, want 1", sym.Index)
	}

	second := st.ResetSubroutine("")
	if _, ok := st.Resolve("a"); ok {
		t.Error("argument survived subroutine reset")
	}
	if _, ok := first.Lookup("a"); !ok {
		t.Error("reset cleared the previous subroutine's scope")
	}
	if second.Count(KindArgument) != 0 {
		t.Errorf("function scope has %d arguments, want 0", second.Count(KindArgument))
	}
	if sym, ok := st.Resolve("f"); !ok || sym.Kind != KindField {
		t.Errorf("field lost across subroutine reset")
	}

	st.ResetClass()
	if _, ok := st.Resolve("f"); ok {
		t.Error("field survived class reset")
	}

	if _, err := st.Define("c", KindClass, ""); err == nil {
		t.Error("Define with KindClass succeeded")
	}
}

func TestKindSegment(t *testing.T) {
	tests := []struct {
		kind Kind
		seg  Segment
		ok   bool
	}{
		{KindStatic, SegStatic, true},
		{KindField, SegThis, true},
		{KindArgument, SegArgument, true},
		{KindLocal, SegLocal, true},
		{KindClass, SegInvalid, false},
		{KindSubroutine, SegInvalid, false},
	}
	for _, tc := range tests {
		seg, ok := tc.kind.Segment()
		if seg != tc.seg || ok != tc.ok {
			t.Errorf("%s.Segment() = %s, %v, want %s, %v", tc.kind, seg, ok, tc.seg, tc.ok)
		}
	}
}
