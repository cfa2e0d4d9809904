package hash

import (
	"encoding/binary"
	"testing"
)

func TestSerialize_Deterministic(t *testing.T) {
	node := &HComposite{
		Production: ProdExpression,
		Children: []HNode{
			&HComposite{Production: ProdTerm, Children: []HNode{&HVarRef{Kind: VarLocal, Index: 0, Type: "int"}}},
			&HSymbol{Char: "+"},
			&HComposite{Production: ProdTerm, Children: []HNode{&HIntConst{Value: 42}}},
		},
	}

	data1 := Serialize(node)
	data2 := Serialize(node)

	if string(data1) != string(data2) {
		t.Error("serialization is not deterministic")
	}
}

func TestSerialize_VersionPrefix(t *testing.T) {
	data := Serialize(&HKeyword{Word: "null"})

	if len(data) < 1 {
		t.Fatal("empty serialization")
	}
	if data[0] != HashVersion {
		t.Errorf("version prefix: got 0x%02X, want 0x%02X", data[0], HashVersion)
	}
}

func TestSerialize_IntConst(t *testing.T) {
	data := Serialize(&HIntConst{Value: 12345})

	// version(1) + tag(1) + int64(8) = 10
	if len(data) != 10 {
		t.Fatalf("length: got %d, want 10", len(data))
	}
	if data[1] != TagIntConst {
		t.Errorf("tag: got 0x%02X, want 0x%02X", data[1], TagIntConst)
	}
	v := int64(binary.BigEndian.Uint64(data[2:10]))
	if v != 12345 {
		t.Errorf("value: got %d, want 12345", v)
	}
}

func TestSerialize_StringConst(t *testing.T) {
	data := Serialize(&HStringConst{Value: "hello"})

	// version(1) + tag(1) + len(4) + "hello"(5) = 11
	if len(data) != 11 {
		t.Fatalf("length: got %d, want 11", len(data))
	}
	strLen := binary.BigEndian.Uint32(data[2:6])
	if strLen != 5 {
		t.Errorf("string length: got %d, want 5", strLen)
	}
	if string(data[6:11]) != "hello" {
		t.Errorf("string value: got %q, want %q", string(data[6:11]), "hello")
	}
}

func TestSerialize_VarRef(t *testing.T) {
	data := Serialize(&HVarRef{Kind: VarArgument, Index: 3, Type: "", Declared: true})

	// version(1) + tag(1) + kind(1) + index(2) + type(4+0) + declared(1) = 10
	if len(data) != 10 {
		t.Fatalf("length: got %d, want 10", len(data))
	}
	if data[2] != VarArgument {
		t.Errorf("kind: got 0x%02X, want 0x%02X", data[2], VarArgument)
	}
	if idx := binary.BigEndian.Uint16(data[3:5]); idx != 3 {
		t.Errorf("index: got %d, want 3", idx)
	}
	if data[9] != 1 {
		t.Errorf("declared: got %d, want 1", data[9])
	}
}

func TestSerialize_CompositeChildCount(t *testing.T) {
	data := Serialize(&HComposite{Production: ProdParameterList})

	// version(1) + tag(1) + production(1) + count(2) = 5
	if len(data) != 5 {
		t.Fatalf("length: got %d, want 5", len(data))
	}
	if data[2] != ProdParameterList || binary.BigEndian.Uint16(data[3:5]) != 0 {
		t.Errorf("got % X, want parameterList with 0 children", data)
	}
}

func TestSerialize_DifferentNodesDiffer(t *testing.T) {
	nodes := []HNode{
		&HKeyword{Word: "x"},
		&HSymbol{Char: "x"},
		&HIntConst{Value: 1},
		&HStringConst{Value: "x"},
		&HVarRef{Kind: VarLocal, Index: 0},
		&HVarRef{Kind: VarField, Index: 0},
		&HVarRef{Kind: VarLocal, Index: 1},
		&HClassRef{Name: "x"},
		&HClassRef{Name: "x", Declared: true},
		&HSubroutineRef{Name: "x"},
		&HComposite{Production: ProdTerm},
		&HComposite{Production: ProdExpression},
	}

	seen := make(map[string]int)
	for i, node := range nodes {
		data := string(Serialize(node))
		if prev, ok := seen[data]; ok {
			t.Errorf("node %d and %d produce identical serializations", prev, i)
		}
		seen[data] = i
	}
}
