package hash

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing tree.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B, uint16=2B)
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Composite children: uint16 count, then each child inline
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HKeyword:
		s.writeByte(TagKeyword)
		s.writeString(n.Word)

	case *HSymbol:
		s.writeByte(TagSymbol)
		s.writeString(n.Char)

	case *HIntConst:
		s.writeByte(TagIntConst)
		s.writeInt64(n.Value)

	case *HStringConst:
		s.writeByte(TagStringConst)
		s.writeString(n.Value)

	case *HVarRef:
		s.writeByte(TagVarRef)
		s.writeByte(n.Kind)
		s.writeUint16(n.Index)
		s.writeString(n.Type)
		s.writeBool(n.Declared)

	case *HClassRef:
		s.writeByte(TagClassRef)
		s.writeString(n.Name)
		s.writeBool(n.Declared)

	case *HSubroutineRef:
		s.writeByte(TagSubroutineRef)
		s.writeString(n.Name)
		s.writeString(n.Type)
		s.writeBool(n.Declared)

	case *HComposite:
		s.writeByte(TagComposite)
		s.writeByte(n.Production)
		s.writeUint16(uint16(len(n.Children)))
		for _, c := range n.Children {
			s.serializeNode(c)
		}

	default:
		panic(fmt.Sprintf("hash: cannot serialize %T", node))
	}
}
