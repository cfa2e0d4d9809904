package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing tree serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cache key computed so far.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Terminals
	TagKeyword     byte = 0x01
	TagSymbol      byte = 0x02
	TagIntConst    byte = 0x03
	TagStringConst byte = 0x04

	// Identifiers
	TagVarRef        byte = 0x08 // kind + index, name dropped
	TagClassRef      byte = 0x09
	TagSubroutineRef byte = 0x0A

	// Structure
	TagComposite byte = 0x10

	// Reserved 0xFE-0xFF
)

// Variable kind bytes used inside TagVarRef.
const (
	VarStatic   byte = 0x01
	VarField    byte = 0x02
	VarArgument byte = 0x03
	VarLocal    byte = 0x04
)

// Production bytes used inside TagComposite. Frozen like the tags.
const (
	ProdClass           byte = 0x01
	ProdClassVarDec     byte = 0x02
	ProdSubroutineDec   byte = 0x03
	ProdParameterList   byte = 0x04
	ProdSubroutineBody  byte = 0x05
	ProdVarDec          byte = 0x06
	ProdStatements      byte = 0x07
	ProdLetStatement    byte = 0x08
	ProdIfStatement     byte = 0x09
	ProdWhileStatement  byte = 0x0A
	ProdDoStatement     byte = 0x0B
	ProdReturnStatement byte = 0x0C
	ProdExpression      byte = 0x0D
	ProdExpressionList  byte = 0x0E
	ProdTerm            byte = 0x0F
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagKeyword, TagSymbol, TagIntConst, TagStringConst,
	TagVarRef, TagClassRef, TagSubroutineRef,
	TagComposite,
}

// allProductions lists every production byte for the same purpose.
var allProductions = []byte{
	ProdClass, ProdClassVarDec, ProdSubroutineDec, ProdParameterList,
	ProdSubroutineBody, ProdVarDec, ProdStatements, ProdLetStatement,
	ProdIfStatement, ProdWhileStatement, ProdDoStatement, ProdReturnStatement,
	ProdExpression, ProdExpressionList, ProdTerm,
}
