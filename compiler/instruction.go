package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// VM instruction set
// ---------------------------------------------------------------------------

// Op identifies the instruction form.
type Op byte

const (
	OpInvalid    Op = 0x00
	OpPush       Op = 0x01 // push segment index
	OpPop        Op = 0x02 // pop segment index
	OpArithmetic Op = 0x03 // add, sub, neg, eq, gt, lt, and, or, not
	OpLabel      Op = 0x10 // label L
	OpGoto       Op = 0x11 // goto L
	OpIfGoto     Op = 0x12 // if-goto L
	OpCall       Op = 0x20 // call f n
	OpFunction   Op = 0x21 // function f n
	OpReturn     Op = 0x22 // return
)

var opNames = map[Op]string{
	OpPush:       "push",
	OpPop:        "pop",
	OpArithmetic: "arithmetic",
	OpLabel:      "label",
	OpGoto:       "goto",
	OpIfGoto:     "if-goto",
	OpCall:       "call",
	OpFunction:   "function",
	OpReturn:     "return",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(0x%02X)", byte(op))
}

// Segment is a VM memory segment.
type Segment byte

const (
	SegInvalid Segment = iota
	SegConstant
	SegArgument
	SegLocal
	SegStatic
	SegThis
	SegThat
	SegPointer
	SegTemp
)

var segmentNames = map[Segment]string{
	SegConstant: "constant",
	SegArgument: "argument",
	SegLocal:    "local",
	SegStatic:   "static",
	SegThis:     "this",
	SegThat:     "that",
	SegPointer:  "pointer",
	SegTemp:     "temp",
}

func (s Segment) String() string {
	if name, ok := segmentNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Segment(%d)", int(s))
}

// Command is an arithmetic or logical stack command.
type Command byte

const (
	CmdInvalid Command = iota
	CmdAdd
	CmdSub
	CmdNeg
	CmdEq
	CmdGt
	CmdLt
	CmdAnd
	CmdOr
	CmdNot
)

var commandNames = map[Command]string{
	CmdAdd: "add",
	CmdSub: "sub",
	CmdNeg: "neg",
	CmdEq:  "eq",
	CmdGt:  "gt",
	CmdLt:  "lt",
	CmdAnd: "and",
	CmdOr:  "or",
	CmdNot: "not",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Instruction is one VM instruction. Only the fields relevant to Op are set.
type Instruction struct {
	Op      Op      `cbor:"1,keyasint"`
	Segment Segment `cbor:"2,keyasint,omitempty"`
	Index   int     `cbor:"3,keyasint,omitempty"`
	Command Command `cbor:"4,keyasint,omitempty"`
	Name    string  `cbor:"5,keyasint,omitempty"` // label or function name
	N       int     `cbor:"6,keyasint,omitempty"` // argument or local count
}

// String renders the instruction in its textual form, e.g. "push local 0".
func (i Instruction) String() string {
	switch i.Op {
	case OpPush, OpPop:
		return fmt.Sprintf("%s %s %d", i.Op, i.Segment, i.Index)
	case OpArithmetic:
		return i.Command.String()
	case OpLabel, OpGoto, OpIfGoto:
		return fmt.Sprintf("%s %s", i.Op, i.Name)
	case OpCall, OpFunction:
		return fmt.Sprintf("%s %s %d", i.Op, i.Name, i.N)
	case OpReturn:
		return "return"
	}
	return i.Op.String()
}

// FormatInstructions renders a sequence one instruction per line.
func FormatInstructions(code []Instruction) string {
	var sb strings.Builder
	for _, in := range code {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// binaryCommands maps infix operators that have a direct VM command.
var binaryCommands = map[string]Command{
	"+": CmdAdd,
	"-": CmdSub,
	"&": CmdAnd,
	"|": CmdOr,
	"<": CmdLt,
	">": CmdGt,
	"=": CmdEq,
}

// binaryCalls maps infix operators implemented by OS library calls.
var binaryCalls = map[string]string{
	"*": "Math.multiply",
	"/": "Math.divide",
}

var unaryCommands = map[string]Command{
	"-": CmdNeg,
	"~": CmdNot,
}
