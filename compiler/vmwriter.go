package compiler

import (
	"bufio"
	"io"
)

// ---------------------------------------------------------------------------
// Writer: accumulates VM instructions for one compilation unit
// ---------------------------------------------------------------------------

// Writer collects emitted instructions in order. Nothing reaches an
// io.Writer until WriteTo is called, so a failed unit produces no output.
type Writer struct {
	code []Instruction
}

// NewWriter creates an empty instruction buffer.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) emit(in Instruction) {
	w.code = append(w.code, in)
}

// WritePush emits push segment index.
func (w *Writer) WritePush(seg Segment, index int) {
	w.emit(Instruction{Op: OpPush, Segment: seg, Index: index})
}

// WritePop emits pop segment index.
func (w *Writer) WritePop(seg Segment, index int) {
	w.emit(Instruction{Op: OpPop, Segment: seg, Index: index})
}

// WriteArithmetic emits a stack command.
func (w *Writer) WriteArithmetic(cmd Command) {
	w.emit(Instruction{Op: OpArithmetic, Command: cmd})
}

func (w *Writer) WriteLabel(label string) {
	w.emit(Instruction{Op: OpLabel, Name: label})
}

func (w *Writer) WriteGoto(label string) {
	w.emit(Instruction{Op: OpGoto, Name: label})
}

// WriteIf emits if-goto label.
func (w *Writer) WriteIf(label string) {
	w.emit(Instruction{Op: OpIfGoto, Name: label})
}

// WriteCall emits call name nArgs.
func (w *Writer) WriteCall(name string, nArgs int) {
	w.emit(Instruction{Op: OpCall, Name: name, N: nArgs})
}

// WriteFunction emits function name nLocals.
func (w *Writer) WriteFunction(name string, nLocals int) {
	w.emit(Instruction{Op: OpFunction, Name: name, N: nLocals})
}

func (w *Writer) WriteReturn() {
	w.emit(Instruction{Op: OpReturn})
}

// Instructions returns the buffered instructions.
func (w *Writer) Instructions() []Instruction {
	return w.code
}

// WriteTo writes the textual form of the buffer, one instruction per line.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	return writeInstructions(out, w.code)
}

func writeInstructions(out io.Writer, code []Instruction) (int64, error) {
	bw := bufio.NewWriter(out)
	var total int64
	for _, in := range code {
		n, err := bw.WriteString(in.String() + "\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}
