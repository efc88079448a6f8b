// Package debug implements mire's bytecode disassembler: a read-only view
// of a compiled chunk that prints offset, source line, opcode mnemonic and
// any inline operand. Nothing in this package allocates through lang/gc
// or mutates a chunk; it only ever reads one.
package debug

import (
	"fmt"
	"io"

	"github.com/hearthlang/mire/lang/chunk"
	"github.com/hearthlang/mire/lang/compiler"
	"github.com/hearthlang/mire/lang/value"
)

// Disassemble prints every instruction in ch to w, headed by name (e.g. a
// function's name or "<script>"), exactly as disassembleChunk iterates
// disassembleInstruction over the whole byte range.
func Disassemble(w io.Writer, ch *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(ch.Code); {
		offset = DisassembleInstruction(w, ch, offset)
	}
}

// DisassembleInstruction prints the single instruction at offset and
// returns the offset of the next one. The source line is printed unless it
// is the same as the previous instruction's, in which case a "|" stands in
// for it (clox's same-line marker).
func DisassembleInstruction(w io.Writer, ch *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)

	line := ch.Line(offset)
	if offset > 0 && ch.Line(offset-1) == line {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := compiler.Opcode(ch.Code[offset])
	switch op {
	case compiler.CONSTANT,
		compiler.GET_GLOBAL, compiler.SET_GLOBAL, compiler.DEFINE_GLOBAL:
		// These all carry a constant-pool index (the global's interned
		// name, for the GLOBAL family), so the disassembler resolves and
		// prints the referenced value, not just the raw index.
		return constantInstruction(w, op, ch, offset)
	case compiler.CONSTANT_LONG:
		return longConstantInstruction(w, op, ch, offset)
	case compiler.GET_LOCAL, compiler.SET_LOCAL,
		compiler.GET_UPVALUE, compiler.SET_UPVALUE, compiler.CALL:
		// These carry a raw slot number or argument count, not a constant
		// index, so there is nothing to resolve.
		return byteInstruction(w, op, ch, offset)
	case compiler.JUMP, compiler.JUMP_IF_FALSE:
		return jumpInstruction(w, op, ch, offset, 1)
	case compiler.LOOP:
		return jumpInstruction(w, op, ch, offset, -1)
	case compiler.CLOSURE:
		return closureInstruction(w, ch, offset)
	default:
		return simpleInstruction(w, op, offset)
	}
}

func simpleInstruction(w io.Writer, op compiler.Opcode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func constantInstruction(w io.Writer, op compiler.Opcode, ch *chunk.Chunk, offset int) int {
	idx := int(ch.Code[offset+1])
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, constantString(ch, idx))
	return offset + 2
}

func longConstantInstruction(w io.Writer, op compiler.Opcode, ch *chunk.Chunk, offset int) int {
	idx := int(ch.Code[offset+1]) | int(ch.Code[offset+2])<<8 | int(ch.Code[offset+3])<<16
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, constantString(ch, idx))
	return offset + 4
}

func byteInstruction(w io.Writer, op compiler.Opcode, ch *chunk.Chunk, offset int) int {
	slot := ch.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op compiler.Opcode, ch *chunk.Chunk, offset, sign int) int {
	delta := int(ch.Code[offset+1])<<8 | int(ch.Code[offset+2])
	target := offset + 3 + sign*delta
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

// closureInstruction decodes CLOSURE's function constant followed by one
// (isLocal, index) pair per upvalue, matching the encoding compiler.function
// emits.
func closureInstruction(w io.Writer, ch *chunk.Chunk, offset int) int {
	idx := int(ch.Code[offset+1])
	fmt.Fprintf(w, "%-16s %4d '%s'\n", compiler.CLOSURE, idx, constantString(ch, idx))

	fn, _ := ch.Constants[idx].(value.Value)
	upvalueCount := 0
	if f, ok := fn.AsObj().(*value.Function); ok {
		upvalueCount = f.UpvalueCount
	}

	next := offset + 2
	for i := 0; i < upvalueCount; i++ {
		isLocal := ch.Code[next]
		index := ch.Code[next+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, index)
		next += 2
	}
	return next
}

func constantString(ch *chunk.Chunk, idx int) string {
	if idx < 0 || idx >= len(ch.Constants) {
		return "<out of range>"
	}
	v, ok := ch.Constants[idx].(value.Value)
	if !ok {
		return fmt.Sprintf("%v", ch.Constants[idx])
	}
	return v.String()
}
