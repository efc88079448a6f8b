package compiler

import "fmt"

// Opcode identifies a single bytecode instruction. Most opcodes are a single
// byte; CONSTANT, CONSTANT_LONG, the local/global/upvalue accessors, CALL,
// CLOSURE and the jump family carry one or more inline operand bytes (see
// each constant's comment for its stack effect and encoding).
type Opcode uint8

//nolint:revive
const (
	NOP Opcode = iota // no operation; the compiler never emits it

	CONSTANT      // CONSTANT idx8         push constants[idx]
	CONSTANT_LONG // CONSTANT_LONG idx24   push constants[idx], for pools > 256 entries
	NIL           //                       push nil
	TRUE          //                       push true
	FALSE         //                       push false
	POP           //                       pop

	GET_LOCAL  // GET_LOCAL slot8    push frame.slots[slot]
	SET_LOCAL  // SET_LOCAL slot8    frame.slots[slot] = peek(0)
	GET_GLOBAL // GET_GLOBAL idx8    push globals[constants[idx]]
	SET_GLOBAL // SET_GLOBAL idx8    globals[constants[idx]] = peek(0)

	DEFINE_GLOBAL // DEFINE_GLOBAL idx8   globals[constants[idx]] = pop()

	GET_UPVALUE // GET_UPVALUE idx8   push *closure.upvalues[idx]
	SET_UPVALUE // SET_UPVALUE idx8   *closure.upvalues[idx] = peek(0)

	EQUAL   // pop 2, push bool
	GREATER // pop 2, push bool
	LESS    // pop 2, push bool

	ADD      // pop 2 (number+number or string+string), push result
	MULTIPLY // pop 2 numbers, push product
	DIVIDE   // pop 2 numbers, push quotient

	NOT    // push !truthy(pop())
	NEGATE // top must be number, negate in place

	PRINT // print and pop

	JUMP          // JUMP delta16            ip += delta
	JUMP_IF_FALSE // JUMP_IF_FALSE delta16   ip += delta if !truthy(peek(0)); does not pop
	LOOP          // LOOP delta16            ip -= delta

	CALL // CALL argc8   invoke stack[-argc-1]

	CLOSURE       // CLOSURE funcIdx8 (isLocal8 idx8)*upvalueCount   build and push closure
	CLOSE_UPVALUE // close the upvalue capturing the current top of stack, then pop it

	SWITCH_CASE_EQUAL // push bool(peek(0)==peek(1)); operands are left in place

	RETURN // pop return value, close upvalues >= frame base, pop frame
)

var opcodeNames = [...]string{
	NOP:               "nop",
	CONSTANT:          "constant",
	CONSTANT_LONG:     "constant_long",
	NIL:               "nil",
	TRUE:              "true",
	FALSE:             "false",
	POP:               "pop",
	GET_LOCAL:         "get_local",
	SET_LOCAL:         "set_local",
	GET_GLOBAL:        "get_global",
	SET_GLOBAL:        "set_global",
	DEFINE_GLOBAL:     "define_global",
	GET_UPVALUE:       "get_upvalue",
	SET_UPVALUE:       "set_upvalue",
	EQUAL:             "equal",
	GREATER:           "greater",
	LESS:              "less",
	ADD:               "add",
	MULTIPLY:          "multiply",
	DIVIDE:            "divide",
	NOT:               "not",
	NEGATE:            "negate",
	PRINT:             "print",
	JUMP:              "jump",
	JUMP_IF_FALSE:     "jump_if_false",
	LOOP:              "loop",
	CALL:              "call",
	CLOSURE:           "closure",
	CLOSE_UPVALUE:     "close_upvalue",
	SWITCH_CASE_EQUAL: "switch_case_equal",
	RETURN:            "return",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", byte(op))
}
