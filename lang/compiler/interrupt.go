package compiler

import "github.com/hearthlang/mire/lang/token"

// enclosingContext names the syntactic construct a statement is nested
// in, tracked on a per-compile stack so break/continue can validate
// where they are legal and how to unwind, following clox's
// EnclosingContext enum.
type enclosingContext int

const (
	ctxNone enclosingContext = iota
	ctxSwitch
	ctxWhile
	ctxFor
	ctxBlock
	ctxIf
)

type interruptorKind int

const (
	interruptBreak interruptorKind = iota
	interruptContinue
)

// interruptor is an unresolved control-flow edge bubbled up from a
// break/continue statement: position is the operand offset of the JUMP
// (break) or LOOP (continue) instruction already emitted, awaiting a
// patch once the enclosing loop or switch knows its target.
type interruptor struct {
	kind     interruptorKind
	position int
}

func (c *Compiler) pushContext(ctx enclosingContext) { c.contexts = append(c.contexts, ctx) }

func (c *Compiler) popContext() {
	if len(c.contexts) == 0 {
		return
	}
	c.contexts = c.contexts[:len(c.contexts)-1]
}

// validateInterruptor checks that some enclosing context permits kind,
// walking outward from the innermost.
func (c *Compiler) validateInterruptor(kind interruptorKind) {
	for i := len(c.contexts) - 1; i >= 0; i-- {
		switch c.contexts[i] {
		case ctxFor, ctxWhile:
			return
		case ctxSwitch:
			if kind == interruptBreak {
				return
			}
		}
	}
	if kind == interruptBreak {
		c.errorAtPrevious("the 'break' statement can't be used here")
	} else {
		c.errorAtPrevious("the 'continue' statement can't be used here")
	}
}

// unwindEnclosingContexts emits POPs for every local declared in block
// scopes between the interrupting statement and the loop/switch it
// targets. Each block scope pops the locals of its own depth and the walk
// keeps going outward; an `if` has no scope of its own and is passed
// over. A loop stops the walk (popping a `for` initializer's locals is
// the loop's own endScope's job), and so does a `switch` for a `break`.
// A `continue` walks on through a `switch` to the enclosing loop,
// popping the switch's condition value on the way.
func (c *Compiler) unwindEnclosingContexts(kind interruptorKind) {
	f := c.current
	depth := f.scopeDepth
	j := len(f.locals) - 1
	for i := len(c.contexts) - 1; i >= 0; i-- {
		switch c.contexts[i] {
		case ctxBlock:
			for ; j >= 0 && f.locals[j].depth >= depth; j-- {
				if f.locals[j].captured {
					c.emitOp(CLOSE_UPVALUE)
				} else {
					c.emitOp(POP)
				}
			}
			depth--
		case ctxIf:
		case ctxSwitch:
			if kind == interruptBreak {
				return
			}
			c.emitOp(POP) // switch condition
		default:
			return
		}
	}
}

// interruptorStatement compiles `break;` or `continue;`, returning the
// interruptor describing the unresolved jump it just emitted.
func (c *Compiler) interruptorStatement(kind interruptorKind) []interruptor {
	c.consumeSemi()
	c.validateInterruptor(kind)
	c.unwindEnclosingContexts(kind)

	if kind == interruptBreak {
		return []interruptor{{kind: interruptBreak, position: c.emitJump(JUMP)}}
	}
	return []interruptor{{kind: interruptContinue, position: c.emitLoopPlaceholder()}}
}

func (c *Compiler) consumeSemi() { c.consume(token.SEMI, "expect ';' after statement") }
