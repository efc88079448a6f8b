package compiler

import "github.com/hearthlang/mire/lang/token"

func (c *Compiler) beginScope() { c.current.scopeDepth++ }

// endScope pops every local declared in the scope just closed, emitting
// CLOSE_UPVALUE for any that were captured by a nested closure instead of
// a plain POP, so the upvalue survives the stack slot's reuse.
func (c *Compiler) endScope() {
	c.current.scopeDepth--

	f := c.current
	for len(f.locals) > 0 && f.locals[len(f.locals)-1].depth > f.scopeDepth {
		last := f.locals[len(f.locals)-1]
		if last.captured {
			c.emitOp(CLOSE_UPVALUE)
		} else {
			c.emitOp(POP)
		}
		f.locals = f.locals[:len(f.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) {
	if len(c.current.locals) >= maxLocals {
		c.errorAtPrevious("too many local variables in function")
		return
	}
	c.current.locals = append(c.current.locals, local{name: name, depth: -1})
}

// declareVariable registers the variable named by the previous token as a
// local of the current scope, rejecting a duplicate name declared in the
// same scope. It is a no-op at global scope, where names are resolved
// dynamically through the globals table instead.
func (c *Compiler) declareVariable(name string) {
	f := c.current
	if f.scopeDepth == 0 {
		return
	}
	for i := len(f.locals) - 1; i >= 0; i-- {
		l := f.locals[i]
		if l.depth != -1 && l.depth < f.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrevious("already a variable with this name in this scope")
		}
	}
	c.addLocal(name)
}

// resolveLocal searches f's locals for name, top-down, returning its slot
// or -1 if not found.
func resolveLocal(f *frame, name string) int {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			return i
		}
	}
	return -1
}

// resolveLocalChecked is resolveLocal plus the self-initializer guard: it
// is a compile error to read a local while it is still mid-initialization
// (`var x = x;`), since its slot exists but markInitialized hasn't run yet.
func (c *Compiler) resolveLocalChecked(f *frame, name string) int {
	slot := resolveLocal(f, name)
	if slot != -1 && f.locals[slot].depth == -1 {
		c.errorAtPrevious("can't read local variable in its own initializer")
	}
	return slot
}

// resolveUpvalue searches enclosing frames for name, propagating an
// (isLocal, index) pair outward through every intervening frame so each
// nesting level knows how to thread the capture to its own closure.
func resolveUpvalue(f *frame, name string) int {
	if f.enclosing == nil {
		return -1
	}
	if slot := resolveLocal(f.enclosing, name); slot != -1 {
		f.enclosing.locals[slot].captured = true
		return addUpvalue(f, uint8(slot), true)
	}
	if idx := resolveUpvalue(f.enclosing, name); idx != -1 {
		return addUpvalue(f, uint8(idx), false)
	}
	return -1
}

// addUpvalue records (or dedups) a captured reference to either a local
// slot of the directly enclosing frame (isLocal true) or one of that
// frame's own upvalues (isLocal false).
func addUpvalue(f *frame, index uint8, isLocal bool) int {
	for i, uv := range f.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(f.upvalues) >= maxUpvalues {
		return -1
	}
	f.upvalues = append(f.upvalues, upvalueRef{index: index, isLocal: isLocal})
	f.function.UpvalueCount = len(f.upvalues)
	return len(f.upvalues) - 1
}

// markInitialized records that the most recently declared local's
// initializer has finished compiling, making it visible to subsequent
// reads.
func (c *Compiler) markInitialized() {
	f := c.current
	if f.scopeDepth == 0 {
		return
	}
	f.locals[len(f.locals)-1].depth = f.scopeDepth
}

// parseVariable consumes an identifier, declares it as a local if in a
// local scope, and returns the constant-pool index to use with
// DEFINE_GLOBAL if it is a global (the return value is otherwise unused).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(token.IDENT, errMsg)
	name := c.prev.val.Lexeme
	c.declareVariable(name)
	if c.current.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.current.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(DEFINE_GLOBAL, global)
}

// namedVariable compiles a read or, when canAssign and an `=` follows, a
// write of the variable named by tok, resolving it as a local, an
// upvalue, or (failing both) a global.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg int

	if slot := c.resolveLocalChecked(c.current, name); slot != -1 {
		getOp, setOp, arg = GET_LOCAL, SET_LOCAL, slot
	} else if idx := resolveUpvalue(c.current, name); idx != -1 {
		getOp, setOp, arg = GET_UPVALUE, SET_UPVALUE, idx
	} else {
		getOp, setOp, arg = GET_GLOBAL, SET_GLOBAL, int(c.identifierConstant(name))
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}
