package compiler

import (
	"github.com/dolthub/swiss"

	"github.com/hearthlang/mire/lang/chunk"
	"github.com/hearthlang/mire/lang/token"
	"github.com/hearthlang/mire/lang/value"
)

// declaration compiles one top-level-or-block declaration, recovering
// from a syntax error by synchronizing to the next likely statement
// boundary. It returns any interruptors bubbled up from a nested
// statement.
func (c *Compiler) declaration() []interruptor {
	var pending []interruptor
	switch {
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		pending = c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
	return pending
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expect variable name")

	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(NIL)
	}
	c.consume(token.SEMI, "expect ';' after variable declaration")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expect function name")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

// function compiles a `fun` body in its own frame, then emits CLOSURE in
// the enclosing frame's chunk referencing the compiled function as a
// constant, followed by one (isLocal, index) pair per upvalue it
// captured.
func (c *Compiler) function(ft funcType) {
	name := c.internString(c.prev.val.Lexeme)
	fn := c.gc.NewFunction(name, 0, &chunk.Chunk{}, c)

	enclosing := c.current
	c.current = newFrame(enclosing, ft, fn)
	c.beginScope()

	c.consume(token.LPAREN, "expect '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			c.current.function.Arity++
			if c.current.function.Arity > maxArgs {
				c.errorAtCurrent("can't have more than 255 parameters")
			}
			param := c.parseVariable("expect parameter name")
			c.defineVariable(param)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after parameters")
	c.consume(token.LBRACE, "expect '{' before function body")
	c.block()

	compiled, upvalues := c.endCompiler()

	idx := c.makeConstant(value.FromObj(compiled))
	c.emitOpByte(CLOSURE, idx)
	for _, uv := range upvalues {
		b := byte(0)
		if uv.isLocal {
			b = 1
		}
		c.emitByte(b)
		c.emitByte(uv.index)
	}
}

// endCompiler finishes the current frame, restoring the enclosing one,
// and returns the compiled function together with the upvalue capture
// list the caller must encode as CLOSURE's trailing operand pairs — in
// the enclosing frame's chunk, which is why encoding happens one level
// up rather than here.
func (c *Compiler) endCompiler() (*value.Function, []upvalueRef) {
	c.emitReturn()
	f := c.current
	c.current = f.enclosing
	return f.function, f.upvalues
}

func (c *Compiler) block() []interruptor {
	var pending []interruptor
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		pending = append(pending, c.declaration()...)
	}
	c.consume(token.RBRACE, "expect '}' after block")
	return pending
}

func (c *Compiler) statement() []interruptor {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.pushContext(ctxFor)
		c.forStatement()
		c.popContext()
	case c.match(token.IF):
		c.pushContext(ctxIf)
		defer c.popContext()
		return c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.pushContext(ctxWhile)
		c.whileStatement()
		c.popContext()
	case c.match(token.LBRACE):
		c.beginScope()
		c.pushContext(ctxBlock)
		pending := c.block()
		c.popContext()
		c.endScope()
		return pending
	case c.match(token.SWITCH):
		c.pushContext(ctxSwitch)
		defer c.popContext()
		return c.switchStatement()
	case c.match(token.BREAK):
		return c.interruptorStatement(interruptBreak)
	case c.match(token.CONTINUE):
		return c.interruptorStatement(interruptContinue)
	default:
		c.expressionStatement()
	}
	return nil
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMI, "expect ';' after value")
	c.emitOp(PRINT)
}

func (c *Compiler) returnStatement() {
	if c.current.funcType == typeScript {
		c.errorAtPrevious("can't return from top-level code")
	}
	if c.match(token.SEMI) {
		c.emitReturn()
		return
	}
	c.expression()
	c.consume(token.SEMI, "expect ';' after return value")
	c.emitOp(RETURN)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMI, "expect ';' after expression")
	c.emitOp(POP)
}

// ifStatement emits: condition, JUMP_IF_FALSE past the then-branch, POP
// the condition, then-branch, JUMP past the else-branch, patch, POP the
// condition again (for the false path), else-branch, patch.
func (c *Compiler) ifStatement() []interruptor {
	c.consume(token.LPAREN, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")

	thenJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	pending := c.statement()

	elseJump := c.emitJump(JUMP)
	c.patchJump(thenJump)
	c.emitOp(POP)

	if c.match(token.ELSE) {
		pending = append(pending, c.statement()...)
	}
	c.patchJump(elseJump)
	return pending
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.current.chunk.Code)
	c.consume(token.LPAREN, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")

	exitJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)

	pending := c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(POP)

	c.resolveLoopInterruptors(pending, loopStart)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expect '(' after 'for'")
	switch {
	case c.match(token.SEMI):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.current.chunk.Code)
	exitJump := -1
	if !c.match(token.SEMI) {
		c.expression()
		c.consume(token.SEMI, "expect ';' after loop condition")
		exitJump = c.emitJump(JUMP_IF_FALSE)
		c.emitOp(POP)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(JUMP)
		incrStart := len(c.current.chunk.Code)
		c.expression()
		c.emitOp(POP)
		c.consume(token.RPAREN, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	}

	pending := c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(POP)
	}

	c.resolveLoopInterruptors(pending, loopStart)
	c.endScope()
}

// resolveLoopInterruptors patches every break to the next instruction to
// be emitted and every continue to loopStart. The while/for callers run it
// after the exit path's POP of the condition, since a break has already
// popped the condition on its way into the body.
func (c *Compiler) resolveLoopInterruptors(pending []interruptor, loopStart int) {
	for _, it := range pending {
		switch it.kind {
		case interruptBreak:
			c.patchJump(it.position)
		case interruptContinue:
			c.patchLoop(it.position, loopStart)
		}
	}
}

// switchStatement compiles the case chain: the switch value is evaluated
// once and left on the stack across every case comparison; each case
// pops its own comparison result and its case value once it has either
// matched and run or been skipped, and the switch value is popped once
// after the last case. A `continue` found in any
// case is not handled by switch and is forwarded to the enclosing loop,
// since continue is only legal inside loops.
func (c *Compiler) switchStatement() []interruptor {
	c.consume(token.LPAREN, "expect '(' after 'switch'")
	c.expression()
	c.consume(token.RPAREN, "expect ')' after condition")
	c.consume(token.LBRACE, "expect '{' after switch condition")

	// seenCases dedups case literals within this switch (SPEC_FULL.md
	// 4.7); only simple literal case expressions are tracked, since
	// detecting duplicates among arbitrary case expressions at compile
	// time isn't generally decidable.
	seenCases := swiss.NewMap[string, bool](8)

	var all []interruptor
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		switch {
		case c.match(token.CASE):
			c.checkDuplicateCase(seenCases)
			all = append(all, c.switchCase(false)...)
		case c.match(token.DEFAULT):
			all = append(all, c.switchCase(true)...)
		default:
			c.errorAtCurrent("expect 'case' or 'default'")
			c.advance()
		}
	}
	c.consume(token.RBRACE, "expect '}' after switch statement")

	var forwarded []interruptor
	for _, it := range all {
		if it.kind == interruptBreak {
			c.patchJump(it.position)
		} else {
			forwarded = append(forwarded, it)
		}
	}

	c.emitOp(POP) // switch condition
	return forwarded
}

// checkDuplicateCase records the upcoming case's literal value (when it
// is a simple NUMBER/STRING/TRUE/FALSE/NIL literal) and reports a compile
// error if an identical literal already appeared in this switch.
func (c *Compiler) checkDuplicateCase(seen *swiss.Map[string, bool]) {
	var key string
	switch c.cur.tok {
	case token.NUMBER:
		key = "n:" + c.cur.val.Lexeme
	case token.STRING:
		key = "s:" + c.cur.val.Str
	case token.TRUE, token.FALSE, token.NIL:
		key = "k:" + c.cur.tok.String()
	default:
		return
	}
	if _, ok := seen.Get(key); ok {
		c.errorAtCurrent("duplicate case value")
		return
	}
	seen.Put(key, true)
}

func (c *Compiler) switchCase(isDefault bool) []interruptor {
	if !isDefault {
		c.expression()
	}
	c.consume(token.COLON, "expect ':' after case expression")

	if isDefault {
		return c.statement()
	}

	c.emitOp(SWITCH_CASE_EQUAL)
	nextCaseJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP) // comparison result
	c.emitOp(POP) // case expression

	pending := c.statement()

	skipJump := c.emitJump(JUMP)
	c.patchJump(nextCaseJump)
	c.emitOp(POP) // comparison result
	c.emitOp(POP) // case expression
	c.patchJump(skipJump)

	return pending
}
