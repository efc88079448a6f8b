package compiler

import (
	"github.com/hearthlang/mire/lang/token"
	"github.com/hearthlang/mire/lang/value"
)

// precedence orders binding strength low to high: ASSIGNMENT, QUESTION,
// COLON, OR, AND, EQUALITY, COMPARISON, TERM, FACTOR, UNARY, CALL,
// PRIMARY.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precQuestion
	precColon
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix, infix parseFn
	prec          precedence
}

// rules is the Pratt parser's per-token dispatch table: for each token
// kind, an optional prefix handler, an optional infix handler, and the
// infix precedence that drives parsePrecedence's climbing loop, the same
// shape as clox's `ParseRule rules[]` table.
var rules map[token.Token]parseRule

func init() {
	rules = map[token.Token]parseRule{
		token.LPAREN:   {(*Compiler).grouping, (*Compiler).call, precCall},
		token.MINUS:    {(*Compiler).unary, (*Compiler).binary, precTerm},
		token.PLUS:     {nil, (*Compiler).binary, precTerm},
		token.SLASH:    {nil, (*Compiler).binary, precFactor},
		token.STAR:     {nil, (*Compiler).binary, precFactor},
		token.QMARK:    {nil, (*Compiler).ternary, precQuestion},
		token.BANG:     {(*Compiler).unary, nil, precNone},
		token.BANG_EQ:  {nil, (*Compiler).binary, precEquality},
		token.EQ_EQ:    {nil, (*Compiler).binary, precEquality},
		token.GT:       {nil, (*Compiler).binary, precComparison},
		token.GT_EQ:    {nil, (*Compiler).binary, precComparison},
		token.LT:       {nil, (*Compiler).binary, precComparison},
		token.LT_EQ:    {nil, (*Compiler).binary, precComparison},
		token.IDENT:    {(*Compiler).variable, nil, precNone},
		token.STRING:   {(*Compiler).string, nil, precNone},
		token.NUMBER:   {(*Compiler).number, nil, precNone},
		token.AND:      {nil, (*Compiler).and_, precAnd},
		token.OR:       {nil, (*Compiler).or_, precOr},
		token.FALSE:    {(*Compiler).literal, nil, precNone},
		token.NIL:      {(*Compiler).literal, nil, precNone},
		token.TRUE:     {(*Compiler).literal, nil, precNone},
	}
}

func getRule(tok token.Token) parseRule {
	if r, ok := rules[tok]; ok {
		return r
	}
	return parseRule{}
}

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

// parsePrecedence implements the Pratt climbing loop: advance to consume
// the prefix token, run its prefix handler, then keep consuming infix
// operators whose precedence is at least `prec`.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.prev.tok).prefix
	if prefix == nil {
		c.errorAtPrevious("expect expression")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.cur.tok).prec {
		c.advance()
		infix := getRule(c.prev.tok).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.errorAtPrevious("invalid assignment target")
	}
}

func (c *Compiler) number(_ bool) {
	c.emitConstant(value.Number(c.prev.val.Number))
}

// string emits CONSTANT for a string literal, reusing the same pool slot
// for repeated occurrences of an identical literal within one function
// (mirroring identifierConstant's dedup of global names).
func (c *Compiler) string(_ bool) {
	lit := c.prev.val.Str
	if idx, ok := c.current.stringConsts.Get(lit); ok {
		c.emitLoadConstant(idx)
		return
	}
	idx := c.current.chunk.AddConstant(value.FromObj(c.internString(lit)))
	c.current.stringConsts.Put(lit, idx)
	c.emitLoadConstant(idx)
}

func (c *Compiler) literal(_ bool) {
	switch c.prev.tok {
	case token.FALSE:
		c.emitOp(FALSE)
	case token.NIL:
		c.emitOp(NIL)
	case token.TRUE:
		c.emitOp(TRUE)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPAREN, "expect ')' after expression")
}

func (c *Compiler) unary(_ bool) {
	op := c.prev.tok
	c.parsePrecedence(precUnary)
	switch op {
	case token.BANG:
		c.emitOp(NOT)
	case token.MINUS:
		c.emitOp(NEGATE)
	}
}

// binary compiles the right operand at one precedence higher than the
// operator's own (left-associativity) and emits the matching opcode
// sequence. MINUS has no dedicated opcode: `a - b` lowers to NEGATE(b);
// ADD(a, -b).
func (c *Compiler) binary(_ bool) {
	op := c.prev.tok
	rule := getRule(op)
	c.parsePrecedence(rule.prec + 1)

	switch op {
	case token.BANG_EQ:
		c.emitOp(EQUAL)
		c.emitOp(NOT)
	case token.EQ_EQ:
		c.emitOp(EQUAL)
	case token.GT:
		c.emitOp(GREATER)
	case token.GT_EQ:
		c.emitOp(LESS)
		c.emitOp(NOT)
	case token.LT:
		c.emitOp(LESS)
	case token.LT_EQ:
		c.emitOp(GREATER)
		c.emitOp(NOT)
	case token.PLUS:
		c.emitOp(ADD)
	case token.MINUS:
		c.emitOp(NEGATE)
		c.emitOp(ADD)
	case token.STAR:
		c.emitOp(MULTIPLY)
	case token.SLASH:
		c.emitOp(DIVIDE)
	}
}

// ternary compiles `c ? a : b` into a JUMP_IF_FALSE/JUMP pair, the same
// way an if/else compiles, rather than leaving it as an unemitted
// placeholder.
func (c *Compiler) ternary(_ bool) {
	thenJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.parsePrecedence(precQuestion + 1)

	elseJump := c.emitJump(JUMP)
	c.patchJump(thenJump)
	c.emitOp(POP)

	c.consume(token.COLON, "expect ':' after ternary then-branch")
	c.parsePrecedence(precQuestion + 1)
	c.patchJump(elseJump)
}

// and_ short-circuits: if the left operand (already on the stack) is
// falsey, skip the right operand entirely, leaving the left operand as
// the expression's result.
func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(JUMP_IF_FALSE)
	c.emitOp(POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or_ short-circuits the opposite way: if the left operand is truthy,
// jump past the right operand.
func (c *Compiler) or_(_ bool) {
	elseJump := c.emitJump(JUMP_IF_FALSE)
	endJump := c.emitJump(JUMP)

	c.patchJump(elseJump)
	c.emitOp(POP)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev.val.Lexeme, canAssign)
}

func (c *Compiler) call(_ bool) {
	argc := c.argumentList()
	c.emitOpByte(CALL, argc)
}

func (c *Compiler) argumentList() byte {
	var argc int
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == maxArgs {
				c.errorAtPrevious("can't have more than 255 arguments")
			}
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expect ')' after arguments")
	return byte(argc)
}
