// Package compiler implements mire's single-pass Pratt-parser compiler: it
// walks the token stream exactly once, emitting bytecode directly into a
// chunk as it recognizes each construct, with forward references (jumps,
// not-yet-resolved upvalues) patched once their target offset is known.
// The overall shape — a Parser cursor, a chain of per-function Compiler
// frames, an enclosing-context stack governing break/continue — follows
// clox's compiler.c, extended with full closures and upvalues (that
// dialect of Lox has neither) and adapted from single-character token
// spellings to this package's token.Token enum.
package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/hearthlang/mire/lang/chunk"
	"github.com/hearthlang/mire/lang/gc"
	"github.com/hearthlang/mire/lang/scanner"
	"github.com/hearthlang/mire/lang/token"
	"github.com/hearthlang/mire/lang/value"
)

const maxLocals = 256
const maxUpvalues = 256
const maxArgs = 255

// funcType distinguishes the implicit top-level script function from an
// ordinary `fun` declaration, mirroring clox's FunctionType.
type funcType int

const (
	typeScript funcType = iota
	typeFunction
)

type local struct {
	name     string
	depth    int // -1 means "declared but not yet initialized"
	captured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// frame holds the compiler state for one function body being compiled:
// its own locals, upvalues and scope depth, chained to the function
// lexically enclosing it.
type frame struct {
	enclosing *frame
	funcType  funcType

	function *value.Function
	chunk    *chunk.Chunk

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int

	globalConsts *swiss.Map[string, int] // dedup of GET/SET/DEFINE_GLOBAL name constants
	stringConsts *swiss.Map[string, int] // dedup of string-literal constants
}

func newFrame(enclosing *frame, ft funcType, fn *value.Function) *frame {
	f := &frame{
		enclosing:    enclosing,
		funcType:     ft,
		function:     fn,
		chunk:        fn.Chunk,
		globalConsts: swiss.NewMap[string, int](8),
		stringConsts: swiss.NewMap[string, int](8),
	}
	// Slot 0 is reserved for the callee itself (the closure being called),
	// so user locals start at slot 1, matching clox's reserved first Local.
	f.locals = append(f.locals, local{name: "", depth: 0})
	return f
}

// Compiler drives a single compilation of one source unit into a top-level
// Function, or reports a compile error.
type Compiler struct {
	gc *gc.Collector

	sc   *scanner.Scanner
	prev struct {
		tok token.Token
		val token.Value
	}
	cur struct {
		tok token.Token
		val token.Value
	}

	hadError  bool
	panicMode bool
	errs      []string

	current  *frame
	contexts []enclosingContext
}

// New returns a Compiler that will compile src, allocating heap objects
// (interned strings, function objects) through coll.
func New(src []byte, coll *gc.Collector) *Compiler {
	c := &Compiler{gc: coll}
	c.sc = scanner.New(src, c.scanError)
	return c
}

func (c *Compiler) scanError(line int, msg string) {
	c.errs = append(c.errs, fmt.Sprintf("[line %d] Error: %s", line, msg))
}

// MarkRoots marks every function currently under construction, across all
// nested frames, as a GC root — the compiler keeps allocating (interning
// strings, building nested Function objects) while the frame chain is its
// only reference to them.
func (c *Compiler) MarkRoots(coll *gc.Collector) {
	for f := c.current; f != nil; f = f.enclosing {
		coll.MarkObject(f.function)
	}
}

// Compile runs the compiler to completion and returns the top-level
// script function, or an error describing every diagnostic collected
// during panic-mode recovery.
func (c *Compiler) Compile() (*value.Function, error) {
	topChunk := &chunk.Chunk{}
	top := c.gc.NewFunction(nil, 0, topChunk, c)
	c.current = newFrame(nil, typeScript, top)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.endCompiler()

	if c.hadError {
		return nil, &CompileError{Messages: c.errs}
	}
	return top, nil
}

// CompileError reports every diagnostic accumulated during panic-mode
// recovery, so a source file with several mistakes gets several
// messages in one pass instead of stopping at the first.
type CompileError struct{ Messages []string }

func (e *CompileError) Error() string {
	if len(e.Messages) == 0 {
		return "compile error"
	}
	msg := e.Messages[0]
	for _, m := range e.Messages[1:] {
		msg += "\n" + m
	}
	return msg
}

// --- parser cursor -------------------------------------------------------

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		tok, val := c.sc.Scan()
		c.cur.tok, c.cur.val = tok, val
		if tok != token.ILLEGAL {
			break
		}
		c.errorAtCurrent("")
	}
}

func (c *Compiler) check(tok token.Token) bool { return c.cur.tok == tok }

func (c *Compiler) match(tok token.Token) bool {
	if !c.check(tok) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(tok token.Token, msg string) {
	if c.check(tok) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.cur.tok, c.cur.val, msg) }
func (c *Compiler) errorAtPrevious(msg string) { c.errorAt(c.prev.tok, c.prev.val, msg) }

func (c *Compiler) errorAt(tok token.Token, val token.Value, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := "at '" + val.Lexeme + "'"
	if tok == token.EOF {
		where = "at end"
	}
	if msg == "" {
		msg = "unexpected token"
	}
	c.errs = append(c.errs, fmt.Sprintf("[line %d] Error %s: %s", val.Pos, where, msg))
}

// synchronize discards tokens until it reaches a likely statement
// boundary, so a single syntax error does not cascade.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.tok != token.EOF {
		if c.prev.tok == token.SEMI {
			return
		}
		switch c.cur.tok {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.SWITCH:
			return
		}
		c.advance()
	}
}

// --- emission helpers -----------------------------------------------------

func (c *Compiler) emitByte(b byte) int {
	return c.current.chunk.Write(b, int(c.prev.val.Pos))
}

func (c *Compiler) emitOp(op Opcode) int { return c.emitByte(byte(op)) }

func (c *Compiler) emitOpByte(op Opcode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

// emitJump emits op followed by a placeholder 16-bit operand and returns
// the offset of the first operand byte, for a later patchJump.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.current.chunk.Code) - 2
}

// patchJump backfills the jump operand at offset so it lands on the
// instruction that is about to be emitted next.
func (c *Compiler) patchJump(offset int) {
	jump := len(c.current.chunk.Code) - offset - 2
	if jump > 0xffff {
		c.errorAtPrevious("too much code to jump over")
		return
	}
	c.current.chunk.Code[offset] = byte(jump >> 8)
	c.current.chunk.Code[offset+1] = byte(jump)
}

// emitLoop emits LOOP with the backward delta to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(LOOP)
	offset := len(c.current.chunk.Code) - loopStart + 2
	if offset > 0xffff {
		c.errorAtPrevious("loop body too large")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// emitLoopPlaceholder emits LOOP with a placeholder operand (used by
// `continue`, whose backward target — the loop's increment/condition — is
// not yet known at the point the statement is compiled) and returns the
// offset of the operand for patchLoop.
func (c *Compiler) emitLoopPlaceholder() int {
	c.emitOp(LOOP)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.current.chunk.Code) - 2
}

func (c *Compiler) patchLoop(offset, loopStart int) {
	jump := offset - loopStart + 2
	if jump > 0xffff {
		c.errorAtPrevious("too much code to loop over")
		return
	}
	c.current.chunk.Code[offset] = byte(jump >> 8)
	c.current.chunk.Code[offset+1] = byte(jump)
}

func (c *Compiler) emitReturn() {
	c.emitOp(NIL)
	c.emitOp(RETURN)
}

// makeConstant appends v to the current chunk's pool and returns its
// index as a single byte, for operand slots that have no "long" encoding
// (GET_GLOBAL/SET_GLOBAL/DEFINE_GLOBAL's identifier operand).
func (c *Compiler) makeConstant(v any) byte {
	idx := c.current.chunk.AddConstant(v)
	if idx > 0xff {
		c.errorAtPrevious("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

// emitConstant appends v to the pool and loads it.
func (c *Compiler) emitConstant(v any) {
	c.emitLoadConstant(c.current.chunk.AddConstant(v))
}

// emitLoadConstant emits whichever load instruction fits idx: CONSTANT for
// the first 256 pool entries, falling back to the 24-bit CONSTANT_LONG
// beyond that, matching chunk.c's writeConstant.
func (c *Compiler) emitLoadConstant(idx int) {
	if idx > 0xffffff {
		c.errorAtPrevious("too many constants in one chunk")
		return
	}
	if idx <= 0xff {
		c.emitOpByte(CONSTANT, byte(idx))
		return
	}
	c.emitOp(CONSTANT_LONG)
	c.emitByte(byte(idx))
	c.emitByte(byte(idx >> 8))
	c.emitByte(byte(idx >> 16))
}

// internString interns lit (already unquoted/unescaped by the scanner)
// and returns a heap *value.String, computing its FNV-1a hash the same
// way the garbage collector expects for interning.
func (c *Compiler) internString(lit string) *value.String {
	h := fnv1a(lit)
	return c.gc.NewString(lit, h, false, c)
}

func fnv1a(s string) uint32 { return FNV1a(s) }

// FNV1a computes the same hash the garbage collector's string interning
// expects, exported so package machine can hash strings it builds at
// runtime (e.g. ADD's string concatenation) the same way.
func FNV1a(s string) uint32 {
	const offset = 2166136261
	const prime = 16777619
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// identifierConstant interns name and returns (or reuses) its constant
// pool index, for GET_GLOBAL/SET_GLOBAL/DEFINE_GLOBAL operands.
func (c *Compiler) identifierConstant(name string) byte {
	if idx, ok := c.current.globalConsts.Get(name); ok {
		return byte(idx)
	}
	idx := int(c.makeConstant(value.FromObj(c.internString(name))))
	c.current.globalConsts.Put(name, idx)
	return byte(idx)
}
