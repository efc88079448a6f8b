// Package lox implements mire's entry point: the glue that ties the
// scanner-driven compiler to the virtual machine and maps the outcome to
// a three-way OK/CompileError/RuntimeError result. It is the only package
// the command-line driver (internal/maincmd) depends on for running a
// program.
package lox

import (
	"fmt"
	"io"

	"github.com/hearthlang/mire/lang/compiler"
	"github.com/hearthlang/mire/lang/debug"
	"github.com/hearthlang/mire/lang/machine"
)

// Result is the three-way outcome of Interpret: compilation and
// execution either both succeed, or one of them fails distinctly.
type Result int

const (
	OK Result = iota
	CompileError
	RuntimeError
)

// Interpret compiles source against vm's own collector (so compile-time
// string constants and run-time strings share one intern table) and, if
// compilation succeeds, runs the resulting script on vm. Diagnostics are
// written to stderr as "[line N] message" text; Interpret itself never
// calls os.Exit — that mapping is internal/maincmd's job.
func Interpret(stderr io.Writer, vm *machine.VM, source []byte) Result {
	c := compiler.New(source, vm.GC())
	fn, cerr := c.Compile()
	if cerr != nil {
		fmt.Fprintln(stderr, cerr.Error())
		return CompileError
	}

	if vm.Config().PrintCode {
		debug.Disassemble(stderr, fn.Chunk, fn.String())
	}

	if rerr := vm.Interpret(fn); rerr != nil {
		fmt.Fprintln(stderr, rerr.Error())
		return RuntimeError
	}
	return OK
}
