// Package machine implements the virtual machine that executes mire's
// compiled bytecode: a tight switch-on-opcode dispatch loop operating on a
// fixed-capacity evaluation stack and a bounded call-frame stack. Its
// configuration knobs (step budget, stress GC, logging) are plain fields
// on a Thread-style config struct rather than a growable options list,
// since mire's execution model is synchronous and never cancelled
// mid-run.
package machine

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hearthlang/mire/internal/config"
	"github.com/hearthlang/mire/lang/gc"
	"github.com/hearthlang/mire/lang/table"
	"github.com/hearthlang/mire/lang/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// callFrame is one active function invocation: the closure it is
// executing, the instruction pointer into that closure's chunk, and the
// base stack slot (slot 0 holds the callee itself, matching the
// compiler's reserved local at index 0).
type callFrame struct {
	closure *value.Closure
	ip      int
	base    int
}

// VM is mire's single-threaded bytecode interpreter. Its stack is a fixed
// array (not a growable slice) so that open upvalues can hold stable
// pointers into it for the VM's lifetime, exactly as clox's
// `Value stack[STACK_MAX]` does.
type VM struct {
	cfg config.Config
	gc  *gc.Collector

	// Stdout receives PRINT output. Defaults to os.Stdout; tests substitute
	// a buffer to capture output without touching the real console.
	Stdout io.Writer

	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]callFrame
	frameCount int

	globals table.Table

	openUpvalues *value.Upvalue

	steps uint64

	clockEpoch float64

	// pendingErr/lastNativeErr carry a runtime failure from a helper
	// (callValue, arithmetic) back up to run's dispatch loop, which turns
	// it into a *RuntimeError with a stack trace attached.
	pendingErr    string
	lastNativeErr error
}

// NewVM constructs a VM whose collector is seeded with cfg's initial heap
// size, and registers the native globals described in SPEC_FULL.md 4.8.
func NewVM(cfg config.Config) *VM {
	vm := &VM{cfg: cfg, Stdout: os.Stdout}
	vm.gc = gc.New(cfg.InitialHeapBytes)
	vm.gc.StressGC = cfg.StressGC
	vm.gc.SetGrowFactor(cfg.HeapGrowFactor)
	if cfg.LogGC {
		vm.gc.SetLogger(func(s string) { fmt.Fprintln(os.Stderr, s) })
	}
	vm.clockEpoch = float64(time.Now().UnixNano()) / 1e9
	vm.defineNatives()
	return vm
}

// Free drops the VM's references to its heap. mire relies on Go's own
// garbage collector to reclaim a VM's memory once nothing references it;
// this merely resets the VM to an inert state for reuse detection.
func (vm *VM) Free() {
	vm.gc = nil
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Push and Pop are exposed so native functions can manipulate the stack
// directly; nothing else outside this package should call them.
func (vm *VM) Push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) Pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// GC returns the collector the VM allocates through. The compiler must be
// constructed with this same collector (package lang/lox wires them
// together) so that compile-time string constants and run-time strings
// share one intern table: interning only dedups identical-byte strings
// that flow through one table, not two.
func (vm *VM) GC() *gc.Collector { return vm.gc }

// Config returns the tunables the VM was constructed with, so callers
// (package lang/lox) can consult debug flags like PrintCode without the
// VM needing to know about disassembly.
func (vm *VM) Config() config.Config { return vm.cfg }

// MarkRoots implements gc.RootProvider: every stack slot in use, every
// active frame's closure, every open upvalue, and the globals table.
func (vm *VM) MarkRoots(c *gc.Collector) {
	for i := 0; i < vm.stackTop; i++ {
		c.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		c.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		c.MarkObject(uv)
	}
	vm.globals.Each(func(k, v value.Value) {
		c.MarkValue(k)
		c.MarkValue(v)
	})
}

// RuntimeError carries the formatted message and stack trace produced by
// a failed bytecode instruction.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	s := e.Message
	for _, line := range e.Trace {
		s += "\n" + line
	}
	return s
}

// Interpret wraps fn in a closure, pushes it, invokes it via the CALL
// path, and runs the dispatch loop to completion. Compiling source text
// into fn is lang/lox's responsibility, not this package's.
func (vm *VM) Interpret(fn *value.Function) error {
	vm.steps = 0 // MaxSteps budgets each Interpret call separately

	// fn must be anchored on the stack before NewClosure can allocate: at
	// this point no frame is pushed and nothing else roots fn or its
	// chunk's constants, so a collection triggered by NewClosure itself
	// would sweep them. clox: push(OBJ_VAL(function)); closure =
	// newClosure(...); pop(); push(OBJ_VAL(closure)).
	vm.Push(value.FromObj(fn))
	closure := vm.gc.NewClosure(fn, make([]*value.Upvalue, fn.UpvalueCount), vm)
	vm.stack[vm.stackTop-1] = value.FromObj(closure)
	if !vm.callValue(value.FromObj(closure), 0) {
		return &RuntimeError{Message: vm.callErrorMessage()}
	}
	return vm.run()
}
