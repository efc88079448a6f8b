package machine

import (
	"fmt"
	"time"

	"github.com/hearthlang/mire/lang/compiler"
	"github.com/hearthlang/mire/lang/value"
)

// defineNatives installs the predeclared native globals described in
// SPEC_FULL.md 4.8, following the convention used throughout the example
// corpus of exposing builtins as ordinary global bindings rather than
// dedicated opcodes.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", vm.nativeClock)
	vm.defineNative("len", nativeLen)
}

func (vm *VM) defineNative(name string, fn value.NativeFn) {
	// Anchor each allocation on the stack (rather than an unrooted Go local)
	// so a stress-GC collection between the two NewXxx calls can't reclaim
	// the name string before it reaches the globals table.
	s := vm.gc.NewString(name, compiler.FNV1a(name), false, vm)
	vm.Push(value.FromObj(s))
	native := vm.gc.NewNative(name, fn, vm)
	vm.Push(value.FromObj(native))
	vm.globals.Set(vm.peek(1), vm.peek(0))
	vm.Pop()
	vm.Pop()
}

func (vm *VM) nativeClock(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Nil, fmt.Errorf("clock() takes no arguments")
	}
	now := float64(time.Now().UnixNano())/1e9 - vm.clockEpoch
	return value.Number(now), nil
}

func nativeLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Nil, fmt.Errorf("len() takes exactly one argument")
	}
	if !args[0].IsString() {
		return value.Nil, fmt.Errorf("len() argument must be a string")
	}
	return value.Number(float64(len(args[0].AsString().Chars))), nil
}
