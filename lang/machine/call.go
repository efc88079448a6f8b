package machine

import (
	"fmt"
	"unsafe"

	"github.com/hearthlang/mire/lang/value"
)

// callValue implements CALL's callee dispatch: a closure pushes a new
// frame over its stack window; a native is invoked directly and its
// result replaces the call window. argc is the number of arguments
// already on the stack above the callee itself.
func (vm *VM) callValue(callee value.Value, argc int) bool {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.Closure:
			return vm.call(obj, argc)
		case *value.Native:
			args := make([]value.Value, argc)
			copy(args, vm.stack[vm.stackTop-argc:vm.stackTop])
			result, err := obj.Fn(args)
			if err != nil {
				vm.lastNativeErr = err
				return false
			}
			vm.stackTop -= argc + 1
			vm.Push(result)
			return true
		}
	}
	vm.lastNativeErr = nil
	vm.pendingErr = "can only call functions and classes"
	return false
}

// call validates arity and pushes a new callFrame for closure, with its
// stack base set so that closure.slots[0] is the callee itself.
func (vm *VM) call(closure *value.Closure, argc int) bool {
	if argc != closure.Function.Arity {
		vm.pendingErr = formatArityError(closure, argc)
		return false
	}
	if vm.frameCount == framesMax {
		vm.pendingErr = "stack overflow"
		return false
	}

	vm.frames[vm.frameCount] = callFrame{
		closure: closure,
		ip:      0,
		base:    vm.stackTop - argc - 1,
	}
	vm.frameCount++
	return true
}

func formatArityError(closure *value.Closure, got int) string {
	want := closure.Function.Arity
	if want == 1 {
		return fmt.Sprintf("expected 1 argument but got %d", got)
	}
	return fmt.Sprintf("expected %d arguments but got %d", want, got)
}

// captureUpvalue finds or creates an open upvalue for the stack slot at
// local, keeping vm.openUpvalues sorted by descending slot so the search
// can stop early and so closing walks from the top down.
func (vm *VM) captureUpvalue(local int) *value.Upvalue {
	var prev *value.Upvalue
	uv := vm.openUpvalues
	for uv != nil && vm.slotOf(uv.Location) > local {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && vm.slotOf(uv.Location) == local {
		return uv
	}

	created := vm.gc.NewUpvalue(&vm.stack[local], vm)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose slot is >= last, copying
// each one's value out of the stack before that slot is reused.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.slotOf(vm.openUpvalues.Location) >= last {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}

// slotOf recovers a stack index from a pointer into vm.stack, relying on
// the array being one contiguous allocation (mirroring the raw pointer
// arithmetic clox's ObjUpvalue.location performs directly in C).
func (vm *VM) slotOf(p *value.Value) int {
	base := uintptr(unsafe.Pointer(&vm.stack[0]))
	off := uintptr(unsafe.Pointer(p)) - base
	return int(off / unsafe.Sizeof(vm.stack[0]))
}
