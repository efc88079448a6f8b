package machine

import (
	"fmt"

	"github.com/hearthlang/mire/lang/compiler"
	"github.com/hearthlang/mire/lang/value"
)

// run is the dispatch loop: it decodes and executes instructions from the
// top call frame, following the opcode table in lang/compiler/opcode.go,
// until every frame returns (success) or an instruction fails (runtime
// error).
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]
	code := frame.closure.Function.Chunk.Code

	readByte := func() byte {
		b := code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi, lo := code[frame.ip], code[frame.ip+1]
		frame.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func(op compiler.Opcode) value.Value {
		var idx int
		if op == compiler.CONSTANT_LONG {
			b0, b1, b2 := readByte(), readByte(), readByte()
			idx = int(b0) | int(b1)<<8 | int(b2)<<16
		} else {
			idx = int(readByte())
		}
		return frame.closure.Function.Chunk.Constants[idx].(value.Value)
	}

	for {
		if vm.cfg.MaxSteps > 0 && vm.steps >= uint64(vm.cfg.MaxSteps) {
			return vm.runtimeError("step limit exceeded", frame)
		}
		vm.steps++

		op := compiler.Opcode(readByte())

		switch op {
		case compiler.NOP:

		case compiler.CONSTANT, compiler.CONSTANT_LONG:
			vm.Push(readConstant(op))

		case compiler.NIL:
			vm.Push(value.Nil)
		case compiler.TRUE:
			vm.Push(value.True)
		case compiler.FALSE:
			vm.Push(value.False)
		case compiler.POP:
			vm.Pop()

		case compiler.GET_LOCAL:
			slot := int(readByte())
			vm.Push(vm.stack[frame.base+slot])
		case compiler.SET_LOCAL:
			slot := int(readByte())
			vm.stack[frame.base+slot] = vm.peek(0)

		case compiler.GET_GLOBAL:
			name := readConstant(compiler.CONSTANT).AsString()
			v, ok := vm.globals.Get(value.FromObj(name))
			if !ok {
				return vm.runtimeError("undefined variable '"+name.Chars+"'", frame)
			}
			vm.Push(v)
		case compiler.SET_GLOBAL:
			name := readConstant(compiler.CONSTANT).AsString()
			if vm.globals.Set(value.FromObj(name), vm.peek(0)) {
				vm.globals.Delete(value.FromObj(name))
				return vm.runtimeError("undefined variable '"+name.Chars+"'", frame)
			}
		case compiler.DEFINE_GLOBAL:
			name := readConstant(compiler.CONSTANT).AsString()
			vm.globals.Set(value.FromObj(name), vm.peek(0))
			vm.Pop()

		case compiler.GET_UPVALUE:
			idx := int(readByte())
			vm.Push(*frame.closure.Upvalues[idx].Location)
		case compiler.SET_UPVALUE:
			idx := int(readByte())
			*frame.closure.Upvalues[idx].Location = vm.peek(0)

		case compiler.EQUAL:
			b, a := vm.Pop(), vm.Pop()
			vm.Push(value.Bool(value.Equal(a, b)))
		case compiler.GREATER, compiler.LESS:
			b, a := vm.Pop(), vm.Pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError("operands must be numbers", frame)
			}
			if op == compiler.GREATER {
				vm.Push(value.Bool(a.AsNumber() > b.AsNumber()))
			} else {
				vm.Push(value.Bool(a.AsNumber() < b.AsNumber()))
			}

		case compiler.ADD:
			// Operands stay on the stack (rooted) through NewString's
			// allocation, which may trigger a collection; only popped once
			// the concatenated string is safely referenced.
			a, b := vm.peek(1), vm.peek(0)
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.Pop()
				vm.Pop()
				vm.Push(value.Number(a.AsNumber() + b.AsNumber()))
			case a.IsString() && b.IsString():
				concatenated := a.AsString().Chars + b.AsString().Chars
				s := vm.gc.NewString(concatenated, compiler.FNV1a(concatenated), true, vm)
				vm.Pop()
				vm.Pop()
				vm.Push(value.FromObj(s))
			default:
				return vm.runtimeError("operands must be two numbers or two strings", frame)
			}
		case compiler.MULTIPLY, compiler.DIVIDE:
			b, a := vm.Pop(), vm.Pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError("operands must be numbers", frame)
			}
			if op == compiler.MULTIPLY {
				vm.Push(value.Number(a.AsNumber() * b.AsNumber()))
			} else {
				vm.Push(value.Number(a.AsNumber() / b.AsNumber()))
			}

		case compiler.NOT:
			vm.Push(value.Bool(!vm.Pop().Truthy()))
		case compiler.NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("operand must be a number", frame)
			}
			vm.stack[vm.stackTop-1] = value.Number(-vm.Pop().AsNumber())

		case compiler.PRINT:
			fmt.Fprintln(vm.Stdout, vm.Pop().String())

		case compiler.JUMP:
			offset := readShort()
			frame.ip += offset
		case compiler.JUMP_IF_FALSE:
			offset := readShort()
			if !vm.peek(0).Truthy() {
				frame.ip += offset
			}
		case compiler.LOOP:
			offset := readShort()
			frame.ip -= offset

		case compiler.CALL:
			argc := int(readByte())
			callee := vm.peek(argc)
			if !vm.callValue(callee, argc) {
				return vm.runtimeError(vm.callErrorMessage(), frame)
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Function.Chunk.Code

		case compiler.CLOSURE:
			fnVal := readConstant(compiler.CONSTANT)
			fn := fnVal.AsObj().(*value.Function)
			upvalues := make([]*value.Upvalue, fn.UpvalueCount)
			for i := range upvalues {
				isLocal := readByte() != 0
				idx := int(readByte())
				if isLocal {
					upvalues[i] = vm.captureUpvalue(frame.base + idx)
				} else {
					upvalues[i] = frame.closure.Upvalues[idx]
				}
			}
			closure := vm.gc.NewClosure(fn, upvalues, vm)
			vm.Push(value.FromObj(closure))

		case compiler.CLOSE_UPVALUE:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.Pop()

		case compiler.SWITCH_CASE_EQUAL:
			vm.Push(value.Bool(value.Equal(vm.peek(0), vm.peek(1))))

		case compiler.RETURN:
			result := vm.Pop()
			vm.closeUpvalues(frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.Pop()
				return nil
			}
			vm.stackTop = frame.base
			vm.Push(result)
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Function.Chunk.Code

		default:
			return vm.runtimeError("illegal opcode", frame)
		}
	}
}

func (vm *VM) callErrorMessage() string {
	if vm.lastNativeErr != nil {
		msg := vm.lastNativeErr.Error()
		vm.lastNativeErr = nil
		return msg
	}
	return vm.pendingErr
}
