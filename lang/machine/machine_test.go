package machine_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlang/mire/internal/config"
	"github.com/hearthlang/mire/lang/compiler"
	"github.com/hearthlang/mire/lang/gc"
	"github.com/hearthlang/mire/lang/machine"
)

// run compiles src and executes it on a fresh VM, returning everything
// PRINTed and any runtime error. A compile error fails the test immediately
// since these tests exercise the VM, not the compiler.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	return runWithConfig(t, src, config.Config{InitialHeapBytes: 1 << 20})
}

func runWithConfig(t *testing.T, src string, cfg config.Config) (string, error) {
	t.Helper()
	vm := machine.NewVM(cfg)
	c := compiler.New([]byte(src), vm.GC())
	fn, cerr := c.Compile()
	require.Nil(t, cerr, "unexpected compile error: %v", cerr)

	var out bytes.Buffer
	vm.Stdout = &out
	err := vm.Interpret(fn)
	return out.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, "print 1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestSubtractionViaNegateAdd(t *testing.T) {
	out, err := run(t, "print 5 - 2;")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestStringConcatenationUnderStressGC(t *testing.T) {
	// Forces a collection on every single allocation, exercising the
	// anchor-before-allocate discipline ADD's concatenation relies on.
	out, err := runWithConfig(t, `
		var a = "hello, ";
		var b = "world";
		print a + b;
		print a + b;
	`, config.Config{InitialHeapBytes: 1, StressGC: true})
	require.NoError(t, err)
	assert.Equal(t, "hello, world\nhello, world\n", out)
}

func TestGlobalVariables(t *testing.T) {
	out, err := run(t, `
		var x = 10;
		x = x + 5;
		print x;
	`)
	require.NoError(t, err)
	assert.Equal(t, "15\n", out)
}

func TestAssignmentToUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, "x = 1;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable 'x'")
}

func TestReadingUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, "print x;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable 'x'")
}

func TestLocalsAndBlockScoping(t *testing.T) {
	out, err := run(t, `
		var a = "outer";
		{
			var a = "inner";
			print a;
		}
		print a;
	`)
	require.NoError(t, err)
	assert.Equal(t, "inner\nouter\n", out)
}

func TestIfElse(t *testing.T) {
	out, err := run(t, `
		if (1 < 2) { print "yes"; } else { print "no"; }
		if (2 < 1) { print "yes"; } else { print "no"; }
	`)
	require.NoError(t, err)
	assert.Equal(t, "yes\nno\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestForLoopWithBreakAndContinue(t *testing.T) {
	out, err := run(t, `
		var sum = 0;
		for (var i = 0; i < 10; i = i + 1) {
			if (i == 5) { break; }
			if (i == 2) { continue; }
			sum = sum + i;
		}
		print sum;
	`)
	require.NoError(t, err)
	// 0 + 1 + 3 + 4 = 8 (2 skipped by continue, loop stops before 5 via break)
	assert.Equal(t, "8\n", out)
}

func TestTernary(t *testing.T) {
	out, err := run(t, `print 1 < 2 ? "a" : "b";`)
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)
}

func TestSwitchStatement(t *testing.T) {
	out, err := run(t, `
		var x = 2;
		switch (x) {
			case 1: print "one";
			case 2: print "two";
			default: print "other";
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "two\nother\n", out)
}

func TestLogicalOperatorsShortCircuit(t *testing.T) {
	out, err := run(t, `
		fun sideEffect() { print "called"; return true; }
		print false and sideEffect();
		print true or sideEffect();
	`)
	require.NoError(t, err)
	// sideEffect must never run: neither "called" line appears.
	assert.Equal(t, "false\ntrue\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out, err := run(t, `
		fun add(a, b) { return a + b; }
		print add(2, 3);
	`)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestRecursiveFunction(t *testing.T) {
	out, err := run(t, `
		fun fib(n) {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestCallArityMismatchIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		fun add(a, b) { return a + b; }
		add(1);
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 arguments but got 1")
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		var x = 1;
		x();
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can only call functions and classes")
}

func TestRuntimeErrorMessageAndStackTrace(t *testing.T) {
	_, err := run(t, `
		fun inner() { return 1 + "a"; }
		fun outer() { return inner(); }
		outer();
	`)
	require.Error(t, err)
	msg := err.Error()
	lines := strings.Split(msg, "\n")
	require.True(t, len(lines) >= 3)
	assert.Contains(t, lines[0], "operands must be two numbers or two strings")
	assert.Contains(t, lines[1], "in inner()")
	assert.Contains(t, lines[2], "in outer()")
	assert.Contains(t, lines[len(lines)-1], "in script")
}

func TestClosureCapturesOpenUpvalue(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClosureCapturesClosedUpvalueAfterReturn(t *testing.T) {
	out, err := run(t, `
		fun makeAdder(x) {
			fun add(y) { return x + y; }
			return add;
		}
		var addFive = makeAdder(5);
		var addTen = makeAdder(10);
		print addFive(1);
		print addTen(1);
		print addFive(2);
	`)
	require.NoError(t, err)
	// Each call to makeAdder must close over its own independent x.
	assert.Equal(t, "6\n11\n7\n", out)
}

func TestTwoClosuresShareOneOpenUpvalue(t *testing.T) {
	out, err := run(t, `
		fun makePair() {
			var shared = 0;
			fun set(v) { shared = v; }
			fun get() { return shared; }
			set(42);
			return get();
		}
		print makePair();
	`)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}

func TestNativeClock(t *testing.T) {
	out, err := run(t, `
		var t = clock();
		print t >= 0;
	`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestNativeLen(t *testing.T) {
	out, err := run(t, `print len("hello");`)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestNativeLenArityError(t *testing.T) {
	_, err := run(t, "len();")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "len() takes exactly one argument")
}

func TestStepLimitIsEnforced(t *testing.T) {
	_, err := runWithConfig(t, `
		var i = 0;
		while (true) {
			i = i + 1;
		}
	`, config.Config{InitialHeapBytes: 1 << 20, MaxSteps: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step limit exceeded")
}

func TestVMRecoversGlobalsAfterRuntimeError(t *testing.T) {
	cfg := config.Config{InitialHeapBytes: 1 << 20}
	coll := gc.New(cfg.InitialHeapBytes)
	vm := machine.NewVM(cfg)
	var out bytes.Buffer
	vm.Stdout = &out

	c1 := compiler.New([]byte(`
		var x = 10;
		print 1 + "boom";
	`), coll)
	fn1, cerr := c1.Compile()
	require.Nil(t, cerr)
	err := vm.Interpret(fn1)
	require.Error(t, err)

	c2 := compiler.New([]byte(`print x;`), coll)
	fn2, cerr := c2.Compile()
	require.Nil(t, cerr)
	err = vm.Interpret(fn2)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out.String())
}
