package lox_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlang/mire/internal/config"
	"github.com/hearthlang/mire/lang/lox"
	"github.com/hearthlang/mire/lang/machine"
)

func interpret(t *testing.T, src string) (string, string, lox.Result) {
	t.Helper()
	vm := machine.NewVM(config.Config{InitialHeapBytes: 1 << 20})
	var stdout, stderr bytes.Buffer
	vm.Stdout = &stdout
	res := lox.Interpret(&stderr, vm, []byte(src))
	return stdout.String(), stderr.String(), res
}

// Spec 8 end-to-end scenario 1.
func TestArithmeticPrecedence(t *testing.T) {
	out, _, res := interpret(t, "print 1 + 2 * 3;")
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "7\n", out)
}

// Spec 8 end-to-end scenario 2.
func TestStringConcatenation(t *testing.T) {
	out, _, res := interpret(t, `var s = "a"; s = s + "b" + "c"; print s;`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "abc\n", out)
}

// Spec 8 end-to-end scenario 3: closures capture enclosing locals by value
// at the point of return.
func TestClosureReturningCapturedParameter(t *testing.T) {
	out, _, res := interpret(t, `
		fun make(n) { fun inner() { return n; } return inner; }
		print make(42)();
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "42\n", out)
}

// Spec 8 end-to-end scenario 4: a closure over a captured local observes
// later mutations and keeps working once the local is popped off the
// stack (closed upvalue state).
func TestClosureObservesMutationAfterClosing(t *testing.T) {
	out, _, res := interpret(t, `
		var c;
		{
			var x = 0;
			fun inc() { x = x + 1; return x; }
			c = inc;
		}
		print c();
		print c();
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "1\n2\n", out)
}

// Spec 8 end-to-end scenario 5.
func TestForLoopWithBreakAndContinue(t *testing.T) {
	out, _, res := interpret(t, `
		for (var i=0; i<3; i=i+1) {
			if (i==1) continue;
			if (i>=2) break;
			print i;
		}
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "0\n", out)
}

// Spec 8 end-to-end scenario 6: a case body never falls through into the
// next case's body, and default always runs.
func TestSwitchImplicitBreakPerCase(t *testing.T) {
	out, _, res := interpret(t, `
		switch (2) {
			case 1: print "a";
			case 2: print "b";
			default: print "d";
		}
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "b\nd\n", out)
}

func TestShortCircuitAndDoesNotCallRight(t *testing.T) {
	out, _, res := interpret(t, `
		fun bomb() { print "boom"; return true; }
		print false and bomb();
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "false\n", out)
}

func TestShortCircuitOrDoesNotCallRight(t *testing.T) {
	out, _, res := interpret(t, `
		fun bomb() { print "boom"; return true; }
		print true or bomb();
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "true\n", out)
}

func TestTernary(t *testing.T) {
	out, _, res := interpret(t, `print true ? "yes" : "no";`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "yes\n", out)
}

func TestCompileErrorReportsDiagnostic(t *testing.T) {
	_, errOut, res := interpret(t, "var = ;")
	assert.Equal(t, lox.CompileError, res)
	assert.Contains(t, errOut, "[line 1]")
}

func TestRuntimeErrorReportsStackTrace(t *testing.T) {
	_, errOut, res := interpret(t, `
		fun fails() { return 1 + "x"; }
		fails();
	`)
	assert.Equal(t, lox.RuntimeError, res)
	assert.Contains(t, errOut, "[line")
	assert.Contains(t, errOut, "in fails()")
}

func TestNativeClockAndLen(t *testing.T) {
	out, _, res := interpret(t, `
		print len("hello");
		print clock() >= 0;
	`)
	assert.Equal(t, lox.OK, res)
	assert.Equal(t, "5\ntrue\n", out)
}

func TestPrintCodeDisassemblesToStderr(t *testing.T) {
	vm := machine.NewVM(config.Config{InitialHeapBytes: 1 << 20, PrintCode: true})
	var stdout, stderr bytes.Buffer
	vm.Stdout = &stdout
	res := lox.Interpret(&stderr, vm, []byte("print 1;"))
	require.Equal(t, lox.OK, res)
	assert.Contains(t, stderr.String(), "== <script> ==")
	assert.Contains(t, stderr.String(), "constant")
}
