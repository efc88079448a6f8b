// Package maincmd implements mire's command-line driver: flag parsing
// and the REPL/execute-file dispatch, built on mainer.Parser and
// mainer.Stdio for argument handling and standard stream plumbing.
package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/hearthlang/mire/internal/config"
	"github.com/hearthlang/mire/lang/lox"
	"github.com/hearthlang/mire/lang/machine"
)

const binName = "mire"

// Exit codes follow the sysexits.h convention spec 6 calls out: 0 for a
// clean run, 65 (EX_DATAERR) for a compile error, 70 (EX_SOFTWARE) for a
// runtime error.
const (
	exitOK           = mainer.Success
	exitCompileError = mainer.ExitCode(65)
	exitRuntimeError = mainer.ExitCode(70)
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Compiles and runs a mire script. With no <path>, starts an interactive
read-eval-print loop on stdin.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Runtime tunables are read from the environment; see MIRE_INITIAL_HEAP_BYTES,
MIRE_HEAP_GROW_FACTOR, MIRE_STRESS_GC, MIRE_LOG_GC, MIRE_PRINT_CODE and
MIRE_MAX_STEPS.
`, binName)
)

// Cmd is mire's command-line entry point, implementing mainer.Cmd.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("at most one script path may be given, got %d", len(c.args))
	}
	return nil
}

// Main parses args and dispatches to the REPL or to running a single
// script file, matching spec 6's "mire" / "mire path" CLI contract.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return exitOK
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid configuration: %s\n", err)
		return mainer.InvalidArgs
	}
	vm := machine.NewVM(cfg)
	vm.Stdout = stdio.Stdout

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 1 {
		return runFile(ctx, stdio, vm, c.args[0])
	}
	return repl(ctx, stdio, vm)
}

// runFile loads and interprets a single script, exiting 65/70 on the
// compile/runtime error split spec 4.4 and 6 specify.
func runFile(_ context.Context, stdio mainer.Stdio, vm *machine.VM, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.InvalidArgs
	}
	return exitCodeFor(lox.Interpret(stdio.Stderr, vm, src))
}

// repl runs an interactive read-eval-print loop, one line of source per
// iteration, sharing a single VM (and thus a single heap and globals
// table) across lines, so definitions persist across iterations. Errors
// on one line never stop the loop; only EOF on stdin or an interrupt
// signal (checked before each prompt) does (clox's repl
// in the style of its Crafting Interpreters main.c).
func repl(ctx context.Context, stdio mainer.Stdio, vm *machine.VM) mainer.ExitCode {
	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		select {
		case <-ctx.Done():
			return exitOK
		default:
		}

		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return exitOK
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		lox.Interpret(stdio.Stderr, vm, []byte(line))
	}
}

func exitCodeFor(res lox.Result) mainer.ExitCode {
	switch res {
	case lox.CompileError:
		return exitCompileError
	case lox.RuntimeError:
		return exitRuntimeError
	default:
		return exitOK
	}
}
