package debug_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearthlang/mire/internal/filetest"
	"github.com/hearthlang/mire/lang/compiler"
	"github.com/hearthlang/mire/lang/debug"
	"github.com/hearthlang/mire/lang/gc"
)

var testUpdateDebugTests = flag.Bool("test.update-debug-tests", false, "If set, replace expected disassembly golden files with actual results.")

func TestDisassemble(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".mire") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			coll := gc.New(1 << 20)
			c := compiler.New(src, coll)
			fn, cerr := c.Compile()
			require.Nil(t, cerr, "unexpected compile error: %v", cerr)

			var buf bytes.Buffer
			debug.Disassemble(&buf, fn.Chunk, "<script>")
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateDebugTests)
		})
	}
}
