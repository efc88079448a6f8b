package gc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlang/mire/lang/chunk"
	"github.com/hearthlang/mire/lang/gc"
	"github.com/hearthlang/mire/lang/value"
)

// fakeRoots pins a fixed set of values as roots, for testing mark/sweep in
// isolation from the machine package.
type fakeRoots struct{ values []value.Value }

func (r fakeRoots) MarkRoots(c *gc.Collector) {
	for _, v := range r.values {
		c.MarkValue(v)
	}
}

func TestNewStringInterns(t *testing.T) {
	c := gc.New(1 << 20)

	a := c.NewString("hello", 1, false)
	b := c.NewString("hello", 1, false)
	assert.Same(t, a, b, "identical bytes+hash must return the same interned object")

	d := c.NewString("world", 2, false)
	assert.NotSame(t, a, d)
}

func TestCollectSweepsUnreachable(t *testing.T) {
	c := gc.New(1 << 20)

	kept := c.NewString("kept", 10, false)
	c.NewString("swept", 20, false)

	roots := fakeRoots{values: []value.Value{value.FromObj(kept)}}
	c.Collect(roots)

	// kept survives (still reachable through the intern table lookup).
	assert.NotNil(t, c.Strings.FindString("kept", 10))
	require.NotNil(t, kept)

	// swept is no longer reachable from roots, so the intern table entry
	// for it is weak-cleared during collection.
	assert.Nil(t, c.Strings.FindString("swept", 20))
}

func TestCollectClearsMarkBitForNextCycle(t *testing.T) {
	c := gc.New(1 << 20)
	s := c.NewString("x", 1, false)
	roots := fakeRoots{values: []value.Value{value.FromObj(s)}}

	c.Collect(roots)
	c.Collect(roots) // would leak unmarked forever if Marked weren't cleared between cycles

	assert.NotNil(t, c.Strings.FindString("x", 1))
}

func TestClosureKeepsFunctionAndUpvaluesAlive(t *testing.T) {
	c := gc.New(1 << 20)

	name := c.NewString("f", 3, false)
	fn := c.NewFunction(name, 0, &chunk.Chunk{})
	loc := value.FromObj(c.NewString("captured", 4, false))
	uv := c.NewUpvalue(&loc)
	uv.Close()
	cl := c.NewClosure(fn, []*value.Upvalue{uv})

	roots := fakeRoots{values: []value.Value{value.FromObj(cl)}}
	c.Collect(roots)

	// fn's name and uv's closed value are reachable only through the
	// closure, so they stay interned only if fn and uv were traced.
	assert.NotNil(t, c.Strings.FindString("f", 3))
	assert.NotNil(t, c.Strings.FindString("captured", 4))
	assert.True(t, value.GetHeader(fn).Marked == false, "sweep clears the mark bit of survivors")
}
