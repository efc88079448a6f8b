// Package gc implements mire's tracing garbage collector: a tri-color
// mark-sweep collector over the intrusive object list in package
// lang/value.
//
// Unlike clox, which toggles a two-valued gcState and stamps each
// object's foundAtState to approximate tri-color marking without a mark
// bit, the Collector uses the Header.Marked boolean directly: mark sets it
// true, sweep frees anything still false and then clears every survivor's
// bit back to false. This is simpler in Go, where there is no risk of the
// reentrant-allocation hazard a C allocator's sweep pass has to worry
// about.
package gc

import (
	"fmt"

	"github.com/hearthlang/mire/lang/chunk"
	"github.com/hearthlang/mire/lang/table"
	"github.com/hearthlang/mire/lang/value"
)

// defaultGrowFactor is the multiplier applied to bytesAllocated, at the end
// of a collection, to compute the threshold for the next one (memory.c's
// GC_HEAP_GROW_FACTOR), used when the caller doesn't override it via
// SetGrowFactor.
const defaultGrowFactor = 2

// RootProvider is implemented by anything that owns references the
// collector must treat as roots: the VM's stack, call frames and open
// upvalues, and the compiler's in-progress function chain while
// compilation and execution are interleaved.
type RootProvider interface {
	MarkRoots(c *Collector)
}

// Collector owns the heap: every object ever allocated through it, the
// string intern table, and the bookkeeping that decides when to collect.
type Collector struct {
	objects value.Obj // head of the intrusive all-objects list

	Strings table.Table // interned strings, keyed by themselves

	gray []value.Obj // gray worklist for traceReferences

	bytesAllocated int64
	nextGC         int64
	growFactor     int64

	// StressGC, when true, forces a collection on every allocation. It is
	// driven by internal/config's StressGC knob.
	StressGC bool
	// LogGC, when true, prints a one-line trace of each collection cycle.
	LogGC bool

	onLog func(string)
}

// New returns a Collector ready to allocate, with the first collection
// threshold set to initialHeap bytes.
func New(initialHeap int64) *Collector {
	if initialHeap <= 0 {
		initialHeap = 1 << 20
	}
	return &Collector{nextGC: initialHeap, growFactor: defaultGrowFactor}
}

// SetLogger installs fn to receive one line per collection cycle when LogGC
// is enabled, mirroring clox's DEBUG_LOG_GC trace.
func (c *Collector) SetLogger(fn func(string)) { c.onLog = fn }

// SetGrowFactor overrides the multiplier applied to bytesAllocated when
// computing the next collection threshold, driven by internal/config's
// HeapGrowFactor knob. A value <= 0 is ignored.
func (c *Collector) SetGrowFactor(factor int64) {
	if factor > 0 {
		c.growFactor = factor
	}
}

// link threads obj onto the front of the all-objects list. It is used by
// every allocator helper below.
func (c *Collector) link(obj value.Obj) {
	value.GetHeader(obj).Next = c.objects
	c.objects = obj
}

// NewString allocates and interns a string object. If chars is already
// interned, the existing *value.String is returned and no new allocation
// is linked onto the heap.
func (c *Collector) NewString(chars string, hash uint32, owned bool, roots ...RootProvider) *value.String {
	if existing := c.Strings.FindString(chars, hash); existing != nil {
		return existing
	}

	c.maybeCollect(roots...)

	s := &value.String{Chars: chars, Hash: hash, Owned: owned}
	c.bytesAllocated += int64(len(chars)) + 32
	c.link(s)

	// Register the new string as its own intern-table key. The table is
	// weak (Collect drops entries whose string is unmarked), so the string
	// survives the next collection only if a root reaches it by then.
	c.Strings.Set(value.FromObj(s), value.True)
	return s
}

// NewFunction allocates a function object.
func (c *Collector) NewFunction(name *value.String, arity int, ch *chunk.Chunk, roots ...RootProvider) *value.Function {
	c.maybeCollect(roots...)
	f := &value.Function{Arity: arity, Chunk: ch, Name: name}
	c.bytesAllocated += 64
	c.link(f)
	return f
}

// NewClosure allocates a closure over fn with the given upvalue cells.
func (c *Collector) NewClosure(fn *value.Function, upvalues []*value.Upvalue, roots ...RootProvider) *value.Closure {
	c.maybeCollect(roots...)
	cl := &value.Closure{Function: fn, Upvalues: upvalues}
	c.bytesAllocated += int64(16 + 8*len(upvalues))
	c.link(cl)
	return cl
}

// NewUpvalue allocates an open upvalue pointing at location.
func (c *Collector) NewUpvalue(location *value.Value, roots ...RootProvider) *value.Upvalue {
	c.maybeCollect(roots...)
	u := &value.Upvalue{Location: location}
	c.bytesAllocated += 32
	c.link(u)
	return u
}

// NewNative wraps fn as a heap-allocated native function value.
func (c *Collector) NewNative(name string, fn value.NativeFn, roots ...RootProvider) *value.Native {
	c.maybeCollect(roots...)
	n := &value.Native{Name: name, Fn: fn}
	c.bytesAllocated += 32
	c.link(n)
	return n
}

// maybeCollect runs a collection if StressGC is set or the allocated byte
// count has crossed nextGC. The caller-supplied roots are walked as part
// of mark; when no roots are supplied it never collects.
func (c *Collector) maybeCollect(roots ...RootProvider) {
	if len(roots) == 0 {
		return
	}
	if c.StressGC || c.bytesAllocated > c.nextGC {
		c.Collect(roots...)
	}
}

// Collect runs one full mark-sweep cycle against the given roots. It is
// exported so the VM's dispatch loop can also trigger a collection
// explicitly at an instruction boundary — only ever between instructions,
// never reentrantly mid-allocation.
func (c *Collector) Collect(roots ...RootProvider) {
	before := c.bytesAllocated

	for _, r := range roots {
		r.MarkRoots(c)
	}
	c.traceReferences()
	c.Strings.DeleteUnmarked()
	c.sweep()

	c.nextGC = c.bytesAllocated * c.growFactor
	if c.nextGC < 1<<16 {
		c.nextGC = 1 << 16
	}

	if c.LogGC && c.onLog != nil {
		c.onLog(gcSummary(before, c.bytesAllocated, c.nextGC))
	}
}

// MarkValue marks v's object, if it holds one.
func (c *Collector) MarkValue(v value.Value) {
	if obj := v.AsObj(); obj != nil {
		c.MarkObject(obj)
	}
}

// MarkObject adds obj to the gray worklist, unless it is nil or already
// marked.
func (c *Collector) MarkObject(obj value.Obj) {
	if obj == nil || value.GetHeader(obj).Marked {
		return
	}
	value.GetHeader(obj).Marked = true
	c.gray = append(c.gray, obj)
}

func (c *Collector) traceReferences() {
	for len(c.gray) > 0 {
		n := len(c.gray) - 1
		obj := c.gray[n]
		c.gray = c.gray[:n]
		c.blacken(obj)
	}
}

// blacken marks every object obj directly references, mirroring
// blackenObject in memory.c's switch over Obj.Type().
func (c *Collector) blacken(obj value.Obj) {
	switch o := obj.(type) {
	case *value.Closure:
		c.MarkObject(o.Function)
		for _, uv := range o.Upvalues {
			c.MarkObject(uv)
		}
	case *value.Function:
		if o.Name != nil {
			c.MarkObject(o.Name)
		}
		for _, cst := range o.Chunk.Constants {
			if v, ok := cst.(value.Value); ok {
				c.MarkValue(v)
			}
		}
	case *value.Upvalue:
		c.MarkValue(o.Value)
	case *value.Native, *value.String:
		// leaves: nothing further to mark
	}
}

// sweep frees (unlinks) every unmarked object and clears the mark bit of
// every survivor, so the next cycle starts from a clean slate.
func (c *Collector) sweep() {
	var prev value.Obj
	obj := c.objects
	for obj != nil {
		next := value.GetHeader(obj).Next
		if value.GetHeader(obj).Marked {
			value.GetHeader(obj).Marked = false
			prev = obj
		} else {
			c.bytesAllocated -= objectSize(obj)
			if prev == nil {
				c.objects = next
			} else {
				value.GetHeader(prev).Next = next
			}
		}
		obj = next
	}
}

func gcSummary(before, after, nextGC int64) string {
	return fmt.Sprintf("gc: collected %d bytes (from %d to %d) next at %d", before-after, before, after, nextGC)
}

func objectSize(obj value.Obj) int64 {
	switch o := obj.(type) {
	case *value.String:
		return int64(len(o.Chars)) + 32
	case *value.Closure:
		return int64(16 + 8*len(o.Upvalues))
	case *value.Function:
		return 64
	default:
		return 32
	}
}
