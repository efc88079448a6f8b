package value

import "github.com/hearthlang/mire/lang/chunk"

// ObjType discriminates the kinds of heap objects mire allocates.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeNative
)

func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	case ObjTypeFunction:
		return "function"
	case ObjTypeClosure:
		return "closure"
	case ObjTypeUpvalue:
		return "upvalue"
	case ObjTypeNative:
		return "native"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap-allocated value kind. Every Obj embeds
// Header, which is what links it into the garbage collector's intrusive
// object list and carries its mark bit.
type Obj interface {
	String() string
	Type() ObjType
	header() *Header
}

// Header is the common prefix shared by every heap object: the allocator
// threads every live object through Next so the collector's sweep phase can
// visit each allocation exactly once, and Marked is set by the mark phase
// and cleared again as the sweep phase visits survivors (see lang/gc).
type Header struct {
	Next   Obj
	Marked bool
}

func (h *Header) header() *Header { return h }

// GetHeader returns obj's shared Header, giving package gc access to the
// intrusive list pointer and mark bit without exposing them as part of the
// Obj interface's public method set.
func GetHeader(obj Obj) *Header { return obj.header() }

// String is mire's interned, immutable string object. Owned reports
// whether Chars was copied into its own backing array (e.g. the result of
// string concatenation) as opposed to borrowed — taken from the source
// text (string literals and identifiers). Both are safe to hold in Go (the language
// runtime keeps the backing array of any string alive for as long as any
// substring of it is reachable), so Owned is bookkeeping only: it documents
// provenance the way clox's ObjString.start pointer does, without gating
// any safety check the way it would in a manually-managed heap.
type String struct {
	Header
	Chars string
	Hash  uint32
	Owned bool
}

func (s *String) Type() ObjType  { return ObjTypeString }
func (s *String) String() string { return s.Chars }

// Function is an immutable, compiled function: its arity, the number of
// upvalues its closures must capture, its compiled chunk, and an optional
// name (nil for the implicit top-level script function).
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *chunk.Chunk
	Name         *String
}

func (f *Function) Type() ObjType { return ObjTypeFunction }
func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// Closure pairs a Function with the Upvalues it captured at the point it
// was created. Closures do not own their Function (multiple closures over
// the same source function share it).
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) Type() ObjType  { return ObjTypeClosure }
func (c *Closure) String() string { return c.Function.String() }

// Upvalue is a mutable cell a closure uses to refer to a variable declared
// in an enclosing function. While open, Location points at the variable's
// live slot on the VM stack; once the owning scope exits, Close() copies
// the value out and Location is repointed at Value, the cell's own
// storage.
type Upvalue struct {
	Header
	Location *Value
	Value    Value

	// Next threads this upvalue into the VM-wide list of open upvalues,
	// kept sorted by descending stack slot so the VM can dedup captures of
	// the same slot and bulk-close on scope exit.
	Next *Upvalue
}

func (u *Upvalue) Type() ObjType  { return ObjTypeUpvalue }
func (u *Upvalue) String() string { return "upvalue" }

// Close copies the upvalue's current value out of the stack slot it was
// pointing at and repoints Location at its own storage, so it remains valid
// after the stack slot is reused.
func (u *Upvalue) Close() {
	u.Value = *u.Location
	u.Location = &u.Value
}

// NativeFn is the signature of a native (Go-implemented) function exposed
// to mire programs as a callable global.
type NativeFn func(args []Value) (Value, error)

// Native wraps a Go function so it can be called like any mire function.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

func (n *Native) Type() ObjType  { return ObjTypeNative }
func (n *Native) String() string { return "<native fn " + n.Name + ">" }
