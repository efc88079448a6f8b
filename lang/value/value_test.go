package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hearthlang/mire/lang/value"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.Nil.Truthy())
	assert.False(t, value.False.Truthy())
	assert.True(t, value.True.Truthy())
	assert.True(t, value.Number(0).Truthy(), "0 is truthy, unlike nil/false")
	assert.True(t, value.FromObj(&value.String{Chars: ""}).Truthy(), "the empty string is truthy")
}

func TestEqual(t *testing.T) {
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.False(t, value.Equal(value.Nil, value.False), "different kinds are never equal")

	a := &value.String{Chars: "x"}
	b := &value.String{Chars: "x"}
	assert.True(t, value.Equal(value.FromObj(a), value.FromObj(a)), "same pointer")
	assert.False(t, value.Equal(value.FromObj(a), value.FromObj(b)),
		"distinct objects with equal bytes are not Equal unless interned to the same pointer")
}

func TestHashStringsWithEqualBytesHashEqual(t *testing.T) {
	a := &value.String{Chars: "same", Hash: 42}
	b := &value.String{Chars: "same", Hash: 42}
	assert.Equal(t, value.Hash(value.FromObj(a)), value.Hash(value.FromObj(b)))
}

func TestHashDistinguishesKinds(t *testing.T) {
	assert.NotEqual(t, value.Hash(value.Nil), value.Hash(value.False))
	assert.NotEqual(t, value.Hash(value.True), value.Hash(value.False))
}

func TestStringFormatting(t *testing.T) {
	assert.Equal(t, "nil", value.Nil.String())
	assert.Equal(t, "true", value.True.String())
	assert.Equal(t, "false", value.False.String())
	assert.Equal(t, "3.5", value.Number(3.5).String())
	assert.Equal(t, "3", value.Number(3).String(), "integral doubles print without a decimal point")
}

func TestAsObjOnNonObjectReturnsNil(t *testing.T) {
	assert.Nil(t, value.Number(1).AsObj())
	assert.Nil(t, value.Nil.AsObj())
}

func TestFunctionStringUsesScriptPlaceholderWhenNameless(t *testing.T) {
	anon := &value.Function{}
	assert.Equal(t, "<script>", anon.String())

	named := &value.Function{Name: &value.String{Chars: "add"}}
	assert.Equal(t, "<fn add>", named.String())
}

func TestUpvalueCloseCopiesValueAndRepointsLocation(t *testing.T) {
	slot := value.Number(7)
	uv := &value.Upvalue{Location: &slot}

	slot = value.Number(9) // still open: mutating the stack slot is observed
	assert.Equal(t, float64(9), uv.Location.AsNumber())

	uv.Close()
	slot = value.Number(100) // closed: further writes to the old slot are not observed
	assert.Equal(t, float64(9), uv.Location.AsNumber())
}
