package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlang/mire/lang/table"
	"github.com/hearthlang/mire/lang/value"
)

func TestSetGet(t *testing.T) {
	var tb table.Table

	isNew := tb.Set(value.Number(1), value.Number(10))
	assert.True(t, isNew)

	isNew = tb.Set(value.Number(1), value.Number(20))
	assert.False(t, isNew, "re-setting an existing key is not new")

	got, ok := tb.Get(value.Number(1))
	require.True(t, ok)
	assert.Equal(t, float64(20), got.AsNumber())

	_, ok = tb.Get(value.Number(2))
	assert.False(t, ok)
}

func TestDeleteTombstoneDoesNotBreakProbing(t *testing.T) {
	var tb table.Table

	tb.Set(value.Number(1), value.Number(1))
	tb.Set(value.Number(2), value.Number(2))
	tb.Set(value.Number(3), value.Number(3))

	assert.True(t, tb.Delete(value.Number(2)))
	assert.False(t, tb.Delete(value.Number(2)), "already deleted")

	got, ok := tb.Get(value.Number(1))
	require.True(t, ok)
	assert.Equal(t, float64(1), got.AsNumber())

	got, ok = tb.Get(value.Number(3))
	require.True(t, ok)
	assert.Equal(t, float64(3), got.AsNumber())
}

func TestGrowsPastLoadFactor(t *testing.T) {
	var tb table.Table
	for i := 0; i < 100; i++ {
		tb.Set(value.Number(float64(i)), value.Number(float64(i*i)))
	}
	assert.Equal(t, 100, tb.Len())
	for i := 0; i < 100; i++ {
		got, ok := tb.Get(value.Number(float64(i)))
		require.True(t, ok)
		assert.Equal(t, float64(i*i), got.AsNumber())
	}
}

func TestFindStringDedup(t *testing.T) {
	var tb table.Table
	s := &value.String{Chars: "hello", Hash: 12345}
	tb.Set(value.FromObj(s), value.True)

	found := tb.FindString("hello", 12345)
	require.NotNil(t, found)
	assert.Same(t, s, found)

	assert.Nil(t, tb.FindString("hello", 99999))
	assert.Nil(t, tb.FindString("goodbye", 12345))
}

func TestEach(t *testing.T) {
	var tb table.Table
	tb.Set(value.Number(1), value.Number(1))
	tb.Set(value.Number(2), value.Number(2))

	seen := map[float64]float64{}
	tb.Each(func(k, v value.Value) {
		seen[k.AsNumber()] = v.AsNumber()
	})
	assert.Equal(t, map[float64]float64{1: 1, 2: 2}, seen)
}

func TestDeleteUnmarkedClearsOnlyUnmarkedStringKeys(t *testing.T) {
	var tb table.Table
	marked := &value.String{Chars: "kept", Hash: 1}
	marked.Marked = true
	unmarked := &value.String{Chars: "swept", Hash: 2}

	tb.Set(value.FromObj(marked), value.True)
	tb.Set(value.FromObj(unmarked), value.True)

	tb.DeleteUnmarked()

	_, ok := tb.Get(value.FromObj(marked))
	assert.True(t, ok)
	_, ok = tb.Get(value.FromObj(unmarked))
	assert.False(t, ok)
}
