package testutil

import (
	"testing"

	"github.com/hupe1980/gsacache/model"
	"github.com/stretchr/testify/assert"
)

func TestRecord_Equal(t *testing.T) {
	a := NewRecord("EL.4", 1, "a")
	assert.True(t, a.Equal(NewRecord("EL.4", 1, "a")))
	assert.False(t, a.Equal(NewRecord("EL.4", 1, "b")))

	var nv model.NativeValue = a
	assert.Equal(t, model.SchemaType("EL.4"), nv.SchemaType())
}

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(7).Records("EL.4", 20)
	b := NewRNG(7).Records("EL.4", 20)
	assert.Equal(t, a, b)

	seen := make(map[int]bool)
	for _, r := range a {
		assert.False(t, seen[r.Index])
		seen[r.Index] = true
	}
	assert.Len(t, seen, 20)

	ids := NewRNG(7).ApplicationIDs("x", 5)
	assert.ElementsMatch(t, []string{"x-0", "x-1", "x-2", "x-3", "x-4"}, ids)
}
