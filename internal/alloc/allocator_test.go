package alloc

import (
	"testing"

	"github.com/hupe1980/gsacache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const beam model.SchemaType = "EL.4"

// fakeUsage models the real records of a store.
type fakeUsage map[model.SchemaType]map[int]bool

func (f fakeUsage) take(t model.SchemaType, idx int) {
	if f[t] == nil {
		f[t] = make(map[int]bool)
	}
	f[t][idx] = true
}

func (f fakeUsage) HighestIndex(t model.SchemaType) int {
	high := 0
	for idx := range f[t] {
		high = max(high, idx)
	}
	return high
}

func (f fakeUsage) IndexUsed(t model.SchemaType, idx int) bool {
	return f[t][idx]
}

func TestReserveNextFreeIndex(t *testing.T) {
	a := New()
	used := fakeUsage{}

	assert.Equal(t, 1, a.ReserveNextFreeIndex(beam, "a", used))
	assert.Equal(t, 2, a.ReserveNextFreeIndex(beam, "b", used))

	// Real records at 3 and 5 leave a gap at 4.
	used.take(beam, 3)
	used.take(beam, 5)
	assert.Equal(t, 4, a.ReserveNextFreeIndex(beam, "c", used))
	assert.Equal(t, 6, a.ReserveNextFreeIndex(beam, "d", used))

	// Other types are independent.
	assert.Equal(t, 1, a.ReserveNextFreeIndex("NODE.3", "a", used))

	// Re-reserving an id keeps its promise.
	assert.Equal(t, 2, a.ReserveNextFreeIndex(beam, "b", used))
	assert.Equal(t, 5, a.Count())
}

func TestReserveAnonymous(t *testing.T) {
	a := New()
	used := fakeUsage{}

	assert.Equal(t, 1, a.ReserveNextFreeIndex(beam, "", used))
	assert.Equal(t, 2, a.ReserveNextFreeIndex(beam, "", used))

	_, ok := a.FindReservation(beam, "")
	assert.False(t, ok)

	app, ok := a.ReservedAt(beam, 1)
	require.True(t, ok)
	assert.Equal(t, "", app)
}

func TestFindReservation(t *testing.T) {
	a := New()
	used := fakeUsage{}

	_, ok := a.FindReservation(beam, "a")
	assert.False(t, ok)

	a.ReserveNextFreeIndex(beam, "a", used)
	idx, ok := a.FindReservation(beam, "a")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = a.FindReservation("NODE.3", "a")
	assert.False(t, ok)
}

func TestReconcileOnRealAdd(t *testing.T) {
	t.Run("real record releases own reservation", func(t *testing.T) {
		a := New()
		used := fakeUsage{}
		a.ReserveNextFreeIndex(beam, "a", used)

		used.take(beam, 7)
		rehomed := a.ReconcileOnRealAdd(beam, 7, "a", used)
		assert.Empty(t, rehomed)

		_, ok := a.FindReservation(beam, "a")
		assert.False(t, ok)
		assert.Equal(t, 0, a.Count())
	})

	t.Run("foreign claim re-homes promise", func(t *testing.T) {
		a := New()
		used := fakeUsage{}
		assert.Equal(t, 1, a.ReserveNextFreeIndex(beam, "app-1", used))
		assert.Equal(t, 2, a.ReserveNextFreeIndex(beam, "app-2", used))

		used.take(beam, 1)
		rehomed := a.ReconcileOnRealAdd(beam, 1, "app-3", used)
		require.Len(t, rehomed, 1)
		assert.Equal(t, Rehome{SchemaType: beam, ApplicationID: "app-1", From: 1, To: 3}, rehomed[0])

		idx, ok := a.FindReservation(beam, "app-1")
		require.True(t, ok)
		assert.Equal(t, 3, idx)

		idx, _ = a.FindReservation(beam, "app-2")
		assert.Equal(t, 2, idx)
	})

	t.Run("anonymous reservation is dropped", func(t *testing.T) {
		a := New()
		used := fakeUsage{}
		a.ReserveNextFreeIndex(beam, "", used)

		used.take(beam, 1)
		assert.Empty(t, a.ReconcileOnRealAdd(beam, 1, "x", used))
		assert.Equal(t, 0, a.Count())
	})

	t.Run("unknown type is a no-op", func(t *testing.T) {
		a := New()
		assert.Empty(t, a.ReconcileOnRealAdd(beam, 1, "x", fakeUsage{}))
	})

	t.Run("record without index only releases id", func(t *testing.T) {
		a := New()
		used := fakeUsage{}
		a.ReserveNextFreeIndex(beam, "a", used)
		a.ReserveNextFreeIndex(beam, "b", used)

		assert.Empty(t, a.ReconcileOnRealAdd(beam, 0, "a", used))
		assert.Equal(t, []Reservation{{Index: 2, ApplicationID: "b"}}, a.Reservations(beam))
	})
}

func TestClear(t *testing.T) {
	a := New()
	a.ReserveNextFreeIndex(beam, "a", fakeUsage{})
	a.Clear()
	assert.Equal(t, 0, a.Count())
	assert.Empty(t, a.Types())
}
