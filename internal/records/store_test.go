package records

import (
	"errors"
	"testing"

	"github.com/hupe1980/gsacache/internal/alloc"
	"github.com/hupe1980/gsacache/model"
	"github.com/hupe1980/gsacache/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	beam model.SchemaType = "EL.4"
	node model.SchemaType = "NODE.3"
)

func rec(t model.SchemaType, index int, app string) testutil.Record {
	return testutil.NewRecord(t, index, app)
}

func mustUpsert(t *testing.T, s *Store, v model.NativeValue, latest *bool) Result {
	t.Helper()
	res, err := s.Upsert(v, latest)
	require.NoError(t, err)
	return res
}

func TestUpsert_Idempotent(t *testing.T) {
	s := New(Options{})
	r := rec(beam, 5, "a")

	first := mustUpsert(t, s, r, nil)
	assert.True(t, first.Created)
	idx, _ := s.ResolveIndex(beam, "a")

	second := mustUpsert(t, s, r, nil)
	assert.False(t, second.Created)
	assert.Equal(t, first.Position, second.Position)
	assert.Equal(t, 1, s.Len())

	again, state := s.ResolveIndex(beam, "a")
	assert.Equal(t, idx, again)
	assert.Equal(t, StateHasRealRecord, state)
}

func TestUpsert_Versioning(t *testing.T) {
	s := New(Options{})
	old := testutil.Record{Type: beam, Index: 5, AppID: "a", Payload: "v1"}
	cur := testutil.Record{Type: beam, Index: 5, AppID: "a", Payload: "v2"}

	mustUpsert(t, s, old, nil)
	res := mustUpsert(t, s, cur, nil)
	assert.True(t, res.Created)
	assert.Equal(t, 1, res.Superseded)
	assert.Equal(t, 2, s.Len())

	assert.Equal(t, []model.NativeValue{old}, s.Expired())
	assert.Equal(t, []model.NativeValue{cur}, s.Deletable())

	got, ok := s.GetLatest(beam, 5)
	require.True(t, ok)
	assert.Equal(t, cur, got)

	entries := s.Entries()
	assert.False(t, entries[0].Latest)
	assert.True(t, entries[0].Previous)
	assert.True(t, entries[1].Latest)
}

func TestUpsert_LatestHint(t *testing.T) {
	s := New(Options{})
	r := rec(beam, 1, "a")

	mustUpsert(t, s, r, testutil.Ptr(false))
	e := s.Entries()[0]
	assert.False(t, e.Latest)
	assert.False(t, e.Previous)
	assert.Empty(t, s.Deletable())
	assert.Empty(t, s.Expired())

	_, ok := s.GetLatest(beam, 1)
	assert.False(t, ok)

	// Equal value with no hint leaves the flag alone.
	mustUpsert(t, s, r, nil)
	assert.False(t, s.Entries()[0].Latest)

	mustUpsert(t, s, r, testutil.Ptr(true))
	assert.True(t, s.Entries()[0].Latest)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_NoIndexAlwaysAppends(t *testing.T) {
	s := New(Options{})
	r := rec(beam, 0, "z")

	a := mustUpsert(t, s, r, nil)
	b := mustUpsert(t, s, r, nil)
	assert.NotEqual(t, a.Position, b.Position)
	assert.Equal(t, 2, s.Len())

	_, ok := s.LookupNativeIndex(beam, "z")
	assert.False(t, ok)
}

func TestUpsert_Errors(t *testing.T) {
	s := New(Options{})

	_, err := s.Upsert(nil, nil)
	assert.ErrorIs(t, err, ErrNilValue)

	_, err = s.Upsert(rec(beam, -1, "a"), nil)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.Equal(t, 0, s.Len())
}

func TestUpsert_Inconsistent(t *testing.T) {
	loose := false
	s := New(Options{Equal: func(a, b model.NativeValue) bool {
		return loose || model.DefaultEqual(a, b)
	}})

	mustUpsert(t, s, testutil.Record{Type: beam, Index: 3, Payload: "x"}, nil)
	mustUpsert(t, s, testutil.Record{Type: beam, Index: 3, Payload: "y"}, nil)

	loose = true
	_, err := s.Upsert(testutil.Record{Type: beam, Index: 3, Payload: "z"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInconsistent))

	var ie *InconsistentError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, beam, ie.SchemaType)
	assert.Equal(t, 3, ie.Index)
	assert.Equal(t, []int{0, 1}, ie.Positions)
	assert.Equal(t, 2, s.Len())
}

func TestDerivedApplicationID(t *testing.T) {
	s := New(Options{})
	mustUpsert(t, s, rec(beam, 4, ""), nil)

	assert.Equal(t, "gsa/EL.4_4", s.LookupApplicationID(beam, 4))
	idx, ok := s.LookupNativeIndex(beam, "gsa/EL.4_4")
	require.True(t, ok)
	assert.Equal(t, 4, idx)

	// Records without their own id are never alterable.
	assert.Empty(t, s.Deletable())
	assert.False(t, s.Entries()[0].Alterable)

	custom := New(Options{ApplicationID: func(t model.SchemaType, i int) string {
		return "custom"
	}})
	mustUpsert(t, custom, rec(beam, 4, ""), nil)
	assert.Equal(t, "custom", custom.LookupApplicationID(beam, 4))
}

func TestLookups(t *testing.T) {
	s := New(Options{})
	mustUpsert(t, s, rec(beam, 7, "b"), nil)
	mustUpsert(t, s, rec(beam, 7, "a"), nil)
	mustUpsert(t, s, rec(beam, 3, "x"), nil)
	mustUpsert(t, s, rec(beam, 9, "x"), nil)
	mustUpsert(t, s, rec(node, 11, "x"), nil)

	// Oldest entry wins for application id lookup.
	assert.Equal(t, "b", s.LookupApplicationID(beam, 7))
	assert.Equal(t, "", s.LookupApplicationID(beam, 8))

	// Highest index wins for native index lookup.
	idx, ok := s.LookupNativeIndex(beam, " x ")
	require.True(t, ok)
	assert.Equal(t, 9, idx)

	idx, ok = s.LookupNativeIndex(node, "x")
	require.True(t, ok)
	assert.Equal(t, 11, idx)

	_, ok = s.LookupNativeIndex(beam, "  ")
	assert.False(t, ok)
	_, ok = s.LookupNativeIndex(beam, "missing")
	assert.False(t, ok)
}

func TestGetLatestAll(t *testing.T) {
	s := New(Options{})
	b1 := rec(beam, 1, "a")
	n1 := rec(node, 1, "n")
	b2 := rec(beam, 2, "b")
	mustUpsert(t, s, b1, nil)
	mustUpsert(t, s, n1, nil)
	mustUpsert(t, s, b2, nil)
	mustUpsert(t, s, rec(beam, 3, "c"), testutil.Ptr(false))

	assert.Equal(t, []model.NativeValue{b1, b2}, s.GetLatestAll(beam))
	assert.Equal(t, []model.NativeValue{b1, n1, b2}, s.GetLatestAll())
	assert.Equal(t, []model.NativeValue{b1, n1, b2}, s.GetLatestAll(node, beam))
	assert.Empty(t, s.GetLatestAll("MAT.1"))
}

func TestMarkAsPrevious(t *testing.T) {
	s := New(Options{})
	a := testutil.Record{Type: beam, Index: 1, AppID: "a", Stream: "s1"}
	b := testutil.Record{Type: beam, Index: 2, AppID: "b", Stream: "s2"}
	c := testutil.Record{Type: beam, Index: 3, AppID: "c", Stream: "s1"}
	mustUpsert(t, s, a, nil)
	mustUpsert(t, s, b, nil)
	mustUpsert(t, s, c, nil)

	assert.Equal(t, []string{"s1", "s2"}, s.StreamIDs())

	assert.Equal(t, 2, s.MarkAsPrevious("s1"))
	assert.Equal(t, []model.NativeValue{a, c}, s.Expired())
	assert.Equal(t, []model.NativeValue{b}, s.Deletable())

	// Re-observing a keeps it.
	mustUpsert(t, s, a, testutil.Ptr(true))
	assert.Equal(t, []model.NativeValue{c}, s.Expired())

	assert.Equal(t, 2, s.MarkAsPrevious())
	assert.Empty(t, s.Deletable())
}

func TestResolveIndex_Scenario(t *testing.T) {
	s := New(Options{})

	idx, state := s.ResolveIndex(beam, "app-1")
	assert.Equal(t, 1, idx)
	assert.Equal(t, StateNeedsAllocation, state)

	idx, _ = s.ResolveIndex(beam, "app-2")
	assert.Equal(t, 2, idx)

	res := mustUpsert(t, s, rec(beam, 1, "app-3"), nil)
	assert.Equal(t, []alloc.Rehome{{SchemaType: beam, ApplicationID: "app-1", From: 1, To: 3}}, res.Rehomed)

	idx, state = s.ResolveIndex(beam, "app-1")
	assert.Equal(t, 3, idx)
	assert.Equal(t, StateHasReservation, state)

	idx, state = s.ResolveIndex(beam, "app-3")
	assert.Equal(t, 1, idx)
	assert.Equal(t, StateHasRealRecord, state)

	idx, _ = s.ResolveIndex(beam, "app-2")
	assert.Equal(t, 2, idx)

	// A real record for app-2 at its promised index releases the reservation.
	mustUpsert(t, s, rec(beam, 2, "app-2"), nil)
	assert.Equal(t, []alloc.Reservation{{Index: 3, ApplicationID: "app-1"}}, s.Reservations(beam))
}

func TestResolveIndex_Precedence(t *testing.T) {
	s := New(Options{})
	mustUpsert(t, s, rec(beam, 8, "q"), nil)
	s.MarkAsPrevious()

	// Only a previous record: its last known index.
	idx, state := s.ResolveIndex(beam, "q")
	assert.Equal(t, 8, idx)
	assert.Equal(t, StateHasRealRecord, state)

	// A latest record wins over the previous one.
	mustUpsert(t, s, rec(beam, 2, "q"), nil)
	idx, _ = s.ResolveIndex(beam, "q")
	assert.Equal(t, 2, idx)

	// Untouched hydrated records still count as real.
	mustUpsert(t, s, rec(node, 5, "h"), testutil.Ptr(false))
	idx, state = s.ResolveIndex(node, "h")
	assert.Equal(t, 5, idx)
	assert.Equal(t, StateHasRealRecord, state)
}

func TestResolveIndex_Anonymous(t *testing.T) {
	s := New(Options{})
	mustUpsert(t, s, rec(beam, 1, "a"), nil)

	first, state := s.ResolveIndex(beam, "")
	assert.Equal(t, 2, first)
	assert.Equal(t, StateNoAppID, state)

	second, _ := s.ResolveIndex(beam, "   ")
	assert.Equal(t, 3, second)
}

func TestResolveIndex_NoCollision(t *testing.T) {
	rng := testutil.NewRNG(1)
	s := New(Options{})
	for _, r := range rng.Records(beam, 50) {
		mustUpsert(t, s, r, nil)
	}

	seen := make(map[int]string)
	for _, app := range rng.ApplicationIDs("new", 40) {
		idx, state := s.ResolveIndex(beam, app)
		assert.Equal(t, StateNeedsAllocation, state)
		assert.False(t, s.IndexUsed(beam, idx), "index %d taken by a real record", idx)
		_, dup := seen[idx]
		assert.False(t, dup, "index %d handed out twice", idx)
		seen[idx] = app

		again, _ := s.ResolveIndex(beam, app)
		assert.Equal(t, idx, again)
	}
}

func TestResolveIndex_PromisePreservation(t *testing.T) {
	rng := testutil.NewRNG(3)
	s := New(Options{})

	apps := rng.ApplicationIDs("promised", 20)
	promised := make(map[string]int)
	for _, app := range apps {
		promised[app], _ = s.ResolveIndex(beam, app)
	}

	// Foreign records claim every even index.
	for i := 2; i <= 20; i += 2 {
		mustUpsert(t, s, rec(beam, i, "foreign"), nil)
	}

	seen := make(map[int]bool)
	for _, app := range apps {
		idx, _ := s.ResolveIndex(beam, app)
		require.Positive(t, idx)
		assert.False(t, s.IndexUsed(beam, idx))
		assert.False(t, seen[idx])
		seen[idx] = true
		if promised[app]%2 == 1 {
			assert.Equal(t, promised[app], idx, "unaffected promise moved")
		}
	}
}

func TestClear(t *testing.T) {
	s := New(Options{})
	mustUpsert(t, s, testutil.Record{Type: beam, Index: 1, AppID: "a", Stream: "s"}, nil)
	s.ResolveIndex(beam, "b")
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.ReservationCount())
	assert.Empty(t, s.StreamIDs())
	assert.Equal(t, 0, s.HighestIndex(beam))

	idx, _ := s.ResolveIndex(beam, "b")
	assert.Equal(t, 1, idx)
}
