package records

import (
	"fmt"
	"math"
	"unique"

	"github.com/hupe1980/gsacache/internal/alloc"
	"github.com/hupe1980/gsacache/internal/bitmap"
	"github.com/hupe1980/gsacache/model"
)

type nativeKey struct {
	t     model.SchemaType
	index int
}

type entry struct {
	value    model.NativeValue
	t        model.SchemaType
	index    int
	appID    string
	explicit bool
	stream   unique.Handle[string]
	latest   bool
	previous bool
}

// alterable reports whether the record carries its own application id, i.e.
// the cache can prove it was produced by this connector.
func (e *entry) alterable() bool { return e.explicit }

// Entry is a read-only copy of a stored record and its flags.
type Entry struct {
	Position      int
	Value         model.NativeValue
	SchemaType    model.SchemaType
	Index         int
	ApplicationID string
	StreamID      string
	Latest        bool
	Previous      bool
	Alterable     bool
}

// Result reports the outcome of an Upsert.
type Result struct {
	// Position is the store position of the matching or appended entry.
	Position int
	// Created is false when an equal value already existed.
	Created bool
	// Superseded counts entries at the same key that lost their latest flag.
	Superseded int
	// Rehomed lists reservations moved to make room for the new record.
	Rehomed []alloc.Rehome
}

// Options configures a Store.
type Options struct {
	Equal         model.EqualityFunc
	ApplicationID model.ApplicationIDFunc
}

// Store holds native records and the provisional index allocator.
type Store struct {
	entries []*entry

	byType   *bitmap.Index[model.SchemaType]
	byKey    *bitmap.Index[nativeKey]
	byAppID  *bitmap.Index[string]
	byStream *bitmap.Index[unique.Handle[string]]

	// used holds the native indices taken by real records, per type.
	used map[model.SchemaType]*bitmap.Set

	streams []unique.Handle[string]

	alloc *alloc.Allocator

	equal     model.EqualityFunc
	appIDFunc model.ApplicationIDFunc
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.Equal == nil {
		opts.Equal = model.DefaultEqual
	}
	if opts.ApplicationID == nil {
		opts.ApplicationID = model.DefaultApplicationID
	}
	return &Store{
		byType:    bitmap.NewIndex[model.SchemaType](),
		byKey:     bitmap.NewIndex[nativeKey](),
		byAppID:   bitmap.NewIndex[string](),
		byStream:  bitmap.NewIndex[unique.Handle[string]](),
		used:      make(map[model.SchemaType]*bitmap.Set),
		alloc:     alloc.New(),
		equal:     opts.Equal,
		appIDFunc: opts.ApplicationID,
	}
}

// Upsert stores v.
//
// For a record with a native index, an existing entry at the same key that is
// equal to v is reused: only its latest flag is updated, and only when latest is
// non-nil. Otherwise every entry at that key loses its latest flag (becoming
// previous if it was latest) and v is appended. Records without a native index
// are always appended. New entries default to latest.
func (s *Store) Upsert(v model.NativeValue, latest *bool) (Result, error) {
	if v == nil {
		return Result{}, ErrNilValue
	}
	t := v.SchemaType()
	index := v.NativeIndex()
	if index < 0 || uint64(index) > math.MaxUint32 {
		return Result{}, fmt.Errorf("%w: %s/%d", ErrInvalidIndex, t, index)
	}

	var res Result
	if index > 0 {
		existing := s.byKey.Get(nativeKey{t, index}).Slice()

		var equal []int
		for _, pos := range existing {
			if s.equal(s.entries[pos].value, v) {
				equal = append(equal, int(pos))
			}
		}

		switch len(equal) {
		case 0:
		case 1:
			if latest != nil {
				s.entries[equal[0]].latest = *latest
			}
			return Result{Position: equal[0]}, nil
		default:
			return Result{}, &InconsistentError{SchemaType: t, Index: index, Positions: equal}
		}

		for _, pos := range existing {
			e := s.entries[pos]
			if e.latest {
				e.latest = false
				e.previous = true
				res.Superseded++
			}
		}
	}

	e := &entry{
		value:  v,
		t:      t,
		index:  index,
		latest: latest == nil || *latest,
	}
	if app := model.NormalizeApplicationID(v.ApplicationID()); app != "" {
		e.appID = app
		e.explicit = true
	} else if index > 0 {
		e.appID = s.appIDFunc(t, index)
	}
	if sid := v.StreamID(); sid != "" {
		e.stream = s.intern(sid)
	}

	res.Position = s.append(e)
	res.Created = true
	res.Rehomed = s.alloc.ReconcileOnRealAdd(t, index, e.appID, s)
	return res, nil
}

func (s *Store) append(e *entry) int {
	pos := uint32(len(s.entries))
	s.entries = append(s.entries, e)

	s.byType.Add(e.t, pos)
	if e.index > 0 {
		s.byKey.Add(nativeKey{e.t, e.index}, pos)
		u, ok := s.used[e.t]
		if !ok {
			u = bitmap.New()
			s.used[e.t] = u
		}
		u.Add(uint32(e.index))
	}
	if e.appID != "" {
		s.byAppID.Add(e.appID, pos)
	}
	if e.stream != (unique.Handle[string]{}) {
		s.byStream.Add(e.stream, pos)
	}
	return int(pos)
}

// intern returns the shared handle for a stream id, remembering first-seen order.
func (s *Store) intern(streamID string) unique.Handle[string] {
	h := unique.Make(streamID)
	if !s.byStream.Has(h) {
		s.streams = append(s.streams, h)
	}
	return h
}

// HighestIndex implements alloc.Usage.
func (s *Store) HighestIndex(t model.SchemaType) int {
	max, ok := s.used[t].Max()
	if !ok {
		return 0
	}
	return int(max)
}

// IndexUsed implements alloc.Usage.
func (s *Store) IndexUsed(t model.SchemaType, index int) bool {
	if index <= 0 || uint64(index) > math.MaxUint32 {
		return false
	}
	return s.used[t].Contains(uint32(index))
}

// GetLatest returns the latest value at (t, index). When history holds more
// than one latest entry the newest wins.
func (s *Store) GetLatest(t model.SchemaType, index int) (model.NativeValue, bool) {
	var found model.NativeValue
	for pos := range s.byKey.Get(nativeKey{t, index}).All() {
		if e := s.entries[pos]; e.latest {
			found = e.value
		}
	}
	return found, found != nil
}

// GetLatestAll returns the latest values of the given types in store order.
// With no types, all types are included.
func (s *Store) GetLatestAll(types ...model.SchemaType) []model.NativeValue {
	var out []model.NativeValue
	if len(types) == 0 {
		for _, e := range s.entries {
			if e.latest {
				out = append(out, e.value)
			}
		}
		return out
	}

	sets := make([]*bitmap.Set, 0, len(types))
	for _, t := range types {
		sets = append(sets, s.byType.Get(t))
	}
	for pos := range bitmap.Or(sets...).All() {
		if e := s.entries[pos]; e.latest {
			out = append(out, e.value)
		}
	}
	return out
}

// LookupNativeIndex returns the highest native index among entries of type t
// carrying appID. appID is trimmed; an empty id never matches.
func (s *Store) LookupNativeIndex(t model.SchemaType, appID string) (int, bool) {
	app := model.NormalizeApplicationID(appID)
	if app == "" {
		return 0, false
	}
	best := 0
	for pos := range s.matches(t, app).All() {
		best = max(best, s.entries[pos].index)
	}
	return best, best > 0
}

// LookupApplicationID returns the application id of the oldest entry at
// (t, index), or "" when there is none.
func (s *Store) LookupApplicationID(t model.SchemaType, index int) string {
	pos, ok := s.byKey.Get(nativeKey{t, index}).Min()
	if !ok {
		return ""
	}
	return s.entries[pos].appID
}

// Expired returns alterable entries that were previous and are no longer latest.
func (s *Store) Expired() []model.NativeValue {
	var out []model.NativeValue
	for _, e := range s.entries {
		if e.alterable() && e.previous && !e.latest {
			out = append(out, e.value)
		}
	}
	return out
}

// Deletable returns alterable entries that are latest.
func (s *Store) Deletable() []model.NativeValue {
	var out []model.NativeValue
	for _, e := range s.entries {
		if e.alterable() && e.latest {
			out = append(out, e.value)
		}
	}
	return out
}

// MarkAsPrevious starts a new reconciliation pass: every latest entry, limited
// to the given streams when any are named, becomes previous and not latest.
// It returns the number of entries changed.
func (s *Store) MarkAsPrevious(streamIDs ...string) int {
	mark := func(e *entry) int {
		if !e.latest {
			return 0
		}
		e.latest = false
		e.previous = true
		return 1
	}

	n := 0
	if len(streamIDs) == 0 {
		for _, e := range s.entries {
			n += mark(e)
		}
		return n
	}
	for _, sid := range streamIDs {
		for pos := range s.byStream.Get(unique.Make(sid)).All() {
			n += mark(s.entries[pos])
		}
	}
	return n
}

// StreamIDs returns the distinct stream ids in first-seen order.
func (s *Store) StreamIDs() []string {
	out := make([]string, len(s.streams))
	for i, h := range s.streams {
		out[i] = h.Value()
	}
	return out
}

// Entries returns copies of all entries in store order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{
			Position:      i,
			Value:         e.value,
			SchemaType:    e.t,
			Index:         e.index,
			ApplicationID: e.appID,
			Latest:        e.latest,
			Previous:      e.previous,
			Alterable:     e.alterable(),
		}
		if e.stream != (unique.Handle[string]{}) {
			out[i].StreamID = e.stream.Value()
		}
	}
	return out
}

// Reservations returns the provisional reservations of type t.
func (s *Store) Reservations(t model.SchemaType) []alloc.Reservation {
	return s.alloc.Reservations(t)
}

// ReservationTypes returns the types that have allocator state.
func (s *Store) ReservationTypes() []model.SchemaType {
	return s.alloc.Types()
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// ReservationCount returns the number of live reservations.
func (s *Store) ReservationCount() int { return s.alloc.Count() }

// Clear discards all entries, indices and reservations.
func (s *Store) Clear() {
	clear(s.entries)
	s.entries = s.entries[:0]
	s.byType.Clear()
	s.byKey.Clear()
	s.byAppID.Clear()
	s.byStream.Clear()
	clear(s.used)
	s.streams = s.streams[:0]
	s.alloc.Clear()
}

func (s *Store) matches(t model.SchemaType, app string) *bitmap.Set {
	return bitmap.And(s.byType.Get(t), s.byAppID.Get(app))
}

// FindReservation returns the provisional index held by appID, if any.
func (s *Store) FindReservation(t model.SchemaType, appID string) (int, bool) {
	return s.alloc.FindReservation(t, model.NormalizeApplicationID(appID))
}
