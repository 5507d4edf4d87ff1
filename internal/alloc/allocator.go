package alloc

import (
	"github.com/hupe1980/gsacache/internal/pairmap"
	"github.com/hupe1980/gsacache/model"
)

// Usage reports which native indices are taken by real records.
type Usage interface {
	// HighestIndex returns the largest native index of type t, or 0.
	HighestIndex(t model.SchemaType) int
	// IndexUsed reports whether a real record of type t occupies index.
	IndexUsed(t model.SchemaType, index int) bool
}

// Rehome describes a reservation moved because a real record took its index.
type Rehome struct {
	SchemaType    model.SchemaType
	ApplicationID string
	From          int
	To            int
}

// Reservation is a single provisional index.
type Reservation struct {
	Index         int
	ApplicationID string
}

// Allocator tracks provisional reservations per schema type.
// It is not safe for concurrent use.
type Allocator struct {
	byType map[model.SchemaType]*pairmap.Map[int, string]
}

// New creates an empty allocator.
func New() *Allocator {
	return &Allocator{byType: make(map[model.SchemaType]*pairmap.Map[int, string])}
}

func (a *Allocator) pairs(t model.SchemaType) *pairmap.Map[int, string] {
	m, ok := a.byType[t]
	if !ok {
		m = pairmap.New[int, string]()
		a.byType[t] = m
	}
	return m
}

// ReserveNextFreeIndex reserves the lowest index of type t used neither by a
// real record nor by another reservation, and binds it to appID (which may be
// empty). If appID already holds a reservation that index is returned unchanged.
func (a *Allocator) ReserveNextFreeIndex(t model.SchemaType, appID string, used Usage) int {
	m := a.pairs(t)
	if appID != "" {
		if idx, ok := m.FindLeftByRight(appID); ok && idx > 0 {
			return idx
		}
	}

	high := used.HighestIndex(t)
	if maxReserved, ok := m.MaxLeft(); ok && maxReserved > high {
		high = maxReserved
	}

	next := high + 1
	for i := 1; i <= high; i++ {
		if !used.IndexUsed(t, i) && !m.ContainsLeft(i) {
			next = i
			break
		}
	}

	m.Add(next, appID)
	return next
}

// FindReservation returns the index reserved for appID.
func (a *Allocator) FindReservation(t model.SchemaType, appID string) (int, bool) {
	if appID == "" {
		return 0, false
	}
	m, ok := a.byType[t]
	if !ok {
		return 0, false
	}
	idx, ok := m.FindLeftByRight(appID)
	if !ok || idx == 0 {
		return 0, false
	}
	return idx, true
}

// ReservedAt returns the application id holding a reservation at index.
func (a *Allocator) ReservedAt(t model.SchemaType, index int) (string, bool) {
	m, ok := a.byType[t]
	if !ok {
		return "", false
	}
	return m.FindRightByLeft(index)
}

// ReconcileOnRealAdd must be called after a real record of type t has been
// stored. A reservation held by appID is released since the real record
// supersedes it. A reservation at index held by a different application id is
// moved to a fresh free index; an anonymous reservation there is dropped
// because there is nobody to re-home it to.
//
// index may be 0 and appID may be empty when the record lacks them.
func (a *Allocator) ReconcileOnRealAdd(t model.SchemaType, index int, appID string, used Usage) []Rehome {
	m, ok := a.byType[t]
	if !ok {
		return nil
	}

	if appID != "" {
		m.RemoveByRight(appID)
	}
	if index <= 0 {
		return nil
	}

	other, ok := m.FindRightByLeft(index)
	if !ok {
		return nil
	}
	m.RemoveByLeft(index)
	if other == "" {
		return nil
	}

	to := a.ReserveNextFreeIndex(t, other, used)
	return []Rehome{{SchemaType: t, ApplicationID: other, From: index, To: to}}
}

// Reservations returns the reservations of type t in ascending index order.
func (a *Allocator) Reservations(t model.SchemaType) []Reservation {
	m, ok := a.byType[t]
	if !ok {
		return nil
	}
	out := make([]Reservation, 0, m.Count())
	for idx, app := range m.All() {
		out = append(out, Reservation{Index: idx, ApplicationID: app})
	}
	return out
}

// Types returns the schema types that have allocator state.
func (a *Allocator) Types() []model.SchemaType {
	out := make([]model.SchemaType, 0, len(a.byType))
	for t := range a.byType {
		out = append(out, t)
	}
	return out
}

// Count returns the number of reservations across all types.
func (a *Allocator) Count() int {
	n := 0
	for _, m := range a.byType {
		n += m.Count()
	}
	return n
}

// Clear drops all reservations.
func (a *Allocator) Clear() {
	clear(a.byType)
}
