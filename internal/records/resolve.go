package records

import (
	"github.com/hupe1980/gsacache/model"
)

// ResolveState names the branch ResolveIndex took.
type ResolveState uint8

const (
	// StateNoAppID means no application id was given and a fresh anonymous
	// reservation was made.
	StateNoAppID ResolveState = iota + 1
	// StateHasRealRecord means a stored record already carries the id.
	StateHasRealRecord
	// StateHasReservation means an earlier reservation for the id was reused.
	StateHasReservation
	// StateNeedsAllocation means a new reservation was made for the id.
	StateNeedsAllocation
)

func (s ResolveState) String() string {
	switch s {
	case StateNoAppID:
		return "no_app_id"
	case StateHasRealRecord:
		return "has_real_record"
	case StateHasReservation:
		return "has_reservation"
	case StateNeedsAllocation:
		return "needs_allocation"
	default:
		return "unknown"
	}
}

// ResolveIndex returns the native index the record of type t identified by
// appID should use.
//
// Among stored records carrying appID, a latest one wins, then one that is
// previous but not latest, then any other (e.g. hydrated with latest=false).
// Ties go to the highest native index. Without a stored record an existing
// reservation is returned, and failing that a new one is made. An empty appID
// always gets a new anonymous reservation.
func (s *Store) ResolveIndex(t model.SchemaType, appID string) (int, ResolveState) {
	app := model.NormalizeApplicationID(appID)
	if app == "" {
		return s.alloc.ReserveNextFreeIndex(t, "", s), StateNoAppID
	}

	var latest, expired, other int
	for pos := range s.matches(t, app).All() {
		e := s.entries[pos]
		switch {
		case e.index == 0:
		case e.latest:
			latest = max(latest, e.index)
		case e.previous:
			expired = max(expired, e.index)
		default:
			other = max(other, e.index)
		}
	}
	for _, idx := range []int{latest, expired, other} {
		if idx > 0 {
			return idx, StateHasRealRecord
		}
	}

	if idx, ok := s.alloc.FindReservation(t, app); ok {
		return idx, StateHasReservation
	}
	return s.alloc.ReserveNextFreeIndex(t, app, s), StateNeedsAllocation
}
