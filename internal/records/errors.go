package records

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gsacache/model"
)

var (
	// ErrInconsistent is returned when more than one stored value equals an
	// incoming record at the same native key.
	ErrInconsistent = errors.New("inconsistent record store")

	// ErrInvalidIndex is returned for native indices outside [0, MaxUint32].
	ErrInvalidIndex = errors.New("invalid native index")

	// ErrNilValue is returned when a nil native value is upserted.
	ErrNilValue = errors.New("nil native value")
)

// InconsistentError carries the key and positions of the duplicate matches.
type InconsistentError struct {
	SchemaType model.SchemaType
	Index      int
	Positions  []int
}

func (e *InconsistentError) Error() string {
	return fmt.Sprintf("%s: %d equal values at %s/%d (positions %v)",
		ErrInconsistent, len(e.Positions), e.SchemaType, e.Index, e.Positions)
}

func (e *InconsistentError) Unwrap() error { return ErrInconsistent }
