package gsacache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gsacache/internal/objects"
	"github.com/hupe1980/gsacache/internal/records"
	"github.com/hupe1980/gsacache/model"
)

var (
	// ErrInconsistent is returned when more than one stored value equals an
	// incoming native record at the same key.
	ErrInconsistent = errors.New("inconsistent native record store")

	// ErrInvalidApplicationID is returned where a bound application id is
	// required but the given one is empty or whitespace.
	ErrInvalidApplicationID = errors.New("invalid application id")

	// ErrLinkFailure is returned when a domain object cannot be associated with
	// its native record.
	ErrLinkFailure = errors.New("link failure")

	// ErrNoNativeIndex is returned when a native record has no index where one is required.
	ErrNoNativeIndex = errors.New("native record has no index")

	// ErrInvalidIndex is returned for native indices that cannot be addressed.
	ErrInvalidIndex = errors.New("invalid native index")

	// ErrInvalidLayer is returned for a layer outside Design, Analysis and Both.
	ErrInvalidLayer = errors.New("invalid layer")

	// ErrNilValue is returned when nil is passed as a native value.
	ErrNilValue = errors.New("nil native value")
)

// InconsistentError reports duplicate equal values at one native key.
//
// errors.Is(err, ErrInconsistent) holds for it.
type InconsistentError struct {
	SchemaType model.SchemaType
	Index      int
	Positions  []int
	cause      error
}

func (e *InconsistentError) Error() string {
	return fmt.Sprintf("inconsistent native record store: %d equal values at %s/%d",
		len(e.Positions), e.SchemaType, e.Index)
}

func (e *InconsistentError) Unwrap() error { return e.cause }

// Is reports whether target is ErrInconsistent.
func (e *InconsistentError) Is(target error) bool { return target == ErrInconsistent }

// LinkError reports a domain object that could not be linked to its native record.
//
// errors.Is(err, ErrLinkFailure) holds for it.
type LinkError struct {
	SchemaType    model.SchemaType
	Index         int
	ApplicationID string
	cause         error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link failure: %s/%d application id %q: %v",
		e.SchemaType, e.Index, e.ApplicationID, e.cause)
}

func (e *LinkError) Unwrap() error { return e.cause }

// Is reports whether target is ErrLinkFailure.
func (e *LinkError) Is(target error) bool { return target == ErrLinkFailure }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ie *records.InconsistentError
	if errors.As(err, &ie) {
		return &InconsistentError{SchemaType: ie.SchemaType, Index: ie.Index, Positions: ie.Positions, cause: err}
	}
	if errors.Is(err, records.ErrInvalidIndex) {
		return fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	if errors.Is(err, records.ErrNilValue) {
		return fmt.Errorf("%w: %w", ErrNilValue, err)
	}
	if errors.Is(err, objects.ErrInvalidLayer) {
		return fmt.Errorf("%w: %w", ErrInvalidLayer, err)
	}
	if errors.Is(err, objects.ErrNoNativeIndex) {
		return fmt.Errorf("%w: %w", ErrNoNativeIndex, err)
	}

	return err
}
