package objects

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gsacache/internal/bitmap"
	"github.com/hupe1980/gsacache/model"
)

var (
	// ErrInvalidLayer is returned for a layer outside Design, Analysis and Both.
	ErrInvalidLayer = errors.New("invalid layer")

	// ErrNoNativeIndex is returned when linking to a native record without an index.
	ErrNoNativeIndex = errors.New("native record has no index")

	// ErrUnknownPosition is returned when linking a position that was never stored.
	ErrUnknownPosition = errors.New("unknown object position")
)

type typeApp struct {
	t   model.SchemaType
	app string
}

type nativeKey struct {
	t     model.SchemaType
	index int
}

// Object is a stored domain object with its index keys.
type Object struct {
	Value         any
	SchemaType    model.SchemaType
	ApplicationID string
	Layer         model.Layer
	// Links are the native indices the object has been linked to.
	Links []int
}

// Store holds domain objects. It is not safe for concurrent use.
type Store struct {
	objects []*Object

	byLayer     *bitmap.Index[model.Layer]
	byType      *bitmap.Index[model.SchemaType]
	byTypeApp   *bitmap.Index[typeApp]
	byTypeIndex *bitmap.Index[nativeKey]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byLayer:     bitmap.NewIndex[model.Layer](),
		byType:      bitmap.NewIndex[model.SchemaType](),
		byTypeApp:   bitmap.NewIndex[typeApp](),
		byTypeIndex: bitmap.NewIndex[nativeKey](),
	}
}

// Upsert appends value and returns its position.
func (s *Store) Upsert(value any, t model.SchemaType, appID string, layer model.Layer) (int, error) {
	if !layer.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}

	pos := uint32(len(s.objects))
	app := model.NormalizeApplicationID(appID)
	s.objects = append(s.objects, &Object{
		Value:         value,
		SchemaType:    t,
		ApplicationID: app,
		Layer:         layer,
	})

	for _, l := range layer.Expand() {
		s.byLayer.Add(l, pos)
	}
	s.byType.Add(t, pos)
	if app != "" {
		s.byTypeApp.Add(typeApp{t, app}, pos)
	}
	return int(pos), nil
}

// LinkToNative associates stored objects with the native record at (t, index).
// Every valid position is linked even if others fail; the failures are joined.
func (s *Store) LinkToNative(t model.SchemaType, index int, positions []int) error {
	if index <= 0 {
		return fmt.Errorf("%w: %s", ErrNoNativeIndex, t)
	}
	var errs []error
	for _, pos := range positions {
		if pos < 0 || pos >= len(s.objects) {
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownPosition, pos))
			continue
		}
		key := nativeKey{t, index}
		if s.byTypeIndex.Get(key).Contains(uint32(pos)) {
			continue
		}
		s.byTypeIndex.Add(key, uint32(pos))
		o := s.objects[pos]
		o.Links = append(o.Links, index)
	}
	return errors.Join(errs...)
}

// GetByLayer returns the objects visible on layer, in insertion order.
func (s *Store) GetByLayer(layer model.Layer) []any {
	return s.values(s.byLayer.Get(layer))
}

// GetByType returns the objects of type t visible on layer.
func (s *Store) GetByType(t model.SchemaType, layer model.Layer) []any {
	return s.values(bitmap.And(s.byType.Get(t), s.byLayer.Get(layer)))
}

// GetByTypeAndNativeIndex returns the objects linked to (t, index) visible on layer.
func (s *Store) GetByTypeAndNativeIndex(t model.SchemaType, index int, layer model.Layer) []any {
	return s.values(bitmap.And(s.byTypeIndex.Get(nativeKey{t, index}), s.byLayer.Get(layer)))
}

// GetByTypeAndApplicationID returns the objects of type t with appID visible on layer.
func (s *Store) GetByTypeAndApplicationID(t model.SchemaType, appID string, layer model.Layer) []any {
	app := model.NormalizeApplicationID(appID)
	if app == "" {
		return nil
	}
	return s.values(bitmap.And(s.byTypeApp.Get(typeApp{t, app}), s.byLayer.Get(layer)))
}

// Objects returns copies of all stored objects in insertion order.
func (s *Store) Objects() []Object {
	out := make([]Object, len(s.objects))
	for i, o := range s.objects {
		out[i] = *o
		out[i].Links = append([]int(nil), o.Links...)
	}
	return out
}

// Len returns the number of stored objects.
func (s *Store) Len() int { return len(s.objects) }

// Clear discards all objects and indices.
func (s *Store) Clear() {
	clear(s.objects)
	s.objects = s.objects[:0]
	s.byLayer.Clear()
	s.byType.Clear()
	s.byTypeApp.Clear()
	s.byTypeIndex.Clear()
}

func (s *Store) values(positions *bitmap.Set) []any {
	if positions.IsEmpty() {
		return nil
	}
	out := make([]any, 0, positions.Cardinality())
	for pos := range positions.All() {
		out = append(out, s.objects[pos].Value)
	}
	return out
}
