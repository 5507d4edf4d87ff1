package model

import (
	"fmt"
	"reflect"
	"strings"
)

// SchemaType tags a native record's keyword/shape (e.g. "EL.4", "MEMB.8", "NODE.3").
type SchemaType string

// String returns the tag.
func (t SchemaType) String() string { return string(t) }

// NativeValue is a parsed native record handed to the cache by a format parser.
//
// NativeIndex returns 0 when the record has not been assigned an index yet.
// ApplicationID and StreamID return "" when absent.
type NativeValue interface {
	SchemaType() SchemaType
	NativeIndex() int
	ApplicationID() string
	StreamID() string
}

// Equaler may be implemented by a NativeValue to define structural equality
// used for upsert de-duplication.
type Equaler interface {
	Equal(other NativeValue) bool
}

// EqualityFunc reports whether two native values are the same record content.
type EqualityFunc func(a, b NativeValue) bool

// DefaultEqual uses Equaler when a implements it and falls back to reflect.DeepEqual.
func DefaultEqual(a, b NativeValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(Equaler); ok {
		return e.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// ApplicationIDFunc derives a fallback application id for a record that carries none.
type ApplicationIDFunc func(t SchemaType, index int) string

// DefaultApplicationID formats the fallback id as "gsa/<type>_<index>".
func DefaultApplicationID(t SchemaType, index int) string {
	return fmt.Sprintf("gsa/%s_%d", t, index)
}

// NormalizeApplicationID trims surrounding whitespace. An empty result means "absent".
func NormalizeApplicationID(id string) string {
	return strings.TrimSpace(id)
}

// Layer partitions domain objects.
type Layer uint8

const (
	// LayerDesign holds design-layer objects.
	LayerDesign Layer = iota + 1
	// LayerAnalysis holds analysis-layer objects.
	LayerAnalysis
	// LayerBoth marks objects that belong to both layers.
	LayerBoth
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDesign:
		return "design"
	case LayerAnalysis:
		return "analysis"
	case LayerBoth:
		return "both"
	default:
		return fmt.Sprintf("Layer(%d)", uint8(l))
	}
}

// Valid reports whether l is one of the defined layers.
func (l Layer) Valid() bool {
	return l >= LayerDesign && l <= LayerBoth
}

// Expand returns the layers an object of layer l is indexed under.
// LayerBoth fans out to all three so that filtered queries for either
// specific layer still find it.
func (l Layer) Expand() []Layer {
	if l == LayerBoth {
		return []Layer{LayerDesign, LayerAnalysis, LayerBoth}
	}
	return []Layer{l}
}

// ParseLayer parses a layer name as produced by Layer.String.
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "design":
		return LayerDesign, nil
	case "analysis":
		return LayerAnalysis, nil
	case "both":
		return LayerBoth, nil
	default:
		return 0, fmt.Errorf("unknown layer %q", s)
	}
}
