package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/gsacache/model"
)

// Record is a simple native record.
type Record struct {
	Type    model.SchemaType `json:"type" yaml:"type"`
	Index   int              `json:"index,omitempty" yaml:"index,omitempty"`
	AppID   string           `json:"application_id,omitempty" yaml:"application_id,omitempty"`
	Stream  string           `json:"stream_id,omitempty" yaml:"stream_id,omitempty"`
	Payload string           `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// SchemaType implements model.NativeValue.
func (r Record) SchemaType() model.SchemaType { return r.Type }

// NativeIndex implements model.NativeValue.
func (r Record) NativeIndex() int { return r.Index }

// ApplicationID implements model.NativeValue.
func (r Record) ApplicationID() string { return r.AppID }

// StreamID implements model.NativeValue.
func (r Record) StreamID() string { return r.Stream }

// Equal implements model.Equaler.
func (r Record) Equal(other model.NativeValue) bool {
	o, ok := other.(Record)
	return ok && o == r
}

// String renders the record as a native-style line.
func (r Record) String() string {
	return fmt.Sprintf("%s\t%d\t%s\t%s", r.Type, r.Index, r.AppID, r.Payload)
}

// NewRecord is shorthand for a record with type, index and application id.
func NewRecord(t model.SchemaType, index int, appID string) Record {
	return Record{Type: t, Index: index, AppID: appID}
}

// Ptr returns a pointer to v; handy for optional latest hints.
func Ptr[T any](v T) *T { return &v }

// RNG encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Records generates n records of type t with distinct indices 1..n in random
// order. Roughly a third carry no application id.
func (r *RNG) Records(t model.SchemaType, n int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, n)
	for i, p := range r.rand.Perm(n) {
		rec := Record{Type: t, Index: p + 1, Payload: fmt.Sprintf("p%d", r.rand.Intn(1000))}
		if r.rand.Intn(3) != 0 {
			rec.AppID = fmt.Sprintf("%s-app-%d", t, p+1)
		}
		out[i] = rec
	}
	return out
}

// ApplicationIDs generates n distinct application ids with the given prefix
// in random order.
func (r *RNG) ApplicationIDs(prefix string, n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, n)
	for i, p := range r.rand.Perm(n) {
		out[i] = fmt.Sprintf("%s-%d", prefix, p)
	}
	return out
}
