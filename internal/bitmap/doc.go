// Package bitmap provides position sets and inverted indexes backed by Roaring bitmaps.
//
// Stores in this module are append-only arrays. Every secondary index maps a key
// (schema type, application id, layer, ...) to the set of store positions that
// carry it. Roaring keeps these posting lists compact and makes the
// intersections used by combined queries cheap.
//
// Iteration is always in ascending position order, which is also insertion
// order for an append-only store.
package bitmap
