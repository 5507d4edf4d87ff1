// Package records implements the store of native records.
//
// The store is an append-only array of entries. Four secondary indices map
// schema type, (schema type, native index), application id and stream id to the
// positions carrying them. A per-type set of used native indices backs the
// provisional index allocator.
//
// Several entries may share a (schema type, native index) key while a
// reconciliation pass is in progress: superseded values keep their position with
// Latest cleared so that write-back can find what has to be deleted.
//
// # Identity resolution
//
// ResolveIndex answers "which native index should the record for this
// application id use". In order it tries a real record (latest first, then one
// that is only previous), then an existing reservation, then allocates a new
// reservation. Requests without an application id always allocate.
//
// Store is not safe for concurrent use; the cache facade serializes access.
package records
