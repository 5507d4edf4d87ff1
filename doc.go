// Package gsacache is the synchronization cache of a bidirectional exchange
// between a structural-analysis application's native, index-addressed records
// and a graph-based interchange object model.
//
// # Session flow
//
//	c := gsacache.New()
//
//	// 1. Hydrate from the records already in the native model.
//	n, err := c.UpsertBatch(parsed, nil)
//
//	// 2. Receive: for each inbound domain object, get a native index, convert,
//	//    store the native record and link the objects to it.
//	idx := c.ResolveIndex("EL.4", obj.ApplicationID)
//	rec := convert(obj, idx)
//	_, err = c.Upsert(rec, ptr(true))
//	err = c.SetSpeckleObjects(rec, map[string]any{obj.ApplicationID: obj}, model.LayerDesign)
//
//	// 3. Write back: delete what is gone, rewrite what changed.
//	for _, r := range c.GetExpiredRecords() { ... }
//
//	// 4. End of session.
//	c.Clear()
//
// # Identity
//
// A native record's application id is either carried by the record or derived
// from its schema type and index (see WithApplicationIDFunc). Only records that
// carry their own id are "alterable", i.e. candidates for deletion or rewrite:
// the cache cannot prove other records were produced by this connector.
//
// ResolveIndex guarantees that an application id with a stored record always
// maps to that record's index, that an id without one gets a provisional index
// stable for the whole session, and that two ids never share an index, even
// when a real record later claims an index already promised to another id.
//
// # Versioning
//
// Several values may exist at one native key during a reconciliation pass.
// Upserting a value that differs from what is stored at its key clears the
// latest flag of the older values and marks them previous; GetExpiredRecords
// then offers them for deletion. MarkAsPrevious starts a pass explicitly.
//
// # Concurrency
//
// A Cache is safe for concurrent use. One mutex guards every operation.
package gsacache
