// Package alloc hands out provisional native indices to application ids that
// have no native record yet.
//
// Each schema type owns a pairmap of reserved index <-> application id. A
// reservation lives only until a real record claims its index or its
// application id. When a real record takes an index that was promised to a
// different application id, that promise is moved to a fresh free index rather
// than dropped, so an id that has been told "your index is N" keeps a unique
// index for the rest of the session.
package alloc
