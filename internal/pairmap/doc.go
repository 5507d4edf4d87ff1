// Package pairmap provides a one-to-one map between two unique-valued domains.
//
// Both sides are looked up in O(1). The largest left value is tracked
// incrementally with a lazily pruned max-heap so that index allocation can
// read it without scanning.
//
// The zero value of either side means "absent": such a side is stored with its
// pair but excluded from the corresponding lookup index. A provisional
// reservation without an application id is the typical case.
//
// Map is not safe for concurrent use; callers hold their own lock.
package pairmap
