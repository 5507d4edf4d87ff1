// Package testutil provides fixtures for tests and benchmarks.
//
// Record is a minimal NativeValue with structural equality, standing in for
// the parsed records a format parser would hand to the cache. RNG generates
// reproducible record sets:
//
//	rng := testutil.NewRNG(42)
//	recs := rng.Records("EL.4", 100)
package testutil
