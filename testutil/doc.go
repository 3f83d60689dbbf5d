// Package testutil provides testing utilities for bigramdict.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and generators for random update
// sequences used by property tests.
//
//	rng := testutil.NewRNG(seed)
//	for _, op := range rng.Ops(1000, 16, 100) {
//	    // apply op to the structure under test and to a reference model
//	}
package testutil
