// Package util provides helpers shared by database implementations that
// satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: seed generation and the seeded hash functions used to compute
//     hash codes of keys (FNV-1a and xxHash64)
//   - statistics: summary statistics, a distribution quality rating for bucket
//     chain lengths and a SizeHistogram for estimating memory usage from samples
package util
