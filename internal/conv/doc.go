// Package conv provides checked integer conversions.
//
// Region offsets are Go ints in memory but fixed-width integers on disk (record
// targets, snapshot head tables, WAL payloads). Every narrowing conversion of data
// that crosses that boundary goes through this package so that a corrupted file or
// an oversized region surfaces as ErrOverflow instead of a silent wrap-around.
//
// For conversions that are provably safe by construction (loop indices, bounded
// counters), use direct casts.
package conv
