// Package bigram implements the bigram list policy of the dictionary.
//
// Every terminal may own a bigram list: a chain of fixed-size records in the
// shared content region, each naming a following terminal and the probability of
// that word pair. The Policy is the only code that interprets those chains. It
// inserts, updates, removes and sweeps entries using nothing but the mechanical
// read/write operations of a Content.
//
// # Removal
//
// Entries are never deleted. Removing one rewrites its target with
// model.NotATerminal (a tombstone); the slot is reused by the next insert into
// the same list.
//
// # Growth
//
// When a list has neither an entry for the target nor a tombstone, it is copied
// forward: a new head record is appended at the tail of the region, followed by
// a copy of the old list. The old records stay in the region unreachable.
//
// # Modes
//
// In static mode the stored probability is the last observed value. With a
// Decayer (WithDecay), inserts blend the stored level with the observation and
// sweeps decay every level, forgetting entries that fall out of validity.
//
// # Concurrency
//
// A Policy performs no locking. Callers must not run a mutation concurrently
// with any other operation on the same Content.
package bigram
