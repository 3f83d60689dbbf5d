// Package terminal maps terminal ids to the node positions of their words.
//
// The Table is the resolver consulted when a bigram target is turned into the
// position of the following word. A terminal that was never set, or was removed,
// resolves to model.NotAPos; maintenance sweeps then tombstone the bigrams that
// still point at it.
package terminal
