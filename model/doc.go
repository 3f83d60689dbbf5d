// Package model defines the core types shared by every layer of bigramdict.
//
// # Identity Types
//
//   - TerminalID: stable integer identifying a word endpoint (terminal) in the dictionary
//   - Pos: byte offset into a region (bigram content region or node region)
//
// # Value Types
//
//   - Probability: raw (static mode) or encoded (decay mode) confidence value
//   - Entry: one fixed-layout bigram record {Probability, HasNext, Target}
//
// Every type reserves a sentinel value: NotATerminal, NotAPos and NotAProbability.
// A bigram Entry whose Target is NotATerminal is a tombstone: physically present
// and linked, logically empty.
package model
