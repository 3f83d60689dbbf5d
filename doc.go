// Package bigramdict provides an embeddable bigram dictionary for Go.
//
// A bigram dictionary records, for every word of a vocabulary, which words
// have been observed to follow it and with what confidence. Words are
// identified by terminal ids that are bound to node positions of an external
// trie. The word pairs live in a compact append-only content region of
// 9-byte records, one chained list per word.
//
// # Quick Start
//
//	dict, _ := bigramdict.New()
//	defer dict.Close()
//
//	_ = dict.AddTerminal(ctx, 1, 100) // "hello"
//	_ = dict.AddTerminal(ctx, 2, 200) // "world"
//	added, _ := dict.AddBigram(ctx, 1, 2, 80)
//
//	for _, b := range dict.Bigrams(1) {
//	    fmt.Println(b.Target, b.NodePos, b.Probability)
//	}
//
// # Modes
//
// A static dictionary stores the last observed probability of every pair.
// With WithDecay the dictionary stores levels of a forgetting curve instead:
// every observation raises the level of a pair, every Sweep lowers it, and
// pairs that fall below the validity threshold are forgotten.
//
//	dict, _ := bigramdict.New(bigramdict.WithDecay(bigramdict.DefaultDecayConfig()))
//
// # Persistence
//
// Open loads the most recent snapshot from a blob store and Save commits a
// new one. Blob stores are provided for the local file system, memory, S3
// (optionally with a DynamoDB commit pointer) and MinIO:
//
//	store := blobstore.NewLocalStore("./data")
//	dict, _ := bigramdict.Open(ctx, store, bigramdict.WithWAL("./data/dict.wal"))
//	...
//	manifest, _ := dict.Save(ctx)
//
// Between snapshots, WithWAL logs every mutation so that Open can replay it
// after a crash.
//
// # Maintenance
//
// Removing a terminal does not touch the lists pointing at it. Sweep
// tombstones those entries and, in decay mode, ages every pair.
// StartMaintenance runs Sweep periodically in the background.
//
// # Errors
//
// Errors wrap the sentinels of this package and can be tested with
// errors.Is: ErrNotFound, ErrInvalidTerminal, ErrInvalidNodePos, ErrClosed,
// ErrNoStore, ErrModeMismatch. Storage failures are reported as
// *StorageError, which also matches ErrStorage.
package bigramdict
