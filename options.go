package bigramdict

import (
	"log/slog"

	"github.com/hupe1980/bigramdict/codec"
	"github.com/hupe1980/bigramdict/internal/forgetting"
	"github.com/hupe1980/bigramdict/internal/fs"
	"github.com/hupe1980/bigramdict/internal/wal"
	"github.com/hupe1980/bigramdict/persistence"
)

const defaultRetainSnapshots = 2

type options struct {
	decay            *forgetting.Config
	capacity         int64
	ioLimit          int64
	codec            codec.Codec
	compression      persistence.Compression
	retainSnapshots  int
	metricsCollector MetricsCollector
	logger           *Logger
	fs               fs.FileSystem
	walPath          string
	walOptions       []func(*WALOptions)
}

// DecayConfig parametrises the forgetting curve of decay mode.
type DecayConfig = forgetting.Config

// DefaultDecayConfig returns levels 0..15 with a validity threshold of 3.
func DefaultDecayConfig() DecayConfig {
	return forgetting.DefaultConfig()
}

// WALOptions configures the write-ahead log.
type WALOptions = wal.Options

// Durability modes of the write-ahead log.
const (
	// DurabilityAsync leaves flushed records in the OS page cache.
	DurabilityAsync = wal.DurabilityAsync
	// DurabilitySync waits for fsync before a mutation returns.
	DurabilitySync = wal.DurabilitySync
)

// Option configures New and Open.
type Option func(*options)

// WithDecay runs the dictionary in decay mode: probabilities are encoded
// levels that grow with every observation and shrink with every sweep.
// Zero fields of cfg take their defaults.
//
// Without WithDecay the dictionary is static and stores the last observed
// probability as is.
func WithDecay(cfg DecayConfig) Option {
	return func(o *options) {
		o.decay = &cfg
	}
}

// WithCapacity bounds the content region to the given number of bytes.
// Inserts that would grow the region past it fail with a *StorageError.
// Zero means unbounded.
func WithCapacity(bytes int64) Option {
	return func(o *options) {
		o.capacity = bytes
	}
}

// WithIOLimit throttles snapshot encoding to the given bytes per second.
// Zero means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithCodec configures the codec used for manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures snapshot payload compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithRetainSnapshots keeps the n most recent snapshots in the blob store.
// Older snapshots and manifests are deleted after a successful Save.
// n < 1 keeps every snapshot.
func WithRetainSnapshots(n int) Option {
	return func(o *options) {
		o.retainSnapshots = n
	}
}

// WithWAL configures Write-Ahead Logging for durability between snapshots.
// Every successful mutation is appended to the log at path; Open replays the
// records newer than the loaded snapshot and Save truncates the log.
//
// Example:
//
//	dict, _ := bigramdict.Open(ctx, store,
//	    bigramdict.WithWAL("./dict.wal", func(o *bigramdict.WALOptions) {
//	        o.Durability = bigramdict.DurabilityAsync
//	    }),
//	)
func WithWAL(path string, optFns ...func(*WALOptions)) Option {
	return func(o *options) {
		o.walPath = path
		o.walOptions = optFns
	}
}

// WithFileSystem sets the file system used by the write-ahead log.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bigramdict.BasicMetricsCollector{}
//	dict, _ := bigramdict.New(bigramdict.WithMetricsCollector(metrics))
//	// ... use dict ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bigramdict.NewJSONLogger(slog.LevelInfo)
//	dict, _ := bigramdict.New(bigramdict.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      persistence.CompressionLZ4,
		retainSnapshots:  defaultRetainSnapshots,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fs:               fs.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	return o
}
