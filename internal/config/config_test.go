package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/bigramdict"
	"github.com/hupe1980/bigramdict/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bigramdict.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Store, cfg.Store)
	assert.Equal(t, "127.0.0.1:7420", cfg.ListenAddr())
	assert.Equal(t, time.Minute, cfg.Server.MaintenanceInterval)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  type: sqlite
  path: /tmp/dict.db
wal:
  path: /tmp/dict.wal
  sync: false
dictionary:
  decay: true
  min_valid: 4
  compression: zstd
  retain_snapshots: 5
server:
  port: 9000
  maintenance_interval: 30s
  snapshot_interval: 5m
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Type)
	assert.Equal(t, "/tmp/dict.db", cfg.Store.Path)
	assert.Equal(t, "/tmp/dict.wal", cfg.WAL.Path)
	assert.False(t, cfg.WAL.Sync)
	assert.True(t, cfg.Dictionary.Decay)
	assert.Equal(t, int32(4), cfg.Dictionary.MinValid)
	assert.Equal(t, "zstd", cfg.Dictionary.Compression)
	assert.Equal(t, "go-json", cfg.Dictionary.Codec)
	assert.Equal(t, 5, cfg.Dictionary.RetainSnapshots)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
	assert.Equal(t, 30*time.Second, cfg.Server.MaintenanceInterval)
	assert.Equal(t, 5*time.Minute, cfg.Server.SnapshotInterval)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "store: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
store:
  type: s3
log:
  level: loud
  format: xml
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.bucket is required")
		assert.Contains(t, err.Error(), "invalid log.level")
		assert.Contains(t, err.Error(), "unknown log.format")
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"BIGRAMDICT_STORE_TYPE": "memory",
		"BIGRAMDICT_WAL_PATH":   "/var/lib/dict.wal",
	}
	cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "/var/lib/dict.wal", cfg.WAL.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestConfig_Options(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Dictionary.Decay = true
	cfg.Dictionary.MinValid = 2
	cfg.WAL.Path = filepath.Join(t.TempDir(), "dict.wal")

	opts, err := cfg.Options()
	require.NoError(t, err)

	store := blobstore.NewMemoryStore()
	d, err := bigramdict.Open(ctx, store, opts...)
	require.NoError(t, err)
	defer d.Close()

	assert.True(t, d.Stats().Decay)

	require.NoError(t, d.AddTerminal(ctx, 1, 10))
	require.NoError(t, d.AddTerminal(ctx, 2, 20))
	_, err = d.AddBigram(ctx, 1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []bigramdict.Bigram{{Target: 2, NodePos: 20, Probability: 2}}, d.Bigrams(1))
	assert.Equal(t, 3, d.Stats().WALRecords)

	t.Run("unknown codec", func(t *testing.T) {
		c := Default()
		c.Dictionary.Codec = "gob"
		_, err := c.Options()
		assert.Error(t, err)
	})

	t.Run("unknown compression", func(t *testing.T) {
		c := Default()
		c.Dictionary.Compression = "brotli"
		_, err := c.Options()
		assert.Error(t, err)
	})
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	for _, sc := range []StoreConfig{
		{Type: StoreMemory},
		{Type: StoreLocal, Path: filepath.Join(dir, "local")},
		{Type: StoreSQLite, Path: filepath.Join(dir, "dict.db")},
		{Type: StoreBadger},
	} {
		t.Run(sc.Type, func(t *testing.T) {
			st, err := OpenStore(ctx, sc, logger)
			require.NoError(t, err)
			defer func() { assert.NoError(t, st.Close()) }()

			require.NoError(t, st.Put(ctx, "CURRENT", []byte("manifests/00000001.json")))
			data, err := blobstore.ReadFile(ctx, st, "CURRENT")
			require.NoError(t, err)
			assert.Equal(t, "manifests/00000001.json", string(data))
		})
	}

	_, err := OpenStore(ctx, StoreConfig{Type: "tape"}, logger)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
