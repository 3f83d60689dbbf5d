package bigramdict

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/bigramdict/internal/resource"
	"github.com/hupe1980/bigramdict/persistence"
)

const (
	currentName    = "CURRENT"
	snapshotPrefix = "snapshots/"
	snapshotExt    = ".bgs"
	manifestPrefix = "manifests/"
	manifestExt    = ".json"
)

// Manifest describes a committed snapshot. It is stored next to the snapshot
// and referenced by the CURRENT blob.
type Manifest struct {
	Version       uint64    `json:"version"`
	Snapshot      string    `json:"snapshot"`
	LSN           uint64    `json:"lsn"`
	Codec         string    `json:"codec"`
	Compression   string    `json:"compression"`
	Decay         bool      `json:"decay"`
	Terminals     int       `json:"terminals"`
	Lists         int       `json:"lists"`
	ContentBytes  int       `json:"content_bytes"`
	SnapshotBytes int64     `json:"snapshot_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

func snapshotName(version uint64) string {
	return fmt.Sprintf("%s%08d%s", snapshotPrefix, version, snapshotExt)
}

func manifestName(version uint64) string {
	return fmt.Sprintf("%s%08d%s", manifestPrefix, version, manifestExt)
}

func parseVersion(name, prefix, ext string) (uint64, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Save writes a snapshot of the dictionary to its blob store and commits it.
//
// A commit writes the snapshot, then its manifest, then repoints CURRENT at
// the manifest. A failure before the last step leaves the previous snapshot
// current. After a commit the WAL is truncated and snapshots beyond the
// retention limit are deleted; failures of either are logged, not returned.
//
// Mutations block for the duration of Save.
func (d *Dictionary) Save(ctx context.Context) (Manifest, error) {
	start := time.Now()
	m, err := d.save(ctx)
	d.metrics.RecordSnapshot(m.SnapshotBytes, time.Since(start), err)
	d.logger.LogSnapshot(ctx, m, err)
	return m, err
}

func (d *Dictionary) save(ctx context.Context) (Manifest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(ctx); err != nil {
		return Manifest{}, err
	}
	if d.store == nil {
		return Manifest{}, ErrNoStore
	}

	version := d.version + 1
	snap := d.snapshotLocked()
	m := Manifest{
		Version:      version,
		Snapshot:     snapshotName(version),
		LSN:          snap.LSN,
		Codec:        d.opts.codec.Name(),
		Compression:  d.opts.compression.String(),
		Decay:        snap.Decay,
		Terminals:    len(snap.Terminals),
		Lists:        len(snap.Heads),
		ContentBytes: len(snap.Content),
		CreatedAt:    time.Now().UTC(),
	}

	var buf bytes.Buffer
	n, err := persistence.Encode(resource.NewThrottledWriter(ctx, &buf, d.rc), snap, d.opts.compression)
	if err != nil {
		return m, fmt.Errorf("encode snapshot: %w", err)
	}
	m.SnapshotBytes = n

	if err := d.store.Put(ctx, m.Snapshot, buf.Bytes()); err != nil {
		return m, &StorageError{Op: "put " + m.Snapshot, TerminalID: NotATerminal, Err: err}
	}
	data, err := d.opts.codec.Marshal(m)
	if err != nil {
		return m, fmt.Errorf("encode manifest: %w", err)
	}
	name := manifestName(version)
	if err := d.store.Put(ctx, name, data); err != nil {
		return m, &StorageError{Op: "put " + name, TerminalID: NotATerminal, Err: err}
	}
	if err := d.store.Put(ctx, currentName, []byte(name)); err != nil {
		return m, &StorageError{Op: "put " + currentName, TerminalID: NotATerminal, Err: err}
	}
	d.version = version

	// The snapshot covers every logged record; replay skips them if the log
	// cannot be truncated.
	if d.wal != nil {
		if err := d.wal.Reset(); err != nil {
			d.logger.WarnContext(ctx, "truncating wal after commit failed", "version", version, "lsn", m.LSN, "error", err)
		}
	}
	d.pruneLocked(ctx, version)
	return m, nil
}

func (d *Dictionary) snapshotLocked() *persistence.Snapshot {
	s := &persistence.Snapshot{
		LSN:     d.lsn,
		Decay:   d.policy.Decays(),
		Content: d.content.Bytes(),
	}
	for id, pos := range d.terminals.Terminals() {
		s.Terminals = append(s.Terminals, persistence.Binding{Terminal: id, NodePos: pos})
	}
	for id, head := range d.content.Heads() {
		s.Heads = append(s.Heads, persistence.ListHead{Terminal: id, Head: head})
	}
	return s
}

// pruneLocked deletes snapshots and manifests older than the retained ones.
// Failures are logged; the commit already succeeded.
func (d *Dictionary) pruneLocked(ctx context.Context, version uint64) {
	retain := d.opts.retainSnapshots
	if retain < 1 {
		return
	}
	names, err := d.store.List(ctx, snapshotPrefix)
	if err != nil {
		d.logger.WarnContext(ctx, "listing snapshots failed", "error", err)
		return
	}
	for _, name := range names {
		v, ok := parseVersion(name, snapshotPrefix, snapshotExt)
		if !ok || v+uint64(retain) > version {
			continue
		}
		for _, blob := range []string{manifestName(v), name} {
			if err := d.store.Delete(ctx, blob); err != nil {
				d.logger.WarnContext(ctx, "pruning snapshot failed", "blob", blob, "error", err)
			}
		}
	}
}
