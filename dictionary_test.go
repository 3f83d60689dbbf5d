package bigramdict_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hupe1980/bigramdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newDict(t *testing.T, opts ...bigramdict.Option) *bigramdict.Dictionary {
	t.Helper()
	d, err := bigramdict.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func addTerminals(t *testing.T, d *bigramdict.Dictionary, ids ...bigramdict.TerminalID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, d.AddTerminal(context.Background(), id, bigramdict.Pos(100*id)))
	}
}

func TestDictionary_AddBigram(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)
	addTerminals(t, d, 1, 2, 3)

	added, err := d.AddBigram(ctx, 1, 2, 80)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = d.AddBigram(ctx, 1, 3, 40)
	require.NoError(t, err)
	assert.True(t, added)

	t.Run("update keeps the entry", func(t *testing.T) {
		added, err := d.AddBigram(ctx, 1, 2, 90)
		require.NoError(t, err)
		assert.False(t, added)
	})

	assert.Equal(t, []bigramdict.Bigram{
		{Target: 3, NodePos: 300, Probability: 40},
		{Target: 2, NodePos: 200, Probability: 90},
	}, d.Bigrams(1))
	assert.Equal(t, 2, d.BigramCount(1))
	assert.Empty(t, d.Bigrams(2))
	assert.Equal(t, 0, d.BigramCount(42))
}

func TestDictionary_RemoveBigram(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)
	addTerminals(t, d, 1, 2, 3)

	_, err := d.AddBigram(ctx, 1, 2, 10)
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 1, 3, 20)
	require.NoError(t, err)

	require.NoError(t, d.RemoveBigram(ctx, 1, 2))
	assert.Equal(t, 1, d.BigramCount(1))
	assert.ErrorIs(t, d.RemoveBigram(ctx, 1, 2), bigramdict.ErrNotFound)
	assert.ErrorIs(t, d.RemoveBigram(ctx, 7, 2), bigramdict.ErrNotFound)

	t.Run("tombstone is reused", func(t *testing.T) {
		before := d.Stats().ContentBytes
		added, err := d.AddBigram(ctx, 1, 2, 30)
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, before, d.Stats().ContentBytes)
	})
}

func TestDictionary_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)

	assert.ErrorIs(t, d.AddTerminal(ctx, -5, 10), bigramdict.ErrInvalidTerminal)
	assert.ErrorIs(t, d.AddTerminal(ctx, 1, bigramdict.NotAPos), bigramdict.ErrInvalidNodePos)
	assert.ErrorIs(t, d.RemoveTerminal(ctx, bigramdict.NotATerminal), bigramdict.ErrInvalidTerminal)
	assert.ErrorIs(t, d.RemoveTerminal(ctx, 9), bigramdict.ErrNotFound)

	_, err := d.AddBigram(ctx, -1, 2, 10)
	assert.ErrorIs(t, err, bigramdict.ErrInvalidTerminal)
	_, err = d.AddBigram(ctx, 1, bigramdict.NotATerminal, 10)
	assert.ErrorIs(t, err, bigramdict.ErrInvalidTerminal)

	assert.ErrorIs(t, d.RemoveBigram(ctx, 1, bigramdict.NotATerminal), bigramdict.ErrNotFound)
	assert.Equal(t, uint64(0), d.Stats().LSN)
}

func TestDictionary_RemoveTerminalAndSweep(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)
	addTerminals(t, d, 1, 2, 3)

	_, err := d.AddBigram(ctx, 1, 2, 10)
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 1, 3, 20)
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 3, 1, 30)
	require.NoError(t, err)

	require.NoError(t, d.RemoveTerminal(ctx, 2))
	assert.Equal(t, bigramdict.NotAPos, d.NodePos(2))

	// Dangling until swept.
	assert.Contains(t, d.Bigrams(1), bigramdict.Bigram{Target: 2, NodePos: bigramdict.NotAPos, Probability: 10})

	stats, err := d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Lists)
	assert.Equal(t, 2, stats.Live)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, []bigramdict.Bigram{{Target: 3, NodePos: 300, Probability: 20}}, d.Bigrams(1))

	t.Run("static sweep is idempotent", func(t *testing.T) {
		stats, err := d.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Live)
		assert.Equal(t, 0, stats.Removed)
	})
}

func TestDictionary_Decay(t *testing.T) {
	ctx := context.Background()
	d := newDict(t, bigramdict.WithDecay(bigramdict.DecayConfig{MaxEncoded: 5, MinValid: 2, Step: 1}))
	addTerminals(t, d, 1, 2, 3)

	for range 10 {
		_, err := d.AddBigram(ctx, 1, 2, 0)
		require.NoError(t, err)
	}
	_, err := d.AddBigram(ctx, 1, 3, 0)
	require.NoError(t, err)

	got := d.Bigrams(1)
	require.Len(t, got, 2)
	assert.Equal(t, bigramdict.Probability(2), got[0].Probability)
	assert.Equal(t, bigramdict.Probability(5), got[1].Probability)

	stats, err := d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, []bigramdict.Bigram{{Target: 2, NodePos: 200, Probability: 4}}, d.Bigrams(1))

	assert.True(t, d.Stats().Decay)
}

func TestDictionary_InvalidDecayConfig(t *testing.T) {
	_, err := bigramdict.New(bigramdict.WithDecay(bigramdict.DecayConfig{MaxEncoded: 3, MinValid: 4}))
	assert.Error(t, err)
}

func TestDictionary_Capacity(t *testing.T) {
	ctx := context.Background()
	d := newDict(t, bigramdict.WithCapacity(18))
	addTerminals(t, d, 1, 2, 3, 4)

	_, err := d.AddBigram(ctx, 1, 2, 1)
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 3, 4, 1)
	require.NoError(t, err)

	_, err = d.AddBigram(ctx, 1, 3, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, bigramdict.ErrStorage)

	var serr *bigramdict.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, bigramdict.TerminalID(1), serr.TerminalID)

	// Updates in place need no capacity.
	added, err := d.AddBigram(ctx, 3, 4, 7)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, int64(18), d.Stats().CapacityBytes)
}

func TestDictionary_LargeTerminalIDs(t *testing.T) {
	ctx := context.Background()
	d := newDict(t, bigramdict.WithCapacity(2*9))

	const high = bigramdict.TerminalID(math.MaxInt32)
	require.NoError(t, d.AddTerminal(ctx, high, 7))
	require.NoError(t, d.AddTerminal(ctx, 1<<24, 8))

	added, err := d.AddBigram(ctx, high, 1<<24, 5)
	require.NoError(t, err)
	assert.True(t, added)
	_, err = d.AddBigram(ctx, 1<<24, high, 6)
	require.NoError(t, err)

	assert.Equal(t, []bigramdict.Bigram{{Target: 1 << 24, NodePos: 8, Probability: 5}}, d.Bigrams(high))
	assert.Equal(t, []bigramdict.TerminalID{1 << 24, high}, d.Lists())

	s := d.Stats()
	assert.Equal(t, 2, s.Terminals)
	assert.Equal(t, 18, s.ContentBytes)

	// The region is full; the next list does not fit.
	_, err = d.AddBigram(ctx, 3, 1, 1)
	assert.ErrorIs(t, err, bigramdict.ErrStorage)
	assert.Len(t, d.Lists(), 2)
}

func TestDictionary_Closed(t *testing.T) {
	ctx := context.Background()
	d, err := bigramdict.New()
	require.NoError(t, err)
	addTerminals(t, d, 1, 2)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	assert.ErrorIs(t, d.AddTerminal(ctx, 3, 1), bigramdict.ErrClosed)
	assert.ErrorIs(t, d.RemoveTerminal(ctx, 1), bigramdict.ErrClosed)
	_, err = d.AddBigram(ctx, 1, 2, 1)
	assert.ErrorIs(t, err, bigramdict.ErrClosed)
	assert.ErrorIs(t, d.RemoveBigram(ctx, 1, 2), bigramdict.ErrClosed)
	_, err = d.Sweep(ctx)
	assert.ErrorIs(t, err, bigramdict.ErrClosed)
	_, err = d.Save(ctx)
	assert.ErrorIs(t, err, bigramdict.ErrClosed)
	assert.Nil(t, d.Bigrams(1))
}

func TestDictionary_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDict(t)
	assert.ErrorIs(t, d.AddTerminal(ctx, 1, 1), context.Canceled)
	_, err := d.AddBigram(ctx, 1, 2, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, d.Stats().Terminals)
}

func TestDictionary_Stats(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)
	addTerminals(t, d, 1, 2, 3)

	_, err := d.AddBigram(ctx, 1, 2, 1)
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 1, 3, 1) // grows the list of 1
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 2, 3, 1)
	require.NoError(t, err)

	s := d.Stats()
	assert.Equal(t, 3, s.Terminals)
	assert.Equal(t, 2, s.Lists)
	assert.Equal(t, 3, s.Bigrams)
	assert.Equal(t, 4*9, s.ContentBytes)
	assert.Equal(t, 3*9, s.ReachableBytes)
	assert.Equal(t, 9, s.AbandonedBytes)
	assert.Equal(t, uint64(6), s.LSN)
	assert.False(t, s.Decay)
	assert.Zero(t, s.WALRecords)
}

func TestDictionary_Concurrent(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)

	const words = 32
	for i := range words {
		addTerminals(t, d, bigramdict.TerminalID(i))
	}

	var g errgroup.Group
	for i := range words {
		g.Go(func() error {
			id := bigramdict.TerminalID(i)
			for j := range words {
				if _, err := d.AddBigram(ctx, id, bigramdict.TerminalID(j), bigramdict.Probability(j)); err != nil {
					return err
				}
			}
			_ = d.Bigrams(id)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := range words {
		assert.Equal(t, words, d.BigramCount(bigramdict.TerminalID(i)))
	}
	assert.Equal(t, words*words, d.Stats().Bigrams)
}

func TestDictionary_TerminalsAndLists(t *testing.T) {
	ctx := context.Background()
	d := newDict(t)
	addTerminals(t, d, 5, 1, 3)

	_, err := d.AddBigram(ctx, 5, 1, 10)
	require.NoError(t, err)
	_, err = d.AddBigram(ctx, 3, 1, 10)
	require.NoError(t, err)
	require.NoError(t, d.RemoveTerminal(ctx, 3))

	assert.Equal(t, []bigramdict.Binding{
		{ID: 1, NodePos: 100},
		{ID: 5, NodePos: 500},
	}, d.Terminals())
	assert.Equal(t, []bigramdict.TerminalID{3, 5}, d.Lists())

	require.NoError(t, d.Close())
	assert.Nil(t, d.Terminals())
	assert.Nil(t, d.Lists())
}
