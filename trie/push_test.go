package trie

import (
	"fmt"
	"sync"
	"testing"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testZero = common.Keccak256([]byte("zero"))

func TestNewPushTreeDepth(t *testing.T) {
	for _, depth := range []int{0, -1, 33} {
		_, err := NewPushTree(depth, testZero)
		assert.True(t, errors.Is(err, treeerrors.ErrInvalidDepth), "depth %d", depth)
	}
	for _, depth := range []int{1, 20, 32} {
		tr, err := NewPushTree(depth, testZero)
		require.NoError(t, err)
		assert.Equal(t, uint64(1)<<uint(depth), tr.Capacity())
	}
}

func TestPushTreeEmptyRoot(t *testing.T) {
	h := DefaultHasher()
	tr, err := NewPushTree(3, testZero)
	require.NoError(t, err)
	z1 := h.Combine(testZero, testZero)
	z2 := h.Combine(z1, z1)
	z3 := h.Combine(z2, z2)
	assert.Equal(t, z3, tr.Root())
	assert.Equal(t, []common.Hash{testZero, z1, z2, z3}, tr.ZeroHashes())
	assert.Equal(t, testZero, tr.Zero())
}

func TestPushMatchesZeroPaddedRoot(t *testing.T) {
	for _, h := range allHashers(t) {
		for depth := 1; depth <= 6; depth++ {
			t.Run(fmt.Sprintf("%s/depth=%d", h.Name(), depth), func(t *testing.T) {
				tr, err := NewPushTree(depth, testZero, WithHasher(h))
				require.NoError(t, err)
				leaves := hashedLeaves(h, int(tr.Capacity()))
				for i, leaf := range leaves {
					_, root, err := tr.Push(leaf)
					require.NoError(t, err)
					want, err := ZeroPaddedRoot(leaves[:i+1], depth, testZero, h)
					require.NoError(t, err)
					require.Equal(t, want, root, "after %d pushes", i+1)
				}
			})
		}
	}
}

func TestPushTreeScenario(t *testing.T) {
	tr, err := NewPushTree(3, testZero)
	require.NoError(t, err)
	leaves := hashedLeaves(DefaultHasher(), 9)

	prev := tr.Root()
	for i := 0; i < 8; i++ {
		index, root, err := tr.Push(leaves[i])
		require.NoError(t, err)
		assert.Equal(t, uint64(i), index)
		assert.Equal(t, uint64(i+1), tr.LeafCount())
		assert.NotEqual(t, prev, root)
		assert.Equal(t, i == 7, tr.IsFull())
		prev = root
	}
	assert.Equal(t, uint64(0), tr.RemainingCapacity())

	_, _, err = tr.Push(leaves[8])
	assert.True(t, errors.Is(err, treeerrors.ErrCapacityExceeded))
	assert.True(t, treeerrors.IsFatal(err))
	assert.Equal(t, prev, tr.Root())
	assert.Equal(t, uint64(8), tr.LeafCount())
}

func TestPushBatchEquivalence(t *testing.T) {
	h := DefaultHasher()
	x, y, z := h.HashLeaf([]byte("x")), h.HashLeaf([]byte("y")), h.HashLeaf([]byte("z"))

	seq, err := NewPushTree(4, testZero)
	require.NoError(t, err)
	_, _, err = seq.Push(h.HashLeaf([]byte("w")))
	require.NoError(t, err)
	for _, leaf := range []common.Hash{x, y, z} {
		_, _, err = seq.Push(leaf)
		require.NoError(t, err)
	}

	batch, err := NewPushTree(4, testZero)
	require.NoError(t, err)
	_, _, err = batch.Push(h.HashLeaf([]byte("w")))
	require.NoError(t, err)
	start, root, err := batch.PushBatch([]common.Hash{x, y, z})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), start)
	assert.Equal(t, seq.Root(), root)
	assert.Equal(t, seq.Stats(), batch.Stats())
}

func TestPushBatchAllOrNothing(t *testing.T) {
	tr, err := NewPushTree(2, testZero)
	require.NoError(t, err)
	leaves := hashedLeaves(DefaultHasher(), 5)
	_, _, err = tr.PushBatch(leaves[:3])
	require.NoError(t, err)
	before := tr.Stats()

	start, root, err := tr.PushBatch(leaves[3:5])
	assert.True(t, errors.Is(err, treeerrors.ErrCapacityExceeded))
	assert.Equal(t, uint64(3), start)
	assert.Equal(t, before.Root, root)
	assert.Equal(t, before, tr.Stats())

	start, root, err = tr.PushBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), start)
	assert.Equal(t, before.Root, root)
}

func TestPushTreeReset(t *testing.T) {
	tr, err := NewPushTree(5, testZero, WithLeafRetention())
	require.NoError(t, err)
	empty := tr.Root()
	_, _, err = tr.PushBatch(hashedLeaves(DefaultHasher(), 13))
	require.NoError(t, err)
	assert.Equal(t, uint64(40), tr.Stats().UtilizationPercent)

	for i := 0; i < 2; i++ {
		assert.Equal(t, empty, tr.Reset())
		stats := tr.Stats()
		assert.Equal(t, uint64(0), stats.LeafCount)
		assert.Equal(t, uint64(0), stats.UtilizationPercent)
		assert.Equal(t, empty, stats.Root)
	}
	_, err = tr.Proof(0)
	assert.True(t, errors.Is(err, treeerrors.ErrLeafNotFound))

	// the tree is reusable after reset
	leaves := hashedLeaves(DefaultHasher(), 3)
	_, root, err := tr.PushBatch(leaves)
	require.NoError(t, err)
	want, err := ZeroPaddedRoot(leaves, 5, testZero, nil)
	require.NoError(t, err)
	assert.Equal(t, want, root)
}

func TestPushTreeStatsUtilization(t *testing.T) {
	tr, err := NewPushTree(3, testZero)
	require.NoError(t, err)
	leaves := hashedLeaves(DefaultHasher(), 8)
	want := []uint64{12, 25, 37, 50, 62, 75, 87, 100}
	for i, leaf := range leaves {
		_, _, err := tr.Push(leaf)
		require.NoError(t, err)
		assert.Equal(t, want[i], tr.Stats().UtilizationPercent)
	}
}

func TestPushTreeProof(t *testing.T) {
	h := DefaultHasher()
	tr, err := NewPushTree(4, testZero, WithLeafRetention())
	require.NoError(t, err)
	leaves := hashedLeaves(h, 11)
	_, root, err := tr.PushBatch(leaves)
	require.NoError(t, err)

	v := NewVerifier(h)
	for i, leaf := range leaves {
		proof, err := tr.Proof(uint64(i))
		require.NoError(t, err)
		require.Len(t, proof.Siblings, 4)
		ok, err := v.Verify(proof, root, leaf)
		require.NoError(t, err)
		require.True(t, ok, "index %d", i)

		got, err := tr.LeafAt(uint64(i))
		require.NoError(t, err)
		assert.Equal(t, leaf, got)
	}
	_, err = tr.Proof(11)
	assert.True(t, errors.Is(err, treeerrors.ErrLeafNotFound))

	plain, err := NewPushTree(4, testZero)
	require.NoError(t, err)
	_, _, err = plain.Push(leaves[0])
	require.NoError(t, err)
	_, err = plain.Proof(0)
	assert.True(t, errors.Is(err, treeerrors.ErrLeafNotFound))
}

func TestZeroPaddedChecks(t *testing.T) {
	leaves := hashedLeaves(DefaultHasher(), 5)
	_, err := ZeroPaddedRoot(leaves, 2, testZero, nil)
	assert.True(t, errors.Is(err, treeerrors.ErrCapacityExceeded))
	_, err = ZeroPaddedRoot(leaves, 0, testZero, nil)
	assert.True(t, errors.Is(err, treeerrors.ErrInvalidDepth))
	_, err = ZeroPaddedProof(leaves, 3, testZero, nil, 5)
	assert.True(t, errors.Is(err, treeerrors.ErrLeafNotFound))

	tr, err := NewPushTree(3, testZero)
	require.NoError(t, err)
	root, err := ZeroPaddedRoot(nil, 3, testZero, nil)
	require.NoError(t, err)
	assert.Equal(t, tr.Root(), root)
}

func TestPushTreeConcurrentPushes(t *testing.T) {
	tr, err := NewPushTree(10, testZero, WithLeafRetention())
	require.NoError(t, err)
	leaves := hashedLeaves(DefaultHasher(), 400)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(leaves); i += 8 {
				if _, _, err := tr.Push(leaves[i]); err != nil {
					t.Error(err)
				}
				_ = tr.Stats()
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, uint64(len(leaves)), tr.LeafCount())
	// insertion order is whatever the scheduler chose; rebuild from the retained order
	order := make([]common.Hash, len(leaves))
	for i := range order {
		order[i], err = tr.LeafAt(uint64(i))
		require.NoError(t, err)
	}
	want, err := ZeroPaddedRoot(order, 10, testZero, nil)
	require.NoError(t, err)
	assert.Equal(t, want, tr.Root())
	assert.ElementsMatch(t, leaves, order)
}
