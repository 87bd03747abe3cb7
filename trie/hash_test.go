package trie

import (
	"testing"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allHashers(t *testing.T) []Hasher {
	var hs []Hasher
	for _, name := range types.HashTypes {
		h, err := NewHasher(name)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	return hs
}

func TestNewHasher(t *testing.T) {
	for _, name := range types.HashTypes {
		h, err := NewHasher(name)
		require.NoError(t, err)
		assert.Equal(t, name, h.Name())
	}
	_, err := NewHasher("sha1")
	assert.True(t, errors.Is(err, treeerrors.ErrUnknownHashType))
	assert.Equal(t, types.Keccak, DefaultHasher().Name())
}

func TestKeccakHasher(t *testing.T) {
	h := DefaultHasher()
	a := common.Keccak256([]byte("a"))
	b := common.Keccak256([]byte("b"))
	assert.Equal(t, common.Keccak256(a[:], b[:]), h.Combine(a, b))
	assert.Equal(t, common.Keccak256(a[:]), h.HashLeaf([]byte("a")))
}

func TestBlake2bHasher(t *testing.T) {
	h, err := NewHasher(types.Blake2b)
	require.NoError(t, err)
	a := common.Blake2Hash([]byte("a"))
	b := common.Blake2Hash([]byte("b"))
	assert.Equal(t, common.Blake2Hash(append(a.Bytes(), b.Bytes()...)), h.Combine(a, b))
	assert.Equal(t, common.Blake2Hash(a.Bytes()), h.HashLeaf([]byte("a")))
}

func TestCombineIsOrdered(t *testing.T) {
	for _, h := range allHashers(t) {
		t.Run(h.Name(), func(t *testing.T) {
			a := h.HashLeaf([]byte("left"))
			b := h.HashLeaf([]byte("right"))
			assert.NotEqual(t, h.Combine(a, b), h.Combine(b, a))
			assert.Equal(t, h.Combine(a, b), h.Combine(a, b))
			assert.NotEqual(t, h.HashLeaf([]byte("left")), h.HashLeaf([]byte("right")))
		})
	}
}

func TestMiMCAcceptsAnyDigest(t *testing.T) {
	h, err := NewHasher(types.MiMC)
	require.NoError(t, err)
	var max common.Hash
	for i := range max {
		max[i] = 0xff
	}
	assert.NotPanics(t, func() { h.Combine(max, max) })
	assert.NotPanics(t, func() { h.HashLeaf(nil) })
	assert.NotEqual(t, h.HashLeaf([]byte{1}), h.HashLeaf([]byte{2}))
}

func TestHashLeafValue(t *testing.T) {
	h := DefaultHasher()
	leaf := types.NewLeaf(common.HexToAddress("0x01"), 5)
	data, err := leaf.Encode()
	require.NoError(t, err)
	got, err := HashLeafValue(h, leaf, types.EncodingABI)
	require.NoError(t, err)
	assert.Equal(t, h.HashLeaf(data), got)

	_, err = HashLeafValue(h, types.Leaf{}, types.EncodingABI)
	assert.True(t, errors.Is(err, treeerrors.ErrEncoding))
}

func TestCountingHasher(t *testing.T) {
	m := NewMetrics()
	h := NewCountingHasher(DefaultHasher(), m)
	leaf := h.HashLeaf([]byte("x"))
	h.Combine(leaf, leaf)
	h.Combine(leaf, leaf)
	assert.Equal(t, uint64(1), m.LeafHashes())
	assert.Equal(t, uint64(2), m.Combines())
	assert.Equal(t, types.Keccak, h.Name())
	m.Reset()
	assert.Zero(t, m.Combines())
}
