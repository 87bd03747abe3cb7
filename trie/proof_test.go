package trie

import (
	"encoding/json"
	"testing"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegativeVerification(t *testing.T) {
	h := DefaultHasher()
	leaves := hashedLeaves(h, 13)
	mt, err := BuildBatchTree(leaves)
	require.NoError(t, err)
	v := NewVerifier(h)
	leaf := leaves[5]
	proof, err := mt.GetProof(leaf)
	require.NoError(t, err)

	for pos := range proof.Siblings {
		for _, bytePos := range []int{0, 17, 31} {
			bad := Proof{Index: proof.Index, Siblings: append([]common.Hash(nil), proof.Siblings...)}
			bad.Siblings[pos][bytePos] ^= 0x01
			ok, err := v.Verify(bad, mt.Root(), leaf)
			require.NoError(t, err)
			assert.False(t, ok, "sibling %d byte %d", pos, bytePos)
		}
	}

	ok, err := v.Verify(proof, h.HashLeaf([]byte("other root")), leaf)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify(proof, mt.Root(), leaves[6])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcessProofOrientation(t *testing.T) {
	h := DefaultHasher()
	leaf := h.HashLeaf([]byte("leaf"))
	s0 := h.HashLeaf([]byte("s0"))
	s1 := h.HashLeaf([]byte("s1"))

	// index 2 = 0b10: left at level 0, right at level 1
	got, err := ProcessProof(h, Proof{Index: 2, Siblings: []common.Hash{s0, s1}}, leaf)
	require.NoError(t, err)
	assert.Equal(t, h.Combine(s1, h.Combine(leaf, s0)), got)

	got, err = ProcessProof(h, Proof{}, leaf)
	require.NoError(t, err)
	assert.Equal(t, leaf, got)
}

func TestMalformedProof(t *testing.T) {
	h := DefaultHasher()
	leaf := h.HashLeaf([]byte("leaf"))
	v := NewVerifier(h)

	_, err := v.ProcessProof(Proof{Index: 4, Siblings: make([]common.Hash, 2)}, leaf)
	assert.True(t, errors.Is(err, treeerrors.ErrMalformedProof))

	_, err = v.Verify(Proof{Siblings: make([]common.Hash, MaxProofLength+1)}, leaf, leaf)
	assert.True(t, errors.Is(err, treeerrors.ErrMalformedProof))

	_, err = v.ProcessProof(Proof{Index: ^uint64(0), Siblings: make([]common.Hash, MaxProofLength)}, leaf)
	assert.NoError(t, err)

	_, err = ProofFromBytes(0, [][]byte{make([]byte, 31)})
	assert.True(t, errors.Is(err, treeerrors.ErrMalformedProof))

	p, err := ProofFromBytes(1, [][]byte{leaf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, leaf, p.Siblings[0])
}

func TestProofJSON(t *testing.T) {
	h := DefaultHasher()
	mt, err := BuildBatchTree(hashedLeaves(h, 5))
	require.NoError(t, err)
	proof, err := mt.ProofAt(3)
	require.NoError(t, err)

	data, err := json.Marshal(proof)
	require.NoError(t, err)
	var back Proof
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, proof, back)
	leaf, err := mt.LeafAt(3)
	require.NoError(t, err)
	assert.True(t, mt.Verify(back, leaf))
}
