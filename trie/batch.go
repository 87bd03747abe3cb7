package trie

import (
	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// BatchMerkleTree is built once over a leaf set and is read-only afterwards.
// Leaves are sorted ascending by digest bytes, so the root does not depend on
// input order. A level with an odd count pairs its last node with itself.
type BatchMerkleTree struct {
	hasher Hasher
	// levels[0] is the sorted leaves, levels[len-1] holds only the root.
	levels [][]common.Hash
}

// BuildBatchTree sorts leaves and builds every level.
func BuildBatchTree(leaves []common.Hash, opts ...Option) (*BatchMerkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.Wrap(treeerrors.ErrEmptyTree, "build batch tree")
	}
	o := applyOptions(opts)
	level := sortedCopy(leaves)
	levels := [][]common.Hash{level}
	for len(level) > 1 {
		level = nextLevel(o.hasher, level, nil)
		levels = append(levels, level)
	}
	mt := &BatchMerkleTree{hasher: o.hasher, levels: levels}
	log.Debug(log.BatchMonitoring, "BuildBatchTree", "leaves", len(leaves), "depth", mt.Depth(), "root", mt.Root().Short(), "hash", o.hasher.Name())
	return mt, nil
}

// BatchRoot computes the same root as BuildBatchTree without keeping the
// intermediate levels: each level is folded in place into one buffer.
func BatchRoot(leaves []common.Hash, h Hasher) (common.Hash, error) {
	if len(leaves) == 0 {
		return common.Hash{}, errors.Wrap(treeerrors.ErrEmptyTree, "batch root")
	}
	if h == nil {
		h = DefaultHasher()
	}
	level := sortedCopy(leaves)
	for len(level) > 1 {
		level = nextLevel(h, level, level[:0])
	}
	return level[0], nil
}

func sortedCopy(leaves []common.Hash) []common.Hash {
	sorted := slices.Clone(leaves)
	slices.SortFunc(sorted, common.CompareHashes)
	return sorted
}

// nextLevel hashes level pairwise into dst. dst may alias level: node i/2 is
// written only after nodes i and i+1 have been read.
func nextLevel(h Hasher, level, dst []common.Hash) []common.Hash {
	if dst == nil {
		dst = make([]common.Hash, 0, (len(level)+1)/2)
	}
	n := len(level)
	for i := 0; i < n; i += 2 {
		left := level[i]
		right := left
		if i+1 < n {
			right = level[i+1]
		}
		dst = append(dst, h.Combine(left, right))
	}
	return dst
}

// Root returns the root digest.
func (mt *BatchMerkleTree) Root() common.Hash {
	top := mt.levels[len(mt.levels)-1]
	return top[0]
}

// Depth is the number of levels above the leaves; a single leaf tree has depth 0.
func (mt *BatchMerkleTree) Depth() int {
	return len(mt.levels) - 1
}

// Len returns the leaf count.
func (mt *BatchMerkleTree) Len() int {
	return len(mt.levels[0])
}

// Hasher returns the hasher the tree was built with.
func (mt *BatchMerkleTree) Hasher() Hasher {
	return mt.hasher
}

// Leaves returns a copy of the sorted leaves.
func (mt *BatchMerkleTree) Leaves() []common.Hash {
	return slices.Clone(mt.levels[0])
}

// LeafAt returns the leaf at sorted position i.
func (mt *BatchMerkleTree) LeafAt(i int) (common.Hash, error) {
	if i < 0 || i >= mt.Len() {
		return common.Hash{}, errors.Wrapf(treeerrors.ErrLeafNotFound, "index %d of %d", i, mt.Len())
	}
	return mt.levels[0][i], nil
}

// IndexOf returns the first sorted position of leaf.
func (mt *BatchMerkleTree) IndexOf(leaf common.Hash) (int, bool) {
	return slices.BinarySearchFunc(mt.levels[0], leaf, common.CompareHashes)
}

// Contains reports whether leaf is in the tree.
func (mt *BatchMerkleTree) Contains(leaf common.Hash) bool {
	_, ok := mt.IndexOf(leaf)
	return ok
}

// GetProof returns the inclusion proof for leaf. When leaf occurs more than
// once, the proof is for its first sorted position.
func (mt *BatchMerkleTree) GetProof(leaf common.Hash) (Proof, error) {
	i, ok := mt.IndexOf(leaf)
	if !ok {
		return Proof{}, errors.Wrapf(treeerrors.ErrLeafNotFound, "leaf %s", leaf.Hex())
	}
	return mt.ProofAt(i)
}

// ProofAt returns the inclusion proof for sorted position i. Where a node
// was paired with itself, the sibling is the node's own value.
func (mt *BatchMerkleTree) ProofAt(i int) (Proof, error) {
	if i < 0 || i >= mt.Len() {
		return Proof{}, errors.Wrapf(treeerrors.ErrLeafNotFound, "index %d of %d", i, mt.Len())
	}
	proof := Proof{Index: uint64(i), Siblings: make([]common.Hash, 0, mt.Depth())}
	pos := i
	for d := 0; d < mt.Depth(); d++ {
		level := mt.levels[d]
		sibling := pos ^ 1
		if sibling < len(level) {
			proof.Siblings = append(proof.Siblings, level[sibling])
		} else {
			proof.Siblings = append(proof.Siblings, level[pos])
		}
		pos >>= 1
	}
	return proof, nil
}

// Verify checks proof against this tree's root with this tree's hasher.
func (mt *BatchMerkleTree) Verify(proof Proof, leaf common.Hash) bool {
	ok, err := VerifyProof(mt.hasher, proof, mt.Root(), leaf)
	return err == nil && ok
}
