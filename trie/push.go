package trie

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// PushTree is a fixed-depth append-only Merkle tree. Empty positions hold the
// zero sentinel, and only the frontier (one pending left node per level) is
// kept, so each push costs depth combines.
type PushTree struct {
	mu sync.RWMutex

	hasher     Hasher
	depth      int
	capacity   uint64
	zeroHashes []common.Hash // zeroHashes[i] is the root of an empty subtree of height i
	frontier   []common.Hash
	root       common.Hash
	leafCount  uint64

	retain bool
	leaves []common.Hash
}

// Stats is a point-in-time view of a PushTree.
type Stats struct {
	Root               common.Hash `json:"root"`
	LeafCount          uint64      `json:"leaf_count"`
	Capacity           uint64      `json:"capacity"`
	UtilizationPercent uint64      `json:"utilization_percent"`
}

func (s Stats) String() string {
	return fmt.Sprintf("root=%s leaves=%d/%d (%d%%)", s.Root.Hex(), s.LeafCount, s.Capacity, s.UtilizationPercent)
}

// NewPushTree creates an empty tree of the given depth.
func NewPushTree(depth int, zero common.Hash, opts ...Option) (*PushTree, error) {
	if depth < types.MinDepth || depth > types.MaxDepth {
		return nil, errors.Wrapf(treeerrors.ErrInvalidDepth, "depth %d", depth)
	}
	o := applyOptions(opts)
	t := &PushTree{
		hasher:     o.hasher,
		depth:      depth,
		capacity:   uint64(1) << uint(depth),
		zeroHashes: zeroHashes(o.hasher, zero, depth),
		frontier:   make([]common.Hash, depth),
		retain:     o.retainLeaves,
	}
	t.root = t.zeroHashes[depth]
	return t, nil
}

func zeroHashes(h Hasher, zero common.Hash, depth int) []common.Hash {
	zh := make([]common.Hash, depth+1)
	zh[0] = zero
	for i := 1; i <= depth; i++ {
		zh[i] = h.Combine(zh[i-1], zh[i-1])
	}
	return zh
}

// Push appends leaf and returns its index and the new root.
func (t *PushTree) Push(leaf common.Hash) (uint64, common.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.leafCount >= t.capacity {
		return 0, t.root, errors.Wrapf(treeerrors.ErrCapacityExceeded, "push into full tree of %d leaves", t.capacity)
	}
	index := t.push(leaf)
	log.Trace(log.PushMonitoring, "Push", "index", index, "leaf", leaf.Short(), "root", t.root.Short())
	return index, t.root, nil
}

// PushBatch appends leaves in order. Nothing is applied unless all of them fit.
func (t *PushTree) PushBatch(leaves []common.Hash) (uint64, common.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := t.leafCount
	if uint64(len(leaves)) > t.capacity-t.leafCount {
		return start, t.root, errors.Wrapf(treeerrors.ErrCapacityExceeded, "batch of %d with %d of %d remaining", len(leaves), t.capacity-t.leafCount, t.capacity)
	}
	for _, leaf := range leaves {
		t.push(leaf)
	}
	log.Debug(log.PushMonitoring, "PushBatch", "start", start, "count", len(leaves), "root", t.root.Short())
	return start, t.root, nil
}

// push requires t.mu held and room for one leaf.
func (t *PushTree) push(leaf common.Hash) uint64 {
	index := t.leafCount
	node := leaf
	idx := index
	for level := 0; level < t.depth; level++ {
		if idx&1 == 0 {
			t.frontier[level] = node
			node = t.hasher.Combine(node, t.zeroHashes[level])
		} else {
			node = t.hasher.Combine(t.frontier[level], node)
			t.frontier[level] = common.Hash{}
		}
		idx >>= 1
	}
	t.root = node
	t.leafCount++
	if t.retain {
		t.leaves = append(t.leaves, leaf)
	}
	return index
}

// Reset empties the tree and returns the empty root.
func (t *PushTree) Reset() common.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leafCount = 0
	for i := range t.frontier {
		t.frontier[i] = common.Hash{}
	}
	t.root = t.zeroHashes[t.depth]
	t.leaves = nil
	log.Debug(log.PushMonitoring, "Reset", "root", t.root.Short())
	return t.root
}

// Stats returns root, leaf count, capacity and floor utilization.
func (t *PushTree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Root:               t.root,
		LeafCount:          t.leafCount,
		Capacity:           t.capacity,
		UtilizationPercent: t.leafCount * 100 / t.capacity,
	}
}

// IsFull reports whether every leaf slot is taken.
func (t *PushTree) IsFull() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.leafCount >= t.capacity
}

// RemainingCapacity is the number of free leaf slots, never below 0.
func (t *PushTree) RemainingCapacity() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.leafCount >= t.capacity {
		return 0
	}
	return t.capacity - t.leafCount
}

// Root is the root over all pushed leaves with every empty slot set to Zero.
func (t *PushTree) Root() common.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// LeafCount is the number of leaves pushed since creation or the last Reset.
func (t *PushTree) LeafCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.leafCount
}

// Capacity is 2^Depth.
func (t *PushTree) Capacity() uint64 { return t.capacity }

func (t *PushTree) Depth() int { return t.depth }

func (t *PushTree) Hasher() Hasher { return t.hasher }

// Zero returns the sentinel for empty leaves.
func (t *PushTree) Zero() common.Hash { return t.zeroHashes[0] }

// ZeroHashes returns the empty subtree roots for heights 0..depth.
func (t *PushTree) ZeroHashes() []common.Hash {
	return slices.Clone(t.zeroHashes)
}

// LeafAt returns the leaf pushed at index. Requires WithLeafRetention.
func (t *PushTree) LeafAt(index uint64) (common.Hash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.retain || index >= uint64(len(t.leaves)) {
		return common.Hash{}, errors.Wrapf(treeerrors.ErrLeafNotFound, "index %d (retained %d)", index, len(t.leaves))
	}
	return t.leaves[index], nil
}

// Proof returns the zero-padded inclusion proof for the leaf at index.
// Requires WithLeafRetention.
func (t *PushTree) Proof(index uint64) (Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.retain || index >= uint64(len(t.leaves)) {
		return Proof{}, errors.Wrapf(treeerrors.ErrLeafNotFound, "index %d (retained %d)", index, len(t.leaves))
	}
	return zeroPaddedProof(t.hasher, t.leaves, t.zeroHashes, index), nil
}

// ZeroPaddedRoot is the root of a depth-high tree whose first leaves are the
// given ones and whose remaining positions hold zero. It rebuilds every level
// and serves as the reference for PushTree.
func ZeroPaddedRoot(leaves []common.Hash, depth int, zero common.Hash, h Hasher) (common.Hash, error) {
	if h == nil {
		h = DefaultHasher()
	}
	if err := checkZeroPadded(len(leaves), depth); err != nil {
		return common.Hash{}, err
	}
	zh := zeroHashes(h, zero, depth)
	level := slices.Clone(leaves)
	for l := 0; l < depth; l++ {
		if len(level) == 0 {
			return zh[depth], nil
		}
		level = zeroPaddedLevel(h, level, zh[l])
	}
	if len(level) == 0 {
		return zh[depth], nil
	}
	return level[0], nil
}

// ZeroPaddedProof returns the inclusion proof for leaves[index] in the tree
// described by ZeroPaddedRoot.
func ZeroPaddedProof(leaves []common.Hash, depth int, zero common.Hash, h Hasher, index uint64) (Proof, error) {
	if h == nil {
		h = DefaultHasher()
	}
	if err := checkZeroPadded(len(leaves), depth); err != nil {
		return Proof{}, err
	}
	if index >= uint64(len(leaves)) {
		return Proof{}, errors.Wrapf(treeerrors.ErrLeafNotFound, "index %d of %d", index, len(leaves))
	}
	return zeroPaddedProof(h, leaves, zeroHashes(h, zero, depth), index), nil
}

func checkZeroPadded(n, depth int) error {
	if depth < types.MinDepth || depth > types.MaxDepth {
		return errors.Wrapf(treeerrors.ErrInvalidDepth, "depth %d", depth)
	}
	if uint64(n) > uint64(1)<<uint(depth) {
		return errors.Wrapf(treeerrors.ErrCapacityExceeded, "%d leaves at depth %d", n, depth)
	}
	return nil
}

func zeroPaddedLevel(h Hasher, level []common.Hash, zero common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := zero
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, h.Combine(level[i], right))
	}
	return next
}

func zeroPaddedProof(h Hasher, leaves, zh []common.Hash, index uint64) Proof {
	depth := len(zh) - 1
	proof := Proof{Index: index, Siblings: make([]common.Hash, depth)}
	level := slices.Clone(leaves)
	pos := index
	for l := 0; l < depth; l++ {
		sibling := pos ^ 1
		if sibling < uint64(len(level)) {
			proof.Siblings[l] = level[sibling]
		} else {
			proof.Siblings[l] = zh[l]
		}
		level = zeroPaddedLevel(h, level, zh[l])
		pos >>= 1
	}
	return proof
}
