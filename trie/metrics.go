package trie

import (
	"sync/atomic"

	"github.com/colorfulnotion/pushtree/common"
)

// Metrics counts hash invocations made through a counting hasher.
type Metrics struct {
	combines   atomic.Uint64
	leafHashes atomic.Uint64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Combines returns the number of Combine calls.
func (m *Metrics) Combines() uint64 {
	return m.combines.Load()
}

// LeafHashes returns the number of HashLeaf calls.
func (m *Metrics) LeafHashes() uint64 {
	return m.leafHashes.Load()
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.combines.Store(0)
	m.leafHashes.Store(0)
}

type countingHasher struct {
	inner   Hasher
	metrics *Metrics
}

// NewCountingHasher wraps h so every call is recorded in m.
func NewCountingHasher(h Hasher, m *Metrics) Hasher {
	return &countingHasher{inner: h, metrics: m}
}

func (c *countingHasher) Name() string { return c.inner.Name() }

func (c *countingHasher) Combine(left, right common.Hash) common.Hash {
	c.metrics.combines.Add(1)
	return c.inner.Combine(left, right)
}

func (c *countingHasher) HashLeaf(data []byte) common.Hash {
	c.metrics.leafHashes.Add(1)
	return c.inner.HashLeaf(data)
}
