// Package bench measures the cost of building a batch tree against filling a
// push tree with the same leaves.
package bench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/telemetry"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Report compares one batch build with one push fill over the same leaves.
// The two roots differ by construction: the batch tree sorts and duplicates
// the last node, the push tree keeps insertion order and pads with zero.
type Report struct {
	HashType string `json:"hash_type"`
	Leaves   int    `json:"leaves"`

	BatchRoot     common.Hash   `json:"batch_root"`
	BatchDepth    int           `json:"batch_depth"`
	BatchCombines uint64        `json:"batch_combines"`
	BatchDuration time.Duration `json:"batch_duration"`

	PushRoot      common.Hash   `json:"push_root"`
	PushDepth     int           `json:"push_depth"`
	PushCombines  uint64        `json:"push_combines"`
	PushDuration  time.Duration `json:"push_duration"`
	MinPerPush    uint64        `json:"min_combines_per_push"`
	MaxPerPush    uint64        `json:"max_combines_per_push"`
	PushReference bool          `json:"push_matches_reference"`
}

// AvgPerPush is the mean number of combines per pushed leaf.
func (r *Report) AvgPerPush() float64 {
	if r.Leaves == 0 {
		return 0
	}
	return float64(r.PushCombines) / float64(r.Leaves)
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hash=%s leaves=%d\n", r.HashType, r.Leaves)
	fmt.Fprintf(&b, "batch: root=%s depth=%d combines=%d time=%s\n", r.BatchRoot.Hex(), r.BatchDepth, r.BatchCombines, r.BatchDuration)
	fmt.Fprintf(&b, "push:  root=%s depth=%d combines=%d time=%s per-push=%d..%d (avg %.2f) reference=%v\n",
		r.PushRoot.Hex(), r.PushDepth, r.PushCombines, r.PushDuration, r.MinPerPush, r.MaxPerPush, r.AvgPerPush(), r.PushReference)
	return b.String()
}

// Compare builds a batch tree and fills a depth-high push tree with leaves,
// counting combines for each. tc may be nil.
func Compare(ctx context.Context, tc *telemetry.Client, leaves []common.Hash, depth int, zero common.Hash, h trie.Hasher) (*Report, error) {
	if tc == nil {
		tc = telemetry.NewNoOpClient()
	}
	if h == nil {
		h = trie.DefaultHasher()
	}
	report := &Report{HashType: h.Name(), Leaves: len(leaves), PushDepth: depth}
	metrics := trie.NewMetrics()
	counting := trie.NewCountingHasher(h, metrics)

	_, span := tc.StartSpan(ctx, "bench.batch_build", attribute.Int("leaves", len(leaves)), attribute.String("hash", h.Name()))
	start := time.Now()
	mt, err := trie.BuildBatchTree(leaves, trie.WithHasher(counting))
	report.BatchDuration = time.Since(start)
	span.End()
	if err != nil {
		return nil, err
	}
	report.BatchRoot = mt.Root()
	report.BatchDepth = mt.Depth()
	report.BatchCombines = metrics.Combines()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "compare")
	}

	tr, err := trie.NewPushTree(depth, zero, trie.WithHasher(counting))
	if err != nil {
		return nil, err
	}
	// empty subtree roots are not part of the fill cost
	metrics.Reset()

	_, span = tc.StartSpan(ctx, "bench.push_fill", attribute.Int("leaves", len(leaves)), attribute.Int("depth", depth))
	start = time.Now()
	for i, leaf := range leaves {
		before := metrics.Combines()
		if _, _, err := tr.Push(leaf); err != nil {
			span.End()
			return nil, errors.Wrapf(err, "push %d", i)
		}
		cost := metrics.Combines() - before
		if i == 0 || cost < report.MinPerPush {
			report.MinPerPush = cost
		}
		if cost > report.MaxPerPush {
			report.MaxPerPush = cost
		}
	}
	report.PushDuration = time.Since(start)
	span.End()
	report.PushRoot = tr.Root()
	report.PushCombines = metrics.Combines()

	reference, err := trie.ZeroPaddedRoot(leaves, depth, zero, h)
	if err != nil {
		return nil, err
	}
	report.PushReference = reference == report.PushRoot
	if !report.PushReference {
		log.Warn(log.BenchMonitoring, "Push root differs from reference", "push", report.PushRoot.Hex(), "reference", reference.Hex())
	}
	log.Info(log.BenchMonitoring, "Compare", "leaves", len(leaves), "batchCombines", report.BatchCombines, "pushCombines", report.PushCombines)
	return report, nil
}
