package bench

import (
	"context"
	"fmt"
	"testing"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/telemetry"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func leaves(n int) []common.Hash {
	h := trie.DefaultHasher()
	out := make([]common.Hash, n)
	for i := range out {
		out[i] = h.HashLeaf([]byte(fmt.Sprintf("bench-%d", i)))
	}
	return out
}

func TestCompare(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tc := telemetry.NewClientWithExporter(exp, "bench-test")

	report, err := Compare(context.Background(), tc, leaves(5), 4, common.Hash{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Leaves)
	assert.Equal(t, 3, report.BatchDepth)
	// levels of 5, 3, 2 nodes fold into 3 + 2 + 1 combines
	assert.Equal(t, uint64(6), report.BatchCombines)
	assert.Equal(t, uint64(20), report.PushCombines)
	assert.Equal(t, uint64(4), report.MinPerPush)
	assert.Equal(t, uint64(4), report.MaxPerPush)
	assert.Equal(t, 4.0, report.AvgPerPush())
	assert.True(t, report.PushReference)
	assert.NotEqual(t, report.BatchRoot, report.PushRoot)
	assert.Contains(t, report.String(), "leaves=5")

	var names []string
	for _, s := range exp.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"bench.batch_build", "bench.push_fill"}, names)
}

func TestCompareErrors(t *testing.T) {
	_, err := Compare(context.Background(), nil, nil, 4, common.Hash{}, nil)
	assert.True(t, errors.Is(err, treeerrors.ErrEmptyTree))

	_, err = Compare(context.Background(), nil, leaves(5), 2, common.Hash{}, nil)
	assert.True(t, errors.Is(err, treeerrors.ErrCapacityExceeded))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Compare(ctx, nil, leaves(2), 2, common.Hash{}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
