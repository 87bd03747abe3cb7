// Package leafgen produces deterministic synthetic leaves for building and
// benchmarking trees.
package leafgen

import (
	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/colorfulnotion/pushtree/types"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/rand"
)

const DefaultChunkSize = types.DefaultChunkSize

// maxAmount is the exclusive upper bound for generated amounts (10^21).
var maxAmount = uint256.MustFromDecimal("1000000000000000000000")

// Progress is called after every chunk with the number of items done so far.
type Progress func(done, total int)

// Generator derives the same leaves for the same Seed.
type Generator struct {
	Seed uint64
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{Seed: seed}
}

// Address returns the account for position i: the low 20 bytes of
// keccak256(seed || i).
func (g *Generator) Address(i uint64) common.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(common.Uint64ToBytes(g.Seed))
	h.Write(common.Uint64ToBytes(i))
	return common.BytesToAddress(h.Sum(nil))
}

// Generate returns n leaves, working in chunks of chunk leaves.
func (g *Generator) Generate(n, chunk int, progress Progress) []types.Leaf {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	rng := rand.New(rand.NewSource(g.Seed))
	keccak := sha3.NewLegacyKeccak256()
	seed := common.Uint64ToBytes(g.Seed)

	leaves := make([]types.Leaf, 0, n)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			keccak.Reset()
			keccak.Write(seed)
			keccak.Write(common.Uint64ToBytes(uint64(i)))
			leaves = append(leaves, types.Leaf{
				Account: common.BytesToAddress(keccak.Sum(nil)),
				Amount:  randomAmount(rng),
			})
		}
		log.Debug(log.GenMonitoring, "Generated chunk", "done", end, "total", n)
		if progress != nil {
			progress(end, n)
		}
	}
	return leaves
}

// randomAmount is uniform enough over [1, 10^21) for test data.
func randomAmount(rng *rand.Rand) *uint256.Int {
	x := new(uint256.Int).SetUint64(rng.Uint64())
	x.Lsh(x, 64)
	x.Or(x, new(uint256.Int).SetUint64(rng.Uint64()))
	bound := new(uint256.Int).SubUint64(maxAmount, 1)
	x.Mod(x, bound)
	return x.AddUint64(x, 1)
}

// HashLeaves encodes and hashes leaves in chunks.
func HashLeaves(h trie.Hasher, leaves []types.Leaf, version types.EncodingVersion, chunk int, progress Progress) ([]common.Hash, error) {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	out := make([]common.Hash, len(leaves))
	for start := 0; start < len(leaves); start += chunk {
		end := start + chunk
		if end > len(leaves) {
			end = len(leaves)
		}
		for i := start; i < end; i++ {
			digest, err := trie.HashLeafValue(h, leaves[i], version)
			if err != nil {
				return nil, err
			}
			out[i] = digest
		}
		if progress != nil {
			progress(end, len(leaves))
		}
	}
	return out, nil
}
