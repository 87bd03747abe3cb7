package trie

import (
	"hash"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/types"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Hasher is the digest function shared by every tree, verifier and registry.
// Combine is order preserving: Combine(a, b) != Combine(b, a) in general.
type Hasher interface {
	Name() string
	// Combine returns H(left || right).
	Combine(left, right common.Hash) common.Hash
	// HashLeaf returns H(H(data)).
	HashLeaf(data []byte) common.Hash
}

// NewHasher returns the hasher registered under hashType.
func NewHasher(hashType string) (Hasher, error) {
	switch hashType {
	case types.Keccak, "":
		return keccakHasher{}, nil
	case types.Blake2b:
		return blake2bHasher{}, nil
	case types.MiMC:
		return mimcHasher{}, nil
	default:
		return nil, errors.Wrapf(treeerrors.ErrUnknownHashType, "hash type %q", hashType)
	}
}

// DefaultHasher is Keccak-256.
func DefaultHasher() Hasher {
	return keccakHasher{}
}

// HashLeafValue encodes leaf with version and hashes the result.
func HashLeafValue(h Hasher, leaf types.Leaf, version types.EncodingVersion) (common.Hash, error) {
	data, err := types.EncodeLeaf(leaf, version)
	if err != nil {
		return common.Hash{}, err
	}
	return h.HashLeaf(data), nil
}

func computeHash(h hash.Hash, data ...[]byte) common.Hash {
	for _, d := range data {
		h.Write(d)
	}
	return common.BytesToHash(h.Sum(nil))
}

type keccakHasher struct{}

func (keccakHasher) Name() string { return types.Keccak }

func (keccakHasher) Combine(left, right common.Hash) common.Hash {
	return common.Keccak256(left[:], right[:])
}

func (keccakHasher) HashLeaf(data []byte) common.Hash {
	inner := common.Keccak256(data)
	return common.Keccak256(inner[:])
}

type blake2bHasher struct{}

func (blake2bHasher) Name() string { return types.Blake2b }

func (blake2bHasher) Combine(left, right common.Hash) common.Hash {
	h, _ := blake2b.New256(nil)
	return computeHash(h, left[:], right[:])
}

func (blake2bHasher) HashLeaf(data []byte) common.Hash {
	inner := common.Blake2Hash(data)
	return common.Blake2Hash(inner[:])
}

// mimcHasher is MiMC over the bn254 scalar field. Input is consumed in 32
// byte big-endian blocks; each block is reduced into the field first, so any
// digest (including keccak output above the modulus) is accepted.
type mimcHasher struct{}

func (mimcHasher) Name() string { return types.MiMC }

func (mimcHasher) Combine(left, right common.Hash) common.Hash {
	return mimcSum(left[:], right[:])
}

func (mimcHasher) HashLeaf(data []byte) common.Hash {
	inner := mimcSum(data)
	return mimcSum(inner[:])
}

func mimcSum(data ...[]byte) common.Hash {
	var buf []byte
	for _, d := range data {
		buf = append(buf, d...)
	}
	buf = common.PadToMultipleOfN(buf, fr.Bytes)
	if len(buf) == 0 {
		buf = make([]byte, fr.Bytes)
	}
	h := mimc.NewMiMC()
	var e fr.Element
	for i := 0; i < len(buf); i += fr.Bytes {
		e.SetBytes(buf[i : i+fr.Bytes])
		block := e.Bytes()
		h.Write(block[:])
	}
	return common.BytesToHash(h.Sum(nil))
}
