package common

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// Blake2Hash computes the BLAKE2b-256 hash of the given data
func Blake2Hash(data []byte) Hash {
	return Hash(blake2b.Sum256(data))
}

// Keccak256 computes the legacy (pre-FIPS) Keccak-256 hash used by the EVM.
func Keccak256(data ...[]byte) Hash {
	return Hash(crypto.Keccak256Hash(data...))
}

func Uint64ToBytes(val uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, val)
	return buf
}

// CompareHashes orders digests by their big-endian byte value.
func CompareHashes(a, b Hash) int {
	return bytes.Compare(a[:], b[:])
}

// PadToMultipleOfN pads the input with trailing zeros to a multiple of n.
func PadToMultipleOfN(input []byte, n int) []byte {
	if n <= 0 {
		return input
	}
	paddingSize := (n - (len(input) % n)) % n
	if paddingSize == 0 {
		return input
	}
	padded := make([]byte, len(input)+paddingSize)
	copy(padded, input)
	return padded
}
