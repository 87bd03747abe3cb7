package types

import "golang.org/x/exp/slices"

// Hash function names accepted by trie.NewHasher and TreeConfig.HashType.
const (
	Keccak  = "keccak"
	Blake2b = "blake2b"
	MiMC    = "mimc"
)

// HashTypes lists every supported hash function name.
var HashTypes = []string{Keccak, Blake2b, MiMC}

// IsHashType reports whether name is one of HashTypes.
func IsHashType(name string) bool {
	return slices.Contains(HashTypes, name)
}
