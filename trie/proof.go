package trie

import (
	"fmt"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/pkg/errors"
)

// MaxProofLength bounds the sibling count so Index fits in a uint64.
const MaxProofLength = 64

// Proof is an inclusion proof: siblings ordered from the leaf level upward.
// Bit i of Index tells whether the running value is the left (0) or right (1)
// operand at level i.
type Proof struct {
	Index    uint64        `json:"index"`
	Siblings []common.Hash `json:"siblings"`
}

// Len returns the number of siblings.
func (p Proof) Len() int {
	return len(p.Siblings)
}

func (p Proof) String() string {
	return fmt.Sprintf("Proof{index=%d, len=%d}", p.Index, len(p.Siblings))
}

// Validate checks the proof shape without hashing.
func (p Proof) Validate() error {
	if len(p.Siblings) > MaxProofLength {
		return errors.Wrapf(treeerrors.ErrMalformedProof, "%d siblings exceeds %d", len(p.Siblings), MaxProofLength)
	}
	if len(p.Siblings) < MaxProofLength && p.Index>>uint(len(p.Siblings)) != 0 {
		return errors.Wrapf(treeerrors.ErrMalformedProof, "index %d does not fit %d levels", p.Index, len(p.Siblings))
	}
	return nil
}

// ProofFromBytes builds a proof from raw sibling byte strings, rejecting any
// sibling that is not exactly one digest wide.
func ProofFromBytes(index uint64, siblings [][]byte) (Proof, error) {
	p := Proof{Index: index, Siblings: make([]common.Hash, len(siblings))}
	for i, s := range siblings {
		if len(s) != common.HashLength {
			return Proof{}, errors.Wrapf(treeerrors.ErrMalformedProof, "sibling %d is %d bytes", i, len(s))
		}
		p.Siblings[i] = common.BytesToHash(s)
	}
	return p, p.Validate()
}

// Verifier folds proofs with a fixed hasher. It holds no state beyond the
// hasher and is safe for concurrent use.
type Verifier struct {
	hasher Hasher
}

// NewVerifier returns a verifier using h, or keccak when h is nil.
func NewVerifier(h Hasher) *Verifier {
	if h == nil {
		h = DefaultHasher()
	}
	return &Verifier{hasher: h}
}

// Hasher returns the hasher the verifier folds with.
func (v *Verifier) Hasher() Hasher {
	return v.hasher
}

// ProcessProof returns the root implied by proof and leaf.
func (v *Verifier) ProcessProof(proof Proof, leaf common.Hash) (common.Hash, error) {
	return ProcessProof(v.hasher, proof, leaf)
}

// Verify reports whether proof places leaf under root. A mismatch is a false
// result, not an error.
func (v *Verifier) Verify(proof Proof, root, leaf common.Hash) (bool, error) {
	return VerifyProof(v.hasher, proof, root, leaf)
}

// ProcessProof folds Combine over the siblings starting at leaf.
func ProcessProof(h Hasher, proof Proof, leaf common.Hash) (common.Hash, error) {
	if err := proof.Validate(); err != nil {
		return common.Hash{}, err
	}
	cur := leaf
	index := proof.Index
	for _, sibling := range proof.Siblings {
		if index&1 == 0 {
			cur = h.Combine(cur, sibling)
		} else {
			cur = h.Combine(sibling, cur)
		}
		index >>= 1
	}
	return cur, nil
}

// VerifyProof is ProcessProof followed by a comparison against root.
func VerifyProof(h Hasher, proof Proof, root, leaf common.Hash) (bool, error) {
	computed, err := ProcessProof(h, proof, leaf)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}
