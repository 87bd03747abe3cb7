// Package registry keeps the set of trusted tree roots and answers membership
// questions against it.
package registry

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/pkg/errors"
)

// Journal persists registry mutations. A mutation is applied in memory only
// after the journal accepted it. seq is the registry nonce after the
// mutation and must be stored together with it.
type Journal interface {
	PutRoot(root common.Hash, seq uint64) error
	DeleteRoot(root common.Hash, seq uint64) error
	// Roots returns every journaled root with the sequence number it was set at.
	Roots() (map[common.Hash]uint64, error)
	// Nonce returns the seq of the last journaled mutation, or 0 if none.
	Nonce() (uint64, error)
}

type EventKind uint8

const (
	RootSet EventKind = iota + 1
	RootRemoved
)

func (k EventKind) String() string {
	switch k {
	case RootSet:
		return "set"
	case RootRemoved:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event describes one successful mutation. Seq is the registry nonce after it.
type Event struct {
	Seq  uint64      `json:"seq"`
	Kind EventKind   `json:"kind"`
	Root common.Hash `json:"root"`
}

// Observer is called synchronously after each mutation, outside the lock.
type Observer func(Event)

type Option func(*Registry)

func WithJournal(j Journal) Option {
	return func(r *Registry) { r.journal = j }
}

func WithObserver(fn Observer) Option {
	return func(r *Registry) { r.observers = append(r.observers, fn) }
}

// WithHasher sets the hasher proofs are folded with. The default is keccak.
func WithHasher(h trie.Hasher) Option {
	return func(r *Registry) { r.verifier = trie.NewVerifier(h) }
}

// Registry is an owned set of trusted roots. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	roots     map[common.Hash]uint64
	nonce     uint64
	verifier  *trie.Verifier
	journal   Journal
	observers []Observer
}

func New(opts ...Option) *Registry {
	r := &Registry{
		roots:    make(map[common.Hash]uint64),
		verifier: trie.NewVerifier(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restore loads every journaled root and resumes the nonce from the last
// journaled mutation, removals included.
func (r *Registry) Restore() error {
	if r.journal == nil {
		return nil
	}
	roots, err := r.journal.Roots()
	if err != nil {
		return errors.Wrap(err, "restore roots")
	}
	nonce, err := r.journal.Nonce()
	if err != nil {
		return errors.Wrap(err, "restore nonce")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if nonce > r.nonce {
		r.nonce = nonce
	}
	for root, seq := range roots {
		r.roots[root] = seq
		if seq > r.nonce {
			r.nonce = seq
		}
	}
	log.Info(log.RegistryMonitoring, "Restored roots", "count", len(roots), "nonce", r.nonce)
	return nil
}

// SetRoot marks root as trusted. Registering a root twice is an error.
func (r *Registry) SetRoot(root common.Hash) error {
	r.mu.Lock()
	if _, ok := r.roots[root]; ok {
		r.mu.Unlock()
		return errors.Wrapf(treeerrors.ErrRootAlreadyExists, "root %s", root.Hex())
	}
	seq := r.nonce + 1
	if r.journal != nil {
		if err := r.journal.PutRoot(root, seq); err != nil {
			r.mu.Unlock()
			return errors.Wrapf(err, "journal root %s", root.Hex())
		}
	}
	r.roots[root] = seq
	r.nonce = seq
	r.mu.Unlock()

	log.Debug(log.RegistryMonitoring, "SetRoot", "root", root.Short(), "seq", seq)
	r.notify(Event{Seq: seq, Kind: RootSet, Root: root})
	return nil
}

// RemoveRoot revokes trust in root.
func (r *Registry) RemoveRoot(root common.Hash) error {
	r.mu.Lock()
	if _, ok := r.roots[root]; !ok {
		r.mu.Unlock()
		return errors.Wrapf(treeerrors.ErrRootNotSet, "root %s", root.Hex())
	}
	seq := r.nonce + 1
	if r.journal != nil {
		if err := r.journal.DeleteRoot(root, seq); err != nil {
			r.mu.Unlock()
			return errors.Wrapf(err, "journal remove %s", root.Hex())
		}
	}
	delete(r.roots, root)
	r.nonce = seq
	r.mu.Unlock()

	log.Debug(log.RegistryMonitoring, "RemoveRoot", "root", root.Short(), "seq", seq)
	r.notify(Event{Seq: seq, Kind: RootRemoved, Root: root})
	return nil
}

func (r *Registry) notify(ev Event) {
	for _, fn := range r.observers {
		fn(ev)
	}
}

func (r *Registry) HasRoot(root common.Hash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roots[root]
	return ok
}

// Len returns the number of trusted roots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roots)
}

// Nonce counts mutations; it never decreases.
func (r *Registry) Nonce() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nonce
}

// Roots returns the trusted roots in no particular order.
func (r *Registry) Roots() []common.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]common.Hash, 0, len(r.roots))
	for root := range r.roots {
		out = append(out, root)
	}
	return out
}

// Verify reports whether proof places leaf under any trusted root.
func (r *Registry) Verify(proof trie.Proof, leaf common.Hash) (bool, error) {
	computed, err := r.verifier.ProcessProof(proof, leaf)
	if err != nil {
		return false, err
	}
	return r.HasRoot(computed), nil
}

// VerifyWithRoot checks proof against a specific root, which must be trusted.
func (r *Registry) VerifyWithRoot(proof trie.Proof, root, leaf common.Hash) (bool, error) {
	if !r.HasRoot(root) {
		return false, errors.Wrapf(treeerrors.ErrRootNotSet, "root %s", root.Hex())
	}
	return r.verifier.Verify(proof, root, leaf)
}

// VerifyBatch runs Verify per pair. A malformed proof yields false for its
// item; only a length mismatch fails the call.
func (r *Registry) VerifyBatch(proofs []trie.Proof, leaves []common.Hash) ([]bool, error) {
	if len(proofs) != len(leaves) {
		return nil, errors.Wrapf(treeerrors.ErrLengthMismatch, "%d proofs, %d leaves", len(proofs), len(leaves))
	}
	results := make([]bool, len(proofs))
	for i := range proofs {
		ok, err := r.Verify(proofs[i], leaves[i])
		results[i] = err == nil && ok
	}
	return results, nil
}

// VerifyBatchWithRoot is VerifyBatch against one root checked up front.
func (r *Registry) VerifyBatchWithRoot(root common.Hash, proofs []trie.Proof, leaves []common.Hash) ([]bool, error) {
	if len(proofs) != len(leaves) {
		return nil, errors.Wrapf(treeerrors.ErrLengthMismatch, "%d proofs, %d leaves", len(proofs), len(leaves))
	}
	if !r.HasRoot(root) {
		return nil, errors.Wrapf(treeerrors.ErrRootNotSet, "root %s", root.Hex())
	}
	results := make([]bool, len(proofs))
	for i := range proofs {
		ok, err := r.verifier.Verify(proofs[i], root, leaves[i])
		results[i] = err == nil && ok
	}
	return results, nil
}
