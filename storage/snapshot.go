package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/colorfulnotion/pushtree/trie"
	"github.com/pkg/errors"
)

const (
	KindBatch = "batch"
	KindPush  = "push"
)

var snapshotPrefix = []byte("snapshot/")

// ProofSample is one (index, leaf, proof) triple kept for later re-verification.
type ProofSample struct {
	Index uint64      `json:"index"`
	Leaf  common.Hash `json:"leaf"`
	Proof trie.Proof  `json:"proof"`
}

// TreeSnapshot is the minimum persisted artifact needed to re-check
// membership without rebuilding a tree.
type TreeSnapshot struct {
	Kind      string        `json:"kind"`
	HashType  string        `json:"hash_type"`
	Root      common.Hash   `json:"root"`
	Depth     int           `json:"depth"`
	LeafCount uint64        `json:"leaf_count"`
	Zero      *common.Hash  `json:"zero,omitempty"`
	Samples   []ProofSample `json:"samples"`
}

// sampleIndexes spreads n picks evenly over [0, total), always including the
// first and last positions when n >= 2.
func sampleIndexes(total uint64, n int) []uint64 {
	if total == 0 || n <= 0 {
		return nil
	}
	if uint64(n) >= total {
		out := make([]uint64, total)
		for i := range out {
			out[i] = uint64(i)
		}
		return out
	}
	if n == 1 {
		return []uint64{0}
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i) * (total - 1) / uint64(n-1)
	}
	return out
}

// SnapshotBatch captures mt with up to samples evenly spaced proofs.
func SnapshotBatch(mt *trie.BatchMerkleTree, samples int) (*TreeSnapshot, error) {
	snap := &TreeSnapshot{
		Kind:      KindBatch,
		HashType:  mt.Hasher().Name(),
		Root:      mt.Root(),
		Depth:     mt.Depth(),
		LeafCount: uint64(mt.Len()),
	}
	for _, i := range sampleIndexes(snap.LeafCount, samples) {
		proof, err := mt.ProofAt(int(i))
		if err != nil {
			return nil, err
		}
		leaf, err := mt.LeafAt(int(i))
		if err != nil {
			return nil, err
		}
		snap.Samples = append(snap.Samples, ProofSample{Index: i, Leaf: leaf, Proof: proof})
	}
	return snap, nil
}

// SnapshotPush captures tr. Samples need a tree built WithLeafRetention;
// otherwise pass samples = 0.
func SnapshotPush(tr *trie.PushTree, samples int) (*TreeSnapshot, error) {
	stats := tr.Stats()
	zero := tr.Zero()
	snap := &TreeSnapshot{
		Kind:      KindPush,
		HashType:  tr.Hasher().Name(),
		Root:      stats.Root,
		Depth:     tr.Depth(),
		LeafCount: stats.LeafCount,
		Zero:      &zero,
	}
	for _, i := range sampleIndexes(snap.LeafCount, samples) {
		proof, err := tr.Proof(i)
		if err != nil {
			return nil, err
		}
		leaf, err := tr.LeafAt(i)
		if err != nil {
			return nil, err
		}
		snap.Samples = append(snap.Samples, ProofSample{Index: i, Leaf: leaf, Proof: proof})
	}
	return snap, nil
}

// Hasher resolves HashType.
func (s *TreeSnapshot) Hasher() (trie.Hasher, error) {
	return trie.NewHasher(s.HashType)
}

// Verify re-checks every sample against Root and returns how many passed.
// The first failing sample is reported as an error.
func (s *TreeSnapshot) Verify() (int, error) {
	h, err := s.Hasher()
	if err != nil {
		return 0, err
	}
	v := trie.NewVerifier(h)
	for n, sample := range s.Samples {
		if sample.Proof.Index != sample.Index {
			return n, errors.Wrapf(treeerrors.ErrMalformedProof, "sample %d proof index %d", sample.Index, sample.Proof.Index)
		}
		if sample.Proof.Len() != s.Depth {
			return n, errors.Wrapf(treeerrors.ErrMalformedProof, "sample %d has %d siblings, depth %d", sample.Index, sample.Proof.Len(), s.Depth)
		}
		ok, err := v.Verify(sample.Proof, s.Root, sample.Leaf)
		if err != nil {
			return n, errors.Wrapf(err, "sample %d", sample.Index)
		}
		if !ok {
			return n, errors.Errorf("sample %d leaf %s does not verify against %s", sample.Index, sample.Leaf.Hex(), s.Root.Hex())
		}
	}
	return len(s.Samples), nil
}

func snapshotKey(name string) []byte {
	return append(append([]byte(nil), snapshotPrefix...), name...)
}

// SaveSnapshot stores snap under "snapshot/<name>".
func SaveSnapshot(store *PersistenceStore, name string, snap *TreeSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := store.Put(snapshotKey(name), data); err != nil {
		return errors.Wrapf(err, "save snapshot %s", name)
	}
	log.Debug(log.StorageMonitoring, "Saved snapshot", "name", name, "root", snap.Root.Short(), "samples", len(snap.Samples))
	return nil
}

// LoadSnapshot reads the snapshot saved under name. A missing name wraps
// os.ErrNotExist.
func LoadSnapshot(store *PersistenceStore, name string) (*TreeSnapshot, error) {
	data, ok, err := store.Get(snapshotKey(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "snapshot %s", name)
	}
	var snap TreeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, "decode snapshot %s", name)
	}
	return &snap, nil
}

// SnapshotNames lists stored snapshot names in key order.
func SnapshotNames(store *PersistenceStore) ([]string, error) {
	kvs, err := store.GetWithPrefix(snapshotPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(kvs))
	for i, kv := range kvs {
		names[i] = string(kv[0][len(snapshotPrefix):])
	}
	return names, nil
}

// WriteSnapshotFile writes snap as indented JSON, gzipped when path ends in ".gz".
func WriteSnapshotFile(path string, snap *TreeSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return errors.Wrap(err, "compress snapshot")
		}
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, "compress snapshot")
		}
		data = buf.Bytes()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot %s", path)
	}
	return nil
}

// ReadSnapshotFile reads a file written by WriteSnapshotFile.
func ReadSnapshotFile(path string) (*TreeSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "decompress snapshot")
		}
		defer gz.Close()
		r = gz
	}
	var snap TreeSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.Wrapf(err, "decode snapshot %s", path)
	}
	return &snap, nil
}
