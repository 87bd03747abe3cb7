package storage

import (
	"encoding/binary"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/log"
	"github.com/colorfulnotion/pushtree/registry"
	"github.com/pkg/errors"
)

var (
	rootPrefix = []byte("root/")
	nonceKey   = []byte("meta/nonce")
)

// RootJournal records trusted roots under "root/<hash>" with the registry
// sequence number they were set at. The registry nonce is kept under
// "meta/nonce" and written in the same batch as every root change.
type RootJournal struct {
	store *PersistenceStore
}

var _ registry.Journal = (*RootJournal)(nil)

func NewRootJournal(store *PersistenceStore) *RootJournal {
	return &RootJournal{store: store}
}

func rootKey(root common.Hash) []byte {
	return append(append([]byte(nil), rootPrefix...), root.Bytes()...)
}

func (j *RootJournal) PutRoot(root common.Hash, seq uint64) error {
	err := j.store.Apply([][2][]byte{
		{rootKey(root), common.Uint64ToBytes(seq)},
		{nonceKey, common.Uint64ToBytes(seq)},
	})
	if err != nil {
		return errors.Wrapf(err, "put root %s", root.Hex())
	}
	log.Trace(log.StorageMonitoring, "PutRoot", "root", root.Short(), "seq", seq)
	return nil
}

func (j *RootJournal) DeleteRoot(root common.Hash, seq uint64) error {
	err := j.store.Apply([][2][]byte{
		{rootKey(root), nil},
		{nonceKey, common.Uint64ToBytes(seq)},
	})
	if err != nil {
		return errors.Wrapf(err, "delete root %s", root.Hex())
	}
	log.Trace(log.StorageMonitoring, "DeleteRoot", "root", root.Short(), "seq", seq)
	return nil
}

func (j *RootJournal) Nonce() (uint64, error) {
	value, ok, err := j.store.Get(nonceKey)
	if err != nil {
		return 0, errors.Wrap(err, "get nonce")
	}
	if !ok {
		return 0, nil
	}
	if len(value) != 8 {
		return 0, errors.Errorf("corrupt nonce entry %x", value)
	}
	return binary.BigEndian.Uint64(value), nil
}

func (j *RootJournal) Roots() (map[common.Hash]uint64, error) {
	kvs, err := j.store.GetWithPrefix(rootPrefix)
	if err != nil {
		return nil, err
	}
	roots := make(map[common.Hash]uint64, len(kvs))
	for _, kv := range kvs {
		key, value := kv[0][len(rootPrefix):], kv[1]
		if len(key) != common.HashLength || len(value) != 8 {
			return nil, errors.Errorf("corrupt root entry %x", kv[0])
		}
		roots[common.BytesToHash(key)] = binary.BigEndian.Uint64(value)
	}
	return roots, nil
}
