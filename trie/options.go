package trie

type treeOptions struct {
	hasher       Hasher
	retainLeaves bool
}

// Option configures a BatchMerkleTree or PushTree.
type Option func(*treeOptions)

// WithHasher selects the digest function. The default is keccak.
func WithHasher(h Hasher) Option {
	return func(o *treeOptions) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithLeafRetention makes a PushTree keep every pushed leaf so it can
// produce inclusion proofs. Ignored by BatchMerkleTree, which always keeps
// its leaves.
func WithLeafRetention() Option {
	return func(o *treeOptions) {
		o.retainLeaves = true
	}
}

func applyOptions(opts []Option) treeOptions {
	o := treeOptions{hasher: DefaultHasher()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
