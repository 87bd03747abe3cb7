package types

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	MinDepth = 1
	MaxDepth = 32

	DefaultDepth      = 20
	DefaultChunkSize  = 10000
	DefaultSampleSize = 16
	DefaultSeed       = 1
)

// TreeConfig is the harness-facing configuration: which tree to build, over
// which leaves, and where persisted artifacts go.
type TreeConfig struct {
	Depth      int         `json:"depth" yaml:"depth"`
	Zero       common.Hash `json:"zero" yaml:"zero"`
	HashType   string      `json:"hash_type" yaml:"hash_type"`
	Encoding   string      `json:"encoding" yaml:"encoding"`
	ChunkSize  int         `json:"chunk_size" yaml:"chunk_size"`
	Seed       uint64      `json:"seed" yaml:"seed"`
	SampleSize int         `json:"sample_size" yaml:"sample_size"`
	DataDir    string      `json:"data_dir" yaml:"data_dir"`
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		Depth:      DefaultDepth,
		HashType:   Keccak,
		Encoding:   EncodingABI.String(),
		ChunkSize:  DefaultChunkSize,
		Seed:       DefaultSeed,
		SampleSize: DefaultSampleSize,
	}
}

// LoadTreeConfig reads a YAML file over DefaultTreeConfig. Keys absent from
// the file keep their default values.
func LoadTreeConfig(path string) (TreeConfig, error) {
	cfg := DefaultTreeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and names.
func (c TreeConfig) Validate() error {
	if c.Depth < MinDepth || c.Depth > MaxDepth {
		return errors.Wrapf(treeerrors.ErrInvalidDepth, "depth %d", c.Depth)
	}
	if !IsHashType(c.HashType) {
		return errors.Wrapf(treeerrors.ErrUnknownHashType, "hash type %q", c.HashType)
	}
	if _, err := ParseEncodingVersion(c.Encoding); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return errors.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.SampleSize < 0 {
		return errors.Errorf("sample size must not be negative, got %d", c.SampleSize)
	}
	return nil
}

// EncodingVersion returns the parsed Encoding field.
func (c TreeConfig) EncodingVersion() EncodingVersion {
	v, err := ParseEncodingVersion(c.Encoding)
	if err != nil {
		return EncodingABI
	}
	return v
}

// Capacity is 2^Depth.
func (c TreeConfig) Capacity() uint64 {
	return uint64(1) << uint(c.Depth)
}

// String method returns the TreeConfig as a formatted JSON string
func (c *TreeConfig) String() string {
	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling JSON: %v", err)
	}
	return string(jsonData)
}
