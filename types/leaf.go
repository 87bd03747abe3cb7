package types

import (
	"encoding/json"
	"fmt"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// EncodingVersion selects the byte layout a Leaf is serialised to before
// hashing. Versions are never renumbered.
type EncodingVersion uint8

const (
	// EncodingABI is abi.encode(address, uint256): two 32 byte words.
	EncodingABI EncodingVersion = 1
	// EncodingPacked is abi.encodePacked(address, uint256): 20 + 32 bytes.
	EncodingPacked EncodingVersion = 2
)

const (
	EncodingABISize    = 64
	EncodingPackedSize = 20 + 32
)

func (v EncodingVersion) String() string {
	switch v {
	case EncodingABI:
		return "abi"
	case EncodingPacked:
		return "packed"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(v))
	}
}

// ParseEncodingVersion maps "abi" / "packed" (or "1" / "2") to a version.
func ParseEncodingVersion(s string) (EncodingVersion, error) {
	switch s {
	case "abi", "1", "":
		return EncodingABI, nil
	case "packed", "2":
		return EncodingPacked, nil
	default:
		return 0, errors.Wrapf(treeerrors.ErrEncoding, "unknown encoding version %q", s)
	}
}

var leafArguments abi.Arguments

func init() {
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	leafArguments = abi.Arguments{
		{Name: "account", Type: addressTy},
		{Name: "amount", Type: uint256Ty},
	}
}

// Leaf is the application record committed into a tree: an account and the
// amount allotted to it.
type Leaf struct {
	Account common.Address
	Amount  *uint256.Int
}

// NewLeaf builds a leaf from an account and a uint64 amount.
func NewLeaf(account common.Address, amount uint64) Leaf {
	return Leaf{Account: account, Amount: uint256.NewInt(amount)}
}

// Encode serialises the leaf with EncodingABI.
func (l Leaf) Encode() ([]byte, error) {
	return EncodeLeaf(l, EncodingABI)
}

// EncodeLeaf serialises l with the given encoding version.
func EncodeLeaf(l Leaf, version EncodingVersion) ([]byte, error) {
	if l.Amount == nil {
		return nil, errors.Wrapf(treeerrors.ErrEncoding, "leaf %s has no amount", l.Account.Hex())
	}
	switch version {
	case EncodingABI:
		data, err := leafArguments.Pack(l.Account.Eth(), l.Amount.ToBig())
		if err != nil {
			return nil, errors.Wrapf(treeerrors.ErrEncoding, "abi pack %s: %v", l.Account.Hex(), err)
		}
		return data, nil
	case EncodingPacked:
		amount := l.Amount.Bytes32()
		data := make([]byte, 0, EncodingPackedSize)
		data = append(data, l.Account.Bytes()...)
		data = append(data, amount[:]...)
		return data, nil
	default:
		return nil, errors.Wrapf(treeerrors.ErrEncoding, "unknown encoding version %d", version)
	}
}

// DecodeLeaf parses data produced by EncodeLeaf.
func DecodeLeaf(data []byte, version EncodingVersion) (Leaf, error) {
	switch version {
	case EncodingABI:
		if len(data) != EncodingABISize {
			return Leaf{}, errors.Wrapf(treeerrors.ErrEncoding, "abi leaf is %d bytes, want %d", len(data), EncodingABISize)
		}
		for _, b := range data[:12] {
			if b != 0 {
				return Leaf{}, errors.Wrap(treeerrors.ErrEncoding, "abi address word has dirty high bytes")
			}
		}
		return Leaf{
			Account: common.BytesToAddress(data[12:32]),
			Amount:  new(uint256.Int).SetBytes32(data[32:64]),
		}, nil
	case EncodingPacked:
		if len(data) != EncodingPackedSize {
			return Leaf{}, errors.Wrapf(treeerrors.ErrEncoding, "packed leaf is %d bytes, want %d", len(data), EncodingPackedSize)
		}
		return Leaf{
			Account: common.BytesToAddress(data[:20]),
			Amount:  new(uint256.Int).SetBytes32(data[20:52]),
		}, nil
	default:
		return Leaf{}, errors.Wrapf(treeerrors.ErrEncoding, "unknown encoding version %d", version)
	}
}

func (l Leaf) String() string {
	amount := "<nil>"
	if l.Amount != nil {
		amount = l.Amount.Dec()
	}
	return fmt.Sprintf("Leaf{%s, %s}", l.Account.Hex(), amount)
}

type leafJSON struct {
	Account common.Address `json:"account"`
	Amount  string         `json:"amount"`
}

// MarshalJSON writes the amount as a decimal string.
func (l Leaf) MarshalJSON() ([]byte, error) {
	if l.Amount == nil {
		return nil, errors.Wrapf(treeerrors.ErrEncoding, "leaf %s has no amount", l.Account.Hex())
	}
	return json.Marshal(leafJSON{Account: l.Account, Amount: l.Amount.Dec()})
}

func (l *Leaf) UnmarshalJSON(data []byte) error {
	var v leafJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := uint256.FromDecimal(v.Amount)
	if err != nil {
		return errors.Wrapf(treeerrors.ErrEncoding, "amount %q: %v", v.Amount, err)
	}
	l.Account = v.Account
	l.Amount = amount
	return nil
}
