package common

import (
	"encoding/json"
	"fmt"

	ethereumCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashLength is the width of every digest handled by the engine.
const HashLength = ethereumCommon.HashLength

// Hash is a custom type based on Ethereum's common.Hash
type Hash ethereumCommon.Hash

// Address is a custom type based on Ethereum's common.Address
type Address ethereumCommon.Address

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte {
	return ethereumCommon.Hash(h).Bytes()
}

// String returns the string representation of the hash.
func (h Hash) String() string {
	return ethereumCommon.Hash(h).String()
}

// Short returns the first and last four hex digits, for log lines.
func (h Hash) Short() string {
	hex := h.Hex()
	return fmt.Sprintf("%s..%s", hex[2:6], hex[len(hex)-4:])
}

// Hex returns the hexadecimal string representation of the hash.
func (h Hash) Hex() string {
	return ethereumCommon.Hash(h).Hex()
}

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Eth returns h as a go-ethereum hash.
func (h Hash) Eth() ethereumCommon.Hash {
	return ethereumCommon.Hash(h)
}

// BytesToHash converts a byte slice to a Hash.
// If b is larger than HashLength, b is cropped from the left.
func BytesToHash(b []byte) Hash {
	return Hash(ethereumCommon.BytesToHash(b))
}

// HexToHash converts a hexadecimal string to a Hash.
func HexToHash(s string) Hash {
	return Hash(ethereumCommon.HexToHash(s))
}

// IsHexHash reports whether s is a 0x-prefixed or bare 32 byte hex string.
func IsHexHash(s string) bool {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s) != 2*HashLength {
		return false
	}
	_, err := hexutil.Decode("0x" + s)
	return err == nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func Bytes2Hex(d []byte) string {
	return "0x" + ethereumCommon.Bytes2Hex(d)
}

func FromHex(b string) []byte {
	return ethereumCommon.FromHex(b)
}

// MarshalJSON custom marshaler to convert Hash to hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON custom unmarshaler to handle hex strings for Hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	*h = HexToHash(hexStr)
	return nil
}

// MarshalYAML renders the hash as a hex string.
func (h Hash) MarshalYAML() (interface{}, error) {
	return h.Hex(), nil
}

// UnmarshalYAML parses a hex string into the hash.
func (h *Hash) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var hexStr string
	if err := unmarshal(&hexStr); err != nil {
		return err
	}
	*h = HexToHash(hexStr)
	return nil
}

// Address methods

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte {
	return ethereumCommon.Address(a).Bytes()
}

// String returns the string representation of the address.
func (a Address) String() string {
	return ethereumCommon.Address(a).String()
}

// Hex returns the hexadecimal string representation of the address.
func (a Address) Hex() string {
	return ethereumCommon.Address(a).Hex()
}

// Eth returns a as a go-ethereum address.
func (a Address) Eth() ethereumCommon.Address {
	return ethereumCommon.Address(a)
}

// HexToAddress converts a hexadecimal string to an Address.
func HexToAddress(s string) Address {
	return Address(ethereumCommon.HexToAddress(s))
}

// BytesToAddress converts a byte slice to an Address.
func BytesToAddress(b []byte) Address {
	return Address(ethereumCommon.BytesToAddress(b))
}

// MarshalJSON custom marshaler to convert Address to hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

// UnmarshalJSON custom unmarshaler to handle hex strings for Address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	*a = HexToAddress(hexStr)
	return nil
}
