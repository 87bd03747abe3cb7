package types

import (
	"encoding/json"
	"testing"

	"github.com/colorfulnotion/pushtree/common"
	"github.com/colorfulnotion/pushtree/treeerrors"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccount = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func TestEncodeLeafABI(t *testing.T) {
	leaf := NewLeaf(testAccount, 1000)
	data, err := leaf.Encode()
	require.NoError(t, err)
	require.Len(t, data, EncodingABISize)

	// address is left padded into the first word, amount big-endian in the second
	assert.Equal(t, make([]byte, 12), data[:12])
	assert.Equal(t, testAccount.Bytes(), data[12:32])
	assert.Equal(t, byte(0x03), data[62])
	assert.Equal(t, byte(0xe8), data[63])

	back, err := DecodeLeaf(data, EncodingABI)
	require.NoError(t, err)
	assert.Equal(t, leaf.Account, back.Account)
	assert.True(t, leaf.Amount.Eq(back.Amount))
}

func TestEncodeLeafPacked(t *testing.T) {
	leaf := Leaf{Account: testAccount, Amount: uint256.MustFromDecimal("123456789012345678901234567890")}
	data, err := EncodeLeaf(leaf, EncodingPacked)
	require.NoError(t, err)
	require.Len(t, data, EncodingPackedSize)
	assert.Equal(t, testAccount.Bytes(), data[:20])

	back, err := DecodeLeaf(data, EncodingPacked)
	require.NoError(t, err)
	assert.True(t, leaf.Amount.Eq(back.Amount))
}

func TestEncodeLeafErrors(t *testing.T) {
	_, err := Leaf{Account: testAccount}.Encode()
	assert.True(t, errors.Is(err, treeerrors.ErrEncoding))

	_, err = EncodeLeaf(NewLeaf(testAccount, 1), EncodingVersion(9))
	assert.True(t, errors.Is(err, treeerrors.ErrEncoding))

	_, err = DecodeLeaf(make([]byte, 10), EncodingABI)
	assert.True(t, errors.Is(err, treeerrors.ErrEncoding))

	dirty := make([]byte, EncodingABISize)
	dirty[0] = 1
	_, err = DecodeLeaf(dirty, EncodingABI)
	assert.True(t, errors.Is(err, treeerrors.ErrEncoding))
}

func TestEncodingsDiffer(t *testing.T) {
	leaf := NewLeaf(testAccount, 7)
	a, err := EncodeLeaf(leaf, EncodingABI)
	require.NoError(t, err)
	p, err := EncodeLeaf(leaf, EncodingPacked)
	require.NoError(t, err)
	assert.NotEqual(t, a, p)
}

func TestLeafJSON(t *testing.T) {
	leaf := NewLeaf(testAccount, 42)
	data, err := json.Marshal(leaf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"account":"`+testAccount.Hex()+`","amount":"42"}`, string(data))

	var back Leaf
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, leaf.String(), back.String())

	err = json.Unmarshal([]byte(`{"account":"0x00","amount":"-1"}`), &back)
	assert.True(t, errors.Is(err, treeerrors.ErrEncoding))
}

func TestParseEncodingVersion(t *testing.T) {
	v, err := ParseEncodingVersion("packed")
	require.NoError(t, err)
	assert.Equal(t, EncodingPacked, v)
	v, err = ParseEncodingVersion("")
	require.NoError(t, err)
	assert.Equal(t, EncodingABI, v)
	_, err = ParseEncodingVersion("rlp")
	assert.Error(t, err)
}
