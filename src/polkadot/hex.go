package polkadot

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// DecodeHex decodes a hex string, handling 0x prefix
func DecodeHex(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	return hex.DecodeString(hexStr)
}

// ParseHash parses a 0x-prefixed 32-byte hash such as a call or extrinsic hash.
func ParseHash(s string) (types.Hash, error) {
	if !strings.HasPrefix(s, "0x") {
		return types.Hash{}, fmt.Errorf("hash must be 0x-prefixed")
	}
	b, err := codec.HexDecodeString(s)
	if err != nil {
		return types.Hash{}, fmt.Errorf("hash: %w", err)
	}
	if len(b) != len(types.Hash{}) {
		return types.Hash{}, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	return types.NewHash(b), nil
}

// CallIndexOf returns the pallet and call index an encoded call starts with.
func CallIndexOf(callData string) (types.CallIndex, error) {
	var idx types.CallIndex
	b, err := DecodeHex(callData)
	if err != nil {
		return idx, fmt.Errorf("call data: %w", err)
	}
	if len(b) < 2 {
		return idx, fmt.Errorf("call data too short")
	}
	if err := codec.Decode(b[:2], &idx); err != nil {
		return idx, fmt.Errorf("call index: %w", err)
	}
	return idx, nil
}
