// Package polkadot validates the chain values the engine stores as given:
// SS58 account addresses, 32-byte hashes and encoded multisig calls.
package polkadot

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	accountIDLen = 32
	checksumLen  = 2
)

var (
	ErrInvalidAddress = errors.New("invalid ss58 address")
	ErrBadChecksum    = errors.New("ss58 checksum mismatch")
)

var ss58Prefix = []byte("SS58PRE")

// DecodeAddress returns the account public key and network prefix of an
// SS58 address. A 0x-prefixed 32-byte hex key is accepted with prefix 42.
func DecodeAddress(addr string) ([]byte, uint16, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") {
		pub, err := hex.DecodeString(addr[2:])
		if err != nil || len(pub) != accountIDLen {
			return nil, 0, ErrInvalidAddress
		}
		return pub, 42, nil
	}

	raw, err := base58.Decode(addr)
	if err != nil || len(raw) < 1+accountIDLen+checksumLen {
		return nil, 0, ErrInvalidAddress
	}

	var prefix uint16
	var prefixLen int
	switch {
	case raw[0] < 64:
		prefix, prefixLen = uint16(raw[0]), 1
	case raw[0] < 128:
		// two-byte network identifier, 14 bits
		lower := (raw[0]<<2)&0xfc | raw[1]>>6
		upper := raw[1] & 0x3f
		prefix, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, ErrInvalidAddress
	}
	if len(raw) != prefixLen+accountIDLen+checksumLen {
		return nil, 0, ErrInvalidAddress
	}

	body := raw[:len(raw)-checksumLen]
	if !bytes.Equal(checksum(body), raw[len(raw)-checksumLen:]) {
		return nil, 0, ErrBadChecksum
	}
	return body[prefixLen:], prefix, nil
}

// EncodeAddress renders a 32-byte public key as an SS58 address.
func EncodeAddress(pub []byte, prefix uint16) (string, error) {
	if len(pub) != accountIDLen {
		return "", fmt.Errorf("public key must be %d bytes, got %d", accountIDLen, len(pub))
	}
	if prefix > 16383 {
		return "", fmt.Errorf("ss58 prefix %d out of range", prefix)
	}

	var body []byte
	if prefix < 64 {
		body = append(body, byte(prefix))
	} else {
		first := byte((prefix&0xfc)>>2) | 0x40
		second := byte(prefix>>8) | byte(prefix&0x03)<<6
		body = append(body, first, second)
	}
	body = append(body, pub...)
	return base58.Encode(append(body, checksum(body)...)), nil
}

// ValidateAddress reports whether addr is a well-formed account address.
func ValidateAddress(addr string) error {
	_, _, err := DecodeAddress(addr)
	return err
}

// SameAccount reports whether two addresses name the same key, whatever
// network prefix they were encoded with.
func SameAccount(a, b string) bool {
	if a == b {
		return a != ""
	}
	pa, _, err := DecodeAddress(a)
	if err != nil {
		return false
	}
	pb, _, err := DecodeAddress(b)
	if err != nil {
		return false
	}
	return bytes.Equal(pa, pb)
}

func checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Prefix)
	h.Write(body)
	return h.Sum(nil)[:checksumLen]
}
