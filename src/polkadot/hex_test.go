package polkadot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHash(t *testing.T) {
	h, err := ParseHash("0x8f1a5b6c2d3e4f5061728394a5b6c7d8e9f00112233445566778899aabbccdd")
	require.NoError(t, err)
	assert.Equal(t, byte(0x8f), h[0])
	assert.Equal(t, byte(0xdd), h[31])

	for _, bad := range []string{
		"",
		"8f1a5b6c2d3e4f5061728394a5b6c7d8e9f00112233445566778899aabbccdd",
		"0x8f1a",
		"0xzz1a5b6c2d3e4f5061728394a5b6c7d8e9f00112233445566778899aabbccdd",
	} {
		_, err := ParseHash(bad)
		assert.Error(t, err, bad)
	}
}

func TestCallIndexOf(t *testing.T) {
	idx, err := CallIndexOf("0x1a02080000")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x1a), idx.SectionIndex)
	assert.Equal(t, uint8(0x02), idx.MethodIndex)

	_, err = CallIndexOf("0x1a")
	assert.Error(t, err)
	_, err = CallIndexOf("0xnothex")
	assert.Error(t, err)
}

func TestDecodeHex(t *testing.T) {
	b, err := DecodeHex("0x0102")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	b, err = DecodeHex("0a")
	require.NoError(t, err)
	assert.Equal(t, []byte{10}, b)
}
