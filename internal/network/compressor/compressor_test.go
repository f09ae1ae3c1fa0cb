package compressor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressors(t *testing.T) map[string]Compressor {
	z, err := NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(z.Close)
	return map[string]Compressor{
		"nop":  NopCompressor{},
		"zstd": z,
		"lz4":  LZ4Compressor{},
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":        {},
		"short":        []byte("x"),
		"repetitive":   bytes.Repeat([]byte("ledgerwire "), 1024),
		"incompressed": {0x13, 0x91, 0x7f, 0x00, 0xee, 0x42, 0x08},
	}
	for name, c := range compressors(t) {
		for in, src := range inputs {
			packet, err := c.Compress(nil, src)
			require.NoError(t, err, "%s/%s", name, in)

			plain, err := c.Decompress(nil, packet)
			require.NoError(t, err, "%s/%s", name, in)
			assert.Equal(t, len(src), len(plain), "%s/%s", name, in)
			if len(src) > 0 {
				assert.Equal(t, src, plain, "%s/%s", name, in)
			}
		}
	}
}

func TestCompressionShrinksRepetitiveInput(t *testing.T) {
	src := bytes.Repeat([]byte("abcdefgh"), 4096)
	for name, c := range compressors(t) {
		if name == "nop" {
			continue
		}
		packet, err := c.Compress(nil, src)
		require.NoError(t, err)
		assert.Less(t, len(packet), len(src)/4, name)
	}
}

func TestReuseDst(t *testing.T) {
	src := bytes.Repeat([]byte("reuse"), 256)
	dst := make([]byte, 0, 4096)
	for name, c := range compressors(t) {
		packet, err := c.Compress(dst, src)
		require.NoError(t, err, name)
		packet = append([]byte(nil), packet...)

		plain, err := c.Decompress(dst, packet)
		require.NoError(t, err, name)
		assert.Equal(t, src, plain, name)
	}
}

func TestZstdClosed(t *testing.T) {
	z, err := NewZstdCompressorWithConcurrency(1)
	require.NoError(t, err)
	z.Close()

	_, err = z.Compress(nil, []byte("x"))
	assert.Error(t, err)
	_, err = z.Decompress(nil, []byte("x"))
	assert.Error(t, err)
}

func TestCorruptInput(t *testing.T) {
	z, err := NewZstdCompressor()
	require.NoError(t, err)
	defer z.Close()

	_, err = z.Decompress(nil, []byte("definitely not zstd"))
	assert.Error(t, err)

	var l LZ4Compressor
	_, err = l.Decompress(nil, nil)
	assert.Error(t, err)
	_, err = l.Decompress(nil, []byte{9, 1, 'a'})
	assert.Error(t, err)
	_, err = l.Decompress(nil, []byte{lz4Stored, 5, 'a'})
	assert.Error(t, err)
	_, err = l.Decompress(nil, []byte{lz4Block, 0xff, 0xff, 0xff, 0xff, 0x7f})
	assert.Error(t, err)
}
