package compressor

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4/v4"
)

const (
	lz4Stored byte = iota
	lz4Block
)

// LZ4Compressor 使用 lz4 block 模式压缩，速度优先于压缩率。
//
// 输出格式：1 字节模式 | uvarint 原始长度 | 数据。
// 数据不可压缩时以原样存储（lz4Stored），解压端无需猜测。
type LZ4Compressor struct{}

var _ Compressor = LZ4Compressor{}

func (LZ4Compressor) Compress(dst, src []byte) ([]byte, error) {
	out := append(dst[:0], lz4Block)
	out = binary.AppendUvarint(out, uint64(len(src)))
	head := len(out)

	bound := lz4.CompressBlockBound(len(src))
	out = append(out, make([]byte, bound)...)
	written, err := lz4.CompressBlock(src, out[head:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 compress")
	}
	if written == 0 || written >= len(src) {
		out = out[:head]
		out[0] = lz4Stored
		return append(out, src...), nil
	}
	return out[:head+written], nil
}

func (LZ4Compressor) Decompress(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("lz4 decompress: empty packet")
	}
	mode := src[0]
	size, n := binary.Uvarint(src[1:])
	if n <= 0 {
		return nil, errors.New("lz4 decompress: bad length prefix")
	}
	if size > MaxDecompressedSize {
		return nil, errors.Newf("lz4 decompress: size %d exceeds max %d", size, MaxDecompressedSize)
	}
	data := src[1+n:]

	switch mode {
	case lz4Stored:
		if uint64(len(data)) != size {
			return nil, errors.Newf("lz4 decompress: stored %d bytes, expected %d", len(data), size)
		}
		return append(dst[:0], data...), nil
	case lz4Block:
		out := dst[:0]
		if uint64(cap(out)) < size {
			out = make([]byte, size)
		} else {
			out = out[:size]
		}
		read, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decompress")
		}
		if uint64(read) != size {
			return nil, errors.Newf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return out, nil
	default:
		return nil, errors.Newf("lz4 decompress: unknown mode %d", mode)
	}
}
