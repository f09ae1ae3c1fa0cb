package framer

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// Framer 抽象了在字节流上划分消息边界的能力。
//
// 约定：
//   - 一帧数据的格式为：4 字节大端无符号整型（表示后续 body 的长度）+ body。
//   - body 的内容由上层 codec 决定，framer 不做解析。
type Framer interface {
	// WriteFrame 将 body 打包为一帧并写入到 w 中。
	WriteFrame(w io.Writer, body []byte) error

	// ReadFrame 从 r 中读取一帧数据并返回 body。
	// 返回的切片归调用方所有。
	ReadFrame(r io.Reader) ([]byte, error)
}

// LengthPrefixedFramer 使用长度前缀（4 字节大端）作为帧边界。
// 适用于基于流的连接（如 TCP、WebSocket 原始流等）。
type LengthPrefixedFramer struct {
	// MaxFrameSize 为允许的最大帧大小（body 长度），单位字节。
	// 为 0 时使用默认值 DefaultMaxFrameSize。
	MaxFrameSize uint32
}

const (
	headerSize = 4

	// DefaultMaxFrameSize 为默认的最大帧大小。
	DefaultMaxFrameSize uint32 = 16 * 1024 * 1024 // 16MB
)

// ErrFrameTooLarge 表示帧长度超过了 MaxFrameSize。
var ErrFrameTooLarge = errors.New("framer: frame too large")

var _ Framer = (*LengthPrefixedFramer)(nil)

// NewLengthPrefixedFramer 创建一个长度前缀帧编码器。
// maxFrameSize 为 0 时使用默认值。
func NewLengthPrefixedFramer(maxFrameSize uint32) *LengthPrefixedFramer {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &LengthPrefixedFramer{
		MaxFrameSize: maxFrameSize,
	}
}

// WriteFrame 将 body 编码为长度前缀帧并写入。
// 帧头与 body 合并到一个池化缓冲区后一次写出，避免被拆成两个 TCP 包。
func (f *LengthPrefixedFramer) WriteFrame(w io.Writer, body []byte) error {
	if w == nil {
		return merr.WrapErrParameterInvalidMsg("framer: writer is nil")
	}
	if uint64(len(body)) > uint64(f.effectiveMaxSize()) {
		return errors.Wrapf(ErrFrameTooLarge, "size %d exceeds max %d", len(body), f.effectiveMaxSize())
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	_, _ = buf.Write(header[:])
	_, _ = buf.Write(body)

	if _, err := w.Write(buf.B); err != nil {
		return errors.Wrap(err, "framer: write frame failed")
	}
	return nil
}

// ReadFrame 从流中读取一帧数据。
// 长度超过 MaxFrameSize 时在分配 body 之前返回错误。
func (f *LengthPrefixedFramer) ReadFrame(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, merr.WrapErrParameterInvalidMsg("framer: reader is nil")
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "framer: read header failed")
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > f.effectiveMaxSize() {
		return nil, errors.Wrapf(ErrFrameTooLarge, "size %d exceeds max %d", length, f.effectiveMaxSize())
	}

	body := make([]byte, int(length))
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, errors.Wrap(err, "framer: read body failed")
		}
	}
	return body, nil
}

func (f *LengthPrefixedFramer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return DefaultMaxFrameSize
	}
	return f.MaxFrameSize
}
