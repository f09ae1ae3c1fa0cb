package codec

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/ledgerwire/internal/network/compressor"
	"github.com/lk2023060901/ledgerwire/internal/network/framer"
	"github.com/lk2023060901/ledgerwire/internal/network/serializer"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// Codec 抽象了“从业务对象到网络帧，以及从网络帧回到业务对象”的完整编解码流程。
//
// Pipeline（写出 Encode）：
//
//	msg --> serializer --> [compress?] --> flags|payload --> framer.WriteFrame
//
// Pipeline（读入 Decode）：
//
//	framer.ReadFrame --> flags|payload --> [decompress?] --> serializer --> msg
type Codec interface {
	// Encode 将业务对象编码并写入到底层流。
	Encode(w io.Writer, msg any) error

	// Decode 从底层流中读取一帧报文，并解码到 msg 中。
	//
	// msg 为接收解码结果的目标对象（必须为指针）；若为 nil，则仅读取并丢弃该帧。
	Decode(r io.Reader, msg any) error

	// DecodeRaw 从底层流中读取一帧报文，并返回帧标志位与已完成解压的业务字节。
	//
	// 不负责反序列化为具体对象，仅返回“明文字节”供上层自行处理。
	DecodeRaw(r io.Reader) (Flags, []byte, error)
}

// Flags 为每帧首字节，描述 payload 的处理方式。
type Flags uint8

const (
	FlagCompressed Flags = 1 << iota

	knownFlags = FlagCompressed
)

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Framer     framer.Framer
	Serializer serializer.Serializer
	Compressor compressor.Compressor // 允许为 nil（内部会用 NopCompressor）

	EnableCompression bool // 是否启用压缩（影响压缩行为与 FlagCompressed）
	// MinCompressSize 为触发压缩的最小 payload 字节数，小于该值时不压缩。
	MinCompressSize int
}

type codec struct {
	framer     framer.Framer
	serializer serializer.Serializer
	compressor compressor.Compressor

	compress        bool
	minCompressSize int
}

var _ Codec = (*codec)(nil)

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) (Codec, error) {
	if opts.Framer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: framer is nil")
	}
	if opts.Serializer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: serializer is nil")
	}
	if opts.MinCompressSize < 0 {
		return nil, merr.WrapErrParameterInvalidMsg("codec: negative min compress size %d", opts.MinCompressSize)
	}

	c := &codec{
		framer:          opts.Framer,
		serializer:      opts.Serializer,
		compress:        opts.EnableCompression,
		minCompressSize: opts.MinCompressSize,
	}
	if opts.Compressor != nil {
		c.compressor = opts.Compressor
	} else {
		c.compressor = compressor.NopCompressor{}
	}
	return c, nil
}

// Encode 实现 Codec.Encode。
func (c *codec) Encode(w io.Writer, msg any) error {
	if w == nil {
		return merr.WrapErrParameterInvalidMsg("codec: writer is nil")
	}
	if msg == nil {
		return merr.WrapErrParameterInvalidMsg("codec: msg is nil")
	}

	// 第一步：业务对象序列化。
	body, err := c.serializer.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "codec: marshal failed")
	}

	// 第二步：可选压缩。
	var flags Flags
	if c.compress && len(body) > 0 && len(body) >= c.minCompressSize {
		compressed, err := c.compressor.Compress(nil, body)
		if err != nil {
			return errors.Wrap(err, "codec: compress failed")
		}
		body = compressed
		flags |= FlagCompressed
	}

	frame := make([]byte, 0, 1+len(body))
	frame = append(frame, byte(flags))
	frame = append(frame, body...)

	if err := c.framer.WriteFrame(w, frame); err != nil {
		return errors.Wrap(err, "codec: write frame failed")
	}
	return nil
}

// decodeFrame 完成从底层流到“标志位 + 业务明文字节”的解码流程。
func (c *codec) decodeFrame(r io.Reader) (Flags, []byte, error) {
	if r == nil {
		return 0, nil, merr.WrapErrParameterInvalidMsg("codec: reader is nil")
	}

	frame, err := c.framer.ReadFrame(r)
	if err != nil {
		return 0, nil, errors.Wrap(err, "codec: read frame failed")
	}
	if len(frame) == 0 {
		return 0, nil, merr.WrapErrMalformedWire(0, "codec: frame without flags byte")
	}

	flags := Flags(frame[0])
	if flags&^knownFlags != 0 {
		return 0, nil, merr.WrapErrMalformedWire(0, "codec: unknown frame flags")
	}
	data := frame[1:]

	if flags&FlagCompressed != 0 {
		if !c.compress {
			return 0, nil, merr.WrapErrOperationNotSupported("codec: compressed payload but compression disabled")
		}
		if len(data) == 0 {
			return 0, nil, merr.WrapErrMalformedWire(1, "codec: compressed payload is empty")
		}
		plain, err := c.compressor.Decompress(nil, data)
		if err != nil {
			return 0, nil, errors.Wrap(err, "codec: decompress failed")
		}
		data = plain
	}

	return flags, data, nil
}

// DecodeRaw 实现 Codec.DecodeRaw。
func (c *codec) DecodeRaw(r io.Reader) (Flags, []byte, error) {
	return c.decodeFrame(r)
}

// Decode 实现 Codec.Decode。
func (c *codec) Decode(r io.Reader, msg any) error {
	_, data, err := c.decodeFrame(r)
	if err != nil {
		return err
	}

	// 第三阶段：反序列化到业务对象。
	if msg != nil {
		if err := c.serializer.Unmarshal(data, msg); err != nil {
			return errors.Wrap(err, "codec: unmarshal failed")
		}
	}
	return nil
}
