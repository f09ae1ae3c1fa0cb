package wire

import (
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// Reader 从字节切片中按顺序解码 wire 值。
//
// 所有长度与元素个数在分配前都会与剩余字节数比对，
// 截断或伪造的输入只会得到 ErrMalformedWire，而不会触发大块分配。
type Reader struct {
	data     []byte
	off      int
	depth    int
	maxDepth int
}

// NewReader 创建一个 Reader，Reader 不会修改 data。
func NewReader(data []byte) *Reader {
	return &Reader{data: data, maxDepth: DefaultMaxDepth}
}

// SetMaxDepth 设置嵌套深度上限，n <= 0 时使用 DefaultMaxDepth。
func (r *Reader) SetMaxDepth(n int) {
	if n <= 0 {
		n = DefaultMaxDepth
	}
	r.maxDepth = n
}

// Remaining 返回尚未读取的字节数。
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Offset 返回当前读取位置。
func (r *Reader) Offset() int {
	return r.off
}

// ReadObject 解码下一个 wire 值。
func (r *Reader) ReadObject() (any, error) {
	if r.Remaining() < 1 {
		return nil, r.malformed("unexpected end of data")
	}
	tag := Tag(r.data[r.off])
	r.off++

	switch tag {
	case TagNull:
		return nil, nil
	case TagTrue:
		return true, nil
	case TagFalse:
		return false, nil
	case TagUbyte:
		b, err := r.readByte()
		return b, err
	case TagByte:
		b, err := r.readByte()
		return int8(b), err
	case TagUshort:
		v, err := r.readUvarint(math.MaxUint16)
		return uint16(v), err
	case TagShort:
		v, err := r.readVarint(math.MinInt16, math.MaxInt16)
		return int16(v), err
	case TagUint:
		v, err := r.readUvarint(math.MaxUint32)
		return uint32(v), err
	case TagInt:
		v, err := r.readVarint(math.MinInt32, math.MaxInt32)
		return int32(v), err
	case TagUlong:
		return r.readUvarint(math.MaxUint64)
	case TagLong:
		return r.readVarint(math.MinInt64, math.MaxInt64)
	case TagChar:
		v, err := r.readVarint(0, utf8.MaxRune)
		if err != nil {
			return nil, err
		}
		if !utf8.ValidRune(rune(v)) {
			return nil, r.malformed("char is a surrogate code point")
		}
		return Char(v), nil
	case TagTimestamp:
		v, err := r.readVarint(math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, err
		}
		return timestampOf(v), nil
	case TagFloat:
		v, n := protowire.ConsumeFixed32(r.data[r.off:])
		if n < 0 {
			return nil, r.malformed("truncated float")
		}
		r.off += n
		return math.Float32frombits(v), nil
	case TagDouble:
		v, n := protowire.ConsumeFixed64(r.data[r.off:])
		if n < 0 {
			return nil, r.malformed("truncated double")
		}
		r.off += n
		return math.Float64frombits(v), nil
	case TagBinary:
		b, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		// 拷贝一份，避免解码结果与输入缓冲区共享内存。
		return Binary(append([]byte{}, b...)), nil
	case TagString:
		b, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, r.malformed("string is not valid utf-8")
		}
		return string(b), nil
	case TagSymbol:
		b, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		return Symbol(b), nil
	case TagList:
		return r.readList()
	case TagMap:
		return r.readMap()
	case TagDescribed:
		return r.readDescribed()
	default:
		r.off--
		return nil, r.malformed(fmt.Sprintf("unknown tag 0x%02x", byte(tag)))
	}
}

func (r *Reader) readList() (any, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	count, err := r.readCount(1)
	if err != nil {
		return nil, err
	}
	items := make(List, 0, count)
	for i := 0; i < count; i++ {
		item, err := r.ReadObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Reader) readMap() (any, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	count, err := r.readCount(2)
	if err != nil {
		return nil, err
	}
	m := &Map{Entries: make([]MapEntry, 0, count)}
	for i := 0; i < count; i++ {
		key, err := r.ReadObject()
		if err != nil {
			return nil, err
		}
		val, err := r.ReadObject()
		if err != nil {
			return nil, err
		}
		m.Put(key, val)
	}
	return m, nil
}

func (r *Reader) readDescribed() (any, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	descriptor, err := r.ReadObject()
	if err != nil {
		return nil, err
	}
	switch descriptor.(type) {
	case Symbol, string, uint64:
	default:
		return nil, r.malformed(fmt.Sprintf("invalid descriptor type %T", descriptor))
	}
	value, err := r.ReadObject()
	if err != nil {
		return nil, err
	}
	return &Described{Descriptor: descriptor, Value: value}, nil
}

// readCount 读取元素个数，并保证剩余字节至少能容纳 count*minBytes。
func (r *Reader) readCount(minBytes int) (int, error) {
	v, err := r.readUvarint(math.MaxInt32)
	if err != nil {
		return 0, err
	}
	if v*uint64(minBytes) > uint64(r.Remaining()) {
		return 0, r.malformed(fmt.Sprintf("element count %d exceeds remaining data", v))
	}
	return int(v), nil
}

func (r *Reader) readByte() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, r.malformed("truncated byte")
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *Reader) readUvarint(max uint64) (uint64, error) {
	v, n := protowire.ConsumeVarint(r.data[r.off:])
	if n < 0 {
		return 0, r.malformed("invalid varint")
	}
	if v > max {
		return 0, r.malformed(fmt.Sprintf("value %d out of range", v))
	}
	r.off += n
	return v, nil
}

func (r *Reader) readVarint(min, max int64) (int64, error) {
	raw, n := protowire.ConsumeVarint(r.data[r.off:])
	if n < 0 {
		return 0, r.malformed("invalid varint")
	}
	v := protowire.DecodeZigZag(raw)
	if v < min || v > max {
		return 0, r.malformed(fmt.Sprintf("value %d out of range", v))
	}
	r.off += n
	return v, nil
}

func (r *Reader) readBytes() ([]byte, error) {
	b, n := protowire.ConsumeBytes(r.data[r.off:])
	if n < 0 {
		return nil, r.malformed("truncated length-prefixed data")
	}
	r.off += n
	return b, nil
}

func (r *Reader) enter() error {
	if r.depth >= r.maxDepth {
		return merr.WrapErrDepthLimitExceed(r.maxDepth)
	}
	r.depth++
	return nil
}

func (r *Reader) leave() {
	r.depth--
}

func (r *Reader) malformed(reason string) error {
	return merr.WrapErrMalformedWire(r.off, reason)
}

// Unmarshal 解码恰好一个 wire 值，存在多余字节时返回 ErrMalformedWire。
func Unmarshal(data []byte) (any, error) {
	r := NewReader(data)
	v, err := r.ReadObject()
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, r.malformed(fmt.Sprintf("%d trailing bytes", r.Remaining()))
	}
	return v, nil
}
