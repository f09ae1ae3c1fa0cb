package wire

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// DefaultMaxDepth 为 List/Map/Described 嵌套的默认上限。
const DefaultMaxDepth = 64

// 时间戳以 UnixNano 编码，可表示的范围为 1677 至 2262 年。
var (
	minTimestamp = time.Unix(0, math.MinInt64)
	maxTimestamp = time.Unix(0, math.MaxInt64)
)

// Writer 将 wire 值追加到内部缓冲区。非并发安全，按一次编码调用使用。
type Writer struct {
	buf      []byte
	depth    int
	maxDepth int
}

// NewWriter 创建一个 Writer，buf 可传入可复用的缓冲区（长度会被截断为 0）。
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0], maxDepth: DefaultMaxDepth}
}

// Bytes 返回已写入的字节。返回的切片与 Writer 共享底层数组。
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len 返回已写入的字节数。
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutObject 按值的 Go 类型写入对应标签与值体。
//
// 原始 []byte 会被拒绝：字节序列必须由调用方显式包装为 Binary，
// 否则解码端无法区分不透明字节与其它复合编码。
func (w *Writer) PutObject(v any) error {
	switch x := v.(type) {
	case nil:
		w.putTag(TagNull)
	case bool:
		if x {
			w.putTag(TagTrue)
		} else {
			w.putTag(TagFalse)
		}
	case uint8:
		w.putTag(TagUbyte)
		w.buf = append(w.buf, x)
	case int8:
		w.putTag(TagByte)
		w.buf = append(w.buf, byte(x))
	case uint16:
		w.putUvarint(TagUshort, uint64(x))
	case int16:
		w.putVarint(TagShort, int64(x))
	case uint32:
		w.putUvarint(TagUint, uint64(x))
	case int32:
		w.putVarint(TagInt, int64(x))
	case uint64:
		w.putUvarint(TagUlong, x)
	case int64:
		w.putVarint(TagLong, x)
	case Char:
		if !utf8.ValidRune(rune(x)) {
			return merr.WrapErrParameterInvalidMsg("char %#x is not a valid unicode scalar value", int32(x))
		}
		w.putVarint(TagChar, int64(x))
	case time.Time:
		if x.Before(minTimestamp) || x.After(maxTimestamp) {
			return merr.WrapErrParameterInvalidMsg("timestamp %s outside the nanosecond range", x.UTC().Format(time.RFC3339))
		}
		w.putVarint(TagTimestamp, x.UnixNano())
	case float32:
		w.putTag(TagFloat)
		w.buf = protowire.AppendFixed32(w.buf, math.Float32bits(x))
	case float64:
		w.putTag(TagDouble)
		w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(x))
	case string:
		w.putTag(TagString)
		w.buf = protowire.AppendString(w.buf, x)
	case Symbol:
		w.putTag(TagSymbol)
		w.buf = protowire.AppendString(w.buf, string(x))
	case Binary:
		w.putTag(TagBinary)
		w.buf = protowire.AppendBytes(w.buf, x)
	case List:
		return w.PutList(x)
	case *Map:
		return w.PutMap(x)
	case *Described:
		return w.PutDescribed(x.Descriptor, x.Value)
	case []byte:
		return merr.WrapErrParameterInvalidMsg("raw []byte must be wrapped as wire.Binary")
	default:
		return merr.WrapErrParameterInvalidMsg("unsupported wire value %s", fmt.Sprintf("%T", v))
	}
	return nil
}

// PutList 写入一个 List。
func (w *Writer) PutList(items List) error {
	if err := w.BeginList(len(items)); err != nil {
		return err
	}
	defer w.End()

	for i := range items {
		if err := w.PutObject(items[i]); err != nil {
			return err
		}
	}
	return nil
}

// PutMap 写入一个 Map，nil 视为空 Map。
func (w *Writer) PutMap(m *Map) error {
	if err := w.BeginMap(m.Len()); err != nil {
		return err
	}
	defer w.End()

	for i := 0; i < m.Len(); i++ {
		if err := w.PutObject(m.Entries[i].Key); err != nil {
			return err
		}
		if err := w.PutObject(m.Entries[i].Value); err != nil {
			return err
		}
	}
	return nil
}

// PutDescribed 写入一个带描述符的值。
func (w *Writer) PutDescribed(descriptor, value any) error {
	if err := w.BeginDescribed(descriptor); err != nil {
		return err
	}
	defer w.End()

	return w.PutObject(value)
}

// BeginList 写入 List 头部，随后必须恰好写入 n 个值并调用 End。
func (w *Writer) BeginList(n int) error {
	if err := w.enter(); err != nil {
		return err
	}
	w.putUvarint(TagList, uint64(n))
	return nil
}

// BeginMap 写入 Map 头部，随后必须恰好写入 n 个键值对并调用 End。
func (w *Writer) BeginMap(n int) error {
	if err := w.enter(); err != nil {
		return err
	}
	w.putUvarint(TagMap, uint64(n))
	return nil
}

// BeginDescribed 写入描述符，随后必须恰好写入一个值并调用 End。
func (w *Writer) BeginDescribed(descriptor any) error {
	if err := w.enter(); err != nil {
		return err
	}
	w.putTag(TagDescribed)
	if err := w.PutObject(descriptor); err != nil {
		w.leave()
		return err
	}
	return nil
}

// End 结束最近一次 Begin* 打开的复合值。
func (w *Writer) End() {
	w.leave()
}

// PutEncoded 原样追加一个已编码的完整 wire 值。
func (w *Writer) PutEncoded(b []byte) {
	w.buf = append(w.buf, b...)
}

// Fork 返回一个继承当前嵌套深度的新 Writer，用于单独编码后再通过 PutEncoded 合并。
func (w *Writer) Fork() *Writer {
	return &Writer{depth: w.depth, maxDepth: w.maxDepth}
}

// SetMaxDepth 设置嵌套深度上限，n <= 0 时使用 DefaultMaxDepth。
func (w *Writer) SetMaxDepth(n int) {
	if n <= 0 {
		n = DefaultMaxDepth
	}
	w.maxDepth = n
}

func (w *Writer) enter() error {
	if w.depth >= w.maxDepth {
		return merr.WrapErrDepthLimitExceed(w.maxDepth)
	}
	w.depth++
	return nil
}

func (w *Writer) leave() {
	w.depth--
}

func (w *Writer) putTag(t Tag) {
	w.buf = append(w.buf, byte(t))
}

func (w *Writer) putUvarint(t Tag, v uint64) {
	w.putTag(t)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *Writer) putVarint(t Tag, v int64) {
	w.putTag(t)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

// Marshal 将单个 wire 值编码为字节。
func Marshal(v any) ([]byte, error) {
	w := NewWriter(nil)
	if err := w.PutObject(v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
