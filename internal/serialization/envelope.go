package serialization

import (
	"bytes"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// ProtocolVersion 为当前的线上协议版本。
// 基本类型名称、指纹算法与 envelope 布局任一变化都需要提升主版本。
var ProtocolVersion = semver.MustParse("1.0.0")

const preambleSize = 8

var magic = []byte("LWIR")

// Envelope 是对端之间交换的单元：payload 字节与其引用类型的 Schema。
// 构造后不再修改。
type Envelope struct {
	payload []byte
	schema  *Schema
}

// NewEnvelope 构造 Envelope，payload 会被拷贝，schema 为 nil 时视为空。
func NewEnvelope(payload []byte, schema *Schema) *Envelope {
	if schema == nil {
		schema = NewSchemaAccumulator().Schema()
	}
	return &Envelope{payload: bytes.Clone(payload), schema: schema}
}

// Payload 返回编码后的根值，调用方不得修改。
func (e *Envelope) Payload() []byte {
	return e.payload
}

func (e *Envelope) Schema() *Schema {
	return e.schema
}

// Marshal 编码为线上字节：8 字节前导（magic、主版本、次版本、2 字节保留），
// 随后是 described(envelope, list[binary(payload), schema])。
func (e *Envelope) Marshal() ([]byte, error) {
	w := wire.NewWriter(make([]byte, 0, preambleSize+len(e.payload)+64))
	w.PutEncoded(magic)
	w.PutEncoded([]byte{byte(ProtocolVersion.Major), byte(ProtocolVersion.Minor), 0, 0})
	if err := w.PutDescribed(descriptorEnvelope, wire.List{wire.Binary(e.payload), e.schema.toWire()}); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalEnvelope 解析线上字节。只接受相同主版本且不高于本地版本的数据。
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	if len(data) < preambleSize {
		return nil, merr.WrapErrMalformedWire(len(data), "truncated envelope preamble")
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, merr.WrapErrMalformedWire(0, "bad envelope magic")
	}
	version := semver.Version{Major: uint64(data[4]), Minor: uint64(data[5])}
	if version.Major != ProtocolVersion.Major || version.GT(ProtocolVersion) {
		return nil, merr.WrapErrProtocolVersion(version.String(), ProtocolVersion.String())
	}
	if data[6] != 0 || data[7] != 0 {
		return nil, merr.WrapErrMalformedWire(6, "reserved preamble bytes must be zero")
	}

	body, err := wire.Unmarshal(data[preambleSize:])
	if err != nil {
		return nil, err
	}
	items, err := expectDescribed(body, descriptorEnvelope)
	if err != nil {
		return nil, err
	}
	if len(items) != 2 {
		return nil, merr.WrapErrMalformedWireValue("envelope must have 2 elements", items)
	}
	payload, ok := items[0].(wire.Binary)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue("envelope payload must be binary", items[0])
	}
	schema, err := decodeSchema(items[1])
	if err != nil {
		return nil, err
	}
	return &Envelope{payload: []byte(payload), schema: schema}, nil
}
