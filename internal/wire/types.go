// Package wire 实现 ledgerwire 的自描述标签值编码。
//
// 每个值都以一个字节的类型标签开头，紧跟该类型的值体：
//
//	null | true | false                 仅标签
//	ubyte | byte                        1 字节
//	ushort | short | uint | int         varint（有符号类型使用 zigzag）
//	ulong | long | char | timestamp     varint（有符号类型使用 zigzag）
//	float | double                      小端定长 4/8 字节
//	binary | string | symbol            varint 长度 + 原始字节
//	list                                varint 元素个数 + 元素
//	map                                 varint 键值对个数 + (键, 值)*
//	described                           描述符值 + 被描述值
//
// 解码结果使用下列 Go 类型表示：nil、bool、int8..int64、uint8..uint64、
// float32、float64、string、Char、time.Time、Symbol、Binary、List、*Map、*Described。
// 原始的 []byte 不属于 wire 值，写入时必须先包装为 Binary。
package wire

import (
	"time"
)

// Tag 为 wire 值的类型标签。
type Tag byte

const (
	TagDescribed Tag = 0x00
	TagNull      Tag = 0x40
	TagTrue      Tag = 0x41
	TagFalse     Tag = 0x42
	TagUbyte     Tag = 0x50
	TagByte      Tag = 0x51
	TagUshort    Tag = 0x60
	TagShort     Tag = 0x61
	TagUint      Tag = 0x70
	TagInt       Tag = 0x71
	TagFloat     Tag = 0x72
	TagChar      Tag = 0x73
	TagUlong     Tag = 0x80
	TagLong      Tag = 0x81
	TagDouble    Tag = 0x82
	TagTimestamp Tag = 0x83
	TagBinary    Tag = 0xa0
	TagString    Tag = 0xa1
	TagSymbol    Tag = 0xa3
	TagList      Tag = 0xd0
	TagMap       Tag = 0xd1
)

var tagNames = map[Tag]string{
	TagDescribed: "described",
	TagNull:      "null",
	TagTrue:      "true",
	TagFalse:     "false",
	TagUbyte:     "ubyte",
	TagByte:      "byte",
	TagUshort:    "ushort",
	TagShort:     "short",
	TagUint:      "uint",
	TagInt:       "int",
	TagFloat:     "float",
	TagChar:      "char",
	TagUlong:     "ulong",
	TagLong:      "long",
	TagDouble:    "double",
	TagTimestamp: "timestamp",
	TagBinary:    "binary",
	TagString:    "string",
	TagSymbol:    "symbol",
	TagList:      "list",
	TagMap:       "map",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// Binary 是不透明字节序列的 wire 表示。
// 与 List/Described 等复合编码不同，它只能被解码为原始字节。
type Binary []byte

// Symbol 是 ASCII 符号，主要用作描述符。
type Symbol string

// Char 是单个 Unicode 码点。
type Char rune

// List 是有序的 wire 值序列。
type List []any

// MapEntry 是 Map 中的一个键值对。
type MapEntry struct {
	Key   any
	Value any
}

// Map 保留写入顺序，编码结果因此是确定的。
type Map struct {
	Entries []MapEntry
}

// Put 追加一个键值对，不检查重复键。
func (m *Map) Put(key, value any) {
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

// Len 返回键值对个数。
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// Described 是带描述符的值，描述符通常为 Symbol。
type Described struct {
	Descriptor any
	Value      any
}

// DescriptorString 返回字符串形式的描述符；描述符不是 Symbol/string 时返回 false。
func (d *Described) DescriptorString() (string, bool) {
	switch v := d.Descriptor.(type) {
	case Symbol:
		return string(v), true
	case string:
		return v, true
	}
	return "", false
}

// timestampOf 将 wire 中的纳秒时间戳转换为 UTC 时间。
func timestampOf(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}
