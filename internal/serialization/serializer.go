package serialization

import (
	"reflect"

	"github.com/lk2023060901/ledgerwire/internal/wire"
)

// Serializer 负责一种本地类型与其线上表示之间的转换。
//
// 实例绑定唯一的 Type 与 TypeDescriptor，不保存任何单次调用的状态，
// 可以被任意多个并发的编码/解码调用共享。
type Serializer interface {
	// Type 返回该 Serializer 处理的本地类型。
	Type() reflect.Type
	// TypeDescriptor 返回该类型稳定的线上标识。
	TypeDescriptor() TypeDescriptor
	// WriteClassInfo 向 out 的 schema 中登记该类型（及其依赖类型）的结构描述。
	WriteClassInfo(out *SerializationOutput) error
	// WriteObject 将 obj 写入 w，obj 的动态类型为 Type() 或其指针。
	WriteObject(obj any, w *wire.Writer, out *SerializationOutput) error
	// ReadObject 将解码得到的 wire 值转换为本地值。
	ReadObject(obj any, schema *Schema, in *DeserializationInput) (any, error)
}

// notationSerializer 由内置的非基本类型 Serializer 实现，
// 用于解码前与收到的 schema 做结构比对。
type notationSerializer interface {
	Serializer
	notation() TypeNotation
	// dependencies 返回结构中直接引用的类型，用于预热描述符索引。
	dependencies() []reflect.Type
	// gated 表示解码时是否需要经过白名单。
	gated() bool
}

// derefValue 剥离指针，nil 指针返回 false。
func derefValue(rv reflect.Value) (reflect.Value, bool) {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return rv, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}
