package serialization

import (
	"reflect"
	"time"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// primitiveSerializer 处理 wire 格式原生支持的原子值。
// 基本类型的结构由 wire 标签本身决定，不需要 schema 片段。
type primitiveSerializer struct {
	t    reflect.Type
	name string
}

var _ Serializer = (*primitiveSerializer)(nil)

func newPrimitiveSerializer(t reflect.Type, name string) *primitiveSerializer {
	return &primitiveSerializer{t: t, name: name}
}

func (s *primitiveSerializer) Type() reflect.Type {
	return s.t
}

func (s *primitiveSerializer) TypeDescriptor() TypeDescriptor {
	return TypeDescriptor(s.name)
}

// WriteClassInfo 对基本类型是空操作。
func (s *primitiveSerializer) WriteClassInfo(*SerializationOutput) error {
	return nil
}

// WriteObject 写入基本类型的值。字节序列总是先包装为 wire.Binary。
func (s *primitiveSerializer) WriteObject(obj any, w *wire.Writer, _ *SerializationOutput) error {
	rv, ok := derefValue(reflect.ValueOf(obj))
	if !ok {
		return w.PutObject(nil)
	}
	v, err := s.toWire(rv)
	if err != nil {
		return err
	}
	return w.PutObject(v)
}

// ReadObject 将 wire.Binary 还原为 []byte，其余 wire 值原样返回。
func (s *primitiveSerializer) ReadObject(obj any, _ *Schema, _ *DeserializationInput) (any, error) {
	return unwrapPrimitive(obj), nil
}

func unwrapPrimitive(obj any) any {
	if b, ok := obj.(wire.Binary); ok {
		return []byte(b)
	}
	return obj
}

func (s *primitiveSerializer) toWire(rv reflect.Value) (any, error) {
	switch s.name {
	case "binary":
		if rv.Kind() == reflect.Array {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return wire.Binary(b), nil
		}
		return wire.Binary(rv.Bytes()), nil
	case "timestamp":
		return rv.Interface().(time.Time), nil
	case "char":
		return wire.Char(rv.Int()), nil
	case "symbol":
		return wire.Symbol(rv.String()), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int8:
		return int8(rv.Int()), nil
	case reflect.Int16:
		return int16(rv.Int()), nil
	case reflect.Int32:
		return int32(rv.Int()), nil
	case reflect.Int, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint8:
		return uint8(rv.Uint()), nil
	case reflect.Uint16:
		return uint16(rv.Uint()), nil
	case reflect.Uint32:
		return uint32(rv.Uint()), nil
	case reflect.Uint, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32:
		return float32(rv.Float()), nil
	case reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, merr.WrapErrUnknownType(rv.Type().String(), "no primitive mapping")
}
