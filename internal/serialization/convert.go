package serialization

import (
	"fmt"
	"reflect"

	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// convertValue 将 ReadObject 的结果转换为目标类型。
// 数值在同一符号类别内按目标位宽检查溢出，命名类型按底层类型转换。
func convertValue(x any, t reflect.Type) (reflect.Value, error) {
	if x == nil {
		if isNullable(t) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, merr.WrapErrMalformedWireValue(fmt.Sprintf("null is not assignable to %s", t), x)
	}

	rv := reflect.ValueOf(x)
	if rv.Type() == t {
		return rv, nil
	}
	if b, ok := x.([]byte); ok && isByteSequence(t) {
		return convertBytes(b, t)
	}
	out := reflect.New(t).Elem()
	switch {
	case isSigned(rv.Kind()) && isSigned(t.Kind()):
		if out.OverflowInt(rv.Int()) {
			return reflect.Value{}, overflowError(x, t)
		}
		out.SetInt(rv.Int())
		return out, nil
	case isUnsigned(rv.Kind()) && isUnsigned(t.Kind()):
		if out.OverflowUint(rv.Uint()) {
			return reflect.Value{}, overflowError(x, t)
		}
		out.SetUint(rv.Uint())
		return out, nil
	case isFloat(rv.Kind()) && isFloat(t.Kind()):
		if out.OverflowFloat(rv.Float()) {
			return reflect.Value{}, overflowError(x, t)
		}
		out.SetFloat(rv.Float())
		return out, nil
	case rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t):
		return rv.Convert(t), nil
	}
	return reflect.Value{}, merr.WrapErrMalformedWireValue(fmt.Sprintf("value is not assignable to %s", t), x)
}

// convertBytes 将解码得到的字节复制到命名字节切片或定长字节数组中，数组要求长度一致。
func convertBytes(b []byte, t reflect.Type) (reflect.Value, error) {
	var out reflect.Value
	if t.Kind() == reflect.Array {
		if len(b) != t.Len() {
			return reflect.Value{}, merr.WrapErrMalformedWireValue(
				fmt.Sprintf("binary of %d bytes does not fit %s", len(b), t), b)
		}
		out = reflect.New(t).Elem()
	} else {
		out = reflect.MakeSlice(t, len(b), len(b))
	}
	for i, c := range b {
		out.Index(i).SetUint(uint64(c))
	}
	return out, nil
}

// assignInterface 将动态解码的值放入接口类型，必要时取地址以满足指针接收者方法。
func assignInterface(x any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if x == nil {
		return out, nil
	}
	rv := reflect.ValueOf(x)
	if rv.Type().AssignableTo(t) {
		out.Set(rv)
		return out, nil
	}
	if reflect.PointerTo(rv.Type()).AssignableTo(t) {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		out.Set(p)
		return out, nil
	}
	return reflect.Value{}, merr.WrapErrMalformedWireValue(fmt.Sprintf("value does not implement %s", t), x)
}

func overflowError(x any, t reflect.Type) error {
	return merr.WrapErrMalformedWireValue(fmt.Sprintf("value %v overflows %s", x, t), x)
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
