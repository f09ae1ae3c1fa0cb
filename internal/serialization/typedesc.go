// Package serialization 实现带 schema 的自描述序列化核心。
//
// 每个编码结果（Envelope）都携带 payload 中引用到的全部非基本类型的结构描述，
// 接收方在实例化任何对象之前即可校验结构、拒绝被篡改或被替换的类型。
package serialization

import (
	"encoding/base64"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/lk2023060901/ledgerwire/internal/wire"
)

// TypeDescriptor 是类型在线上的规范标识。
type TypeDescriptor string

func (d TypeDescriptor) String() string {
	return string(d)
}

const (
	// DescriptorPrefix 为指纹派生描述符的前缀。
	DescriptorPrefix = "ledgerwire:"

	// DynamicDescriptor 用于接口类型字段，实际类型在写入时确定。
	DynamicDescriptor TypeDescriptor = "any"
)

// Enum 由整数底层类型实现。EnumValues 按序返回全部常量名，下标即常量的数值。
type Enum interface {
	EnumValues() []string
}

var (
	enumType   = reflect.TypeOf((*Enum)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
	charType   = reflect.TypeOf(wire.Char(0))
	symbolType = reflect.TypeOf(wire.Symbol(""))
	binaryType = reflect.TypeOf(wire.Binary(nil))
)

// PrimitiveTypeName 返回基本类型的固定名称，非基本类型返回 false。
//
// 名称属于协议的一部分，修改需要提升协议主版本。
// 命名类型按其底层 Kind 归类（type Amount int64 与 int64 同名），
// 实现了 Enum 的整数类型不属于基本类型。
func PrimitiveTypeName(t reflect.Type) (string, bool) {
	switch t {
	case timeType:
		return "timestamp", true
	case charType:
		return "char", true
	case symbolType:
		return "symbol", true
	case binaryType:
		return "binary", true
	}
	if isEnum(t) {
		return "", false
	}

	switch t.Kind() {
	case reflect.Bool:
		return "boolean", true
	case reflect.Int8:
		return "byte", true
	case reflect.Uint8:
		return "ubyte", true
	case reflect.Int16:
		return "short", true
	case reflect.Uint16:
		return "ushort", true
	case reflect.Int32:
		return "int", true
	case reflect.Uint32:
		return "uint", true
	case reflect.Int, reflect.Int64:
		return "long", true
	case reflect.Uint, reflect.Uint64:
		return "ulong", true
	case reflect.Float32:
		return "float", true
	case reflect.Float64:
		return "double", true
	case reflect.String:
		return "string", true
	case reflect.Slice, reflect.Array:
		if isByteSequence(t) {
			return "binary", true
		}
	}
	return "", false
}

// isByteSequence 判断 t 是否为以 uint8 为元素的切片或定长数组（如 [32]byte 哈希）。
func isByteSequence(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() == reflect.Uint8 && !isEnum(t.Elem())
	}
	return false
}

func isEnum(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return t.Implements(enumType)
	}
	return false
}

// TypeName 返回类型的限定名，用于 schema 与白名单。
// 命名类型为 "包路径.类型名"，其余类型使用 reflect 的字符串表示。
func TypeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func descriptorFromFingerprint(fingerprint string) TypeDescriptor {
	sum := blake3.Sum256([]byte(fingerprint))
	return TypeDescriptor(DescriptorPrefix + base64.RawURLEncoding.EncodeToString(sum[:]))
}

// fingerprinter 计算类型的结构指纹。
// 指纹覆盖类型名与完整结构，递归类型通过 ref(name) 截断。
type fingerprinter struct {
	f     *Factory
	b     strings.Builder
	stack map[reflect.Type]bool
}

func (fp *fingerprinter) write(t reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := fp.f.registered.Get(t); ok {
		fp.b.WriteString("ext(" + string(s.TypeDescriptor()) + ")")
		return nil
	}
	if name, ok := PrimitiveTypeName(t); ok {
		fp.b.WriteString(name)
		return nil
	}

	if fp.stack[t] {
		fp.b.WriteString("ref(" + TypeName(t) + ")")
		return nil
	}
	fp.stack[t] = true
	defer delete(fp.stack, t)

	switch {
	case isEnum(t):
		values := reflect.Zero(t).Interface().(Enum).EnumValues()
		fp.b.WriteString("enum(" + TypeName(t) + "{" + strings.Join(values, ",") + "})")
		return nil
	case t.Kind() == reflect.Interface:
		fp.b.WriteString(string(DynamicDescriptor))
		return nil
	case t.Kind() == reflect.Slice:
		fp.b.WriteString("list(" + TypeName(t) + ":")
		if err := fp.write(t.Elem()); err != nil {
			return err
		}
		fp.b.WriteString(")")
		return nil
	case t.Kind() == reflect.Array:
		fp.b.WriteString("array(" + TypeName(t) + ":" + strconv.Itoa(t.Len()) + ":")
		if err := fp.write(t.Elem()); err != nil {
			return err
		}
		fp.b.WriteString(")")
		return nil
	case t.Kind() == reflect.Map:
		fp.b.WriteString("map(" + TypeName(t) + ":")
		if err := fp.write(t.Key()); err != nil {
			return err
		}
		fp.b.WriteString(",")
		if err := fp.write(t.Elem()); err != nil {
			return err
		}
		fp.b.WriteString(")")
		return nil
	case t.Kind() == reflect.Struct:
		fp.b.WriteString("struct(" + TypeName(t) + "{")
		for _, field := range structFields(t) {
			fp.b.WriteString(field.Name + ":")
			if err := fp.write(field.Type); err != nil {
				return err
			}
			if isNullable(field.Type) {
				fp.b.WriteString("?")
			}
			fp.b.WriteString(";")
		}
		fp.b.WriteString("})")
		return nil
	}
	return unknownTypeError(t)
}

func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

// structFields 返回参与序列化的字段：导出且未标记 `ledgerwire:"-"`。
func structFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("ledgerwire") == "-" {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}
