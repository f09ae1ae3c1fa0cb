package log

import (
	"reflect"

	"go.uber.org/zap"
)

const (
	FieldNameModule     = "module"
	FieldNameComponent  = "component"
	FieldNameDescriptor = "descriptor"
	FieldNameType       = "type"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldDescriptor 返回一个包含类型描述符的 zap 字段。
func FieldDescriptor(descriptor string) zap.Field {
	return zap.String(FieldNameDescriptor, descriptor)
}

// FieldType 返回一个包含 Go 类型名的 zap 字段。
func FieldType(t reflect.Type) zap.Field {
	if t == nil {
		return zap.String(FieldNameType, "<nil>")
	}
	return zap.Stringer(FieldNameType, t)
}
