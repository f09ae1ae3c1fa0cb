package serialization

import (
	"fmt"
	"reflect"

	"github.com/samber/lo"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

type fieldInfo struct {
	name       string
	index      int
	typ        reflect.Type
	descriptor TypeDescriptor
}

// compositeSerializer 按声明顺序编码结构体的导出字段：
// described(descriptor, list[field...])。
type compositeSerializer struct {
	t          reflect.Type
	descriptor TypeDescriptor
	fields     []fieldInfo
	typeNote   *CompositeType
}

var _ notationSerializer = (*compositeSerializer)(nil)

func newCompositeSerializer(f *Factory, t reflect.Type, descriptor TypeDescriptor) (*compositeSerializer, error) {
	s := &compositeSerializer{t: t, descriptor: descriptor}
	note := &CompositeType{TypeName: TypeName(t), TypeDescriptor: descriptor}
	for _, field := range structFields(t) {
		fd, err := f.NameFor(field.Type)
		if err != nil {
			return nil, err
		}
		s.fields = append(s.fields, fieldInfo{
			name:       field.Name,
			index:      field.Index[0],
			typ:        field.Type,
			descriptor: fd,
		})
		note.Fields = append(note.Fields, Field{Name: field.Name, Type: fd, Nullable: isNullable(field.Type)})
	}
	s.typeNote = note
	return s, nil
}

func (s *compositeSerializer) Type() reflect.Type             { return s.t }
func (s *compositeSerializer) TypeDescriptor() TypeDescriptor { return s.descriptor }
func (s *compositeSerializer) notation() TypeNotation         { return s.typeNote }
func (s *compositeSerializer) gated() bool                    { return true }

func (s *compositeSerializer) dependencies() []reflect.Type {
	return lo.Map(s.fields, func(f fieldInfo, _ int) reflect.Type { return f.typ })
}

func (s *compositeSerializer) WriteClassInfo(out *SerializationOutput) error {
	recorded, err := out.WriteTypeNotation(s.typeNote)
	if err != nil || !recorded {
		return err
	}
	for _, f := range s.fields {
		if f.typ.Kind() == reflect.Interface {
			continue
		}
		if _, err := out.RequireSerializer(f.typ); err != nil {
			return err
		}
	}
	return nil
}

func (s *compositeSerializer) WriteObject(obj any, w *wire.Writer, out *SerializationOutput) error {
	rv, ok := derefValue(reflect.ValueOf(obj))
	if !ok {
		return w.PutObject(nil)
	}
	if err := w.BeginDescribed(wire.Symbol(s.descriptor)); err != nil {
		return err
	}
	defer w.End()
	if err := w.BeginList(len(s.fields)); err != nil {
		return err
	}
	defer w.End()

	for _, f := range s.fields {
		if err := out.WriteObject(rv.Field(f.index).Interface(), f.typ, w); err != nil {
			return err
		}
	}
	return nil
}

func (s *compositeSerializer) ReadObject(obj any, _ *Schema, in *DeserializationInput) (any, error) {
	if obj == nil {
		return nil, nil
	}
	values, err := unwrapDescribed(obj, s.descriptor)
	if err != nil {
		return nil, err
	}
	if len(values) != len(s.fields) {
		return nil, merr.WrapErrMalformedWireValue(
			fmt.Sprintf("%s expects %d fields, got %d", TypeName(s.t), len(s.fields), len(values)), obj)
	}

	result := reflect.New(s.t).Elem()
	for i, f := range s.fields {
		v, err := in.ReadValue(values[i], f.typ)
		if err != nil {
			return nil, err
		}
		result.Field(f.index).Set(v)
	}
	return result.Interface(), nil
}

// unwrapDescribed 校验 obj 为指定描述符的 described list。
func unwrapDescribed(obj any, descriptor TypeDescriptor) (wire.List, error) {
	d, ok := obj.(*wire.Described)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue(fmt.Sprintf("expected described %s", descriptor), obj)
	}
	got, _ := d.DescriptorString()
	if TypeDescriptor(got) != descriptor {
		return nil, merr.WrapErrMalformedWireValue(
			fmt.Sprintf("descriptor %s does not match expected %s", got, descriptor), obj)
	}
	return expectList(d.Value, -1)
}
