package serialization

import (
	"fmt"
	"reflect"

	"github.com/samber/lo"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// enumSerializer 编码为 described(descriptor, list[name, ordinal])。
// 解码时按名称查找常量，并要求序号与本地定义一致。
type enumSerializer struct {
	t          reflect.Type
	descriptor TypeDescriptor
	values     []string
	typeNote   *RestrictedType
}

var _ notationSerializer = (*enumSerializer)(nil)

func newEnumSerializer(t reflect.Type, descriptor TypeDescriptor) *enumSerializer {
	values := reflect.Zero(t).Interface().(Enum).EnumValues()
	return &enumSerializer{
		t:          t,
		descriptor: descriptor,
		values:     values,
		typeNote: &RestrictedType{
			TypeName:       TypeName(t),
			TypeDescriptor: descriptor,
			Source:         SourceEnum,
			Choices: lo.Map(values, func(name string, i int) Choice {
				return Choice{Name: name, Value: int64(i)}
			}),
		},
	}
}

func (s *enumSerializer) Type() reflect.Type             { return s.t }
func (s *enumSerializer) TypeDescriptor() TypeDescriptor { return s.descriptor }
func (s *enumSerializer) notation() TypeNotation         { return s.typeNote }
func (s *enumSerializer) dependencies() []reflect.Type   { return nil }
func (s *enumSerializer) gated() bool                    { return true }

func (s *enumSerializer) WriteClassInfo(out *SerializationOutput) error {
	_, err := out.WriteTypeNotation(s.typeNote)
	return err
}

func (s *enumSerializer) WriteObject(obj any, w *wire.Writer, _ *SerializationOutput) error {
	rv, ok := derefValue(reflect.ValueOf(obj))
	if !ok {
		return w.PutObject(nil)
	}
	ordinal := s.ordinalOf(rv)
	if ordinal < 0 || ordinal >= int64(len(s.values)) {
		return merr.WrapErrParameterInvalidMsg("enum %s has no constant with value %d", TypeName(s.t), ordinal)
	}
	return w.PutDescribed(wire.Symbol(s.descriptor), wire.List{s.values[ordinal], ordinal})
}

func (s *enumSerializer) ReadObject(obj any, _ *Schema, _ *DeserializationInput) (any, error) {
	if obj == nil {
		return nil, nil
	}
	values, err := unwrapDescribed(obj, s.descriptor)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, merr.WrapErrMalformedWireValue("enum must have 2 elements", obj)
	}
	name, err := expectString(values[0])
	if err != nil {
		return nil, err
	}
	ordinal, ok := values[1].(int64)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue("enum ordinal must be long", values[1])
	}
	idx := lo.IndexOf(s.values, name)
	if idx < 0 || int64(idx) != ordinal {
		return nil, merr.WrapErrMalformedWireValue(
			fmt.Sprintf("enum %s has no constant %s(%d)", TypeName(s.t), name, ordinal), obj)
	}

	result := reflect.New(s.t).Elem()
	switch s.t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		result.SetUint(uint64(idx))
	default:
		result.SetInt(int64(idx))
	}
	return result.Interface(), nil
}

func (s *enumSerializer) ordinalOf(rv reflect.Value) int64 {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > uint64(len(s.values)) {
			return -1
		}
		return int64(u)
	}
	return rv.Int()
}
