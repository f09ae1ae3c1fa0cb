package serialization

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// listSerializer 处理除字节序列以外的切片与定长数组：described(descriptor, list[elem...])。
// nil 切片写为 null；数组的长度记录在 notation 的 Source 中，解码时校验元素个数。
type listSerializer struct {
	t          reflect.Type
	descriptor TypeDescriptor
	typeNote   *RestrictedType
}

var _ notationSerializer = (*listSerializer)(nil)

func newListSerializer(f *Factory, t reflect.Type, descriptor TypeDescriptor) (*listSerializer, error) {
	elem, err := f.NameFor(t.Elem())
	if err != nil {
		return nil, err
	}
	source := SourceList
	if t.Kind() == reflect.Array {
		source = arraySource(t.Len())
	}
	return &listSerializer{
		t:          t,
		descriptor: descriptor,
		typeNote: &RestrictedType{
			TypeName:       TypeName(t),
			TypeDescriptor: descriptor,
			Source:         source,
			Requires:       []TypeDescriptor{elem},
		},
	}, nil
}

func (s *listSerializer) Type() reflect.Type             { return s.t }
func (s *listSerializer) TypeDescriptor() TypeDescriptor { return s.descriptor }
func (s *listSerializer) notation() TypeNotation         { return s.typeNote }
func (s *listSerializer) dependencies() []reflect.Type   { return []reflect.Type{s.t.Elem()} }
func (s *listSerializer) gated() bool                    { return false }

func (s *listSerializer) WriteClassInfo(out *SerializationOutput) error {
	recorded, err := out.WriteTypeNotation(s.typeNote)
	if err != nil || !recorded || s.t.Elem().Kind() == reflect.Interface {
		return err
	}
	_, err = out.RequireSerializer(s.t.Elem())
	return err
}

func (s *listSerializer) WriteObject(obj any, w *wire.Writer, out *SerializationOutput) error {
	rv, ok := derefValue(reflect.ValueOf(obj))
	if !ok || (rv.Kind() == reflect.Slice && rv.IsNil()) {
		return w.PutObject(nil)
	}
	if err := w.BeginDescribed(wire.Symbol(s.descriptor)); err != nil {
		return err
	}
	defer w.End()
	if err := w.BeginList(rv.Len()); err != nil {
		return err
	}
	defer w.End()

	elem := s.t.Elem()
	for i := 0; i < rv.Len(); i++ {
		if err := out.WriteObject(rv.Index(i).Interface(), elem, w); err != nil {
			return err
		}
	}
	return nil
}

func (s *listSerializer) ReadObject(obj any, _ *Schema, in *DeserializationInput) (any, error) {
	if obj == nil {
		return nil, nil
	}
	values, err := unwrapDescribed(obj, s.descriptor)
	if err != nil {
		return nil, err
	}
	var result reflect.Value
	if s.t.Kind() == reflect.Array {
		if len(values) != s.t.Len() {
			return nil, merr.WrapErrMalformedWireValue(
				fmt.Sprintf("%s expects %d elements, got %d", TypeName(s.t), s.t.Len(), len(values)), obj)
		}
		result = reflect.New(s.t).Elem()
	} else {
		result = reflect.MakeSlice(s.t, len(values), len(values))
	}
	for i := range values {
		v, err := in.ReadValue(values[i], s.t.Elem())
		if err != nil {
			return nil, err
		}
		result.Index(i).Set(v)
	}
	return result.Interface(), nil
}

// arraySource 返回定长数组 notation 的 Source，如 list[4]。
func arraySource(n int) string {
	return fmt.Sprintf("%s[%d]", SourceList, n)
}

// mapSerializer 处理 map：described(descriptor, map{key: value})。
// 键值对按键的编码字节排序，保证相同的 map 总是得到相同的字节。
type mapSerializer struct {
	t          reflect.Type
	descriptor TypeDescriptor
	typeNote   *RestrictedType
}

var _ notationSerializer = (*mapSerializer)(nil)

func newMapSerializer(f *Factory, t reflect.Type, descriptor TypeDescriptor) (*mapSerializer, error) {
	key, err := f.NameFor(t.Key())
	if err != nil {
		return nil, err
	}
	value, err := f.NameFor(t.Elem())
	if err != nil {
		return nil, err
	}
	return &mapSerializer{
		t:          t,
		descriptor: descriptor,
		typeNote: &RestrictedType{
			TypeName:       TypeName(t),
			TypeDescriptor: descriptor,
			Source:         SourceMap,
			Requires:       []TypeDescriptor{key, value},
		},
	}, nil
}

func (s *mapSerializer) Type() reflect.Type             { return s.t }
func (s *mapSerializer) TypeDescriptor() TypeDescriptor { return s.descriptor }
func (s *mapSerializer) notation() TypeNotation         { return s.typeNote }
func (s *mapSerializer) dependencies() []reflect.Type   { return []reflect.Type{s.t.Key(), s.t.Elem()} }
func (s *mapSerializer) gated() bool                    { return false }

func (s *mapSerializer) WriteClassInfo(out *SerializationOutput) error {
	recorded, err := out.WriteTypeNotation(s.typeNote)
	if err != nil || !recorded {
		return err
	}
	for _, t := range s.dependencies() {
		if t.Kind() == reflect.Interface {
			continue
		}
		if _, err := out.RequireSerializer(t); err != nil {
			return err
		}
	}
	return nil
}

type encodedEntry struct {
	key   []byte
	value []byte
}

func (s *mapSerializer) WriteObject(obj any, w *wire.Writer, out *SerializationOutput) error {
	rv, ok := derefValue(reflect.ValueOf(obj))
	if !ok || rv.IsNil() {
		return w.PutObject(nil)
	}
	if err := w.BeginDescribed(wire.Symbol(s.descriptor)); err != nil {
		return err
	}
	defer w.End()
	if err := w.BeginMap(rv.Len()); err != nil {
		return err
	}
	defer w.End()

	entries := make([]encodedEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		kw := w.Fork()
		if err := out.WriteObject(iter.Key().Interface(), s.t.Key(), kw); err != nil {
			return err
		}
		vw := w.Fork()
		if err := out.WriteObject(iter.Value().Interface(), s.t.Elem(), vw); err != nil {
			return err
		}
		entries = append(entries, encodedEntry{key: kw.Bytes(), value: vw.Bytes()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
	for _, e := range entries {
		w.PutEncoded(e.key)
		w.PutEncoded(e.value)
	}
	return nil
}

func (s *mapSerializer) ReadObject(obj any, _ *Schema, in *DeserializationInput) (any, error) {
	if obj == nil {
		return nil, nil
	}
	d, ok := obj.(*wire.Described)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue(fmt.Sprintf("expected described %s", s.descriptor), obj)
	}
	if got, _ := d.DescriptorString(); TypeDescriptor(got) != s.descriptor {
		return nil, merr.WrapErrMalformedWireValue(
			fmt.Sprintf("descriptor %s does not match expected %s", got, s.descriptor), obj)
	}
	m, ok := d.Value.(*wire.Map)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue("expected map", d.Value)
	}

	result := reflect.MakeMapWithSize(s.t, m.Len())
	for _, e := range m.Entries {
		k, err := in.ReadValue(e.Key, s.t.Key())
		if err != nil {
			return nil, err
		}
		if k.Kind() == reflect.Interface && !k.IsNil() && !k.Elem().Type().Comparable() {
			return nil, merr.WrapErrMalformedWireValue("map key is not comparable", e.Key)
		}
		if result.MapIndex(k).IsValid() {
			return nil, merr.WrapErrMalformedWireValue("duplicate map key", e.Key)
		}
		v, err := in.ReadValue(e.Value, s.t.Elem())
		if err != nil {
			return nil, err
		}
		result.SetMapIndex(k, v)
	}
	return result.Interface(), nil
}
