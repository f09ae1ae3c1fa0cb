package serialization

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// schema 自身在线上使用的固定描述符。
const (
	descriptorEnvelope   wire.Symbol = DescriptorPrefix + "envelope"
	descriptorSchema     wire.Symbol = DescriptorPrefix + "schema"
	descriptorComposite  wire.Symbol = DescriptorPrefix + "composite"
	descriptorRestricted wire.Symbol = DescriptorPrefix + "restricted"
	descriptorField      wire.Symbol = DescriptorPrefix + "field"
	descriptorChoice     wire.Symbol = DescriptorPrefix + "choice"
)

// RestrictedType 的来源。
const (
	SourceList = "list"
	SourceMap  = "map"
	SourceEnum = "enum"
)

// TypeNotation 是 schema 中一个类型的结构描述。
type TypeNotation interface {
	Name() string
	Descriptor() TypeDescriptor
	Equal(other TypeNotation) bool
	toWire() *wire.Described
}

// Field 描述复合类型的一个字段，Type 为字段类型的描述符。
type Field struct {
	Name     string
	Type     TypeDescriptor
	Nullable bool
}

// CompositeType 描述一个结构体，字段按声明顺序排列。
type CompositeType struct {
	TypeName       string
	TypeDescriptor TypeDescriptor
	Fields         []Field
}

var _ TypeNotation = (*CompositeType)(nil)

func (c *CompositeType) Name() string               { return c.TypeName }
func (c *CompositeType) Descriptor() TypeDescriptor { return c.TypeDescriptor }

func (c *CompositeType) Equal(other TypeNotation) bool {
	o, ok := other.(*CompositeType)
	if !ok {
		return false
	}
	return c.TypeName == o.TypeName &&
		c.TypeDescriptor == o.TypeDescriptor &&
		slices.Equal(c.Fields, o.Fields)
}

func (c *CompositeType) toWire() *wire.Described {
	fields := lo.Map(c.Fields, func(f Field, _ int) any {
		return &wire.Described{
			Descriptor: descriptorField,
			Value:      wire.List{f.Name, wire.Symbol(f.Type), f.Nullable},
		}
	})
	return &wire.Described{
		Descriptor: descriptorComposite,
		Value:      wire.List{c.TypeName, wire.Symbol(c.TypeDescriptor), wire.List(fields)},
	}
}

// Choice 是枚举的一个常量。
type Choice struct {
	Name  string
	Value int64
}

// RestrictedType 描述基于内置形态的类型：列表、映射或枚举。
// Requires 为其元素（键、值）类型的描述符。
type RestrictedType struct {
	TypeName       string
	TypeDescriptor TypeDescriptor
	Source         string
	Requires       []TypeDescriptor
	Choices        []Choice
}

var _ TypeNotation = (*RestrictedType)(nil)

func (r *RestrictedType) Name() string               { return r.TypeName }
func (r *RestrictedType) Descriptor() TypeDescriptor { return r.TypeDescriptor }

func (r *RestrictedType) Equal(other TypeNotation) bool {
	o, ok := other.(*RestrictedType)
	if !ok {
		return false
	}
	return r.TypeName == o.TypeName &&
		r.TypeDescriptor == o.TypeDescriptor &&
		r.Source == o.Source &&
		slices.Equal(r.Requires, o.Requires) &&
		slices.Equal(r.Choices, o.Choices)
}

func (r *RestrictedType) toWire() *wire.Described {
	requires := lo.Map(r.Requires, func(d TypeDescriptor, _ int) any { return wire.Symbol(d) })
	choices := lo.Map(r.Choices, func(c Choice, _ int) any {
		return &wire.Described{Descriptor: descriptorChoice, Value: wire.List{c.Name, c.Value}}
	})
	return &wire.Described{
		Descriptor: descriptorRestricted,
		Value: wire.List{
			r.TypeName, wire.Symbol(r.TypeDescriptor), r.Source,
			wire.List(requires), wire.List(choices),
		},
	}
}

// Schema 是有序且去重的类型描述集合，构造后不再修改。
type Schema struct {
	types []TypeNotation
	index map[TypeDescriptor]int
}

// NewSchema 由类型描述构造 Schema，相同描述符的不同定义返回 ErrSchemaConflict。
func NewSchema(types ...TypeNotation) (*Schema, error) {
	acc := NewSchemaAccumulator()
	for _, t := range types {
		if _, err := acc.RecordIfAbsent(t); err != nil {
			return nil, err
		}
	}
	return acc.Schema(), nil
}

// Types 返回类型描述的副本。
func (s *Schema) Types() []TypeNotation {
	if s == nil {
		return nil
	}
	return slices.Clone(s.types)
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.types)
}

// Lookup 按描述符查找类型描述。
func (s *Schema) Lookup(d TypeDescriptor) (TypeNotation, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[d]
	if !ok {
		return nil, false
	}
	return s.types[i], true
}

func (s *Schema) Contains(d TypeDescriptor) bool {
	_, ok := s.Lookup(d)
	return ok
}

func (s *Schema) toWire() *wire.Described {
	items := make(wire.List, 0, s.Len())
	for _, t := range s.Types() {
		items = append(items, t.toWire())
	}
	return &wire.Described{Descriptor: descriptorSchema, Value: items}
}

// SchemaAccumulator 在一次编码或解码调用内收集类型描述。非并发安全。
type SchemaAccumulator struct {
	types []TypeNotation
	index map[TypeDescriptor]int
}

func NewSchemaAccumulator() *SchemaAccumulator {
	return &SchemaAccumulator{index: make(map[TypeDescriptor]int)}
}

// RecordIfAbsent 登记一个类型描述，返回是否为首次登记。
// 相同描述符的等价定义重复登记是空操作，不同定义返回 ErrSchemaConflict。
func (a *SchemaAccumulator) RecordIfAbsent(n TypeNotation) (bool, error) {
	d := n.Descriptor()
	if i, ok := a.index[d]; ok {
		if a.types[i].Equal(n) {
			return false, nil
		}
		return false, merr.WrapErrSchemaConflict(string(d),
			fmt.Sprintf("%s conflicts with %s", n.Name(), a.types[i].Name()))
	}
	a.index[d] = len(a.types)
	a.types = append(a.types, n)
	return true, nil
}

func (a *SchemaAccumulator) Contains(d TypeDescriptor) bool {
	_, ok := a.index[d]
	return ok
}

func (a *SchemaAccumulator) Len() int {
	return len(a.types)
}

// Schema 返回当前内容的快照。
func (a *SchemaAccumulator) Schema() *Schema {
	index := make(map[TypeDescriptor]int, len(a.index))
	for k, v := range a.index {
		index[k] = v
	}
	return &Schema{types: slices.Clone(a.types), index: index}
}

// decodeSchema 从 wire 值还原 Schema，并执行与编码端相同的去重与冲突检查。
func decodeSchema(v any) (*Schema, error) {
	items, err := expectDescribed(v, descriptorSchema)
	if err != nil {
		return nil, err
	}
	acc := NewSchemaAccumulator()
	for _, item := range items {
		n, err := decodeNotation(item)
		if err != nil {
			return nil, err
		}
		if _, err := acc.RecordIfAbsent(n); err != nil {
			return nil, err
		}
	}
	return acc.Schema(), nil
}

func decodeNotation(v any) (TypeNotation, error) {
	d, ok := v.(*wire.Described)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue("type notation must be described", v)
	}
	switch d.Descriptor {
	case descriptorComposite:
		return decodeComposite(d)
	case descriptorRestricted:
		return decodeRestricted(d)
	}
	return nil, merr.WrapErrMalformedWireValue("unknown type notation", d.Descriptor)
}

func decodeComposite(d *wire.Described) (*CompositeType, error) {
	body, err := expectList(d.Value, 3)
	if err != nil {
		return nil, err
	}
	c := &CompositeType{}
	if c.TypeName, err = expectString(body[0]); err != nil {
		return nil, err
	}
	if c.TypeDescriptor, err = expectDescriptor(body[1]); err != nil {
		return nil, err
	}
	fields, err := expectList(body[2], -1)
	if err != nil {
		return nil, err
	}
	for _, item := range fields {
		raw, err := expectDescribed(item, descriptorField)
		if err != nil {
			return nil, err
		}
		if len(raw) != 3 {
			return nil, merr.WrapErrMalformedWireValue("field must have 3 elements", raw)
		}
		var f Field
		if f.Name, err = expectString(raw[0]); err != nil {
			return nil, err
		}
		if f.Type, err = expectDescriptor(raw[1]); err != nil {
			return nil, err
		}
		nullable, ok := raw[2].(bool)
		if !ok {
			return nil, merr.WrapErrMalformedWireValue("field nullability must be boolean", raw[2])
		}
		f.Nullable = nullable
		c.Fields = append(c.Fields, f)
	}
	return c, nil
}

func decodeRestricted(d *wire.Described) (*RestrictedType, error) {
	body, err := expectList(d.Value, 5)
	if err != nil {
		return nil, err
	}
	r := &RestrictedType{}
	if r.TypeName, err = expectString(body[0]); err != nil {
		return nil, err
	}
	if r.TypeDescriptor, err = expectDescriptor(body[1]); err != nil {
		return nil, err
	}
	if r.Source, err = expectString(body[2]); err != nil {
		return nil, err
	}
	requires, err := expectList(body[3], -1)
	if err != nil {
		return nil, err
	}
	for _, item := range requires {
		req, err := expectDescriptor(item)
		if err != nil {
			return nil, err
		}
		r.Requires = append(r.Requires, req)
	}
	choices, err := expectList(body[4], -1)
	if err != nil {
		return nil, err
	}
	for _, item := range choices {
		raw, err := expectDescribed(item, descriptorChoice)
		if err != nil {
			return nil, err
		}
		if len(raw) != 2 {
			return nil, merr.WrapErrMalformedWireValue("choice must have 2 elements", raw)
		}
		var c Choice
		if c.Name, err = expectString(raw[0]); err != nil {
			return nil, err
		}
		value, ok := raw[1].(int64)
		if !ok {
			return nil, merr.WrapErrMalformedWireValue("choice value must be long", raw[1])
		}
		c.Value = value
		r.Choices = append(r.Choices, c)
	}
	return r, nil
}

// expectDescribed 校验 v 为指定描述符的 described list 并返回其内容。
func expectDescribed(v any, descriptor wire.Symbol) (wire.List, error) {
	d, ok := v.(*wire.Described)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue(fmt.Sprintf("expected described %s", descriptor), v)
	}
	if d.Descriptor != descriptor {
		return nil, merr.WrapErrMalformedWireValue(fmt.Sprintf("expected descriptor %s", descriptor), d.Descriptor)
	}
	return expectList(d.Value, -1)
}

// expectList 校验 v 为 List，n >= 0 时同时校验长度。
func expectList(v any, n int) (wire.List, error) {
	l, ok := v.(wire.List)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue("expected list", v)
	}
	if n >= 0 && len(l) != n {
		return nil, merr.WrapErrMalformedWireValue(fmt.Sprintf("expected %d elements, got %d", n, len(l)), v)
	}
	return l, nil
}

func expectString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", merr.WrapErrMalformedWireValue("expected string", v)
	}
	return s, nil
}

func expectDescriptor(v any) (TypeDescriptor, error) {
	s, ok := v.(wire.Symbol)
	if !ok {
		return "", merr.WrapErrMalformedWireValue("expected symbol descriptor", v)
	}
	return TypeDescriptor(s), nil
}
