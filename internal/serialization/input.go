package serialization

import (
	"fmt"
	"reflect"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/metrics"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// DeserializationInput 是一次解码调用的上下文。只能使用一次，不能跨 goroutine 共享。
//
// 解码分两个阶段：先整体解析 payload，校验其引用的每个描述符都在 schema 中、
// 都能解析到本地类型、结构与本地定义一致并通过白名单；全部通过后才开始构造对象。
type DeserializationInput struct {
	factory   *Factory
	schema    *Schema
	permitted map[reflect.Type]struct{}
	used      bool
}

func NewDeserializationInput(f *Factory) *DeserializationInput {
	return &DeserializationInput{
		factory:   f,
		permitted: make(map[reflect.Type]struct{}),
	}
}

// Deserialize 将 envelope 解码为本地值，类型由 payload 中的描述符决定。
// 整数按 wire 类型返回（int 编码为 long，解码得到 int64）。
func (in *DeserializationInput) Deserialize(env *Envelope) (v any, err error) {
	defer in.observe(&err)

	root, err := in.prepare(env)
	if err != nil {
		return nil, err
	}
	return in.ReadDynamic(root)
}

// DeserializeBytes 解析线上字节并解码。
func (in *DeserializationInput) DeserializeBytes(data []byte) (any, error) {
	env, err := UnmarshalEnvelope(data)
	if err != nil {
		metrics.SerializationFailures.WithLabelValues(metrics.DirectionDecode, merr.CodeName(err)).Inc()
		return nil, err
	}
	return in.Deserialize(env)
}

// DeserializeInto 将 envelope 解码到 target 指向的值，target 必须为非 nil 指针。
func (in *DeserializationInput) DeserializeInto(env *Envelope, target any) (err error) {
	defer in.observe(&err)

	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return merr.WrapErrParameterInvalid("non-nil pointer", fmt.Sprintf("%T", target))
	}
	t := rv.Type().Elem()
	if err := in.factory.RegisterTypes(t); err != nil {
		return err
	}
	root, err := in.prepare(env)
	if err != nil {
		return err
	}
	v, err := in.ReadValue(root, t)
	if err != nil {
		return err
	}
	rv.Elem().Set(v)
	return nil
}

func (in *DeserializationInput) observe(err *error) {
	if *err != nil {
		metrics.SerializationFailures.WithLabelValues(metrics.DirectionDecode, merr.CodeName(*err)).Inc()
	}
}

func (in *DeserializationInput) prepare(env *Envelope) (any, error) {
	if in.used {
		return nil, merr.WrapErrOperationNotSupported("reusing a deserialization input")
	}
	in.used = true
	if env == nil {
		return nil, merr.WrapErrParameterInvalidMsg("envelope must not be nil")
	}
	in.schema = env.Schema()
	if in.schema == nil {
		in.schema = NewSchemaAccumulator().Schema()
	}

	r := wire.NewReader(env.Payload())
	r.SetMaxDepth(in.factory.MaxDepth())
	root, err := r.ReadObject()
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, merr.WrapErrMalformedWire(r.Offset(), "trailing bytes after payload")
	}

	referenced, err := collectDescriptors(root)
	if err != nil {
		return nil, err
	}
	for _, d := range referenced {
		if !in.schema.Contains(d) {
			return nil, merr.WrapErrSchemaClosure(string(d))
		}
	}
	for _, d := range referenced {
		if _, err := in.resolve(d); err != nil {
			return nil, err
		}
	}

	metrics.EnvelopeBytes.WithLabelValues(metrics.DirectionDecode).Observe(float64(len(env.Payload())))
	return root, nil
}

// resolve 将描述符解析为本地 Serializer，校验结构一致并通过白名单。
func (in *DeserializationInput) resolve(d TypeDescriptor) (Serializer, error) {
	s, err := in.factory.GetByDescriptor(d)
	if err != nil {
		return nil, err
	}
	if ns, ok := s.(notationSerializer); ok {
		received, _ := in.schema.Lookup(d)
		if received != nil && !ns.notation().Equal(received) {
			return nil, merr.WrapErrSchemaConflict(string(d), "received definition differs from local type "+TypeName(s.Type()))
		}
	}
	if err := in.admit(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (in *DeserializationInput) admit(s Serializer) error {
	if _, ok := in.permitted[s.Type()]; ok {
		return nil
	}
	if err := in.factory.permit(s); err != nil {
		return err
	}
	in.permitted[s.Type()] = struct{}{}
	return nil
}

// ReadDynamic 按 wire 值自身的描述符解码，供根值与接口类型字段使用。
func (in *DeserializationInput) ReadDynamic(obj any) (any, error) {
	switch v := obj.(type) {
	case *wire.Described:
		d, ok := v.DescriptorString()
		if !ok {
			return nil, merr.WrapErrMalformedWireValue("descriptor must be a symbol", v.Descriptor)
		}
		s, err := in.resolve(TypeDescriptor(d))
		if err != nil {
			return nil, err
		}
		return s.ReadObject(v, in.schema, in)
	case wire.List, *wire.Map:
		return nil, merr.WrapErrMalformedWireValue("structured value without descriptor", obj)
	}
	return unwrapPrimitive(obj), nil
}

// ReadValue 将 wire 值解码为类型 t 的值，供复合类型的 Serializer 读取子值。
func (in *DeserializationInput) ReadValue(obj any, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Interface:
		x, err := in.ReadDynamic(obj)
		if err != nil {
			return reflect.Value{}, err
		}
		return assignInterface(x, t)

	case reflect.Pointer:
		if obj == nil {
			return reflect.Zero(t), nil
		}
		ev, err := in.ReadValue(obj, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		return p, nil
	}

	s, err := in.factory.Get(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := in.admit(s); err != nil {
		return reflect.Value{}, err
	}
	x, err := s.ReadObject(obj, in.schema, in)
	if err != nil {
		return reflect.Value{}, err
	}
	return convertValue(x, t)
}

// collectDescriptors 按首次出现顺序返回 payload 中引用的全部描述符。
func collectDescriptors(root any) ([]TypeDescriptor, error) {
	var (
		result []TypeDescriptor
		seen   = make(map[TypeDescriptor]struct{})
		walk   func(v any) error
	)
	walk = func(v any) error {
		switch x := v.(type) {
		case *wire.Described:
			d, ok := x.DescriptorString()
			if !ok {
				return merr.WrapErrMalformedWireValue("descriptor must be a symbol", x.Descriptor)
			}
			if _, ok := seen[TypeDescriptor(d)]; !ok {
				seen[TypeDescriptor(d)] = struct{}{}
				result = append(result, TypeDescriptor(d))
			}
			return walk(x.Value)
		case wire.List:
			for _, item := range x {
				if err := walk(item); err != nil {
					return err
				}
			}
		case *wire.Map:
			for _, e := range x.Entries {
				if err := walk(e.Key); err != nil {
					return err
				}
				if err := walk(e.Value); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return result, nil
}
