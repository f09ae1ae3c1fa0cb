package serialization

import (
	"bytes"
	"reflect"

	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/metrics"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

type visitKey struct {
	ptr uintptr
	t   reflect.Type
}

// SerializationOutput 是一次编码调用的上下文，持有 schema 收集器与指针访问记录。
// 只能使用一次，不能跨 goroutine 共享。
type SerializationOutput struct {
	factory  *Factory
	schema   *SchemaAccumulator
	visiting map[visitKey]struct{}
	used     bool
}

func NewSerializationOutput(f *Factory) *SerializationOutput {
	return &SerializationOutput{
		factory:  f,
		schema:   NewSchemaAccumulator(),
		visiting: make(map[visitKey]struct{}),
	}
}

// Serialize 编码 obj 并打包其 schema。失败时不返回任何部分结果。
func (o *SerializationOutput) Serialize(obj any) (env *Envelope, err error) {
	if o.used {
		return nil, merr.WrapErrOperationNotSupported("reusing a serialization output")
	}
	o.used = true
	defer func() {
		if err != nil {
			metrics.SerializationFailures.WithLabelValues(metrics.DirectionEncode, merr.CodeName(err)).Inc()
		}
	}()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	w := wire.NewWriter(buf.B)
	w.SetMaxDepth(o.factory.MaxDepth())
	if obj == nil {
		if err := w.PutObject(nil); err != nil {
			return nil, err
		}
	} else {
		t := reflect.TypeOf(obj)
		if _, err := o.RequireSerializer(t); err != nil {
			return nil, err
		}
		if err := o.WriteObject(obj, t, w); err != nil {
			return nil, err
		}
	}
	// 归还可能已扩容的缓冲区。
	buf.B = w.Bytes()[:0]

	env = &Envelope{payload: bytes.Clone(w.Bytes()), schema: o.schema.Schema()}
	metrics.EnvelopeBytes.WithLabelValues(metrics.DirectionEncode).Observe(float64(len(env.payload)))
	return env, nil
}

// RequireSerializer 解析 t 的 Serializer 并登记其结构描述。
func (o *SerializationOutput) RequireSerializer(t reflect.Type) (Serializer, error) {
	s, err := o.factory.Get(t)
	if err != nil {
		return nil, err
	}
	if err := s.WriteClassInfo(o); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteTypeNotation 向本次调用的 schema 登记类型描述，返回是否为首次登记。
func (o *SerializationOutput) WriteTypeNotation(n TypeNotation) (bool, error) {
	return o.schema.RecordIfAbsent(n)
}

// WriteObject 以声明类型 t 写入 obj，供复合类型的 Serializer 写入子值。
//
// 接口类型按动态类型写入并在此时登记 schema；指针为 nil 时写入 null，
// 沿当前路径再次遇到同一指针时返回 ErrCyclicReference。
func (o *SerializationOutput) WriteObject(obj any, t reflect.Type, w *wire.Writer) error {
	switch t.Kind() {
	case reflect.Interface:
		if obj == nil {
			return w.PutObject(nil)
		}
		dt := reflect.TypeOf(obj)
		if _, err := o.RequireSerializer(dt); err != nil {
			return err
		}
		return o.WriteObject(obj, dt, w)

	case reflect.Pointer:
		rv := reflect.ValueOf(obj)
		if !rv.IsValid() || rv.IsNil() {
			return w.PutObject(nil)
		}
		key := visitKey{ptr: rv.Pointer(), t: t}
		if _, ok := o.visiting[key]; ok {
			return merr.WrapErrCyclicReference(TypeName(t))
		}
		o.visiting[key] = struct{}{}
		defer delete(o.visiting, key)
		return o.WriteObject(rv.Elem().Interface(), t.Elem(), w)
	}

	s, err := o.factory.Get(t)
	if err != nil {
		return err
	}
	return s.WriteObject(obj, w, o)
}
