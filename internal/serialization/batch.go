package serialization

import (
	"github.com/lk2023060901/ledgerwire/pkg/util/conc"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// SerializeAll 使用大小为 parallelism 的协程池并发编码 objs，结果与输入一一对应。
// 每个对象使用独立的 SerializationOutput；任一失败时返回全部错误的组合且不返回结果。
func (f *Factory) SerializeAll(objs []any, parallelism int) ([]*Envelope, error) {
	if parallelism <= 0 {
		return nil, merr.WrapErrParameterInvalidMsg("parallelism must be positive, got %d", parallelism)
	}
	if len(objs) == 0 {
		return nil, nil
	}

	pool := conc.NewPool[*Envelope](parallelism)
	defer pool.Release()

	futures := make([]*conc.Future[*Envelope], 0, len(objs))
	for i := range objs {
		obj := objs[i]
		futures = append(futures, pool.Submit(func() (*Envelope, error) {
			return NewSerializationOutput(f).Serialize(obj)
		}))
	}

	envs := make([]*Envelope, len(objs))
	errs := make([]error, 0)
	for i, future := range futures {
		env, err := future.Await()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		envs[i] = env
	}
	if err := merr.Combine(errs...); err != nil {
		return nil, err
	}
	return envs, nil
}

// Serialize 使用新的 SerializationOutput 编码 obj。
func (f *Factory) Serialize(obj any) (*Envelope, error) {
	return NewSerializationOutput(f).Serialize(obj)
}

// Deserialize 使用新的 DeserializationInput 解码 env。
func (f *Factory) Deserialize(env *Envelope) (any, error) {
	return NewDeserializationInput(f).Deserialize(env)
}

// DeserializeInto 使用新的 DeserializationInput 将 env 解码到 target。
func (f *Factory) DeserializeInto(env *Envelope, target any) error {
	return NewDeserializationInput(f).DeserializeInto(env, target)
}
