package serializer

import (
	"github.com/lk2023060901/ledgerwire/internal/serialization"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

// LedgerSerializer 将对象编码为带 schema 的 envelope 字节。
//
// 解码时先完成 schema 闭包校验与白名单校验，再构造目标对象。
// 多个 LedgerSerializer 可以共享同一个 Factory。
type LedgerSerializer struct {
	factory *serialization.Factory
}

// 编译期断言：确保 LedgerSerializer 实现了 Serializer 接口。
var _ Serializer = (*LedgerSerializer)(nil)

// NewLedgerSerializer 基于给定的 Factory 创建 LedgerSerializer。
func NewLedgerSerializer(factory *serialization.Factory) (*LedgerSerializer, error) {
	if factory == nil {
		return nil, merr.WrapErrParameterInvalidMsg("serializer: factory is nil")
	}
	return &LedgerSerializer{factory: factory}, nil
}

// Factory 返回底层的 serializer factory。
func (s *LedgerSerializer) Factory() *serialization.Factory {
	return s.factory
}

func (s *LedgerSerializer) Marshal(v any) ([]byte, error) {
	env, err := s.factory.Serialize(v)
	if err != nil {
		return nil, err
	}
	return env.Marshal()
}

func (s *LedgerSerializer) Unmarshal(data []byte, v any) error {
	env, err := serialization.UnmarshalEnvelope(data)
	if err != nil {
		return err
	}
	return s.factory.DeserializeInto(env, v)
}
