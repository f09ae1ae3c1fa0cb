package serialization

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ledgerwire/pkg/log"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"

	"go.uber.org/zap/zapcore"
)

type FactorySuite struct {
	suite.Suite
	restore func()
}

func (s *FactorySuite) SetupSuite() {
	_, s.restore = log.InitTestLogger(s.T(), zapcore.DebugLevel)
}

func (s *FactorySuite) TearDownSuite() {
	s.restore()
}

func (s *FactorySuite) TestGetIsMemoized() {
	f := NewFactory()
	first, err := f.Get(tradeType)
	s.Require().NoError(err)
	second, err := f.Get(reflect.PointerTo(tradeType))
	s.Require().NoError(err)
	s.Same(first, second)
	s.Equal(tradeType, first.Type())

	hits, misses := f.Stats()
	s.Positive(hits)
	s.Positive(misses)
}

func (s *FactorySuite) TestResolutionCategories() {
	f := NewFactory()
	cases := map[reflect.Type]string{
		reflect.TypeOf(int64(0)):           categoryPrimitive,
		reflect.TypeOf([]byte{}):           categoryPrimitive,
		sideType:                           categoryEnum,
		reflect.TypeOf([]Party{}):          categoryList,
		reflect.TypeOf(map[string]Side{}):  categoryMap,
		partyType:                          categoryComposite,
		reflect.TypeOf(&Node{}):            categoryComposite,
		reflect.TypeOf(struct{ A int }{}):  categoryComposite,
	}
	for t, category := range cases {
		ser, err := f.Get(t)
		s.Require().NoError(err, t.String())
		s.Equal(category, f.category(ser), t.String())
	}
}

func (s *FactorySuite) TestUnresolvableTypes() {
	f := NewFactory()
	for _, v := range []any{make(chan int), func() {}, [2]chan int{}, complex(1, 2), struct{ F func() }{}} {
		_, err := f.Get(reflect.TypeOf(v))
		s.Error(err, "%T", v)
		s.True(merr.Code(err) == merr.Code(merr.ErrUnresolvableType) || merr.Code(err) == merr.Code(merr.ErrUnknownType), "%T: %v", v, err)
	}
	_, err := f.Get(nil)
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func (s *FactorySuite) TestConcurrentFirstResolution() {
	f := NewFactory()
	const n = 32
	results := make([]Serializer, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ser, err := f.Get(tradeType)
			s.NoError(err)
			results[i] = ser
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		s.Same(results[0], results[i])
	}
}

func (s *FactorySuite) TestGetByDescriptor() {
	f := NewFactory()
	_, err := f.GetByDescriptor("ledgerwire:unknown")
	s.ErrorIs(err, merr.ErrUnresolvableType)

	s.Require().NoError(f.RegisterTypes(tradeType))
	for _, t := range []reflect.Type{tradeType, partyType, sideType} {
		d, err := f.NameFor(t)
		s.Require().NoError(err)
		ser, err := f.GetByDescriptor(d)
		s.Require().NoError(err)
		s.Equal(t, ser.Type())
	}
}

func (s *FactorySuite) TestRegisterExtension() {
	f := NewFactory()
	s.Require().NoError(f.Register(moneySerializer{}))

	ser, err := f.Get(reflect.TypeOf(Money{}))
	s.Require().NoError(err)
	s.Equal(TypeDescriptor("Money@1"), ser.TypeDescriptor())
	s.Equal(categoryExtension, f.category(ser))

	d, err := f.NameFor(reflect.TypeOf(Money{}))
	s.Require().NoError(err)
	s.Equal(TypeDescriptor("Money@1"), d)

	byDesc, err := f.GetByDescriptor("Money@1")
	s.Require().NoError(err)
	s.Equal(ser, byDesc)
}

func (s *FactorySuite) TestRegisterConflicts() {
	f := NewFactory()
	s.Require().NoError(f.Register(moneySerializer{}))

	// 同一类型再次注册。
	err := f.Register(moneySerializer{})
	s.ErrorIs(err, merr.ErrSerializerConflict)

	// 不同类型占用同一描述符。
	err = f.Register(renamed{moneySerializer{}, reflect.TypeOf(Opaque{})})
	s.ErrorIs(err, merr.ErrSerializerConflict)

	// 已被内置 Serializer 解析过的类型不能再注册。
	_, err = f.Get(partyType)
	s.Require().NoError(err)
	err = f.Register(renamed{opaqueSerializer{}, partyType})
	s.ErrorIs(err, merr.ErrSerializerConflict)

	err = f.Register(renamed{opaqueSerializer{}, nil})
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

// Wrapped 的结构指纹引用了 Opaque，Opaque 注册为扩展后其描述符随之改变。
type Wrapped struct {
	Inner Opaque
	Note  string
}

func (s *FactorySuite) TestRegisterAfterDependentNameIsRejected() {
	wrapped := reflect.TypeOf(Wrapped{})

	late := NewFactory()
	before, err := late.NameFor(wrapped)
	s.Require().NoError(err)

	err = late.Register(opaqueSerializer{})
	s.ErrorIs(err, merr.ErrSerializerConflict)
	after, err := late.NameFor(wrapped)
	s.Require().NoError(err)
	s.Equal(before, after)
	_, err = late.GetByDescriptor("T@1")
	s.ErrorIs(err, merr.ErrUnresolvableType)

	// 与已命名类型无关的扩展仍可注册。
	s.NoError(late.Register(moneySerializer{}))

	early := NewFactory()
	s.Require().NoError(early.Register(opaqueSerializer{}))
	d, err := early.NameFor(wrapped)
	s.Require().NoError(err)
	s.NotEqual(before, d)
}

func (s *FactorySuite) TestDescriptorConflictIsNotCached() {
	d, err := NewFactory().NameFor(partyType)
	s.Require().NoError(err)

	f := NewFactory()
	s.Require().NoError(f.Register(redescribed{opaqueSerializer{}, d}))

	for i := 0; i < 2; i++ {
		_, err = f.Get(partyType)
		s.ErrorIs(err, merr.ErrSerializerConflict)
	}
	ser, err := f.GetByDescriptor(d)
	s.Require().NoError(err)
	s.Equal(reflect.TypeOf(Opaque{}), ser.Type())
}

// redescribed 替换已有 Serializer 的描述符。
type redescribed struct {
	Serializer
	d TypeDescriptor
}

func (r redescribed) TypeDescriptor() TypeDescriptor { return r.d }

// renamed 将已有 Serializer 绑定到另一个类型上，用于构造冲突。
type renamed struct {
	Serializer
	t reflect.Type
}

func (r renamed) Type() reflect.Type { return r.t }

func TestFactory(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}
