package serialization

import (
	"fmt"
	"reflect"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/log"
	"github.com/lk2023060901/ledgerwire/pkg/metrics"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
	"github.com/lk2023060901/ledgerwire/pkg/util/typeutil"
)

// 类型类别，用于指标标签。
const (
	categoryExtension = "extension"
	categoryPrimitive = "primitive"
	categoryEnum      = "enum"
	categoryList      = "list"
	categoryMap       = "map"
	categoryComposite = "composite"
)

// Factory 按类型解析并缓存 Serializer，在进程内共享。
//
// 解析顺序：显式注册的扩展 Serializer、基本类型、枚举/切片/map、结构体。
// 并发的首次解析通过 singleflight 合并；偶发的重复构造会被丢弃，缓存中每个类型只保留一个实例。
type Factory struct {
	whitelist Whitelist
	maxDepth  int

	registered   *typeutil.ConcurrentMap[reflect.Type, Serializer]
	byType       *typeutil.ConcurrentMap[reflect.Type, Serializer]
	byDescriptor *typeutil.ConcurrentMap[TypeDescriptor, Serializer]
	names        *typeutil.ConcurrentMap[reflect.Type, TypeDescriptor]
	group        singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64

	logger *log.MLogger
}

// Option 配置 Factory。
type Option func(*Factory)

// WithWhitelist 设置解码白名单。nil 等价于 DenyAll。
func WithWhitelist(w Whitelist) Option {
	return func(f *Factory) {
		if w == nil {
			w = DenyAll()
		}
		f.whitelist = w
	}
}

// WithMaxDepth 设置编码与解码的嵌套深度上限。
func WithMaxDepth(n int) Option {
	return func(f *Factory) {
		if n > 0 {
			f.maxDepth = n
		}
	}
}

// NewFactory 创建 Factory。未设置白名单时拒绝所有用户定义类型的解码。
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		whitelist:    DenyAll(),
		maxDepth:     wire.DefaultMaxDepth,
		registered:   typeutil.NewConcurrentMap[reflect.Type, Serializer](),
		byType:       typeutil.NewConcurrentMap[reflect.Type, Serializer](),
		byDescriptor: typeutil.NewConcurrentMap[TypeDescriptor, Serializer](),
		names:        typeutil.NewConcurrentMap[reflect.Type, TypeDescriptor](),
		logger:       log.With(log.FieldModule("serialization"), log.FieldComponent("factory")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register 注册扩展 Serializer。
//
// 必须在该类型首次被解析之前注册；描述符或类型已被其它 Serializer 占用时返回 ErrSerializerConflict。
func (f *Factory) Register(s Serializer) error {
	t, d := s.Type(), s.TypeDescriptor()
	if t == nil || d == "" {
		return merr.WrapErrParameterInvalidMsg("serializer must declare a type and a descriptor")
	}
	if existing, ok := f.byType.Get(t); ok {
		return merr.WrapErrSerializerConflict(string(d), describe(existing), describe(s))
	}
	if existing, loaded := f.byDescriptor.GetOrInsert(d, s); loaded {
		return merr.WrapErrSerializerConflict(string(d), describe(existing), describe(s))
	}
	if _, loaded := f.registered.GetOrInsert(t, s); loaded {
		f.byDescriptor.Remove(d)
		return merr.WrapErrSerializerConflict(string(d), TypeName(t), describe(s))
	}
	// 已计算出的描述符若引用了 t 的结构指纹，注册后会发生变化，此时拒绝注册。
	if stale, ok := f.staleName(); ok {
		f.registered.Remove(t)
		f.byDescriptor.Remove(d)
		return merr.WrapErrSerializerConflict(string(d), TypeName(stale), describe(s))
	}
	f.byType.Insert(t, s)
	f.logger.Info("extension serializer registered", log.FieldType(t), log.FieldDescriptor(string(d)))
	return nil
}

// staleName 返回第一个缓存描述符与重新计算结果不一致的类型。
func (f *Factory) staleName() (reflect.Type, bool) {
	var stale reflect.Type
	f.names.Range(func(t reflect.Type, d TypeDescriptor) bool {
		fp := &fingerprinter{f: f, stack: make(map[reflect.Type]bool)}
		if err := fp.write(t); err != nil || descriptorFromFingerprint(fp.b.String()) != d {
			stale = t
			return false
		}
		return true
	})
	return stale, stale != nil
}

func describe(s Serializer) string {
	return fmt.Sprintf("%s(%s)", TypeName(s.Type()), s.TypeDescriptor())
}

// Get 返回类型 t 的 Serializer。指针类型解析为其元素类型的 Serializer。
func (f *Factory) Get(t reflect.Type) (Serializer, error) {
	if t == nil {
		return nil, merr.WrapErrParameterInvalidMsg("type must not be nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := f.byType.Get(t); ok {
		f.hits.Inc()
		metrics.SerializerLookups.WithLabelValues(f.category(s), metrics.CacheHit).Inc()
		return s, nil
	}
	f.misses.Inc()

	v, err, _ := f.group.Do(fmt.Sprintf("%p", t), func() (any, error) {
		if s, ok := f.byType.Get(t); ok {
			return s, nil
		}
		s, err := f.build(t)
		if err != nil {
			return nil, err
		}
		// 先占用描述符再写入类型缓存，冲突的 Serializer 不会被后续 Get 命中。
		if ns, ok := s.(notationSerializer); ok {
			if existing, loaded := f.byDescriptor.GetOrInsert(ns.TypeDescriptor(), ns); loaded {
				if existing.Type() != t {
					return nil, merr.WrapErrSerializerConflict(string(ns.TypeDescriptor()), describe(existing), describe(ns))
				}
				s = existing
			}
		}
		actual, _ := f.byType.GetOrInsert(t, s)
		f.logger.Debug("serializer resolved",
			log.FieldType(t),
			log.FieldDescriptor(string(actual.TypeDescriptor())),
			zap.String("category", f.category(actual)))
		return actual, nil
	})
	if err != nil {
		f.logger.Warn("failed to resolve serializer", log.FieldType(t), zap.Error(err))
		return nil, err
	}
	s := v.(Serializer)
	metrics.SerializerLookups.WithLabelValues(f.category(s), metrics.CacheMiss).Inc()

	// 预热结构中引用到的类型，使其描述符在解码前可被 GetByDescriptor 找到。
	// 当前类型已进入缓存，递归类型在此处命中缓存后终止。
	if ns, ok := s.(notationSerializer); ok {
		for _, dep := range ns.dependencies() {
			if dep.Kind() == reflect.Interface {
				continue
			}
			if _, err := f.Get(dep); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (f *Factory) build(t reflect.Type) (Serializer, error) {
	if s, ok := f.registered.Get(t); ok {
		return s, nil
	}
	if name, ok := PrimitiveTypeName(t); ok {
		return newPrimitiveSerializer(t, name), nil
	}

	switch {
	case isEnum(t), t.Kind() == reflect.Slice, t.Kind() == reflect.Array, t.Kind() == reflect.Map, t.Kind() == reflect.Struct:
	default:
		return nil, merr.WrapErrUnresolvableType(TypeName(t), fmt.Sprintf("%s values are not serializable", t.Kind()))
	}

	d, err := f.NameFor(t)
	if err != nil {
		return nil, err
	}
	switch {
	case isEnum(t):
		return newEnumSerializer(t, d), nil
	case t.Kind() == reflect.Slice, t.Kind() == reflect.Array:
		return newListSerializer(f, t, d)
	case t.Kind() == reflect.Map:
		return newMapSerializer(f, t, d)
	default:
		return newCompositeSerializer(f, t, d)
	}
}

// GetByDescriptor 返回描述符对应的本地 Serializer。
// 只有已注册或已被解析过的类型可以找到，未知描述符返回 ErrUnresolvableType。
func (f *Factory) GetByDescriptor(d TypeDescriptor) (Serializer, error) {
	if s, ok := f.byDescriptor.Get(d); ok {
		return s, nil
	}
	return nil, merr.WrapErrUnresolvableDescriptor(string(d), "no local type for descriptor")
}

// RegisterTypes 预先解析一组类型及其引用到的全部类型，
// 使对端发送的这些类型可以在没有目标类型的情况下解码。
func (f *Factory) RegisterTypes(types ...reflect.Type) error {
	visited := make(map[reflect.Type]struct{})
	for _, t := range types {
		if err := f.resolveGraph(t, visited); err != nil {
			return err
		}
	}
	return nil
}

func (f *Factory) resolveGraph(t reflect.Type, visited map[reflect.Type]struct{}) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return nil
	}
	if _, ok := visited[t]; ok {
		return nil
	}
	visited[t] = struct{}{}

	s, err := f.Get(t)
	if err != nil {
		return err
	}
	if ns, ok := s.(notationSerializer); ok {
		for _, dep := range ns.dependencies() {
			if err := f.resolveGraph(dep, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// NameFor 返回类型的描述符。对无法序列化的类型返回 ErrUnknownType。
func (f *Factory) NameFor(t reflect.Type) (TypeDescriptor, error) {
	if t == nil {
		return "", merr.WrapErrParameterInvalidMsg("type must not be nil")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := f.registered.Get(t); ok {
		return s.TypeDescriptor(), nil
	}
	if d, ok := f.names.Get(t); ok {
		return d, nil
	}
	if name, ok := PrimitiveTypeName(t); ok {
		return TypeDescriptor(name), nil
	}
	if t.Kind() == reflect.Interface {
		return DynamicDescriptor, nil
	}

	fp := &fingerprinter{f: f, stack: make(map[reflect.Type]bool)}
	if err := fp.write(t); err != nil {
		return "", err
	}
	d := descriptorFromFingerprint(fp.b.String())
	d, _ = f.names.GetOrInsert(t, d)
	return d, nil
}

// permit 对需要白名单的类型执行检查。
func (f *Factory) permit(s Serializer) error {
	ns, ok := s.(notationSerializer)
	if !ok || !ns.gated() {
		return nil
	}
	if f.whitelist.IsPermitted(s.Type()) {
		return nil
	}
	metrics.WhitelistRejections.Inc()
	f.logger.Warn("type rejected by whitelist",
		log.FieldType(s.Type()),
		log.FieldDescriptor(string(s.TypeDescriptor())))
	return merr.WrapErrWhitelistRejected(TypeName(s.Type()))
}

func (f *Factory) category(s Serializer) string {
	switch s.(type) {
	case *primitiveSerializer:
		return categoryPrimitive
	case *enumSerializer:
		return categoryEnum
	case *listSerializer:
		return categoryList
	case *mapSerializer:
		return categoryMap
	case *compositeSerializer:
		return categoryComposite
	}
	return categoryExtension
}

// Stats 返回缓存命中与未命中次数。
func (f *Factory) Stats() (hits, misses int64) {
	return f.hits.Load(), f.misses.Load()
}

// MaxDepth 返回嵌套深度上限。
func (f *Factory) MaxDepth() int {
	return f.maxDepth
}

func unknownTypeError(t reflect.Type) error {
	return merr.WrapErrUnknownType(TypeName(t), fmt.Sprintf("%s values have no wire mapping", t.Kind()))
}
