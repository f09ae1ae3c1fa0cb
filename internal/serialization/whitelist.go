package serialization

import (
	"reflect"

	"github.com/lk2023060901/ledgerwire/pkg/util/typeutil"
)

// Whitelist 决定解码时是否允许实例化某个用户定义类型。
// 实现必须可并发调用。拒绝对该类型是致命的，不会重试。
type Whitelist interface {
	IsPermitted(t reflect.Type) bool
}

// WhitelistFunc 将普通函数适配为 Whitelist。
type WhitelistFunc func(t reflect.Type) bool

func (f WhitelistFunc) IsPermitted(t reflect.Type) bool {
	return f(t)
}

type allowAll struct{}

func (allowAll) IsPermitted(reflect.Type) bool { return true }

type denyAll struct{}

func (denyAll) IsPermitted(reflect.Type) bool { return false }

// AllowAll 返回允许所有类型的白名单，只应在完全可信的对端之间使用。
func AllowAll() Whitelist { return allowAll{} }

// DenyAll 返回拒绝所有类型的白名单，是未配置白名单时的默认行为。
func DenyAll() Whitelist { return denyAll{} }

// SetWhitelist 按限定类型名（见 TypeName）放行。
type SetWhitelist struct {
	names typeutil.Set[string]
}

var _ Whitelist = (*SetWhitelist)(nil)

// NewSetWhitelist 由限定类型名构造白名单。
func NewSetWhitelist(names ...string) *SetWhitelist {
	return &SetWhitelist{names: typeutil.NewSet(names...)}
}

// AllowTypes 由类型构造白名单。
func AllowTypes(types ...reflect.Type) *SetWhitelist {
	names := make([]string, 0, len(types))
	for _, t := range types {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		names = append(names, TypeName(t))
	}
	return NewSetWhitelist(names...)
}

func (w *SetWhitelist) IsPermitted(t reflect.Type) bool {
	return w.names.Contain(TypeName(t))
}

// Names 返回已放行的类型名。
func (w *SetWhitelist) Names() []string {
	return w.names.Collect()
}
