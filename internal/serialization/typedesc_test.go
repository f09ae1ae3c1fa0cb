package serialization

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

func TestPrimitiveTypeName(t *testing.T) {
	cases := []struct {
		value any
		name  string
	}{
		{true, "boolean"},
		{int8(0), "byte"},
		{uint8(0), "ubyte"},
		{int16(0), "short"},
		{uint16(0), "ushort"},
		{int32(0), "int"},
		{uint32(0), "uint"},
		{int64(0), "long"},
		{0, "long"},
		{uint(0), "ulong"},
		{uint64(0), "ulong"},
		{float32(0), "float"},
		{float64(0), "double"},
		{"", "string"},
		{[]byte{}, "binary"},
		{wire.Binary{}, "binary"},
		{Hash{}, "binary"},
		{Amount(0), "long"},
		{time.Time{}, "timestamp"},
		{wire.Char('x'), "char"},
		{wire.Symbol("s"), "symbol"},
	}
	for _, c := range cases {
		name, ok := PrimitiveTypeName(reflect.TypeOf(c.value))
		assert.True(t, ok, "%T", c.value)
		assert.Equal(t, c.name, name, "%T", c.value)
	}

	for _, v := range []any{Side(0), Party{}, []string{}, map[string]int{}, []Side{}} {
		_, ok := PrimitiveTypeName(reflect.TypeOf(v))
		assert.False(t, ok, "%T", v)
	}
}

func TestNameForIsStableAndDistinct(t *testing.T) {
	f := NewFactory()

	d1, err := f.NameFor(tradeType)
	require.NoError(t, err)
	d2, err := NewFactory().NameFor(tradeType)
	require.NoError(t, err)
	assert.Equal(t, d1, d2, "independent factories must agree")
	assert.True(t, strings.HasPrefix(string(d1), DescriptorPrefix))

	ptr, err := f.NameFor(reflect.PointerTo(tradeType))
	require.NoError(t, err)
	assert.Equal(t, d1, ptr)

	party, err := f.NameFor(partyType)
	require.NoError(t, err)
	assert.NotEqual(t, d1, party)

	// 结构相同但类型不同的切片得到不同的描述符。
	raw, err := f.NameFor(reflect.TypeOf([]int64{}))
	require.NoError(t, err)
	type IDs []int64
	named, err := f.NameFor(reflect.TypeOf(IDs{}))
	require.NoError(t, err)
	assert.NotEqual(t, raw, named)

	long, err := f.NameFor(reflect.TypeOf(0))
	require.NoError(t, err)
	assert.Equal(t, TypeDescriptor("long"), long)

	dyn, err := f.NameFor(reflect.TypeOf((*any)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, DynamicDescriptor, dyn)
}

func TestNameForRecursiveType(t *testing.T) {
	d, err := NewFactory().NameFor(reflect.TypeOf(Node{}))
	require.NoError(t, err)
	assert.NotEmpty(t, d)
}

func TestNameForUnknownType(t *testing.T) {
	f := NewFactory()

	_, err := f.NameFor(reflect.TypeOf(make(chan int)))
	assert.ErrorIs(t, err, merr.ErrUnknownType)

	_, err = f.NameFor(reflect.TypeOf(struct{ C chan int }{}))
	assert.ErrorIs(t, err, merr.ErrUnknownType)

	_, err = f.NameFor(reflect.TypeOf([]func(){}))
	assert.ErrorIs(t, err, merr.ErrUnknownType)

	_, err = f.NameFor(nil)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestEnumChangesDescriptor(t *testing.T) {
	fp := &fingerprinter{f: NewFactory(), stack: make(map[reflect.Type]bool)}
	require.NoError(t, fp.write(sideType))
	assert.Contains(t, fp.b.String(), "BUY,SELL")
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "github.com/lk2023060901/ledgerwire/internal/serialization.Trade", TypeName(tradeType))
	assert.Equal(t, "[]string", TypeName(reflect.TypeOf([]string{})))
}
