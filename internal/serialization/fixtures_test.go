package serialization

import (
	"reflect"

	"go.uber.org/atomic"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

type Side int32

const (
	Buy Side = iota
	Sell
)

func (Side) EnumValues() []string { return []string{"BUY", "SELL"} }

type Party struct {
	Name string
	Key  []byte
}

type Trade struct {
	ID     int64
	Side   Side
	Amount uint32
	Price  float64
	Buyer  *Party
	Seller Party
	Tags   []string
	Attrs  map[string]int64
	Note   any
	Skip   string `ledgerwire:"-"`
	hidden int
}

type Node struct {
	Value int64
	Next  *Node
}

type Amount int64

type Hash []byte

type Ledger struct {
	Total   Amount
	Count   int
	Digest  Hash
	Entries []Party
}

// Flag 是以 uint8 为底层类型的命名类型，[]Flag 按 binary 编码。
type Flag uint8

type Digest [4]byte

type Checkpoint struct {
	Flags   []Flag
	Sum     [4]byte
	Digest  Digest
	Limits  [2]int64
	Signers [2]Party
}

var checkpointType = reflect.TypeOf(Checkpoint{})

func sampleCheckpoint() Checkpoint {
	return Checkpoint{
		Flags:   []Flag{1, 2, 0xff},
		Sum:     [4]byte{0xde, 0xad, 0xbe, 0xef},
		Digest:  Digest{1, 2, 3, 4},
		Limits:  [2]int64{-5, 1 << 40},
		Signers: [2]Party{{Name: "alice", Key: []byte{0x01}}, {Name: "bob", Key: []byte{0x02}}},
	}
}

func sampleTrade() Trade {
	return Trade{
		ID:     42,
		Side:   Sell,
		Amount: 1000,
		Price:  12.5,
		Buyer:  &Party{Name: "alice", Key: []byte{0x01}},
		Seller: Party{Name: "bob", Key: []byte{0x02, 0x03}},
		Tags:   []string{"fx", "spot"},
		Attrs:  map[string]int64{"b": 2, "a": 1},
		Note:   "settled",
	}
}

var (
	tradeType = reflect.TypeOf(Trade{})
	partyType = reflect.TypeOf(Party{})
	sideType  = reflect.TypeOf(Side(0))
)

func permissiveFactory() *Factory {
	return NewFactory(WithWhitelist(AllowAll()))
}

// Money 由扩展 Serializer 处理，并在 schema 中登记自己的描述。
type Money struct {
	Units    int64
	Currency string
}

type moneySerializer struct{}

var _ Serializer = moneySerializer{}

var moneyNotation = &RestrictedType{TypeName: "Money", TypeDescriptor: "Money@1", Source: "money"}

func (moneySerializer) Type() reflect.Type             { return reflect.TypeOf(Money{}) }
func (moneySerializer) TypeDescriptor() TypeDescriptor { return "Money@1" }

func (moneySerializer) WriteClassInfo(out *SerializationOutput) error {
	_, err := out.WriteTypeNotation(moneyNotation)
	return err
}

func (moneySerializer) WriteObject(obj any, w *wire.Writer, _ *SerializationOutput) error {
	m := obj.(Money)
	return w.PutDescribed(wire.Symbol("Money@1"), wire.List{m.Units, m.Currency})
}

func (moneySerializer) ReadObject(obj any, _ *Schema, _ *DeserializationInput) (any, error) {
	values, err := unwrapDescribed(obj, "Money@1")
	if err != nil {
		return nil, err
	}
	units, ok := values[0].(int64)
	if !ok {
		return nil, merr.WrapErrMalformedWireValue("units", values[0])
	}
	return Money{Units: units, Currency: values[1].(string)}, nil
}

// Opaque 的扩展 Serializer 写出带描述符 T@1 的值，却没有登记 schema。
type Opaque struct{ V int64 }

type opaqueSerializer struct{}

func (opaqueSerializer) Type() reflect.Type                       { return reflect.TypeOf(Opaque{}) }
func (opaqueSerializer) TypeDescriptor() TypeDescriptor           { return "T@1" }
func (opaqueSerializer) WriteClassInfo(*SerializationOutput) error { return nil }

func (opaqueSerializer) WriteObject(obj any, w *wire.Writer, _ *SerializationOutput) error {
	return w.PutDescribed(wire.Symbol("T@1"), obj.(Opaque).V)
}

func (opaqueSerializer) ReadObject(obj any, _ *Schema, _ *DeserializationInput) (any, error) {
	return Opaque{V: obj.(*wire.Described).Value.(int64)}, nil
}

// Counted 用于观察解码时是否调用了 ReadObject。
type Counted string

type countingSerializer struct {
	reads *atomic.Int32
}

func (countingSerializer) Type() reflect.Type                       { return reflect.TypeOf(Counted("")) }
func (countingSerializer) TypeDescriptor() TypeDescriptor           { return "Counted@1" }
func (countingSerializer) WriteClassInfo(*SerializationOutput) error { return nil }

func (countingSerializer) WriteObject(obj any, w *wire.Writer, _ *SerializationOutput) error {
	return w.PutObject(string(obj.(Counted)))
}

func (s countingSerializer) ReadObject(obj any, _ *Schema, _ *DeserializationInput) (any, error) {
	s.reads.Inc()
	return Counted(obj.(string)), nil
}

type Secret struct {
	Payload Counted
}

func newCounter() *atomic.Int32 {
	return atomic.NewInt32(0)
}
