package serializer

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ledgerwire/internal/serialization"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

type transfer struct {
	From   string
	To     string
	Amount int64
	Memo   []byte
}

type intruder struct {
	Payload string
}

func newLedger(t *testing.T, allowed ...reflect.Type) *LedgerSerializer {
	f := serialization.NewFactory(serialization.WithWhitelist(serialization.AllowTypes(allowed...)))
	s, err := NewLedgerSerializer(f)
	require.NoError(t, err)
	return s
}

func TestLedgerRoundTrip(t *testing.T) {
	s := newLedger(t, reflect.TypeOf(transfer{}))
	in := transfer{From: "alice", To: "bob", Amount: 42, Memo: []byte{0x00, 0x01}}

	data, err := s.Marshal(in)
	require.NoError(t, err)

	var out transfer
	require.NoError(t, s.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestLedgerRejectsUnlistedType(t *testing.T) {
	sender := newLedger(t)
	data, err := sender.Marshal(intruder{Payload: "x"})
	require.NoError(t, err)

	receiver := newLedger(t, reflect.TypeOf(transfer{}))
	var out intruder
	err = receiver.Unmarshal(data, &out)
	assert.ErrorIs(t, err, merr.ErrWhitelistRejected)
	assert.Empty(t, out.Payload)
}

func TestLedgerMalformedInput(t *testing.T) {
	s := newLedger(t, reflect.TypeOf(transfer{}))
	var out transfer
	assert.ErrorIs(t, s.Unmarshal([]byte("garbage!"), &out), merr.ErrMalformedWire)
	assert.ErrorIs(t, s.Unmarshal(nil, &out), merr.ErrMalformedWire)
}

func TestNewLedgerSerializerNilFactory(t *testing.T) {
	_, err := NewLedgerSerializer(nil)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestJSONRoundTrip(t *testing.T) {
	var s JSONSerializer
	in := transfer{From: "alice", To: "bob", Amount: 7, Memo: []byte("memo")}

	data, err := s.Marshal(in)
	require.NoError(t, err)

	var out transfer
	require.NoError(t, s.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
