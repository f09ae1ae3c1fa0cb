package serialization

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ledgerwire/internal/wire"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

type SchemaSuite struct {
	suite.Suite
	composite  *CompositeType
	restricted *RestrictedType
}

func (s *SchemaSuite) SetupTest() {
	s.composite = &CompositeType{
		TypeName:       "example.Party",
		TypeDescriptor: "ledgerwire:party",
		Fields: []Field{
			{Name: "Name", Type: "string"},
			{Name: "Key", Type: "binary", Nullable: true},
		},
	}
	s.restricted = &RestrictedType{
		TypeName:       "example.Side",
		TypeDescriptor: "ledgerwire:side",
		Source:         SourceEnum,
		Choices:        []Choice{{Name: "BUY", Value: 0}, {Name: "SELL", Value: 1}},
	}
}

func (s *SchemaSuite) TestRecordIfAbsentDedup() {
	acc := NewSchemaAccumulator()

	recorded, err := acc.RecordIfAbsent(s.composite)
	s.NoError(err)
	s.True(recorded)

	same := *s.composite
	same.Fields = append([]Field(nil), s.composite.Fields...)
	recorded, err = acc.RecordIfAbsent(&same)
	s.NoError(err)
	s.False(recorded)
	s.Equal(1, acc.Len())
	s.True(acc.Contains("ledgerwire:party"))
}

func (s *SchemaSuite) TestRecordIfAbsentConflict() {
	acc := NewSchemaAccumulator()
	_, err := acc.RecordIfAbsent(s.composite)
	s.Require().NoError(err)

	changed := &CompositeType{
		TypeName:       s.composite.TypeName,
		TypeDescriptor: s.composite.TypeDescriptor,
		Fields:         []Field{{Name: "Name", Type: "long"}},
	}
	_, err = acc.RecordIfAbsent(changed)
	s.ErrorIs(err, merr.ErrSchemaConflict)

	// 不同种类的描述占用同一描述符同样是冲突。
	_, err = acc.RecordIfAbsent(&RestrictedType{TypeName: "x", TypeDescriptor: s.composite.TypeDescriptor, Source: SourceList})
	s.ErrorIs(err, merr.ErrSchemaConflict)
	s.Equal(1, acc.Len())
}

func (s *SchemaSuite) TestSnapshotIsIndependent() {
	acc := NewSchemaAccumulator()
	_, _ = acc.RecordIfAbsent(s.composite)
	snapshot := acc.Schema()

	_, _ = acc.RecordIfAbsent(s.restricted)
	s.Equal(1, snapshot.Len())
	s.False(snapshot.Contains(s.restricted.TypeDescriptor))
	s.Equal(2, acc.Len())
}

func (s *SchemaSuite) TestWireRoundTrip() {
	schema, err := NewSchema(s.composite, s.restricted, &RestrictedType{
		TypeName:       "[]example.Party",
		TypeDescriptor: "ledgerwire:parties",
		Source:         SourceList,
		Requires:       []TypeDescriptor{"ledgerwire:party"},
	})
	s.Require().NoError(err)

	data, err := wire.Marshal(schema.toWire())
	s.Require().NoError(err)
	raw, err := wire.Unmarshal(data)
	s.Require().NoError(err)

	decoded, err := decodeSchema(raw)
	s.Require().NoError(err)
	s.Equal(schema.Len(), decoded.Len())
	for i, n := range schema.Types() {
		s.True(n.Equal(decoded.Types()[i]), n.Name())
	}
	found, ok := decoded.Lookup("ledgerwire:side")
	s.True(ok)
	s.Equal("example.Side", found.Name())
}

func (s *SchemaSuite) TestNewSchemaConflict() {
	changed := *s.composite
	changed.TypeName = "other.Party"
	_, err := NewSchema(s.composite, &changed)
	s.ErrorIs(err, merr.ErrSchemaConflict)
}

func (s *SchemaSuite) TestDecodeRejectsConflictingDuplicates() {
	changed := *s.composite
	changed.Fields = nil
	raw := &wire.Described{
		Descriptor: descriptorSchema,
		Value:      wire.List{s.composite.toWire(), changed.toWire()},
	}
	_, err := decodeSchema(raw)
	s.ErrorIs(err, merr.ErrSchemaConflict)
}

func (s *SchemaSuite) TestDecodeMalformed() {
	cases := []any{
		"not a schema",
		&wire.Described{Descriptor: descriptorSchema, Value: "x"},
		&wire.Described{Descriptor: descriptorSchema, Value: wire.List{int64(1)}},
		&wire.Described{Descriptor: descriptorSchema, Value: wire.List{
			&wire.Described{Descriptor: wire.Symbol("ledgerwire:unknown"), Value: wire.List{}},
		}},
		&wire.Described{Descriptor: descriptorSchema, Value: wire.List{
			&wire.Described{Descriptor: descriptorComposite, Value: wire.List{"name", "not-a-symbol", wire.List{}}},
		}},
	}
	for _, c := range cases {
		_, err := decodeSchema(c)
		s.ErrorIs(err, merr.ErrMalformedWire)
	}
}

func (s *SchemaSuite) TestNilSchema() {
	var schema *Schema
	s.Equal(0, schema.Len())
	s.False(schema.Contains("x"))
	s.Nil(schema.Types())
}

func TestSchema(t *testing.T) {
	suite.Run(t, new(SchemaSuite))
}
