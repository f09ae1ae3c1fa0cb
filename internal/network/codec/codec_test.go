package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ledgerwire/internal/network/compressor"
	"github.com/lk2023060901/ledgerwire/internal/network/framer"
	"github.com/lk2023060901/ledgerwire/internal/network/serializer"
	"github.com/lk2023060901/ledgerwire/internal/serialization"
	"github.com/lk2023060901/ledgerwire/pkg/util/merr"
)

type statement struct {
	Account string
	Lines   []string
	Totals  map[string]int64
}

type CodecSuite struct {
	suite.Suite

	ledger *serializer.LedgerSerializer
}

func (s *CodecSuite) SetupTest() {
	f := serialization.NewFactory(serialization.WithWhitelist(
		serialization.AllowTypes(reflect.TypeOf(statement{}))))
	ledger, err := serializer.NewLedgerSerializer(f)
	s.Require().NoError(err)
	s.ledger = ledger
}

func (s *CodecSuite) newCodec(compress bool, c compressor.Compressor) Codec {
	cd, err := New(Options{
		Framer:            framer.NewLengthPrefixedFramer(0),
		Serializer:        s.ledger,
		Compressor:        c,
		EnableCompression: compress,
	})
	s.Require().NoError(err)
	return cd
}

func sample() statement {
	lines := make([]string, 0, 64)
	for i := 0; i < 64; i++ {
		lines = append(lines, "repeated settlement line")
	}
	return statement{Account: "acc-1", Lines: lines, Totals: map[string]int64{"usd": 10, "eur": -3}}
}

func (s *CodecSuite) TestRoundTrip() {
	zstd, err := compressor.NewZstdCompressor()
	s.Require().NoError(err)
	defer zstd.Close()

	cases := map[string]Codec{
		"plain": s.newCodec(false, nil),
		"zstd":  s.newCodec(true, zstd),
		"lz4":   s.newCodec(true, compressor.LZ4Compressor{}),
	}
	for name, cd := range cases {
		var buf bytes.Buffer
		s.Require().NoError(cd.Encode(&buf, sample()), name)
		s.Require().NoError(cd.Encode(&buf, sample()), name)

		for i := 0; i < 2; i++ {
			var out statement
			s.Require().NoError(cd.Decode(&buf, &out), name)
			s.Equal(sample(), out, name)
		}
		s.Zero(buf.Len(), name)
	}
}

func (s *CodecSuite) TestCompressionFlag() {
	cd := s.newCodec(true, compressor.LZ4Compressor{})
	var buf bytes.Buffer
	s.Require().NoError(cd.Encode(&buf, sample()))

	flags, data, err := cd.DecodeRaw(&buf)
	s.Require().NoError(err)
	s.Equal(FlagCompressed, flags&FlagCompressed)

	env, err := serialization.UnmarshalEnvelope(data)
	s.Require().NoError(err)
	s.Positive(env.Schema().Len())
}

func (s *CodecSuite) TestMinCompressSize() {
	cd, err := New(Options{
		Framer:            framer.NewLengthPrefixedFramer(0),
		Serializer:        s.ledger,
		Compressor:        compressor.LZ4Compressor{},
		EnableCompression: true,
		MinCompressSize:   1 << 20,
	})
	s.Require().NoError(err)

	var buf bytes.Buffer
	s.Require().NoError(cd.Encode(&buf, sample()))
	flags, _, err := cd.DecodeRaw(&buf)
	s.Require().NoError(err)
	s.Zero(flags & FlagCompressed)
}

func (s *CodecSuite) TestCompressedFrameWithoutCompression() {
	var buf bytes.Buffer
	s.Require().NoError(s.newCodec(true, compressor.LZ4Compressor{}).Encode(&buf, sample()))

	var out statement
	err := s.newCodec(false, nil).Decode(&buf, &out)
	s.ErrorIs(err, merr.ErrOperationNotSupported)
}

func (s *CodecSuite) TestBadFrames() {
	f := framer.NewLengthPrefixedFramer(0)
	cd := s.newCodec(false, nil)

	var buf bytes.Buffer
	s.Require().NoError(f.WriteFrame(&buf, nil))
	_, _, err := cd.DecodeRaw(&buf)
	s.ErrorIs(err, merr.ErrMalformedWire)

	buf.Reset()
	s.Require().NoError(f.WriteFrame(&buf, []byte{0x80, 'x'}))
	_, _, err = cd.DecodeRaw(&buf)
	s.ErrorIs(err, merr.ErrMalformedWire)
}

func (s *CodecSuite) TestDecodeDiscard() {
	cd := s.newCodec(false, nil)
	var buf bytes.Buffer
	s.Require().NoError(cd.Encode(&buf, sample()))
	s.NoError(cd.Decode(&buf, nil))
	s.Zero(buf.Len())
}

func (s *CodecSuite) TestInvalidOptions() {
	_, err := New(Options{Serializer: s.ledger})
	s.ErrorIs(err, merr.ErrParameterInvalid)
	_, err = New(Options{Framer: framer.NewLengthPrefixedFramer(0)})
	s.ErrorIs(err, merr.ErrParameterInvalid)

	cd := s.newCodec(false, nil)
	s.ErrorIs(cd.Encode(nil, sample()), merr.ErrParameterInvalid)
	s.ErrorIs(cd.Encode(&bytes.Buffer{}, nil), merr.ErrParameterInvalid)
}

func TestCodec(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}
