package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ledgerwire/internal/json"
)

func TestDumpJSON(t *testing.T) {
	f := permissiveFactory()
	env, err := f.Serialize(sampleTrade())
	require.NoError(t, err)

	out, err := DumpJSON(env)
	require.NoError(t, err)
	require.True(t, json.Valid(out))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "1.0.0", doc["version"])
	assert.Len(t, doc["schema"], env.Schema().Len())

	tradeDesc, _ := f.NameFor(tradeType)
	assert.Contains(t, string(out), string(tradeDesc))
	assert.Contains(t, string(out), `"binary"`)
	assert.Contains(t, string(out), "SELL")
}

func TestDumpJSONSpecialValues(t *testing.T) {
	env, err := NewFactory().Serialize([]float64{1.5})
	require.NoError(t, err)
	_, err = DumpJSON(env)
	require.NoError(t, err)

	assert.Equal(t, "NaN", dumpFloat(nan()))
	assert.Equal(t, "18446744073709551615", dumpValue(^uint64(0)))
	assert.Equal(t, int64(7), dumpValue(int64(7)))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
