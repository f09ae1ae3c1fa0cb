package serialization

import (
	"encoding/base64"
	"math"
	"strconv"
	"time"

	"github.com/lk2023060901/ledgerwire/internal/json"
	"github.com/lk2023060901/ledgerwire/internal/wire"
)

// DumpJSON 将 envelope 渲染为便于排查的 JSON，不实例化任何本地类型。
// 输出仅用于诊断，不保证稳定，也不能反向解析为 envelope。
func DumpJSON(env *Envelope) ([]byte, error) {
	root, err := wire.Unmarshal(env.Payload())
	if err != nil {
		return nil, err
	}

	schema := make([]any, 0, env.Schema().Len())
	for _, n := range env.Schema().Types() {
		schema = append(schema, dumpNotation(n))
	}
	doc := map[string]any{
		"version": ProtocolVersion.String(),
		"schema":  schema,
		"payload": dumpValue(root),
	}
	return json.MarshalIndent(doc, "", "  ")
}

func dumpNotation(n TypeNotation) map[string]any {
	switch x := n.(type) {
	case *CompositeType:
		fields := make([]any, 0, len(x.Fields))
		for _, f := range x.Fields {
			fields = append(fields, map[string]any{"name": f.Name, "type": string(f.Type), "nullable": f.Nullable})
		}
		return map[string]any{"kind": "composite", "name": x.TypeName, "descriptor": string(x.TypeDescriptor), "fields": fields}
	case *RestrictedType:
		out := map[string]any{"kind": "restricted", "name": x.TypeName, "descriptor": string(x.TypeDescriptor), "source": x.Source}
		if len(x.Requires) > 0 {
			out["requires"] = x.Requires
		}
		if len(x.Choices) > 0 {
			out["choices"] = x.Choices
		}
		return out
	}
	return map[string]any{"name": n.Name(), "descriptor": string(n.Descriptor())}
}

func dumpValue(v any) any {
	switch x := v.(type) {
	case wire.Binary:
		return map[string]any{"binary": base64.StdEncoding.EncodeToString(x)}
	case wire.Symbol:
		return map[string]any{"symbol": string(x)}
	case wire.Char:
		return map[string]any{"char": string(rune(x))}
	case time.Time:
		return map[string]any{"timestamp": x.Format(time.RFC3339Nano)}
	case float32:
		return dumpFloat(float64(x))
	case float64:
		return dumpFloat(x)
	case uint64:
		// 超出 JSON 安全整数范围的值以字符串表示。
		if x > 1<<53 {
			return strconv.FormatUint(x, 10)
		}
		return x
	case int64:
		if x > 1<<53 || x < -(1<<53) {
			return strconv.FormatInt(x, 10)
		}
		return x
	case wire.List:
		items := make([]any, 0, len(x))
		for _, item := range x {
			items = append(items, dumpValue(item))
		}
		return items
	case *wire.Map:
		entries := make([]any, 0, x.Len())
		for _, e := range x.Entries {
			entries = append(entries, []any{dumpValue(e.Key), dumpValue(e.Value)})
		}
		return map[string]any{"map": entries}
	case *wire.Described:
		return map[string]any{"descriptor": dumpValue(x.Descriptor), "value": dumpValue(x.Value)}
	}
	return v
}

func dumpFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
