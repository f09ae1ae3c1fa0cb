// Package json 统一项目内的 JSON 编解码实现（基于 bytedance/sonic，与标准库行为兼容）。
package json

import (
	"github.com/bytedance/sonic"
)

var (
	json = sonic.ConfigStd

	Marshal       = json.Marshal
	Unmarshal     = json.Unmarshal
	MarshalIndent = json.MarshalIndent
	Valid         = json.Valid
)
