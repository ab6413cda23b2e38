package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject 尝试从模型输出中截取第一个完整 JSON 对象。
// 模型可能在 JSON 前后夹杂说明文字或 markdown 代码块；截取失败时返回去空白的原文。
func ExtractJSONObject(s string) string {
	raw := StripCodeFence(s)
	if raw == "" {
		return raw
	}

	start := strings.Index(raw, "{")
	if start < 0 {
		return raw
	}

	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	var obj json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return raw
	}
	return string(obj)
}

// StripCodeFence 去除包裹整段输出的 ``` 代码块标记
func StripCodeFence(s string) string {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	raw = strings.TrimPrefix(raw, "```")
	if nl := strings.Index(raw, "\n"); nl >= 0 {
		// 语言标记，例如 ```json
		raw = raw[nl+1:]
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
