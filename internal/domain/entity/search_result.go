package entity

import (
	"bytes"
	"encoding/json"
)

// SearchResultKind 相似度检索原始响应的形态
type SearchResultKind string

const (
	// SearchResultRecords 对象数组，取每条的 analysis
	SearchResultRecords SearchResultKind = "records"
	// SearchResultStrings 字符串数组，直接使用
	SearchResultStrings SearchResultKind = "strings"
	// SearchResultEmpty 空数组或 null，视为无上下文
	SearchResultEmpty SearchResultKind = "empty"
	// SearchResultInvalid 错误对象、标量或非法 JSON，检索后端异常
	SearchResultInvalid SearchResultKind = "invalid"
)

// SearchResult 检索响应的显式变体
type SearchResult struct {
	Kind    SearchResultKind
	Matches []MatchedMinute
	// Raw 仅 Invalid 时保留原始响应，作为错误详情
	Raw string
}

// RecordsResult 由已解码的命中记录构造结果
func RecordsResult(matches []MatchedMinute) SearchResult {
	if len(matches) == 0 {
		return SearchResult{Kind: SearchResultEmpty}
	}
	return SearchResult{Kind: SearchResultRecords, Matches: matches}
}

func invalidResult(raw []byte) SearchResult {
	return SearchResult{Kind: SearchResultInvalid, Raw: string(raw)}
}

// DecodeSearchResult 对检索后端的原始 JSON 做穷尽分类
//
// 数组按首个非 null 元素定形；元素中的 null 跳过。对象只严格读取 analysis（缺省为空串），
// id、title、similarity 类型不符时忽略。首元素既非对象也非字符串时视为无上下文，
// 定形之后再出现其它元素类型则整个结果无效。
func DecodeSearchResult(raw []byte) SearchResult {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return SearchResult{Kind: SearchResultEmpty}
	}
	if trimmed[0] != '[' {
		return invalidResult(raw)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return invalidResult(raw)
	}

	var kind SearchResultKind
	matches := make([]MatchedMinute, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		switch {
		case bytes.Equal(item, []byte("null")):
			continue
		case item[0] == '{':
			m, ok := decodeRecord(item)
			if !ok {
				return invalidResult(raw)
			}
			matches = append(matches, m)
			if kind == "" {
				kind = SearchResultRecords
			}
		case item[0] == '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return invalidResult(raw)
			}
			matches = append(matches, MatchedMinute{Analysis: s})
			if kind == "" {
				kind = SearchResultStrings
			}
		case kind == "":
			return SearchResult{Kind: SearchResultEmpty}
		default:
			return invalidResult(raw)
		}
	}

	if len(matches) == 0 {
		return SearchResult{Kind: SearchResultEmpty}
	}
	return SearchResult{Kind: kind, Matches: matches}
}

// decodeRecord analysis 必须是字符串或 null，其余字段尽力读取
func decodeRecord(item []byte) (MatchedMinute, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return MatchedMinute{}, false
	}

	var m MatchedMinute
	if v, ok := fields["analysis"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		if err := json.Unmarshal(v, &m.Analysis); err != nil {
			return MatchedMinute{}, false
		}
	}
	if v, ok := fields["id"]; ok {
		var id int64
		if json.Unmarshal(v, &id) == nil {
			m.ID = id
		}
	}
	if v, ok := fields["title"]; ok {
		var title string
		if json.Unmarshal(v, &title) == nil {
			m.Title = title
		}
	}
	if v, ok := fields["similarity"]; ok {
		var sim float64
		if json.Unmarshal(v, &sim) == nil && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			m.Similarity = &sim
		}
	}
	return m, true
}
