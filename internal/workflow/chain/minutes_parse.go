package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

// KeySchema 结构化输出的 JSON 键名方案
type KeySchema struct {
	Name        string
	Title       string
	Body        string
	Improvement string
	MindMap     string
}

var (
	// SchemaJA 日文键名
	SchemaJA = KeySchema{
		Name:        "ja",
		Title:       "タイトル",
		Body:        "議事録",
		Improvement: "改善案",
		MindMap:     "マインドマップ",
	}
	// SchemaEN 英文键名
	SchemaEN = KeySchema{
		Name:        "en",
		Title:       "title",
		Body:        "minutes",
		Improvement: "improvement",
		MindMap:     "mindmap",
	}
)

// SchemaByName 按名称查找键名方案，未知名称回退到 ja
func SchemaByName(name string) KeySchema {
	if strings.EqualFold(strings.TrimSpace(name), SchemaEN.Name) {
		return SchemaEN
	}
	return SchemaJA
}

func (s KeySchema) keys() []string {
	return []string{s.Title, s.Body, s.Improvement, s.MindMap}
}

// ParseMinutes 严格解析结构化输出：单个 JSON 对象，恰好包含四个非空键，
// 思维导图为单根 {name, children} 树。任何违约都返回 ContentFormat 错误。
func ParseMinutes(raw string, schema KeySchema) (*entity.MinutesDocument, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, apperrors.ContentFormat(err, "minutes output is not a JSON object")
	}

	if len(fields) != len(schema.keys()) {
		return nil, apperrors.ContentFormat(
			fmt.Errorf("expected keys %v, got %d keys", schema.keys(), len(fields)),
			"minutes output has unexpected keys",
		)
	}

	doc := &entity.MinutesDocument{}
	targets := []struct {
		key string
		dst *string
	}{
		{schema.Title, &doc.Title},
		{schema.Body, &doc.Body},
		{schema.Improvement, &doc.Improvement},
	}
	for _, t := range targets {
		v, err := requiredString(fields, t.key)
		if err != nil {
			return nil, apperrors.ContentFormat(err, "minutes output violates field contract")
		}
		*t.dst = v
	}

	mm, ok := fields[schema.MindMap]
	if !ok {
		return nil, apperrors.ContentFormat(fmt.Errorf("missing key %q", schema.MindMap), "minutes output violates field contract")
	}
	root, err := decodeMindMap(mm)
	if err != nil {
		return nil, apperrors.ContentFormat(err, "mind map violates tree contract")
	}
	doc.MindMap = root
	return doc, nil
}

func decodeObject(raw string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("null document")
	}
	return fields, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	rawValue, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("missing key %q", key)
	}
	var s string
	if err := json.Unmarshal(rawValue, &s); err != nil {
		return "", fmt.Errorf("key %q is not a string: %w", key, err)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("key %q is empty", key)
	}
	return s, nil
}

func decodeMindMap(raw json.RawMessage) (*entity.MindMapNode, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, errors.New("mind map root must be a single object")
	}
	var root entity.MindMapNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if err := validateNode(&root, "root"); err != nil {
		return nil, err
	}
	return root.Normalize(), nil
}

func validateNode(n *entity.MindMapNode, path string) error {
	if n == nil {
		return fmt.Errorf("mind map node %s is null", path)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("mind map node %s has no name", path)
	}
	for i, child := range n.Children {
		if err := validateNode(child, fmt.Sprintf("%s.%d", path, i)); err != nil {
			return err
		}
	}
	return nil
}
