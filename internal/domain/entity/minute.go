// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// MindMapNode 思维导图节点，children 为空时仍序列化为 []
type MindMapNode struct {
	Name     string         `json:"name"`
	Children []*MindMapNode `json:"children"`
}

// IsEmpty 空思维导图（降级文档使用）
func (n *MindMapNode) IsEmpty() bool {
	return n == nil || (strings.TrimSpace(n.Name) == "" && len(n.Children) == 0)
}

// Normalize 递归补齐 nil children，返回节点自身
func (n *MindMapNode) Normalize() *MindMapNode {
	if n == nil {
		return EmptyMindMap()
	}
	if n.Children == nil {
		n.Children = []*MindMapNode{}
	}
	for i, child := range n.Children {
		n.Children[i] = child.Normalize()
	}
	return n
}

// Count 节点总数
func (n *MindMapNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// EmptyMindMap 空思维导图
func EmptyMindMap() *MindMapNode {
	return &MindMapNode{Children: []*MindMapNode{}}
}

// MinutesDocument 结构化议事录
type MinutesDocument struct {
	Title string `json:"title"`
	// Body 包含摘要、决定事项、课题、行动计划、要因分析、事实与解释区分
	Body        string       `json:"analysis"`
	Improvement string       `json:"improvement"`
	MindMap     *MindMapNode `json:"mindmap"`
	// Degraded 生成输出未满足 JSON 契约时为 true，Body 为原始输出
	Degraded bool `json:"degraded"`
}

// NewDegradedDocument 构造降级议事录
func NewDegradedDocument(title, raw string) *MinutesDocument {
	return &MinutesDocument{
		Title:    title,
		Body:     raw,
		MindMap:  EmptyMindMap(),
		Degraded: true,
	}
}

// Minute 已保存的议事录，创建后不可变，仅能按 ID 删除
type Minute struct {
	ID                  int64        `json:"id"`
	Title               string       `json:"title"`
	FormattedTranscript string       `json:"formatted_transcript"`
	Analysis            string       `json:"analysis"`
	Improvement         string       `json:"improvement,omitempty"`
	MindMap             *MindMapNode `json:"mindmap"`
	// Embedding 由同一条 FormattedTranscript 在保存时计算
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMinute 由文档与保存时计算的向量创建议事录
func NewMinute(formattedTranscript string, doc *MinutesDocument, embedding []float32) *Minute {
	m := &Minute{
		FormattedTranscript: formattedTranscript,
		Embedding:           embedding,
		CreatedAt:           time.Now().UTC(),
	}
	if doc != nil {
		m.Title = doc.Title
		m.Analysis = doc.Body
		m.Improvement = doc.Improvement
		m.MindMap = doc.MindMap
	}
	m.MindMap = m.MindMap.Normalize()
	return m
}

// MatchedMinute 相似度检索命中的历史议事录
type MatchedMinute struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title,omitempty"`
	Analysis   string   `json:"analysis"`
	Similarity *float64 `json:"similarity,omitempty"`
}
