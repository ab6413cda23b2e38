package dto

import (
	"meeting-minutes-api/internal/application/minutes"
	"meeting-minutes-api/internal/domain/entity"
)

// TextRequest 文本生成议事录请求
type TextRequest struct {
	Text string `json:"text"`
}

// SaveMinutesRequest 保存议事录请求，embedding 由服务端重新计算
type SaveMinutesRequest struct {
	FormattedTranscript string              `json:"formatted_transcript"`
	Title               string              `json:"title"`
	Analysis            string              `json:"analysis"`
	Improvement         string              `json:"improvement,omitempty"`
	MindMap             *entity.MindMapNode `json:"mindmap"`
}

// ToInput 转换为应用层输入
func (r *SaveMinutesRequest) ToInput() *minutes.SaveInput {
	return &minutes.SaveInput{
		FormattedTranscript: r.FormattedTranscript,
		Title:               r.Title,
		Analysis:            r.Analysis,
		Improvement:         r.Improvement,
		MindMap:             r.MindMap,
	}
}

// ListMinutesResponse 议事录列表
type ListMinutesResponse struct {
	Minutes []*entity.Minute `json:"minutes"`
}

// ChatRequest 问答请求
type ChatRequest struct {
	Message string `json:"message"`
}
