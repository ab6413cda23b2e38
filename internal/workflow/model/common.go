package model

import (
	"time"

	"meeting-minutes-api/internal/config"
)

// GenerateParams 单次生成调用参数，nil 表示沿用提供商默认值
type GenerateParams struct {
	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
	// Timeout 单次调用超时，<=0 不限制
	Timeout time.Duration
}

// ParamsFromConfig 由配置构造调用参数，MaxTokens<=0 时沿用提供商默认值
func ParamsFromConfig(provider string, g config.GenerateConfig, timeout time.Duration) GenerateParams {
	temperature := float32(g.Temperature)
	params := GenerateParams{
		Provider:    provider,
		Model:       g.Model,
		Temperature: &temperature,
		Timeout:     timeout,
	}
	if g.MaxTokens > 0 {
		maxTokens := g.MaxTokens
		params.MaxTokens = &maxTokens
	}
	return params
}

// LLMUsageMeta 单次生成调用的用量信息
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}

// Add 累加多次调用的 token 用量
func (m *LLMUsageMeta) Add(other LLMUsageMeta) {
	if m.Provider == "" {
		m.Provider = other.Provider
	}
	if m.Model == "" {
		m.Model = other.Model
	}
	m.PromptTokens += other.PromptTokens
	m.CompletionTokens += other.CompletionTokens
	if other.GeneratedAt.After(m.GeneratedAt) {
		m.GeneratedAt = other.GeneratedAt
	}
}
