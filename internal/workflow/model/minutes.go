package model

import "meeting-minutes-api/internal/domain/entity"

type ProofreadInput struct {
	Transcript string
	GenerateParams
}

type ProofreadOutput struct {
	Text string
	Meta LLMUsageMeta
}

type CondenseInput struct {
	Text string
	// TriggerChars 字符数低于该值时原样返回
	TriggerChars int
	// ChunkChars 切片字符数
	ChunkChars int
	// Parallelism 分片摘要并发度，<=1 时顺序执行
	Parallelism int
	GenerateParams
}

type CondenseOutput struct {
	Summary   string
	Condensed bool
	Partials  int
	Meta      LLMUsageMeta
}

type SynthesizeInput struct {
	Summary string
	Context string
	// Schema 输出 JSON 键名方案
	Schema string
	// UntitledTitle 降级文档的占位标题
	UntitledTitle string
	// ExtractJSON 解析前截取 JSON 主体
	ExtractJSON bool
	GenerateParams
}

type SynthesizeOutput struct {
	Document *entity.MinutesDocument
	Raw      string
	// ParseError 降级原因，仅 Document.Degraded 时非空
	ParseError error
	Meta       LLMUsageMeta
}

type ChatInput struct {
	Message string
	Context string
	GenerateParams
}

type ChatOutput struct {
	Answer string
	Meta   LLMUsageMeta
}
