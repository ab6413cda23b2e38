package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionMinutes 议事录向量集合
	CollectionMinutes = "minutes"

	FieldMinuteID  = "minute_id"
	FieldTitle     = "title"
	FieldAnalysis  = "analysis"
	FieldEmbedding = "embedding"

	maxTitleLength    = 512
	maxAnalysisLength = 65535
)

// MinutesSchema 议事录 Collection Schema；主键沿用存储侧的议事录 ID
func MinutesSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Meeting minutes embeddings for similarity search",
		Fields: []*entity.Field{
			{
				Name:       FieldMinuteID,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     FieldEmbedding,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     FieldTitle,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": strconv.Itoa(maxTitleLength),
				},
			},
			{
				Name:     FieldAnalysis,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": strconv.Itoa(maxAnalysisLength),
				},
			},
		},
	}
}

// truncateBytes VarChar 的 max_length 以字节计，截断时保持 UTF-8 完整
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	return s[:cut]
}
