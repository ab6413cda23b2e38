// Package audio 负责超限音频的切片规划与切割
package audio

import (
	"context"
	"time"
)

// Limits 转写引擎的单次调用上限
type Limits struct {
	// MaxBytes 单次调用允许的最大字节数
	MaxBytes int64
	// SegmentDuration 切片时长预算，<=0 时按大小比例推算
	SegmentDuration time.Duration
}

// Segment 音频时间区间 [Start, End)
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
	// Whole 整段音频无需切割
	Whole bool
}

// Duration 区间时长
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Prober 读取音频时长
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Cutter 将音频区间切为独立可解码的文件
type Cutter interface {
	Cut(ctx context.Context, src, dst string, seg Segment) error
}

// PlanChunks 规划切片。
// 空音频返回空计划；未超限返回单个整段；超限时从 0 开始按预算连续切分，末段截断不补齐。
func PlanChunks(sizeBytes int64, duration time.Duration, limits Limits) []Segment {
	if sizeBytes <= 0 {
		return nil
	}
	if limits.MaxBytes <= 0 || sizeBytes <= limits.MaxBytes || duration <= 0 {
		return []Segment{{Index: 0, Start: 0, End: duration, Whole: true}}
	}

	budget := limits.SegmentDuration
	if budget <= 0 {
		budget = derivedBudget(sizeBytes, duration, limits.MaxBytes)
	}

	count := int((duration + budget - 1) / budget)
	segments := make([]Segment, 0, count)
	for start := time.Duration(0); start < duration; start += budget {
		end := start + budget
		if end > duration {
			end = duration
		}
		segments = append(segments, Segment{
			Index: len(segments),
			Start: start,
			End:   end,
		})
	}
	return segments
}

// derivedBudget 按码率估算满足大小上限的切片时长，截断到整秒，至少 1 秒
func derivedBudget(sizeBytes int64, duration time.Duration, maxBytes int64) time.Duration {
	budget := time.Duration(float64(duration) * float64(maxBytes) / float64(sizeBytes))
	budget = budget.Truncate(time.Second)
	if budget < time.Second {
		budget = time.Second
	}
	return budget
}
