// Package transcription 编排单段/多段音频的转写
package transcription

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"meeting-minutes-api/internal/application/audio"
	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
)

// Transcriber 转写能力：音频字节 + 语言提示 -> 文本
type Transcriber interface {
	Transcribe(ctx context.Context, name string, r io.Reader, languageHint string) (string, error)
}

// Orchestrator 转写编排器
type Orchestrator struct {
	transcriber Transcriber
	prober      audio.Prober
	cutter      audio.Cutter
	limits      audio.Limits
	language    string
	tempDir     string
}

// NewOrchestrator 创建转写编排器
func NewOrchestrator(transcriber Transcriber, prober audio.Prober, cutter audio.Cutter, cfg *config.TranscriptionConfig) *Orchestrator {
	return &Orchestrator{
		transcriber: transcriber,
		prober:      prober,
		cutter:      cutter,
		limits: audio.Limits{
			MaxBytes:        cfg.MaxFileBytes,
			SegmentDuration: cfg.SegmentDuration,
		},
		language: cfg.Language,
		tempDir:  cfg.TempDir,
	}
}

// Transcribe 按上传顺序转写全部音频，片段按时间顺序以换行连接。
// 请求级临时目录在所有退出路径上删除。
func (o *Orchestrator) Transcribe(ctx context.Context, assets []entity.AudioAsset) (string, error) {
	if len(assets) == 0 {
		return "", apperrors.Validation("audio is required")
	}

	workspace, err := os.MkdirTemp(o.tempDir, "minutes-audio-*")
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAudioProcessing, "failed to create audio workspace")
	}
	defer func() {
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			logger.Warn(ctx, "failed to remove audio workspace", "dir", workspace, "error", rmErr.Error())
		}
	}()

	run := &transcriptionRun{o: o, workspace: workspace}
	for i, asset := range assets {
		if err := run.asset(ctx, i, asset); err != nil {
			return "", err
		}
	}

	logger.Debug(ctx, "transcription finished",
		"files", len(assets),
		"segments", run.segments,
	)
	return strings.Join(run.parts, "\n"), nil
}

// transcriptionRun 单次请求的转写状态
type transcriptionRun struct {
	o         *Orchestrator
	workspace string
	parts     []string
	segments  int
}

func (r *transcriptionRun) asset(ctx context.Context, fileIndex int, asset entity.AudioAsset) error {
	if asset.Size <= 0 {
		logger.Warn(ctx, "skipping empty audio asset", "file", asset.Name, "index", fileIndex)
		return nil
	}

	if r.o.limits.MaxBytes <= 0 || asset.Size <= r.o.limits.MaxBytes {
		rc, err := asset.Open()
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeAudioProcessing, "failed to open audio")
		}
		defer rc.Close()
		return r.call(ctx, asset.Name, rc)
	}

	src := filepath.Join(r.workspace, fmt.Sprintf("source-%d%s", fileIndex, filepath.Ext(asset.Name)))
	if err := spool(asset, src); err != nil {
		return apperrors.Wrap(err, apperrors.CodeAudioProcessing, "failed to buffer audio")
	}

	duration, err := r.o.prober.Duration(ctx, src)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeAudioProcessing, "failed to read audio duration")
	}

	plan := audio.PlanChunks(asset.Size, duration, r.o.limits)
	logger.Debug(ctx, "audio split planned",
		"file", asset.Name,
		"size", asset.Size,
		"duration", duration.String(),
		"segments", len(plan),
	)

	for _, seg := range plan {
		dst := filepath.Join(r.workspace, fmt.Sprintf("segment-%d-%03d.mp3", fileIndex, seg.Index))
		if err := r.o.cutter.Cut(ctx, src, dst, seg); err != nil {
			return apperrors.Wrap(err, apperrors.CodeAudioProcessing, fmt.Sprintf("failed to cut segment %d", seg.Index))
		}
		if err := r.callFile(ctx, dst); err != nil {
			return err
		}
		// 切片转写后立即释放
		_ = os.Remove(dst)
	}
	return nil
}

func (r *transcriptionRun) callFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeAudioProcessing, "failed to open segment")
	}
	defer f.Close()
	return r.call(ctx, filepath.Base(path), f)
}

func (r *transcriptionRun) call(ctx context.Context, name string, rd io.Reader) error {
	idx := r.segments
	r.segments++

	text, err := r.o.transcriber.Transcribe(ctx, name, rd, r.o.language)
	if err != nil {
		logger.Error(ctx, "transcription call failed", err, "segment", idx, "file", name)
		return apperrors.Upstream(err, apperrors.CodeTranscription, fmt.Sprintf("transcription failed for segment %d", idx))
	}
	r.parts = append(r.parts, text)
	return nil
}

func spool(asset entity.AudioAsset, dst string) error {
	rc, err := asset.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
