// Package pipeline 组合各阶段为议事录生成流水线
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	wfchain "meeting-minutes-api/internal/workflow/chain"
	wfmodel "meeting-minutes-api/internal/workflow/model"
	workflowport "meeting-minutes-api/internal/workflow/port"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
	"meeting-minutes-api/pkg/metrics"
	"meeting-minutes-api/pkg/tracer"
)

const (
	SourceText  = "text"
	SourceAudio = "audio"
)

// Result 一次流水线执行结果
type Result struct {
	RunID               string
	Source              string
	RawTranscript       string
	FormattedTranscript string
	Summary             string
	Condensed           bool
	Context             string
	Document            *entity.MinutesDocument
	Transitions         []Transition
	Usage               wfmodel.LLMUsageMeta
}

// MinutesPipeline Received → Transcribed → Proofread → Condensed → ContextRetrieved → Synthesized → Done
type MinutesPipeline struct {
	transcriber workflowport.AudioTranscriber
	retriever   workflowport.ContextRetriever

	proofread  *wfchain.ProofreadChain
	condense   *wfchain.CondenseChain
	synthesize *wfchain.SynthesizeChain

	cfg         config.PipelineConfig
	callTimeout time.Duration
}

// NewMinutesPipeline 创建流水线
func NewMinutesPipeline(
	factory workflowport.ChatModelFactory,
	transcriber workflowport.AudioTranscriber,
	retriever workflowport.ContextRetriever,
	cfg *config.Config,
) *MinutesPipeline {
	return &MinutesPipeline{
		transcriber: transcriber,
		retriever:   retriever,
		proofread:   wfchain.NewProofreadChain(factory),
		condense:    wfchain.NewCondenseChain(factory),
		synthesize:  wfchain.NewSynthesizeChain(factory),
		cfg:         cfg.Pipeline,
		callTimeout: cfg.Concurrency.CallTimeout,
	}
}

// RunText 以文本为原始转写执行流水线
func (p *MinutesPipeline) RunText(ctx context.Context, text string) (*Result, error) {
	r := newRun(uuid.NewString(), SourceText)
	ctx = logger.WithContext(ctx, logger.RunIDKey, r.id)

	if strings.TrimSpace(text) == "" {
		return nil, p.finish(ctx, r, r.fail(StateTranscribed, apperrors.Validation("text is empty")))
	}
	r.advance(StateTranscribed, "text input")
	return p.process(ctx, r, text)
}

// RunAudio 转写音频后执行流水线
func (p *MinutesPipeline) RunAudio(ctx context.Context, assets []entity.AudioAsset) (*Result, error) {
	r := newRun(uuid.NewString(), SourceAudio)
	ctx = logger.WithContext(ctx, logger.RunIDKey, r.id)

	if len(assets) == 0 {
		return nil, p.finish(ctx, r, r.fail(StateTranscribed, apperrors.Validation("audio is required")))
	}
	if p.transcriber == nil {
		return nil, p.finish(ctx, r, r.fail(StateTranscribed, apperrors.New(apperrors.CodeServiceUnavailable, "transcription is not configured")))
	}

	var transcript string
	err := p.stage(ctx, r, StateTranscribed, func(ctx context.Context) (string, error) {
		var err error
		transcript, err = p.transcriber.Transcribe(ctx, assets)
		return "", err
	})
	if err != nil {
		return nil, p.finish(ctx, r, err)
	}
	return p.process(ctx, r, transcript)
}

func (p *MinutesPipeline) process(ctx context.Context, r *run, transcript string) (*Result, error) {
	res := &Result{
		RunID:         r.id,
		Source:        r.source,
		RawTranscript: transcript,
	}

	err := p.stage(ctx, r, StateProofread, func(ctx context.Context) (string, error) {
		out, err := p.proofread.Invoke(ctx, &wfmodel.ProofreadInput{
			Transcript:     transcript,
			GenerateParams: p.params(p.cfg.Proofread),
		})
		if err != nil {
			return "", err
		}
		res.FormattedTranscript = out.Text
		res.Usage.Add(out.Meta)
		return "", nil
	})
	if err != nil {
		return nil, p.finish(ctx, r, err)
	}

	err = p.stage(ctx, r, StateCondensed, func(ctx context.Context) (string, error) {
		out, err := p.condense.Invoke(ctx, &wfmodel.CondenseInput{
			Text:           res.FormattedTranscript,
			TriggerChars:   p.cfg.Condense.TriggerChars,
			ChunkChars:     p.cfg.Condense.ChunkChars,
			Parallelism:    p.cfg.Condense.Parallelism,
			GenerateParams: p.params(p.cfg.Condense.GenerateConfig),
		})
		if err != nil {
			return "", err
		}
		res.Summary = out.Summary
		res.Condensed = out.Condensed
		res.Usage.Add(out.Meta)
		if out.Condensed {
			metrics.CondensedTotal.WithLabelValues("split").Inc()
			return "split", nil
		}
		metrics.CondensedTotal.WithLabelValues("passthrough").Inc()
		return "passthrough", nil
	})
	if err != nil {
		return nil, p.finish(ctx, r, err)
	}

	err = p.stage(ctx, r, StateContextRetrieved, func(ctx context.Context) (string, error) {
		if p.retriever == nil {
			return "retrieval disabled", nil
		}
		// 检索以整形后的全文为查询
		text, err := p.retriever.RetrieveContext(ctx, res.FormattedTranscript)
		if err != nil {
			return "", err
		}
		res.Context = text
		return "", nil
	})
	if err != nil {
		return nil, p.finish(ctx, r, err)
	}

	err = p.stage(ctx, r, StateSynthesized, func(ctx context.Context) (string, error) {
		out, err := p.synthesize.Invoke(ctx, &wfmodel.SynthesizeInput{
			Summary:        res.Summary,
			Context:        res.Context,
			Schema:         p.cfg.Synthesis.Schema,
			UntitledTitle:  p.cfg.Synthesis.UntitledTitle,
			ExtractJSON:    p.cfg.Synthesis.ExtractJSON,
			GenerateParams: p.params(p.cfg.Synthesis.GenerateConfig),
		})
		if err != nil {
			return "", err
		}
		res.Document = out.Document
		res.Usage.Add(out.Meta)
		if out.Document.Degraded {
			return "degraded", nil
		}
		return "", nil
	})
	if err != nil {
		return nil, p.finish(ctx, r, err)
	}

	r.advance(StateDone, "")
	res.Transitions = r.transitions
	return res, p.finish(ctx, r, nil)
}

// stage 执行单个阶段；成功则迁移到 to，失败则迁移到 Failed 并返回 StageError
func (p *MinutesPipeline) stage(ctx context.Context, r *run, to State, fn func(ctx context.Context) (string, error)) error {
	ctx = logger.WithContext(ctx, logger.StageKey, string(to))
	ctx, span := tracer.Start(ctx, "pipeline."+string(to))
	defer span.End()

	start := time.Now()
	logger.Debug(ctx, "pipeline stage started")

	note, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.PipelineStageDuration.WithLabelValues(string(to), "error").Observe(elapsed.Seconds())
		logger.Error(ctx, "pipeline stage failed", err, "elapsed_ms", elapsed.Milliseconds())
		return r.fail(to, err)
	}

	metrics.PipelineStageDuration.WithLabelValues(string(to), "success").Observe(elapsed.Seconds())
	logger.Debug(ctx, "pipeline stage finished", "elapsed_ms", elapsed.Milliseconds(), "note", note)
	r.advance(to, note)
	return nil
}

func (p *MinutesPipeline) finish(ctx context.Context, r *run, err error) error {
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	metrics.PipelineRunsTotal.WithLabelValues(r.source, outcome).Inc()
	logger.Info(ctx, "pipeline finished",
		"source", r.source,
		"state", string(r.state),
		"transitions", len(r.transitions),
	)
	return err
}

func (p *MinutesPipeline) params(g config.GenerateConfig) wfmodel.GenerateParams {
	return wfmodel.ParamsFromConfig(p.cfg.Provider, g, p.callTimeout)
}
