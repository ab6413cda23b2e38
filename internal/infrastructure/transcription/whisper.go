// Package transcription 提供语音转写客户端
package transcription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/infrastructure/resilience"
	"meeting-minutes-api/pkg/metrics"
)

// WhisperClient 基于 go-openai 的 Whisper 转写客户端
type WhisperClient struct {
	client   *openai.Client
	model    string
	language string
	timeout  time.Duration
	retry    resilience.Policy
}

// NewWhisperClient 创建 Whisper 客户端
func NewWhisperClient(cfg *config.TranscriptionConfig, retry config.RetryConfig) (*WhisperClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("transcription api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.Whisper1
	}

	return &WhisperClient{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    modelName,
		language: cfg.Language,
		timeout:  cfg.Timeout,
		retry:    resilience.NewPolicy(retry),
	}, nil
}

// Transcribe 转写单段音频；languageHint 为空时使用配置语言
func (c *WhisperClient) Transcribe(ctx context.Context, name string, r io.Reader, languageHint string) (string, error) {
	lang := strings.TrimSpace(languageHint)
	if lang == "" {
		lang = c.language
	}

	// 重试需要可重放的音频内容
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	start := time.Now()
	var text string
	err = resilience.Do(ctx, c.retry, "transcription", func(ctx context.Context) error {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		rsp, err := c.client.CreateTranscription(callCtx, openai.AudioRequest{
			Model:    c.model,
			FilePath: name,
			Reader:   bytes.NewReader(data),
			Language: lang,
		})
		if err != nil {
			return err
		}
		text = rsp.Text
		return nil
	})
	metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TranscriptionSegmentsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.TranscriptionSegmentsTotal.WithLabelValues("success").Inc()
	return text, nil
}
