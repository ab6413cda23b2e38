package transcription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/application/audio"
	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
)

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, name string, r io.Reader, languageHint string) (string, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, name, string(data), languageHint)
	return args.String(0), args.Error(1)
}

type fakeProber struct {
	duration time.Duration
	err      error
}

func (p *fakeProber) Duration(context.Context, string) (time.Duration, error) {
	return p.duration, p.err
}

// fakeCutter 将区间序号写入目标文件
type fakeCutter struct {
	cuts []audio.Segment
}

func (c *fakeCutter) Cut(_ context.Context, _, dst string, seg audio.Segment) error {
	c.cuts = append(c.cuts, seg)
	return os.WriteFile(dst, []byte{byte('0' + seg.Index)}, 0o600)
}

func asset(name string, data []byte) entity.AudioAsset {
	return entity.AudioAsset{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func newTestOrchestrator(t *testing.T, tr Transcriber, prober audio.Prober, cutter audio.Cutter, maxBytes int64) (*Orchestrator, string) {
	t.Helper()
	tmp := t.TempDir()
	o := NewOrchestrator(tr, prober, cutter, &config.TranscriptionConfig{
		Language:        "ja",
		MaxFileBytes:    maxBytes,
		SegmentDuration: 10 * time.Minute,
		TempDir:         tmp,
	})
	return o, tmp
}

func assertWorkspaceRemoved(t *testing.T, tmp string) {
	t.Helper()
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOrchestrator_SingleSegmentVerbatim(t *testing.T) {
	tr := new(MockTranscriber)
	tr.On("Transcribe", mock.Anything, "a.mp3", "audio", "ja").Return("  raw text  ", nil).Once()

	o, tmp := newTestOrchestrator(t, tr, &fakeProber{}, &fakeCutter{}, 1024)
	out, err := o.Transcribe(context.Background(), []entity.AudioAsset{asset("a.mp3", []byte("audio"))})
	require.NoError(t, err)

	assert.Equal(t, "  raw text  ", out)
	tr.AssertExpectations(t)
	assertWorkspaceRemoved(t, tmp)
}

func TestOrchestrator_SplitsOversizedInOrder(t *testing.T) {
	tr := new(MockTranscriber)
	tr.On("Transcribe", mock.Anything, "segment-0-000.mp3", "0", "ja").Return("first", nil).Once()
	tr.On("Transcribe", mock.Anything, "segment-0-001.mp3", "1", "ja").Return("second", nil).Once()
	tr.On("Transcribe", mock.Anything, "segment-0-002.mp3", "2", "ja").Return("third", nil).Once()

	cutter := &fakeCutter{}
	o, tmp := newTestOrchestrator(t, tr, &fakeProber{duration: 25 * time.Minute}, cutter, 4)
	out, err := o.Transcribe(context.Background(), []entity.AudioAsset{asset("long.m4a", []byte("0123456789"))})
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond\nthird", out)
	require.Len(t, cutter.cuts, 3)
	assert.Equal(t, 5*time.Minute, cutter.cuts[2].Duration())
	tr.AssertExpectations(t)
	assertWorkspaceRemoved(t, tmp)
}

func TestOrchestrator_MultiFileUploadOrder(t *testing.T) {
	tr := new(MockTranscriber)
	tr.On("Transcribe", mock.Anything, "part1.mp3", "p1", "ja").Return("A", nil).Once()
	tr.On("Transcribe", mock.Anything, "part2.mp3", "p2", "ja").Return("B", nil).Once()

	o, _ := newTestOrchestrator(t, tr, &fakeProber{}, &fakeCutter{}, 1024)
	out, err := o.Transcribe(context.Background(), []entity.AudioAsset{
		asset("part1.mp3", []byte("p1")),
		asset("part2.mp3", []byte("p2")),
	})
	require.NoError(t, err)
	assert.Equal(t, "A\nB", out)
}

func TestOrchestrator_SegmentFailureAbortsAndCleansUp(t *testing.T) {
	tr := new(MockTranscriber)
	tr.On("Transcribe", mock.Anything, "segment-0-000.mp3", "0", "ja").Return("first", nil).Once()
	tr.On("Transcribe", mock.Anything, "segment-0-001.mp3", "1", "ja").Return("", errors.New("backend down")).Once()

	o, tmp := newTestOrchestrator(t, tr, &fakeProber{duration: 25 * time.Minute}, &fakeCutter{}, 4)
	_, err := o.Transcribe(context.Background(), []entity.AudioAsset{asset("long.m4a", []byte("0123456789"))})
	require.Error(t, err)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeTranscription))
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "segment 1")
	assert.Contains(t, appErr.Detail, "backend down")
	tr.AssertExpectations(t)
	assertWorkspaceRemoved(t, tmp)
}

func TestOrchestrator_ProbeFailureCleansUp(t *testing.T) {
	tr := new(MockTranscriber)
	o, tmp := newTestOrchestrator(t, tr, &fakeProber{err: errors.New("no ffprobe")}, &fakeCutter{}, 4)

	_, err := o.Transcribe(context.Background(), []entity.AudioAsset{asset("long.m4a", []byte("0123456789"))})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAudioProcessing))
	tr.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assertWorkspaceRemoved(t, tmp)
}

func TestOrchestrator_EmptyInputs(t *testing.T) {
	tr := new(MockTranscriber)
	o, _ := newTestOrchestrator(t, tr, &fakeProber{}, &fakeCutter{}, 1024)

	_, err := o.Transcribe(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))

	out, err := o.Transcribe(context.Background(), []entity.AudioAsset{asset("empty.mp3", nil)})
	require.NoError(t, err)
	assert.Empty(t, out)
	tr.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
