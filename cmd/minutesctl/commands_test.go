package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/application/minutes"
	"meeting-minutes-api/internal/domain/entity"
)

type fakeService struct {
	text      string
	audio     []string
	saved     *minutes.SaveInput
	deleted   int64
	deleteRes *minutes.DeleteResult
	list      []*entity.Minute
}

func (f *fakeService) ProcessText(_ context.Context, text string) (*minutes.ProcessResult, error) {
	f.text = text
	return &minutes.ProcessResult{
		Title:               "定例会議",
		FormattedTranscript: text,
		Analysis:            "## 要約",
		MindMap:             &entity.MindMapNode{Name: "定例会議", Children: []*entity.MindMapNode{{Name: "予算", Children: []*entity.MindMapNode{}}}},
	}, nil
}

func (f *fakeService) ProcessAudio(_ context.Context, assets []entity.AudioAsset) (*minutes.ProcessResult, error) {
	for _, a := range assets {
		f.audio = append(f.audio, a.Name)
	}
	return &minutes.ProcessResult{Title: "audio"}, nil
}

func (f *fakeService) Save(_ context.Context, in *minutes.SaveInput) (*minutes.SaveResult, error) {
	f.saved = in
	return &minutes.SaveResult{Status: minutes.StatusSuccess, ID: 9}, nil
}

func (f *fakeService) List(context.Context) ([]*entity.Minute, error) { return f.list, nil }

func (f *fakeService) Delete(_ context.Context, id int64) (*minutes.DeleteResult, error) {
	f.deleted = id
	if f.deleteRes != nil {
		return f.deleteRes, nil
	}
	return &minutes.DeleteResult{Status: minutes.StatusSuccess, ID: id}, nil
}

func (f *fakeService) Export(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("xlsx"))
	return err
}

func run(t *testing.T, svc *fakeService, stdin string, args ...string) (string, error) {
	t.Helper()
	deps := &commandDeps{
		Open: func(context.Context) (minutesService, func(), error) {
			return svc, func() {}, nil
		},
	}
	root := newRootCommand(deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProcess_TextFromStdinAndSave(t *testing.T) {
	svc := &fakeService{}
	out, err := run(t, svc, "田中: 予算の件です", "process", "--text", "-", "--save")
	require.NoError(t, err)

	assert.Equal(t, "田中: 予算の件です", svc.text)
	require.NotNil(t, svc.saved)
	assert.Equal(t, "定例会議", svc.saved.Title)
	assert.Contains(t, out, "# 定例会議")
	assert.Contains(t, out, "  - 予算")
	assert.Contains(t, out, "Saved minute 9")
}

func TestProcess_AudioKeepsOrder(t *testing.T) {
	svc := &fakeService{}
	_, err := run(t, svc, "", "process", "-a", "/tmp/b.mp3", "-a", "/tmp/a.mp3", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.mp3", "a.mp3"}, svc.audio)
	assert.Nil(t, svc.saved)
}

func TestProcess_RequiresOneInput(t *testing.T) {
	_, err := run(t, &fakeService{}, "", "process")
	assert.Error(t, err)

	_, err = run(t, &fakeService{}, "", "process", "-t", "-", "-a", "x.mp3")
	assert.Error(t, err)

	_, err = run(t, &fakeService{}, "", "process", "-t", "-", "-o", "xml")
	assert.Error(t, err)
}

func TestList_Formats(t *testing.T) {
	svc := &fakeService{list: []*entity.Minute{{ID: 2, Title: "b", Embedding: []float32{1}}, {ID: 1, Title: "a"}}}

	out, err := run(t, svc, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "b")

	out, err = run(t, svc, "", "list", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "minutes:")
	assert.NotContains(t, out, "embedding")

	out, err = run(t, &fakeService{}, "", "ls", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"minutes":[]}`, out)
}

func TestDelete(t *testing.T) {
	svc := &fakeService{}
	out, err := run(t, svc, "", "delete", "4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), svc.deleted)
	assert.Contains(t, out, "Deleted minute 4")

	_, err = run(t, svc, "", "delete", "x")
	assert.Error(t, err)

	svc.deleteRes = &minutes.DeleteResult{Status: minutes.StatusError, ID: 5, Code: minutes.NotFoundCode}
	_, err = run(t, svc, "", "rm", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), minutes.NotFoundCode)
}

func TestExport(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := run(t, &fakeService{}, "", "export", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, file)

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(b))
}
