package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "meeting-minutes-api/internal/workflow/model"
	apperrors "meeting-minutes-api/pkg/errors"
)

const validJA = `{
  "タイトル": "Q3 予算会議",
  "議事録": "予算を承認した。",
  "改善案": "事前資料を共有する。",
  "マインドマップ": {"name": "会議", "children": [{"name": "予算"}]}
}`

func TestParseMinutes(t *testing.T) {
	doc, err := ParseMinutes(validJA, SchemaJA)
	require.NoError(t, err)

	assert.Equal(t, "Q3 予算会議", doc.Title)
	assert.Equal(t, "予算を承認した。", doc.Body)
	assert.Equal(t, "事前資料を共有する。", doc.Improvement)
	assert.False(t, doc.Degraded)
	require.Len(t, doc.MindMap.Children, 1)
	assert.Equal(t, "予算", doc.MindMap.Children[0].Name)
	assert.NotNil(t, doc.MindMap.Children[0].Children)
	assert.Equal(t, 2, doc.MindMap.Count())
}

func TestParseMinutes_Violations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Here are your minutes: ..."},
		{"array", `[1,2]`},
		{"null", `null`},
		{"missing key", `{"タイトル":"a","議事録":"b","改善案":"c"}`},
		{"extra key", `{"タイトル":"a","議事録":"b","改善案":"c","マインドマップ":{"name":"r"},"x":"y"}`},
		{"empty title", `{"タイトル":" ","議事録":"b","改善案":"c","マインドマップ":{"name":"r"}}`},
		{"non-string body", `{"タイトル":"a","議事録":1,"改善案":"c","マインドマップ":{"name":"r"}}`},
		{"mindmap list", `{"タイトル":"a","議事録":"b","改善案":"c","マインドマップ":[{"name":"r"}]}`},
		{"unnamed child", `{"タイトル":"a","議事録":"b","改善案":"c","マインドマップ":{"name":"r","children":[{"children":[]}]}}`},
		{"trailing text", validJA + " done"},
		{"trailing brace", validJA + " }"},
		{"trailing brackets", validJA + "]]"},
		{"second object", validJA + ` {"x":1}`},
		{"wrong schema", `{"title":"a","minutes":"b","improvement":"c","mindmap":{"name":"r"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMinutes(tc.raw, SchemaJA)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeContentFormat))
		})
	}
}

func TestSchemaByName(t *testing.T) {
	assert.Equal(t, SchemaEN, SchemaByName("EN"))
	assert.Equal(t, SchemaJA, SchemaByName("ja"))
	assert.Equal(t, SchemaJA, SchemaByName(""))
}

func TestSynthesizeChain_Structured(t *testing.T) {
	m := newScriptedModel(replyWith(validJA))
	c := NewSynthesizeChain(&fakeFactory{model: m})

	out, err := c.Invoke(context.Background(), &wfmodel.SynthesizeInput{
		Summary: "予算について議論した",
		Context: "前回は保留",
		Schema:  "ja",
	})
	require.NoError(t, err)

	assert.False(t, out.Document.Degraded)
	assert.NoError(t, out.ParseError)
	assert.Equal(t, "Q3 予算会議", out.Document.Title)

	user := m.userPrompts()[0]
	assert.Contains(t, user, "前回は保留")
	assert.Contains(t, user, "予算について議論した")
}

func TestSynthesizeChain_DegradesOnMalformedOutput(t *testing.T) {
	raw := "Sure! Title: Budget. Decisions: approve."
	c := NewSynthesizeChain(&fakeFactory{model: newScriptedModel(replyWith(raw))})

	out, err := c.Invoke(context.Background(), &wfmodel.SynthesizeInput{Summary: "s", UntitledTitle: "unknown"})
	require.NoError(t, err)

	doc := out.Document
	assert.True(t, doc.Degraded)
	assert.Equal(t, "unknown", doc.Title)
	assert.Equal(t, raw, doc.Body)
	assert.True(t, doc.MindMap.IsEmpty())
	assert.Error(t, out.ParseError)
}

func TestSynthesizeChain_DefaultSentinelTitle(t *testing.T) {
	c := NewSynthesizeChain(&fakeFactory{model: newScriptedModel(replyWith("{broken"))})

	out, err := c.Invoke(context.Background(), &wfmodel.SynthesizeInput{Summary: "s"})
	require.NoError(t, err)
	assert.Equal(t, "untitled", out.Document.Title)
}

func TestSynthesizeChain_FencedOutput(t *testing.T) {
	fenced := "```json\n" + validJA + "\n```"

	strict := NewSynthesizeChain(&fakeFactory{model: newScriptedModel(replyWith(fenced))})
	out, err := strict.Invoke(context.Background(), &wfmodel.SynthesizeInput{Summary: "s"})
	require.NoError(t, err)
	assert.True(t, out.Document.Degraded)

	lenient := NewSynthesizeChain(&fakeFactory{model: newScriptedModel(replyWith(fenced))})
	out, err = lenient.Invoke(context.Background(), &wfmodel.SynthesizeInput{Summary: "s", ExtractJSON: true})
	require.NoError(t, err)
	assert.False(t, out.Document.Degraded)
	assert.Equal(t, "Q3 予算会議", out.Document.Title)
}

func TestSynthesizeChain_EnglishSchema(t *testing.T) {
	raw := `{"title":"Kickoff","minutes":"We met.","improvement":"Start on time.","mindmap":{"name":"Kickoff","children":[]}}`
	m := newScriptedModel(replyWith(raw))
	c := NewSynthesizeChain(&fakeFactory{model: m})

	out, err := c.Invoke(context.Background(), &wfmodel.SynthesizeInput{Summary: "s", Schema: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", out.Document.Title)
	assert.Contains(t, m.calls[0][0].Content, `"mindmap"`)
}

func TestSynthesizeChain_CallFailureIsFatal(t *testing.T) {
	c := NewSynthesizeChain(&fakeFactory{model: newScriptedModel(func([]*schema.Message) (string, error) {
		return "", errors.New("502 from provider")
	})})

	_, err := c.Invoke(context.Background(), &wfmodel.SynthesizeInput{Summary: "s"})
	assert.True(t, apperrors.IsUpstream(err))
}
