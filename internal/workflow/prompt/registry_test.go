package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllPromptsFormat(t *testing.T) {
	vars := map[string]any{
		"transcript": "T",
		"index":      1,
		"total":      2,
		"chunk":      "C",
		"partials":   "P",
		"context":    "CTX",
		"summary":    "S",
		"message":    "M",
	}

	r := NewRegistry()
	for id := range knownPrompts {
		tpl, err := r.ChatTemplate(id)
		require.NoError(t, err, id)

		msgs, err := tpl.Format(context.Background(), vars)
		require.NoError(t, err, id)
		require.Len(t, msgs, 2, id)
		assert.Equal(t, schema.System, msgs[0].Role)
		assert.Equal(t, schema.User, msgs[1].Role)
	}
}

func TestRegistry_MinutesTemplateKeepsLiteralBraces(t *testing.T) {
	tpl, err := NewRegistry().ChatTemplate(PromptMinutesJaV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{"context": "過去", "summary": "今回"})
	require.NoError(t, err)

	assert.Contains(t, msgs[0].Content, `"タイトル"`)
	assert.Contains(t, msgs[0].Content, "{\n")
	assert.NotContains(t, msgs[0].Content, "{{")
	assert.Contains(t, msgs[1].Content, "今回")
}

func TestRegistry_Cached(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptChatV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptChatV1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRegistry_Unknown(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("nope")
	assert.Error(t, err)
}
