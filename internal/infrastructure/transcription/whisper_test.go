package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-minutes-api/internal/config"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotModel, gotLanguage, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		_, fh, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile = fh.Filename

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"こんにちは"}`))
	}))
	defer srv.Close()

	c, err := NewWhisperClient(&config.TranscriptionConfig{
		APIKey:   "sk-test",
		BaseURL:  srv.URL + "/v1",
		Model:    "whisper-1",
		Language: "ja",
	}, config.RetryConfig{})
	require.NoError(t, err)

	text, err := c.Transcribe(context.Background(), "meeting.mp3", strings.NewReader("fake-bytes"), "")
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", text)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "ja", gotLanguage)
	assert.Equal(t, "meeting.mp3", gotFile)
}

func TestWhisperClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"backend down","type":"server_error"}}`))
	}))
	defer srv.Close()

	c, err := NewWhisperClient(&config.TranscriptionConfig{APIKey: "sk-test", BaseURL: srv.URL}, config.RetryConfig{})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), "a.mp3", strings.NewReader("x"), "en")
	assert.Error(t, err)
}

func TestNewWhisperClient_RequiresKey(t *testing.T) {
	_, err := NewWhisperClient(&config.TranscriptionConfig{}, config.RetryConfig{})
	assert.Error(t, err)
}
