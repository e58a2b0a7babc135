package json_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	lumen "github.com/lumenlabs/lumen-go"
	lumenjson "github.com/lumenlabs/lumen-go/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTranscript_RoundTrip(t *testing.T) {
	t.Parallel()
	created := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 8, 20, 9, 5, 0, 0, time.UTC)

	transcript := lumenjson.Transcript{
		Model:     "pharia-1-llm-7b",
		CreatedAt: created,
		UpdatedAt: updated,
		Messages: []lumen.Message{
			lumen.SystemMessage("You are helpful."),
			lumen.UserMessage("What is an oscilloscope?"),
			lumen.AssistantMessage("An instrument that graphs voltage over time."),
		},
		Usage: &lumen.Usage{PromptTokens: 42, CompletionTokens: 17},
	}

	data, err := lumenjson.MarshalTranscript(transcript)
	require.NoError(t, err)

	got, err := lumenjson.UnmarshalTranscript(data)
	require.NoError(t, err)

	assert.Equal(t, transcript.Model, got.Model)
	assert.True(t, created.Equal(got.CreatedAt), "CreatedAt mismatch")
	assert.True(t, updated.Equal(got.UpdatedAt), "UpdatedAt mismatch")
	assert.Equal(t, transcript.Messages, got.Messages)
	require.NotNil(t, got.Usage)
	assert.Equal(t, 42, got.Usage.PromptTokens)
	assert.Equal(t, 17, got.Usage.CompletionTokens)
}

func TestMarshalTranscript_V1Envelope(t *testing.T) {
	t.Parallel()
	transcript := lumenjson.Transcript{
		Model:     "luminous-base",
		CreatedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 20, 9, 5, 0, 0, time.UTC),
	}

	data, err := lumenjson.MarshalTranscript(transcript)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	var version int
	require.NoError(t, json.Unmarshal(raw["version"], &version))
	assert.Equal(t, 1, version)

	assert.Contains(t, raw, "model")
	assert.Contains(t, raw, "created_at")
	assert.Contains(t, raw, "updated_at")
	assert.NotContains(t, raw, "usage", "nil usage should be omitted")
}

func TestUnmarshalTranscript_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	_, err := lumenjson.UnmarshalTranscript([]byte(`{"version":2,"messages":[]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported envelope version")
}

func TestUnmarshalTranscript_MalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := lumenjson.UnmarshalTranscript([]byte(`{not json`))
	require.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "chat.json")

	transcript := lumenjson.Transcript{
		Model:     "pharia-1-llm-7b",
		CreatedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 20, 9, 5, 0, 0, time.UTC),
		Messages: []lumen.Message{
			lumen.UserMessage("hi"),
			lumen.AssistantMessage("hello"),
		},
	}

	require.NoError(t, lumenjson.Save(path, transcript))

	// The temp file must not be left behind.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := lumenjson.Load(path)
	require.NoError(t, err)
	assert.Equal(t, transcript.Messages, got.Messages)
	assert.Equal(t, transcript.Model, got.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := lumenjson.Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
