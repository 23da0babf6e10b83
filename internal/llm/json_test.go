package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain object", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced with language", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "chatter before and after", raw: "Here you go: {\"a\": [1, 2]} hope it helps", want: `{"a":[1,2]}`},
		{name: "array", raw: "result:\n[{\"chunk_index\":1}]", want: `[{"chunk_index":1}]`},
		{name: "windows path escapes", raw: `{"file":"C:\src\skill.cpp"}`, want: `{"file":"C:\\src\\skill.cpp"}`},
		{name: "no json", raw: "nothing to see", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "truncated", raw: `{"a": [1, 2`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestLenientTypes(t *testing.T) {
	var v struct {
		Score Number `json:"score"`
		Lines Lines  `json:"lines"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"score":"7/10","lines":[12,"14","20-22"]}`), &v))
	assert.InDelta(t, 7.0, float64(v.Score), 1e-9)
	assert.Equal(t, Lines{12, 14, 20, 21, 22}, v.Lines)

	require.NoError(t, json.Unmarshal([]byte(`{"score":null,"lines":"5"}`), &v))
	assert.Zero(t, v.Score)
	assert.Equal(t, Lines{5}, v.Lines)

	require.NoError(t, json.Unmarshal([]byte(`{"score":3,"lines":["unknown"]}`), &v))
	assert.Empty(t, v.Lines)

	assert.Error(t, json.Unmarshal([]byte(`{"score":"high"}`), &v))
}

func TestNumber_RejectsNonFinite(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"nan"`, `"Inf"`, `"-Infinity"`, `"+inf"`} {
		var n Number
		assert.Error(t, json.Unmarshal([]byte(raw), &n), raw)
	}
}

func TestPromptManager_RendersEveryPrompt(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	for _, key := range []PromptKey{SystemPrompt, BugSignalsPrompt, ChunkMatchPrompt, BatchMatchPrompt, FixPrompt, CorrectivePrompt, ConnectionPrompt} {
		_, err := pm.Get(key, ModelProvider("ollama"))
		assert.NoError(t, err, key)
	}
	_, err = pm.Get(PromptKey("missing"), DefaultProvider)
	assert.Error(t, err)
}
