package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subQuestion struct {
	Question string `json:"question"`
	Type     string `json:"type"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []subQuestion
	}{
		{
			name:  "plain",
			reply: `[{"question": "a", "type": "TEXT"}]`,
			want:  []subQuestion{{"a", "TEXT"}},
		},
		{
			name:  "fenced",
			reply: "```json\n[{\"question\": \"a\", \"type\": \"TABLE\"}]\n```",
			want:  []subQuestion{{"a", "TABLE"}},
		},
		{
			name:  "surrounded by prose",
			reply: "Here is the list:\n[{\"question\": \"what [x]?\", \"type\": \"TEXT\"}]\nHope it helps.",
			want:  []subQuestion{{"what [x]?", "TEXT"}},
		},
		{
			name:  "missing opening quote on key",
			reply: `[{"question": "a", type": "TEXT"}]`,
			want:  []subQuestion{{"a", "TEXT"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []subQuestion
			require.NoError(t, DecodeJSON(tt.reply, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	tests := []string{
		"",
		"not json at all",
		"[{\"question\": \"a\"",
	}
	for _, reply := range tests {
		var got []subQuestion
		err := DecodeJSON(reply, &got)
		assert.ErrorIs(t, err, ErrMalformedResponse, "reply %q", reply)
	}
}

func TestExtractJSON(t *testing.T) {
	got, ok := ExtractJSON(`prefix {"a": "}", "b": [1, 2]} suffix`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}", "b": [1, 2]}`, got)

	_, ok = ExtractJSON("nothing here")
	assert.False(t, ok)
}

func TestRepairJSON(t *testing.T) {
	assert.Equal(t, `{"name": "x", "type": "y"}`, repairJSON(`{"name": "x", type": "y"}`))
	assert.Equal(t, `{"ok": 1}`, repairJSON(`{"ok": 1}`))
}
