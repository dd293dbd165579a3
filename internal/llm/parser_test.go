package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanharb/moneytrail/internal/common"
)

func TestExtractIDList(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []int64
		wantErr bool
	}{
		{
			name:    "clean JSON array",
			content: `[101, 102, 103]`,
			want:    []int64{101, 102, 103},
		},
		{
			name:    "fenced JSON array",
			content: "```json\n[9001]\n```",
			want:    []int64{9001},
		},
		{
			name:    "list embedded in prose",
			content: "Based on the party and district, the matching entities are [201,202] as requested.",
			want:    []int64{201, 202},
		},
		{
			name:    "single element with spacing",
			content: "Answer: [ 42 ]",
			want:    []int64{42},
		},
		{
			name:    "empty JSON array",
			content: `[]`,
			want:    nil,
		},
		{
			name:    "no list at all",
			content: "I could not determine which entities match.",
			wantErr: true,
		},
		{
			name:    "non-numeric list ignored",
			content: `["a", "b"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIDList(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrReasoningMalformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONInto(t *testing.T) {
	type verdict struct {
		Confirmed bool   `json:"confirmed"`
		Severity  string `json:"severity"`
	}

	t.Run("plain JSON", func(t *testing.T) {
		var v verdict
		require.NoError(t, ParseJSONInto(`{"confirmed":true,"severity":"high"}`, &v))
		assert.True(t, v.Confirmed)
		assert.Equal(t, "high", v.Severity)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		var v verdict
		require.NoError(t, ParseJSONInto("```json\n{\"confirmed\":false,\"severity\":\"low\"}\n```", &v))
		assert.False(t, v.Confirmed)
	})

	t.Run("malformed output", func(t *testing.T) {
		var v verdict
		err := ParseJSONInto("the bill clearly benefits the donor", &v)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrReasoningMalformed))
	})
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper(`{"a":1}`))
}
