package ai_test

import (
	"testing"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "surrounded by prose",
			input: "Sure! Here is the result:\n```json\n{\"a\":1}\n```\nHope this helps.",
			want:  `{"a":1}`,
		},
		{
			name:  "nested objects",
			input: `x {"a":{"b":{"c":2}},"d":3} y {"e":4}`,
			want:  `{"a":{"b":{"c":2}},"d":3}`,
		},
		{
			name:  "braces inside strings",
			input: `{"text":"close } and open {","n":1}`,
			want:  `{"text":"close } and open {","n":1}`,
		},
		{
			name:  "escaped quote inside string",
			input: `{"text":"say \"}\" now"} trailing`,
			want:  `{"text":"say \"}\" now"}`,
		},
		{
			name:    "no object",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"a":1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ai.ExtractJSONObject(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ai.ErrNoJSONObject)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
