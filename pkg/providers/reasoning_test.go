package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripReasoning(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "think block",
			input: `<think>
Let me keep @0@ untouched.
</think>

人工智能正在改变 @0@ 世界。`,
			expected: "人工智能正在改变 @0@ 世界。",
		},
		{
			name:     "consecutive blocks",
			input:    "<thinking>a</thinking>\n[REASONING]b[/REASONING]\nresult",
			expected: "result",
		},
		{
			name:     "no reasoning keeps whitespace",
			input:    "  text\n\n",
			expected: "  text\n\n",
		},
		{
			name:     "tag in the middle is content",
			input:    "use <think> here</think>",
			expected: "use <think> here</think>",
		},
		{
			name:     "unclosed tag",
			input:    "<think>never ends",
			expected: "<think>never ends",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripReasoning(tt.input))
		})
	}
}

func TestCleanModelOutput(t *testing.T) {
	assert.Equal(t, "Hallo @1@", CleanModelOutput("<think>x</think>\n```\nHallo @1@\n```"))
}
