package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "double star bold",
			input:    "job **abc123** finished",
			expected: "job <b>abc123</b> finished",
		},
		{
			name:     "single star bold",
			input:    "Reply with *build payments* to approve",
			expected: "Reply with <b>build payments</b> to approve",
		},
		{
			name:     "italic",
			input:    "confidence _not stated_",
			expected: "confidence <i>not stated</i>",
		},
		{
			name:     "inline code",
			input:    "branch `job/abc-20260101`",
			expected: "branch <code>job/abc-20260101</code>",
		},
		{
			name:     "link",
			input:    "[view run](https://github.com/o/r/actions/runs/1)",
			expected: `<a href="https://github.com/o/r/actions/runs/1">view run</a>`,
		},
		{
			name:     "html entities escaped",
			input:    "a < b && b > c",
			expected: "a &lt; b &amp;&amp; b &gt; c",
		},
		{
			name:     "escaping applies inside code spans",
			input:    "`x < 10`",
			expected: "<code>x &lt; 10</code>",
		},
		{
			name:     "plain text untouched",
			input:    "no formatting here",
			expected: "no formatting here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatHTML(tt.input))
		})
	}
}
