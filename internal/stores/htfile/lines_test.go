package htfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines_DetectsEOL(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		lines []string
		eol   string
	}{
		{"empty", "", nil, "\n"},
		{"unix", "a:1\nb:2\n", []string{"a:1", "b:2"}, "\n"},
		{"windows", "a:1\r\nb:2\r\n", []string{"a:1", "b:2"}, "\r\n"},
		{"no trailing newline", "a:1\nb:2", []string{"a:1", "b:2"}, "\n"},
		{"mixed uses last line", "a:1\nb:2\r\n", []string{"a:1", "b:2"}, "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, eol := splitLines([]byte(tt.in))
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, tt.eol, eol)
		})
	}
}

func TestRewrite(t *testing.T) {
	lines := []string{"alice:x", "bob:y", "alice:dup", "carol:z"}

	out, matched := rewrite(lines, "\r\n", "alice:", "alice:new", replaceLine)
	assert.True(t, matched)
	assert.Equal(t, "alice:new\r\nbob:y\r\ncarol:z\r\n", string(out))

	out, matched = rewrite(lines, "\n", "alice:", "alice:new", keepLine)
	assert.True(t, matched)
	assert.Equal(t, "alice:x\nbob:y\ncarol:z\n", string(out))

	out, matched = rewrite(lines, "\n", "alice:", "", dropLine)
	assert.True(t, matched)
	assert.Equal(t, "bob:y\ncarol:z\n", string(out))

	out, matched = rewrite(lines, "\n", "dave:", "dave:w", replaceLine)
	assert.False(t, matched)
	assert.Equal(t, "alice:x\nbob:y\nalice:dup\ncarol:z\ndave:w\n", string(out))

	out, matched = rewrite(lines, "\n", "dave:", "", dropLine)
	assert.False(t, matched)
	assert.Equal(t, "alice:x\nbob:y\nalice:dup\ncarol:z\n", string(out))
}

func TestRewrite_PrefixIsNotSubstring(t *testing.T) {
	out, matched := rewrite([]string{"alice2:x"}, "\n", "alice:", "alice:new", replaceLine)
	assert.False(t, matched)
	assert.Equal(t, "alice2:x\nalice:new\n", string(out))
}
