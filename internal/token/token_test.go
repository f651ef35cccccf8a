package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		line     string
		expected Command
		ok       bool
	}{
		{"capture", Capture, true},
		{"play", Play, true},
		{"undo", Undo, true},
		{"reset", Reset, true},
		{"save", Save, true},
		{"CAPTURE", Capture, true},
		{"BTN_A", Capture, true},
		{"BTN_C", Reset, true},
		{"snap", Capture, true},
		{"restart", Reset, true},
		{"Capture", "", false}, // matching is case-sensitive
		{"pLAy", "", false},
		{"", "", false},
		{"garbage", "", false},
	}

	for _, tc := range testCases {
		cmd, ok := Parse(tc.line)
		assert.Equal(t, tc.ok, ok, "line %q", tc.line)
		assert.Equal(t, tc.expected, cmd, "line %q", tc.line)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Capture.Valid())
	assert.True(t, Save.Valid())
	assert.False(t, Command("BTN_A").Valid(), "aliases are not canonical commands")
	assert.False(t, Command("").Valid())
}
