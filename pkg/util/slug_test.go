package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Simple words", "CD PROJEKT RED", "cd-projekt-red"},
		{"Punctuation runs", "Action -- & Adventure!!", "action-adventure"},
		{"Leading and trailing", "  ...Indie...  ", "indie"},
		{"Digits kept", "Windows 10", "windows-10"},
		{"Unicode letters kept", "Éditions Pôle", "éditions-pôle"},
		{"Already a slug", "role-playing", "role-playing"},
		{"Only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}
