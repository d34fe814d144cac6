package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	parsed, err := parseParams([]string{"limit=48", "order=desc:trending", "query=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"limit": "48",
		"order": "desc:trending",
		"query": "a=b",
		"empty": "",
	}, parsed)

	parsed, err = parseParams(nil)
	require.NoError(t, err)
	assert.Empty(t, parsed)

	for _, bad := range []string{"limit", "=48", " =x"} {
		_, err := parseParams([]string{bad})
		assert.Error(t, err, bad)
	}
}
