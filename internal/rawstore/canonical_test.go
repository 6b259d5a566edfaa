package rawstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONIsDeterministic(t *testing.T) {
	a := []map[string]any{{"b": 2.0, "a": 1.0, "nested": map[string]any{"y": "v", "x": "u"}}}
	b := []map[string]any{{"nested": map[string]any{"x": "u", "y": "v"}, "a": 1.0, "b": 2.0}}

	ca, err := canonicalJSON(a)
	require.NoError(t, err)
	cb, err := canonicalJSON(b)
	require.NoError(t, err)

	assert.Equal(t, ca, cb, "key order must not affect canonical bytes")
	assert.Equal(t, contentHash(ca), contentHash(cb))
}

func TestCanonicalJSONNoIncidentalWhitespace(t *testing.T) {
	c, err := canonicalJSON([]map[string]any{{"a": 1.0}})
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1}]`, string(c))
}

func TestContentHashDiffersOnContentChange(t *testing.T) {
	c1, err := canonicalJSON([]map[string]any{{"a": 1.0}})
	require.NoError(t, err)
	c2, err := canonicalJSON([]map[string]any{{"a": 2.0}})
	require.NoError(t, err)
	assert.NotEqual(t, contentHash(c1), contentHash(c2))
}
