package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Latin(t *testing.T) {
	tok, err := NewTokenizer()
	require.NoError(t, err)

	tokens := tok.Tokenize("Hello, BM25-Index World!")

	assert.Equal(t, []string{"hello", "bm25", "index", "world"}, tokens)
}

func TestTokenize_CJKSegmentation(t *testing.T) {
	tok, err := NewTokenizer()
	require.NoError(t, err)

	tokens := tok.Tokenize("南京是江苏省的省会")

	// Exact segmentation depends on the dictionary; it must at least be a
	// multi-token bag without punctuation.
	require.NotEmpty(t, tokens)
	assert.Greater(t, len(tokens), 1)
	for _, token := range tokens {
		assert.NotEmpty(t, token)
	}
}

func TestTokenize_Empty(t *testing.T) {
	tok, err := NewTokenizer()
	require.NoError(t, err)

	assert.Empty(t, tok.Tokenize("   "))
}

func TestTokenize_SharedInstance(t *testing.T) {
	a, err := NewTokenizer()
	require.NoError(t, err)
	b, err := NewTokenizer()
	require.NoError(t, err)

	assert.Same(t, a, b)
}
