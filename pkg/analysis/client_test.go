package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfoLineWithCentipawnScore(t *testing.T) {
	l, ok := parseInfoLine("info depth 12 seldepth 18 score cp 34 nodes 12345 pv e2e4 e7e5")
	require.True(t, ok)
	assert.Equal(t, 12, l.Depth)
	assert.Equal(t, 34, l.ScoreCP)
	assert.False(t, l.Mate)
	assert.Equal(t, []string{"e2e4", "e7e5"}, l.PV)
}

func TestParseInfoLineWithMateScore(t *testing.T) {
	l, ok := parseInfoLine("info depth 5 score mate 3 pv d1h5 g8f6 h5f7")
	require.True(t, ok)
	assert.True(t, l.Mate)
	assert.Equal(t, 3, l.MateIn)
}

func TestParseInfoLineWithoutRecognizedFieldsReturnsFalse(t *testing.T) {
	_, ok := parseInfoLine("info string engine ready")
	assert.False(t, ok)
}
