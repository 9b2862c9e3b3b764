package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"abcd", 1},
		{strings.Repeat("x", 4000), 1000},
		{"äöüßäöüß", 2},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Estimate(tt.text), tt.text)
	}
}

func TestUnknownEncodingFallsBack(t *testing.T) {
	c := NewCounter("no_such_encoding")

	require.False(t, c.Exact())
	require.Equal(t, 250, c.Count(strings.Repeat("word", 250)))
}

func TestNewCounterDefaultsEncoding(t *testing.T) {
	require.Equal(t, DefaultEncoding, NewCounter("").encoding)
}
