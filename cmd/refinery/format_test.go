package main_test

import (
	"testing"

	main "github.com/fwojciec/refinery/cmd/refinery"
	"github.com/stretchr/testify/assert"
)

func TestTruncateURL(t *testing.T) {
	t.Parallel()

	t.Run("returns short urls unchanged", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "https://x.com", main.TruncateURL("https://x.com", 50))
	})

	t.Run("keeps the end of long urls", func(t *testing.T) {
		t.Parallel()
		result := main.TruncateURL("https://example.com/events/2025/spring-jazz", 20)
		assert.Equal(t, ".../2025/spring-jazz", result)
		assert.Len(t, result, 20)
	})

	t.Run("returns empty string for non-positive widths", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, main.TruncateURL("https://example.com", 0))
		assert.Empty(t, main.TruncateURL("https://example.com", -1))
	})

	t.Run("returns a prefix when too narrow for an ellipsis", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "htt", main.TruncateURL("https://example.com", 3))
		assert.Equal(t, "ab", main.TruncateURL("ab", 3))
	})
}

func TestFormatTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "~0 tokens", main.FormatTokens(0))
	assert.Equal(t, "~999 tokens", main.FormatTokens(999))
	assert.Equal(t, "~2k tokens", main.FormatTokens(1500))
	assert.Equal(t, "~12k tokens", main.FormatTokens(12345))
}
