package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCounter_Count(t *testing.T) {
	counter := EstimateCounter{}

	t.Run("empty and whitespace-only text counts as zero", func(t *testing.T) {
		assert.Equal(t, 0, counter.Count(""))
		assert.Equal(t, 0, counter.Count("   \n\t"))
	})

	t.Run("estimates roughly four characters per token", func(t *testing.T) {
		// 40 characters, one word.
		assert.Equal(t, 10, counter.Count(strings.Repeat("a", 40)))
	})

	t.Run("word count floors whitespace-heavy text", func(t *testing.T) {
		// 10 words of 1 rune each: chars/4 would undercount badly.
		text := strings.TrimSpace(strings.Repeat("a ", 10))
		assert.Equal(t, 10, counter.Count(text))
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		// 8 runes, 24 bytes.
		assert.Equal(t, 2, counter.Count("日本語日本語日本"))
	})
}

func TestNewCounter_NeverNil(t *testing.T) {
	counter := NewCounter()
	assert.NotNil(t, counter)
	assert.GreaterOrEqual(t, counter.Count("hello world"), 1)
}
