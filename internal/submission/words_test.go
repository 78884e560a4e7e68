package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t"))
	assert.Equal(t, 5, CountWords("the quick brown fox jumps"))
	assert.Equal(t, 3, CountWords("  spaced   out\nwords  "))
}

func TestSanitizeResult(t *testing.T) {
	assert.Nil(t, sanitizeResult(nil))
	assert.Nil(t, sanitizeResult([]byte(``)))
	assert.Nil(t, sanitizeResult([]byte(`{"truncated`)), "corrupt stored result degrades to null")
	assert.NotNil(t, sanitizeResult([]byte(`{"overall_band":6.5}`)))
}
