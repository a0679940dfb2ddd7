package announcement

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func Test_excerpt(t *testing.T) {
	assert.Equal(t, "Short body.", excerpt("  Short\n\tbody. "))

	long := excerpt(strings.Repeat("Réunion ", 20))
	assert.Equal(t, excerptLen, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "…"))
}
