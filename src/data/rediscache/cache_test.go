package rediscache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "the sky is blue", Normalize("  The   Sky\tis\nBLUE "))
	assert.Equal(t, "", Normalize("   "))
}

func TestKeyStableAcrossWhitespaceAndCase(t *testing.T) {
	a := Key("The Earth is flat")
	b := Key("  the earth   is FLAT ")
	c := Key("the earth is round")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "ava:verdict:"))
	// prefix + 16 hex digits
	assert.Len(t, a, len("ava:verdict:")+16)
}
