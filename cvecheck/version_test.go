package cvecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersionsLargerSortsFirst(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(-1, CompareVersions("2.0", "1.0"))
	assert.Equal(1, CompareVersions("1.0", "2.0"))
	assert.Equal(0, CompareVersions("1.2.3", "1.2.3"))
}

func TestCompareVersionsNumericNotLexicographic(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(-1, CompareVersions("1.10", "1.9"))
	assert.Equal(1, CompareVersions("1.9", "1.10"))
}

func TestCompareVersionsEmptySortsLast(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0, CompareVersions("", ""))
	assert.Equal(1, CompareVersions("", "1.0"))
	assert.Equal(-1, CompareVersions("1.0", ""))
}

func TestCompareVersionsPrefixTieBreak(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(-1, CompareVersions("1.2.3", "1.2"))
	assert.Equal(1, CompareVersions("1.2", "1.2.3"))
}

func TestCompareVersionsNonNumericComponents(t *testing.T) {
	assert := assert.New(t)

	// non-numeric sorts before numeric at the same position
	assert.Equal(-1, CompareVersions("1.rc1", "1.0"))
	assert.Equal(1, CompareVersions("1.0", "1.rc1"))

	// two non-numeric components compare lexicographically, reversed
	assert.Equal(-1, CompareVersions("1.beta", "1.alpha"))
	assert.Equal(1, CompareVersions("1.alpha", "1.beta"))
	assert.Equal(0, CompareVersions("1.alpha", "1.alpha"))
}
