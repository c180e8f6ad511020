package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcMediaIDDeterministic(t *testing.T) {
	a := CalcMediaID("/abs/path/clip.mov")
	b := CalcMediaID("/abs/path/clip.mov")
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
}

func TestCalcMediaIDDiffersByPath(t *testing.T) {
	a := CalcMediaID("/abs/path/clip.mov")
	b := CalcMediaID("/abs/path/other.mov")
	assert.NotEqual(t, a, b)
}

func TestCanonicalPathCollapsesEquivalentInputs(t *testing.T) {
	a, err := canonicalPath("/abs/path/../path/clip.mov")
	assert.NoError(t, err)
	b, err := canonicalPath("/abs/path/clip.mov")
	assert.NoError(t, err)
	assert.Equal(t, b, a)
	assert.Equal(t, CalcMediaID(a), CalcMediaID(b))
}
