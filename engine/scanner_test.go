package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path     string
		category fileCategory
	}{
		{"/a/clip.MOV", categoryVideo},
		{"/a/clip.mp4", categoryVideo},
		{"/a/frame_0001.PNG", categoryImage},
		{"/a/frame_0001.dpx", categoryImage},
		{"/a/readme.txt", categoryNone},
		{"/a/noext", categoryNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.category, classify(c.path), c.path)
	}
}

func TestParseRFrameRate(t *testing.T) {
	assert.Equal(t, Rational{24000, 1001}, parseRFrameRate("24000/1001"))
	assert.Equal(t, Rational{}, parseRFrameRate("0/0"), "zero denominator yields (0,0), not an error")
	assert.Equal(t, Rational{}, parseRFrameRate("garbage"))
}
