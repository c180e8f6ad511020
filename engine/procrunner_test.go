package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputSpecVideo(t *testing.T) {
	item := &MediaItem{Kind: KindVideo, Path: "/clips/shot.mov"}
	assert.Equal(t, []string{"-i", "/clips/shot.mov"}, inputSpec(item))
}

func TestInputSpecSequenceStartNumber(t *testing.T) {
	// frame_0001.png...frame_0300.png: -start_number must be 1, the real
	// first frame on disk, not 0 — parseSequenceItemPath never recovers an
	// index from the stored (always zero-filled) path template.
	item := &MediaItem{
		Kind:      KindSequence,
		Path:      "/frames/frame_0000.png",
		Framerate: Rational{24, 1},
		SeqStart:  1,
	}
	argv := inputSpec(item)
	assert.Contains(t, argv, "-start_number")
	idx := indexOf(argv, "-start_number")
	assert.Equal(t, "1", argv[idx+1])
}

func TestInputSpecSequenceForcesBT709WhenColorspaceUnknown(t *testing.T) {
	item := &MediaItem{
		Kind:      KindSequence,
		Path:      "/frames/frame_0001.png",
		Framerate: Rational{24, 1},
		SeqStart:  1,
	}
	argv := inputSpec(item)
	assert.Contains(t, argv, "-color_primaries")
}

func TestInputSpecSequenceSkipsForcedColorspaceWhenKnown(t *testing.T) {
	item := &MediaItem{
		Kind:       KindSequence,
		Path:       "/frames/frame_0001.png",
		Framerate:  Rational{24, 1},
		SeqStart:   1,
		Colorspace: "bt709",
	}
	argv := inputSpec(item)
	assert.NotContains(t, argv, "-color_primaries")
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
