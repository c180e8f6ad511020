package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOutputPathVideo(t *testing.T) {
	item := &MediaItem{Kind: KindVideo, Path: "/clips/shot.mov"}
	assert.Equal(t, "/clips/shot_prores.mov", defaultOutputPath(item, "_prores.mov"))
}

func TestDefaultOutputPathSequence(t *testing.T) {
	item := &MediaItem{Kind: KindSequence, Path: "/frames/frame_0000.png"}
	assert.Equal(t, "/frames/frame_0000_prores.mov", defaultOutputPath(item, "_prores.mov"))
}

func TestMatchesDefaultOutputFiltersOwnOutputs(t *testing.T) {
	assert.True(t, matchesDefaultOutput("/clips/shot_prores.mov", "_prores.mov"))
	assert.False(t, matchesDefaultOutput("/clips/shot.mov", "_prores.mov"))
}

func TestDefaultOutputPathIdempotentUnderFilter(t *testing.T) {
	// R1: applying derivation to an already-suffixed path is what the
	// scanner's filter exists to prevent re-ingesting.
	item := &MediaItem{Kind: KindVideo, Path: "/clips/shot_prores.mov"}
	out := defaultOutputPath(item, "_prores.mov")
	assert.True(t, matchesDefaultOutput(out, "_prores.mov"))
}
