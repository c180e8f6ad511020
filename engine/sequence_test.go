package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleSequences(t *testing.T) {
	t.Run("clusters a contiguous run", func(t *testing.T) {
		var paths []string
		for i := 1; i <= 300; i++ {
			paths = append(paths, "/frames/frame_"+padded(i, 4)+".png")
		}
		seqs := AssembleSequences(paths, 2, true)
		require.Len(t, seqs, 1)
		assert.Equal(t, "frame_", seqs[0].Head)
		assert.Equal(t, ".png", seqs[0].Tail)
		assert.Equal(t, 4, seqs[0].Padding)
		assert.Equal(t, "1-300", seqs[0].Ranges())
		assert.Equal(t, "frame_####.png (1-300)", seqs[0].DisplayName())
	})

	t.Run("discards non-contiguous clusters when contiguousOnly", func(t *testing.T) {
		paths := []string{
			"/frames/shot_0001.dpx",
			"/frames/shot_0002.dpx",
			"/frames/shot_0010.dpx",
		}
		seqs := AssembleSequences(paths, 2, true)
		assert.Empty(t, seqs)
	})

	t.Run("keeps non-contiguous clusters when contiguousOnly is false", func(t *testing.T) {
		paths := []string{
			"/frames/shot_0001.dpx",
			"/frames/shot_0002.dpx",
			"/frames/shot_0010.dpx",
		}
		seqs := AssembleSequences(paths, 2, false)
		require.Len(t, seqs, 1)
		assert.Equal(t, "1-2, 10", seqs[0].Ranges())
	})

	t.Run("below minItems is discarded", func(t *testing.T) {
		paths := []string{"/frames/shot_0001.dpx"}
		assert.Empty(t, AssembleSequences(paths, 2, true))
	})

	t.Run("separates by head, tail, dir and padding independently", func(t *testing.T) {
		paths := []string{
			"/a/frame_001.png", "/a/frame_002.png",
			"/b/frame_001.png", "/b/frame_002.png",
			"/a/other_01.png", "/a/other_02.png",
		}
		seqs := AssembleSequences(paths, 2, true)
		assert.Len(t, seqs, 3)
	})
}

func TestSequenceRoundTrip(t *testing.T) {
	seq := &Sequence{Dir: "/frames", Head: "frame_", Tail: ".png", Padding: 4, Indexes: []int{1, 2, 3}}

	template := seq.PathTemplate()
	assert.Equal(t, "/frames/frame_0000.png", template)

	head, tail, padding, ok := ParseSequenceTemplate(template)
	require.True(t, ok)
	assert.Equal(t, seq.Head, head)
	assert.Equal(t, seq.Tail, tail)
	assert.Equal(t, seq.Padding, padding)
}

func TestParseSequenceTemplateRejectsRealFrameNumbers(t *testing.T) {
	_, _, _, ok := ParseSequenceTemplate("/frames/frame_0007.png")
	assert.False(t, ok, "a real (non-zero) frame number is not a placeholder template")
}

func TestSequenceFFmpegPattern(t *testing.T) {
	seq := &Sequence{Dir: "/frames", Head: "frame_", Tail: ".png", Padding: 4, Indexes: []int{1}}
	assert.Equal(t, "/frames/frame_%04d.png", seq.FFmpegPattern())
}

func padded(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}
