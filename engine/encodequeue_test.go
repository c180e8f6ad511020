package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgressEmitsFractionOfKnownDuration(t *testing.T) {
	// ffmpeg rewrites its progress line in place with \r; both \r and \n
	// must be treated as line terminators (§4.5 / §9 child-stderr note).
	stderr := "frame=1 time=00:00:05.00 bitrate=N/A\r" +
		"frame=2 time=00:00:10.00 bitrate=N/A\r" +
		"frame=3 time=00:00:20.00 bitrate=N/A\n"

	out := make(chan float64, 8)
	parseProgress(strings.NewReader(stderr), 20, out)
	close(out)

	var got []float64
	for p := range out {
		got = append(got, p)
	}
	require.Len(t, got, 3)
	assert.InDelta(t, 0.25, got[0], 0.001)
	assert.InDelta(t, 0.5, got[1], 0.001)
	assert.InDelta(t, 1.0, got[2], 0.001)
}

func TestParseProgressFallsBackToDurationHeader(t *testing.T) {
	stderr := "Duration: 00:01:00.00, start: 0.000000\r" +
		"frame=1 time=00:00:30.00 bitrate=N/A\n"

	out := make(chan float64, 8)
	parseProgress(strings.NewReader(stderr), 0, out)
	close(out)

	var got []float64
	for p := range out {
		got = append(got, p)
	}
	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0], 0.001)
}

func TestParseProgressZeroDurationEmitsNothing(t *testing.T) {
	stderr := "frame=1 time=00:00:05.00 bitrate=N/A\n"

	out := make(chan float64, 8)
	parseProgress(strings.NewReader(stderr), 0, out)
	close(out)

	_, ok := <-out
	assert.False(t, ok, "no total duration means no progress fraction is computable")
}

func TestHmsToSeconds(t *testing.T) {
	assert.Equal(t, 3661.5, hmsToSeconds("01", "01", "01.5"))
}
