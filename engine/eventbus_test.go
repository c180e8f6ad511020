package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPollIsFIFOAndNeverBlocks(t *testing.T) {
	bus := newEventBus(8)

	_, ok := bus.poll()
	assert.False(t, ok, "poll on an empty bus returns immediately")

	bus.publish(Event{Kind: EventScanUpdate, Dirs: 1})
	bus.publish(Event{Kind: EventScanUpdate, Dirs: 2})
	bus.publish(Event{Kind: EventScanComplete})

	ev1, ok := bus.poll()
	require.True(t, ok)
	assert.Equal(t, 1, ev1.Dirs)

	ev2, ok := bus.poll()
	require.True(t, ok)
	assert.Equal(t, 2, ev2.Dirs)

	ev3, ok := bus.poll()
	require.True(t, ok)
	assert.Equal(t, EventScanComplete, ev3.Kind)

	_, ok = bus.poll()
	assert.False(t, ok)
}
