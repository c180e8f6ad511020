package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, chan command, *eventBus) {
	t.Helper()
	commands := make(chan command, 16)
	bus := newEventBus(256)
	cat := newCatalogue(bus, zerolog.Nop())
	cfg := defaultConfig()
	proc := NewProcRunner(cfg.Engine)
	d := newDispatcher(commands, bus, cat, cfg, proc, zerolog.Nop())
	return d, commands, bus
}

func waitForEvent(t *testing.T, bus *eventBus, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ev, ok := bus.poll(); ok {
			if ev.Kind == kind {
				return ev
			}
			continue
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "timed out waiting for event", "kind=%s", kind)
	return Event{}
}

func TestDispatcherScanEmptyDirectoryCompletes(t *testing.T) {
	d, commands, bus := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	commands <- scanPathsCmd{paths: []string{t.TempDir()}, seqFramerate: Rational{24, 1}}
	waitForEvent(t, bus, EventScanComplete, 2*time.Second)
}

func TestDispatcherEncodeItemsEmptyCatalogueCompletesImmediately(t *testing.T) {
	d, commands, bus := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	commands <- encodeItemsCmd{profile: "prores_422_hq"}
	waitForEvent(t, bus, EventEncodeComplete, 2*time.Second)
}

func TestDispatcherJoinUnwindsAfterIdle(t *testing.T) {
	d, commands, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	done := make(chan struct{})
	commands <- joinCmd{done: done}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "join never completed")
	}
}

func TestDispatcherRemoveItemsIgnoresNewAndEncoding(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	d.cat.upsert("new-item", fields{"state": StateNew})
	d.cat.upsert("encoding-item", fields{"state": StateEncoding})
	d.cat.upsert("ready-item", fields{"state": StateReady})

	d.handleRemoveItems(removeItemsCmd{ids: []string{"new-item", "encoding-item", "ready-item"}})

	_, ok := d.cat.lookup("new-item")
	assert.True(t, ok, "new items are not removed")
	_, ok = d.cat.lookup("encoding-item")
	assert.True(t, ok, "encoding items are not removed")
	_, ok = d.cat.lookup("ready-item")
	assert.False(t, ok, "ready items are removed")
}
