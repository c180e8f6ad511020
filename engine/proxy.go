package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// commandBuffer is the channel capacity for the command side of the pipe.
// A small buffer matches the original's pipe semantics (commands are
// fire-and-forget from the UI's point of view): a send returns at once
// unless commandBuffer commands are already waiting unread, in which case
// it blocks until the Dispatcher reads one.
const commandBuffer = 64

// eventBuffer is the channel capacity for the worker-to-UI event side.
const eventBuffer = 4096

// Proxy is the typed client façade from §4.1: every operation except Join
// is non-blocking, and Poll drains the next queued event without
// blocking. Proxy never touches the catalogue directly — every method is
// just a send on the command channel.
type Proxy struct {
	commands chan command
	bus      *eventBus
	cancel   context.CancelFunc
}

// NewEngine wires up a catalogue, scanner, encode queue, and dispatcher
// around cfg, starts the dispatcher's goroutine, and returns the Proxy
// the UI shell drives — the Go analogue of create_engine() spawning the
// worker process and handing back its Proxy.
func NewEngine(cfg Config, log zerolog.Logger) *Proxy {
	commands := make(chan command, commandBuffer)
	bus := newEventBus(eventBuffer)
	cat := newCatalogue(bus, log)
	proc := NewProcRunner(cfg.Engine)
	dispatcher := newDispatcher(commands, bus, cat, cfg, proc, log)

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)

	return &Proxy{commands: commands, bus: bus, cancel: cancel}
}

// ScanPaths queues a discovery pass over paths. sequenceFramerate is used
// for any sequence discovered in this generation (probe never overrides
// it for sequences, per §4.4 step 6).
func (p *Proxy) ScanPaths(paths []string, sequenceFramerate Rational) {
	p.send(scanPathsCmd{paths: paths, seqFramerate: sequenceFramerate})
}

// CancelScan requests cooperative cancellation of any in-flight scan.
// A no-op if no scan is running.
func (p *Proxy) CancelScan() {
	p.send(cancelScanCmd{})
}

// EncodeItems queues ids for encoding with the named profile and optional
// framerate override (empty keeps each item's own framerate). Empty ids
// means "every item currently ready".
func (p *Proxy) EncodeItems(ids []string, profile, framerate string) {
	p.send(encodeItemsCmd{ids: ids, profile: profile, framerate: framerate})
}

// CancelEncode requests cooperative cancellation of any in-flight encode.
func (p *Proxy) CancelEncode() {
	p.send(cancelEncodeCmd{})
}

// RemoveItems removes ids from the catalogue, ignored for ids in new or
// encoding state.
func (p *Proxy) RemoveItems(ids []string) {
	p.send(removeItemsCmd{ids: ids})
}

// PreviewItem spawns an external player on id's source (or its outpath if
// already done), fire-and-forget.
func (p *Proxy) PreviewItem(id, framerate string) {
	p.send(previewItemCmd{id: id, framerate: framerate})
}

// Join cancels any running scan/encode, waits for the dispatcher to
// unwind, then tears down its goroutine. It is the only blocking Proxy
// operation.
func (p *Proxy) Join() {
	done := make(chan struct{})
	p.send(joinCmd{done: done})
	<-done
	p.cancel()
}

// Poll drains the next available event without blocking.
func (p *Proxy) Poll() (Event, bool) {
	return p.bus.poll()
}

func (p *Proxy) send(c command) {
	p.commands <- c
}
