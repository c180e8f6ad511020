package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// command is the closed set of messages the Proxy can send to the
// Dispatcher, the Go-typed analogue of §6's {command, kwargs} messages.
type command interface {
	isCommand()
}

type scanPathsCmd struct {
	paths        []string
	seqFramerate Rational
}

type cancelScanCmd struct{}

type encodeItemsCmd struct {
	ids       []string
	profile   string
	framerate string
}

type cancelEncodeCmd struct{}

type removeItemsCmd struct {
	ids []string
}

type previewItemCmd struct {
	id        string
	framerate string
}

type joinCmd struct {
	done chan struct{}
}

func (scanPathsCmd) isCommand()    {}
func (cancelScanCmd) isCommand()   {}
func (encodeItemsCmd) isCommand()  {}
func (cancelEncodeCmd) isCommand() {}
func (removeItemsCmd) isCommand()  {}
func (previewItemCmd) isCommand()  {}
func (joinCmd) isCommand()         {}

// Dispatcher is the single-threaded cooperative command loop from §4.2: it
// reads one command, fully handles it, then reads the next, with
// long-running scan/encode generations re-entering the command reader in
// non-blocking mode (drain) at every suspension point (§5).
type Dispatcher struct {
	commands chan command

	bus     *eventBus
	cat     *catalogue
	cfg     Config
	proc    *ProcRunner
	scanner *scanner
	queue   *encodeQueue
	log     zerolog.Logger

	scanPending      []string
	scanSeqFramerate Rational
	scanActive       bool
	scanCancelled    bool

	encodeActive    bool
	encodeCancelled bool

	// deferred holds commands that arrived while the "wrong" generation
	// was running (an encode_items mid-scan, or a scan_paths mid-encode):
	// accepted, not rejected, per the documented resolution of open
	// question 2 — replayed once the current generation yields control
	// back to the top of the loop.
	deferred []command

	joinRequested bool
	joinWaiters   []chan struct{}
}

func newDispatcher(commands chan command, bus *eventBus, cat *catalogue, cfg Config, proc *ProcRunner, log zerolog.Logger) *Dispatcher {
	log = componentLogger(log, "dispatcher")
	return &Dispatcher{
		commands: commands,
		bus:      bus,
		cat:      cat,
		cfg:      cfg,
		proc:     proc,
		scanner:  newScanner(cat, proc, cfg, log),
		queue:    newEncodeQueue(cat, proc, cfg, log),
		log:      log,
	}
}

// Run is the top-level loop. It returns once join has been requested and
// every in-flight generation has unwound.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		if d.joinRequested && !d.scanActive && !d.encodeActive {
			d.finishJoin()
			return
		}

		select {
		case cmd := <-d.commands:
			d.dispatch(ctx, cmd)
			d.processDeferred(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drain is the suspension-point poller: it non-blockingly processes every
// command currently queued, routing it through the same dispatch logic a
// top-level read would use. Since scanActive/encodeActive are already set
// while a generation is running, dispatch's own guards naturally divert
// overlapping commands to scanPending or deferred without drain needing
// its own copy of that logic.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-d.commands:
			d.dispatch(ctx, cmd)
		default:
			return
		}
	}
}

// processDeferred replays every currently-deferred command in arrival
// order. Replaying one may itself start a new generation whose own drain
// appends further deferred commands — the loop re-checks length each
// iteration so those are picked up too, without recursing.
func (d *Dispatcher) processDeferred(ctx context.Context) {
	for len(d.deferred) > 0 {
		cmd := d.deferred[0]
		d.deferred = d.deferred[1:]
		d.dispatch(ctx, cmd)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd command) {
	switch c := cmd.(type) {
	case scanPathsCmd:
		d.handleScanPaths(ctx, c)
	case cancelScanCmd:
		d.scanCancelled = true
	case encodeItemsCmd:
		d.handleEncodeItems(ctx, c)
	case cancelEncodeCmd:
		d.encodeCancelled = true
	case removeItemsCmd:
		d.handleRemoveItems(c)
	case previewItemCmd:
		d.handlePreviewItem(ctx, c)
	case joinCmd:
		d.scanCancelled = true
		d.encodeCancelled = true
		d.joinRequested = true
		d.joinWaiters = append(d.joinWaiters, c.done)
	}
}

func (d *Dispatcher) handleScanPaths(ctx context.Context, c scanPathsCmd) {
	if d.encodeActive {
		d.deferred = append(d.deferred, c)
		return
	}
	if d.scanActive {
		// Additional scan_paths during a scan append to the in-flight
		// scan, per §3's catalogue invariant.
		d.scanPending = append(d.scanPending, c.paths...)
		return
	}
	d.runScanGeneration(ctx, c.paths, c.seqFramerate)
}

func (d *Dispatcher) runScanGeneration(ctx context.Context, paths []string, seqFramerate Rational) {
	d.scanActive = true
	d.scanCancelled = false
	d.scanPending = nil

	appendPaths := func() []string {
		d.drain(ctx)
		p := d.scanPending
		d.scanPending = nil
		return p
	}
	suspend := func() bool {
		d.drain(ctx)
		return d.scanCancelled
	}

	d.scanner.run(ctx, paths, seqFramerate, appendPaths, suspend)

	d.scanActive = false
	d.scanCancelled = false
	d.scanPending = nil
}

func (d *Dispatcher) handleEncodeItems(ctx context.Context, c encodeItemsCmd) {
	if d.scanActive {
		d.deferred = append(d.deferred, c)
		return
	}
	if d.encodeActive {
		// §4.5 reentrancy rule: encode_items while already encoding is
		// ignored outright (no append), distinct from the mid-scan case.
		d.log.Info().Msg("encode_items ignored: already encoding")
		return
	}
	d.runEncodeGeneration(ctx, c)
}

func (d *Dispatcher) runEncodeGeneration(ctx context.Context, c encodeItemsCmd) {
	d.encodeActive = true
	d.encodeCancelled = false

	profile, ok := EncodingProfiles[c.profile]
	if !ok {
		profile = EncodingProfiles["prores_422_hq"]
	}

	var frOverride *Rational
	if c.framerate != "" {
		if fr, ok := Framerates[c.framerate]; ok {
			rate := fr.Rate
			frOverride = &rate
		}
	}

	suspend := func() bool {
		d.drain(ctx)
		return d.encodeCancelled
	}

	d.queue.run(ctx, c.ids, profile, frOverride, suspend)

	d.encodeActive = false
	d.encodeCancelled = false
}

func (d *Dispatcher) handleRemoveItems(c removeItemsCmd) {
	for _, id := range c.ids {
		item, ok := d.cat.lookup(id)
		if !ok {
			continue
		}
		// §3: ignored for items in new or encoding.
		if item.State == StateNew || item.State == StateEncoding {
			continue
		}
		d.cat.delete(id)
	}
}

func (d *Dispatcher) handlePreviewItem(ctx context.Context, c previewItemCmd) {
	item, ok := d.cat.lookup(c.id)
	if !ok {
		return
	}

	preview := *item
	if c.framerate != "" {
		if fr, ok := Framerates[c.framerate]; ok {
			preview.Framerate = fr.Rate
		}
	}

	var argv []string
	if preview.State == StateDone && preview.OutPath != "" {
		argv = []string{d.proc.FFplayPath, "-i", preview.OutPath}
	} else {
		argv = append([]string{d.proc.FFplayPath}, inputSpec(&preview)...)
	}

	// Fire-and-forget per the documented resolution of open question 4:
	// not tracked by ProcRunner's supervised bookkeeping, not cancellable.
	// The background wait only reaps the process; it observes nothing.
	h, err := d.proc.spawn(ctx, argv, nil)
	if err != nil {
		d.log.Warn().Err(err).Str("id", c.id).Msg("preview_item: spawn failed")
		return
	}
	go func() { _ = h.wait() }()
}

func (d *Dispatcher) finishJoin() {
	for _, w := range d.joinWaiters {
		close(w)
	}
	d.joinWaiters = nil
}
