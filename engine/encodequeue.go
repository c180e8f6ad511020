package engine

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`time=\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// encodeJob is one FIFO entry: the catalogue id plus a UUID ticket used
// purely for log correlation across the child process's lifetime.
type encodeJob struct {
	id     string
	ticket uuid.UUID
}

// encodeQueue implements §4.5: a one-at-a-time FIFO ProRes encode queue
// supervising ffmpeg children, with byte-wise stderr progress parsing and
// cooperative cancellation.
type encodeQueue struct {
	cat  *catalogue
	proc *ProcRunner
	cfg  Config
	log  zerolog.Logger
}

func newEncodeQueue(cat *catalogue, proc *ProcRunner, cfg Config, log zerolog.Logger) *encodeQueue {
	return &encodeQueue{cat: cat, proc: proc, cfg: cfg, log: componentLogger(log, "encodequeue")}
}

// encodeSuspend is polled before each job and, while a job is running,
// whenever 50ms pass without a progress tick or child exit; it is what
// lets the dispatcher observe cancel_encode, and it reports whether the
// dispatcher's cancel flag is set.
type encodeSuspend func() (cancelled bool)

// run processes ids (or, if empty, every item currently in "ready") one at
// a time to completion or cancellation. profile/framerate select the
// ProRes variant and framerate override applied to every job in this
// generation, matching encode_items's single call taking one profile for
// the whole batch.
func (q *encodeQueue) run(ctx context.Context, ids []string, profile EncodingProfile, frOverride *Rational, suspend encodeSuspend) {
	jobs := q.buildJobs(ids)

	if len(jobs) == 0 {
		q.cat.bus.publish(Event{Kind: EventEncodeComplete})
		return
	}

	for _, job := range jobs {
		if suspend() {
			q.drainCancelled(jobs, job)
			q.cat.bus.publish(Event{Kind: EventEncodeCancelled})
			return
		}

		item, ok := q.cat.lookup(job.id)
		if !ok {
			continue
		}
		if item.State != StateReady && item.State != StateQueued {
			continue
		}

		if frOverride != nil {
			item = q.cat.upsert(job.id, fields{"framerate": *frOverride})
		}
		q.cat.upsert(job.id, fields{"state": StateEncoding, "progress": 0.0})

		cancelled := q.runJob(ctx, job, item, profile, suspend)
		if cancelled {
			q.cat.upsert(job.id, fields{"state": StateReady, "progress": 0.0})
			q.drainRemaining(jobs, job)
			q.cat.bus.publish(Event{Kind: EventEncodeCancelled})
			return
		}
	}

	q.cat.bus.publish(Event{Kind: EventEncodeComplete})
}

// buildJobs resolves the ids argument per §4.5: an explicit, non-empty
// list encodes exactly those ids in the order given; an empty list seeds
// the queue from every item currently "ready", in the map iteration order
// idsInState returns, so the order of that batch is not defined.
func (q *encodeQueue) buildJobs(ids []string) []encodeJob {
	var source []string
	if len(ids) > 0 {
		source = ids
	} else {
		source = q.cat.idsInState(StateReady)
	}

	jobs := make([]encodeJob, 0, len(source))
	for _, id := range source {
		item, ok := q.cat.lookup(id)
		if !ok || item.State != StateReady {
			continue
		}
		q.cat.upsert(id, fields{"state": StateQueued})
		jobs = append(jobs, encodeJob{id: id, ticket: uuid.New()})
	}
	return jobs
}

// drainCancelled reverts every still-queued job (the current one hadn't
// even started) back to ready when cancellation is observed before a job
// began.
func (q *encodeQueue) drainCancelled(jobs []encodeJob, from encodeJob) {
	started := false
	for _, j := range jobs {
		if j == from {
			started = true
		}
		if started {
			if item, ok := q.cat.lookup(j.id); ok && item.State == StateQueued {
				q.cat.upsert(j.id, fields{"state": StateReady})
			}
		}
	}
}

// drainRemaining reverts every job after the one that was cancelled
// mid-encode back to ready, since the whole batch stops on cancellation.
func (q *encodeQueue) drainRemaining(jobs []encodeJob, current encodeJob) {
	found := false
	for _, j := range jobs {
		if found {
			if item, ok := q.cat.lookup(j.id); ok && item.State == StateQueued {
				q.cat.upsert(j.id, fields{"state": StateReady})
			}
		}
		if j == current {
			found = true
		}
	}
}

// runJob spawns ffmpeg for one item, parses its stderr progress stream,
// and returns true if cancellation was observed before the child exited.
func (q *encodeQueue) runJob(ctx context.Context, job encodeJob, item *MediaItem, profile EncodingProfile, suspend encodeSuspend) bool {
	jlog := q.log.With().Str("id", job.id).Str("ticket", job.ticket.String()).Logger()

	outPath := defaultOutputPath(item, q.cfg.Engine.OutputSuffix)
	argv := q.buildArgv(item, profile, outPath)

	jlog.Info().Str("argv", formatArgv(argv)).Msg("encode starting")

	h, err := q.proc.spawn(ctx, argv, nil)
	if err != nil {
		jlog.Error().Err(err).Msg("spawn failed")
		q.cat.upsert(job.id, fields{"state": StateError, "progress": 0.0})
		return false
	}

	progressCh := make(chan float64, 8)
	doneCh := make(chan error, 1)

	go func() {
		defer close(progressCh)
		parseProgress(h.stderr, item.Duration, progressCh)
	}()
	go func() {
		doneCh <- h.wait()
	}()

	cancelled := false
	lastEmitted := -1.0
	var waitErr error

loop:
	for {
		select {
		case p, ok := <-progressCh:
			if !ok {
				progressCh = nil
				continue
			}
			if int(p*100) != int(lastEmitted*100) {
				lastEmitted = p
				q.cat.upsert(job.id, fields{"progress": p})
			}
		case waitErr = <-doneCh:
			break loop
		case <-time.After(50 * time.Millisecond):
			if suspend() {
				cancelled = true
				_ = h.kill()
				waitErr = <-doneCh
				break loop
			}
		}
	}

	// Drain any remaining buffered progress ticks so the reader goroutine
	// can't leak a blocked send after we stop selecting on progressCh.
	// A nil progressCh was already closed and drained inside the loop.
	if progressCh != nil {
		for range progressCh {
		}
	}

	if cancelled {
		jlog.Info().Msg("encode cancelled")
		return true
	}

	if waitErr != nil {
		jlog.Warn().Err(waitErr).Msg("encode failed")
		q.cat.upsert(job.id, fields{"state": StateError, "progress": 0.0})
		return false
	}

	jlog.Info().Msg("encode complete")
	q.cat.upsert(job.id, fields{"state": StateDone, "progress": 1.0, "outpath": outPath})
	return false
}

// buildArgv assembles the ffmpeg argv for one ProRes encode job: input
// spec (per item kind), then the encoding profile's codec/profile/vendor/
// pixfmt flags, then the output path.
func (q *encodeQueue) buildArgv(item *MediaItem, profile EncodingProfile, outPath string) []string {
	argv := []string{q.proc.FFmpegPath, "-y"}
	argv = append(argv, inputSpec(item)...)
	argv = append(argv,
		"-c:v", profile.Codec,
		"-profile:v", strconv.Itoa(profile.Profile),
		"-vendor", profile.Vendor,
		"-pix_fmt", profile.PixFmt,
		outPath,
	)
	return argv
}

// parseProgress reads r byte-wise (matching the Python original's
// bufsize=0 child stderr), treating both \r and \n as line terminators
// since ffmpeg rewrites its progress line with \r, and emits a fractional
// [0,1] completion estimate on progressCh whenever a time= line is seen,
// given the item's total duration in seconds. Lines are also scanned once
// for an ffmpeg-reported Duration: header, which is ignored in favour of
// the already-known item.Duration but kept as a fallback when duration is
// zero (e.g. an image sequence with no probed duration).
func parseProgress(r io.Reader, knownDuration float64, out chan<- float64) {
	reader := bufio.NewReader(r)
	var line strings.Builder
	totalDuration := knownDuration

	flush := func() {
		text := line.String()
		line.Reset()
		if text == "" {
			return
		}
		if totalDuration == 0 {
			if m := durationPattern.FindStringSubmatch(text); m != nil {
				totalDuration = hmsToSeconds(m[1], m[2], m[3])
			}
		}
		if m := timePattern.FindStringSubmatch(text); m != nil && totalDuration > 0 {
			elapsed := hmsToSeconds(m[1], m[2], m[3])
			pct := elapsed / totalDuration
			if pct > 1 {
				pct = 1
			}
			if pct < 0 {
				pct = 0
			}
			out <- pct
		}
	}

	for {
		b, err := reader.ReadByte()
		if err != nil {
			flush()
			return
		}
		if b == '\r' || b == '\n' {
			flush()
			continue
		}
		line.WriteByte(b)
	}
}

func hmsToSeconds(h, m, s string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.ParseFloat(s, 64)
	return float64(hh)*3600 + float64(mm)*60 + ss
}
