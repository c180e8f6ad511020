package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var videoExtensions = map[string]bool{
	"avi": true, "mov": true, "mp4": true, "m4v": true, "mkv": true, "webm": true,
}

var imageExtensions = map[string]bool{
	"png": true, "tif": true, "tiff": true, "jpg": true, "jpeg": true, "dpx": true, "exr": true,
}

// scanUpdateThrottle is the minimum interval between scan_update events,
// per §4.4 ("throttled to at most one update every 300ms").
const scanUpdateThrottle = 300 * time.Millisecond

// fileCategory is the result of extension classification, distinct from
// Kind: a single image is never itself a catalogue Kind, only a cluster
// of them (assembled into a Sequence) is.
type fileCategory int

const (
	categoryNone fileCategory = iota
	categoryVideo
	categoryImage
)

// classify reports which category a path falls into by extension, or
// categoryNone if it isn't a recognised video or image type. A bare name
// with no leading dot on its extension is not a file per §4.4 step 1.
func classify(path string) fileCategory {
	ext := filepath.Ext(path)
	if ext == "" || ext[0] != '.' {
		return categoryNone
	}
	ext = strings.ToLower(ext[1:])
	switch {
	case videoExtensions[ext]:
		return categoryVideo
	case imageExtensions[ext]:
		return categoryImage
	default:
		return categoryNone
	}
}

// scanner implements §4.4: directory walking, extension classification,
// sequence assembly, and the per-item probe+thumbnail pipeline, all
// cooperatively cancellable via the poll callback supplied by the
// dispatcher at each suspension point.
type scanner struct {
	cat  *catalogue
	proc *ProcRunner
	cfg  Config
	log  zerolog.Logger
}

func newScanner(cat *catalogue, proc *ProcRunner, cfg Config, log zerolog.Logger) *scanner {
	return &scanner{cat: cat, proc: proc, cfg: cfg, log: componentLogger(log, "scanner")}
}

// scanSuspend is called at every suspension point the scanner reaches. It
// returns true if the generation should stop immediately (cancelled or
// joining).
type scanSuspend func() (cancelled bool)

// run walks every path in paths (mutated as more arrive via appendPaths),
// assembling sequences and running the per-item pipeline, throttled to one
// scan_update per scanUpdateThrottle. It returns true if the generation
// ended via cancellation.
func (s *scanner) run(ctx context.Context, paths []string, seqFramerate Rational, appendPaths func() []string, suspend scanSuspend) bool {
	var videos []string
	var images []string
	totalDirs := 0
	totalFiles := 0
	lastUpdate := time.Time{}

	// ingestedSeqs tracks which clusters (dir+head+tail+padding) have
	// already been ingested this generation. drainDiscovered re-runs
	// AssembleSequences over the full, growing images list on every
	// throttled tick, so without this a sequence that already reached
	// ready would be re-ingested with state=new on the next tick — not a
	// transition in the §3 state machine, and a violation of I1.
	ingestedSeqs := make(map[string]bool)

	emitUpdate := func(force bool) bool {
		if !force && time.Since(lastUpdate) < scanUpdateThrottle {
			return false
		}
		lastUpdate = time.Now()
		s.cat.bus.publish(Event{Kind: EventScanUpdate, Dirs: totalDirs, Files: totalFiles})
		return true
	}

	drainDiscovered := func() bool {
		// Incremental visibility: catalogue whatever sequences/videos are
		// assembled so far, running the full probe/thumbnail pipeline
		// before continuing the walk. This is also where cooperative
		// cancellation and additional scan_paths commands are observed.
		seqs := AssembleSequences(images, s.cfg.Clique.MinimumItems, s.cfg.Clique.ContiguousOnly)
		for _, seq := range seqs {
			key := fmt.Sprintf("%s|%s|%s|%d", seq.Dir, seq.Head, seq.Tail, seq.Padding)
			if ingestedSeqs[key] {
				continue
			}
			ingestedSeqs[key] = true
			s.ingestSequence(ctx, seq, seqFramerate)
			if suspend() {
				return true
			}
		}
		for _, v := range videos {
			s.ingestVideo(ctx, v)
			if suspend() {
				return true
			}
		}
		videos = videos[:0]
		return false
	}

	walkOne := func(root string) bool {
		info, err := os.Stat(root)
		if err != nil {
			// DiscoveryError: non-existent paths are silently ignored.
			s.log.Debug().Err(err).Str("path", root).Msg("scan: path not found, ignoring")
			return false
		}

		if !info.IsDir() {
			totalFiles++
			s.classifyAndAccumulate(root, &videos, &images)
			return false
		}

		return filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				s.log.Debug().Err(err).Str("path", path).Msg("scan: walk error, ignoring")
				return nil
			}
			if fi.IsDir() {
				totalDirs++
			} else {
				totalFiles++
				s.classifyAndAccumulate(path, &videos, &images)
			}

			if emitUpdate(false) {
				if drainDiscovered() {
					return errScanCancelled
				}
			}
			if suspend() {
				return errScanCancelled
			}
			return nil
		}) == errScanCancelled
	}

	cancelled := false
remaining:
	for len(paths) > 0 {
		for _, p := range paths {
			if walkOne(p) {
				cancelled = true
				break remaining
			}
		}
		paths = appendPaths()
	}

	if !cancelled {
		emitUpdate(true)
		cancelled = drainDiscovered()
	}

	if cancelled {
		s.sweepNewItems()
		s.cat.bus.publish(Event{Kind: EventScanCancelled})
		return true
	}

	s.cat.bus.publish(Event{Kind: EventScanComplete})
	return false
}

var errScanCancelled = fmt.Errorf("scan cancelled")

func (s *scanner) classifyAndAccumulate(path string, videos, images *[]string) {
	switch classify(path) {
	case categoryVideo:
		if matchesDefaultOutput(path, s.cfg.Engine.OutputSuffix) {
			s.log.Info().Str("path", path).Msg("scan ignoring default output")
			return
		}
		*videos = append(*videos, path)
	case categoryImage:
		*images = append(*images, path)
	}
}

// sweepNewItems deletes every catalogue item still in state "new" after a
// cancellation — items that reached "ready" survive, per §4.4 step 7.
func (s *scanner) sweepNewItems() {
	for _, id := range s.cat.idsInState(StateNew) {
		s.cat.delete(id)
	}
}

func (s *scanner) ingestVideo(ctx context.Context, path string) {
	abs, err := canonicalPath(path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("scan: cannot canonicalize")
		return
	}
	id := CalcMediaID(abs)

	s.cat.upsert(id, fields{
		"kind":        KindVideo,
		"path":        abs,
		"dirpath":     filepath.Dir(abs),
		"filename":    filepath.Base(abs),
		"displayname": filepath.Base(abs),
		"state":       StateNew,
	})

	s.runItemPipeline(ctx, id)
}

func (s *scanner) ingestSequence(ctx context.Context, seq *Sequence, seqFramerate Rational) {
	path := seq.PathTemplate()
	abs, err := canonicalPath(path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("scan: cannot canonicalize")
		return
	}
	id := CalcMediaID(abs)

	s.cat.upsert(id, fields{
		"kind":        KindSequence,
		"path":        abs,
		"dirpath":     filepath.Dir(abs),
		"filename":    filepath.Base(abs),
		"displayname": seq.DisplayName(),
		"framerate":   seqFramerate,
		"seqstart":    seq.FirstIndex(),
		"state":       StateNew,
	})

	s.runItemPipeline(ctx, id)
}

// runItemPipeline is §4.4 step 6: probe then thumbnail; success promotes
// to ready, either sub-step's failure deletes the item from the
// catalogue (it never remains "new").
func (s *scanner) runItemPipeline(ctx context.Context, id string) {
	item, ok := s.cat.lookup(id)
	if !ok {
		return
	}

	if err := s.probe(ctx, item); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("probe failed, dropping item")
		s.cat.delete(id)
		return
	}

	if err := s.thumbnail(ctx, item); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("thumbnail failed, dropping item")
		s.cat.delete(id)
		return
	}

	s.cat.upsert(id, fields{"state": StateReady})
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PixFmt     string `json:"pix_fmt"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
	ColorSpace string `json:"color_space"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// probe invokes ffprobe against item, per §4.4 step 6: parses codec,
// resolution, framerate, pixfmt, duration, colorspace, filesize.
func (s *scanner) probe(ctx context.Context, item *MediaItem) error {
	argv := append([]string{s.proc.FFprobePath,
		"-loglevel", "panic",
		"-show_streams",
		"-print_format", "json",
	}, inputSpec(item)...)

	out, err := s.proc.run(ctx, argv)
	if err != nil {
		return fmt.Errorf("ffprobe: %w", err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return fmt.Errorf("ffprobe: parse json: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return fmt.Errorf("ffprobe: no streams")
	}
	st := parsed.Streams[0]

	framerate := parseRFrameRate(st.RFrameRate)
	if item.Kind == KindSequence {
		// §4.4: for sequences, the probed framerate is discarded in
		// favour of the scan-supplied value already on the item.
		framerate = item.Framerate
	}

	duration, _ := strconv.ParseFloat(st.Duration, 64)

	filesize, err := s.itemFileSize(item)
	if err != nil {
		return fmt.Errorf("filesize: %w", err)
	}

	s.cat.upsert(item.ID, fields{
		"codec":      st.CodecName,
		"resolution": Resolution{Width: st.Width, Height: st.Height},
		"framerate":  framerate,
		"pixfmt":     st.PixFmt,
		"colorspace": st.ColorSpace,
		"duration":   duration,
		"filesize":   filesize,
	})
	return nil
}

// parseRFrameRate parses ffprobe's "num/den" framerate string. A zero
// denominator yields (0,0) rather than a division error.
func parseRFrameRate(s string) Rational {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Rational{}
	}
	num, err1 := strconv.Atoi(parts[0])
	den, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || den == 0 {
		return Rational{}
	}
	return Rational{Num: num, Den: den}
}

func (s *scanner) itemFileSize(item *MediaItem) (int64, error) {
	if item.Kind == KindVideo {
		info, err := os.Stat(item.Path)
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	}

	seq, _, _, ok := parseSequenceItemPath(item.Path)
	if !ok {
		return 0, fmt.Errorf("cannot parse sequence path %q", item.Path)
	}
	// The Dir used to recover the sequence's on-disk members must come
	// from the item's own directory (the path template already carries
	// it), and its member indexes are whatever is actually on disk —
	// approximate by re-listing the directory for matching files.
	members, err := seq.resolveMembers()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, m := range members {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// resolveMembers lists the sequence's directory and returns every path
// that actually matches head+digits+tail, regardless of the frame range
// the Sequence was assembled with — used once at probe time rather than
// relying on the in-memory Indexes (which reflect the walk snapshot).
func (s *Sequence) resolveMembers() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, s.Head) || !strings.HasSuffix(name, s.Tail) {
			continue
		}
		mid := strings.TrimSuffix(strings.TrimPrefix(name, s.Head), s.Tail)
		if len(mid) != s.Padding {
			continue
		}
		if _, err := strconv.Atoi(mid); err != nil {
			continue
		}
		out = append(out, filepath.Join(s.Dir, name))
	}
	return out, nil
}

// thumbnail invokes ffmpeg to extract one JPEG frame at offset 0, scaled
// to height 256 preserving aspect ratio, delivered on stdout.
func (s *scanner) thumbnail(ctx context.Context, item *MediaItem) error {
	argv := append([]string{s.proc.FFmpegPath,
		"-v", "0",
		"-ss", "0",
		"-noaccurate_seek",
	}, inputSpec(item)...)
	argv = append(argv,
		"-frames:v", "1",
		"-vf", "scale=-1:256",
		"-f", "singlejpeg",
		"-y", "-",
	)

	out, err := s.proc.run(ctx, argv)
	if err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w", err)
	}

	s.cat.upsert(item.ID, fields{"thumbnail": out})
	return nil
}
