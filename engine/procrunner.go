package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ProcRunner is a thin wrapper around the external ffmpeg/ffprobe/ffplay
// binaries: argv construction per media kind, process spawning, and exit
// code handling. It never parses stdout/stderr itself — that is the
// scanner's (JSON probe output) and encode queue's (progress lines) job.
type ProcRunner struct {
	FFmpegPath  string
	FFprobePath string
	FFplayPath  string
}

// NewProcRunner resolves the three binary paths per §4.6: on a
// Windows-like OS, relative to a bin/ directory next to the running
// executable; otherwise left as bare names so exec.Command resolves them
// against the process PATH. An explicit cfg.FFmpegPath (from the [engine]
// config section) overrides both, exactly as configured.
func NewProcRunner(cfg EngineConfig) *ProcRunner {
	if cfg.FFmpegPath != "" {
		dir := filepath.Dir(cfg.FFmpegPath)
		return &ProcRunner{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: filepath.Join(dir, binaryName("ffprobe")),
			FFplayPath:  filepath.Join(dir, binaryName("ffplay")),
		}
	}
	return &ProcRunner{
		FFmpegPath:  resolveBinary("ffmpeg"),
		FFprobePath: resolveBinary("ffprobe"),
		FFplayPath:  resolveBinary("ffplay"),
	}
}

func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// resolveBinary implements the bin/-next-to-executable convention on
// Windows, and bare-name-via-PATH everywhere else.
func resolveBinary(name string) string {
	if runtime.GOOS != "windows" {
		return name
	}
	exe, err := os.Executable()
	if err != nil {
		return binaryName(name)
	}
	return filepath.Join(filepath.Dir(exe), "bin", binaryName(name))
}

// quoteArg quotes an argv element for human-readable logging when it
// contains whitespace. exec.Command itself never goes through a shell, so
// this is purely cosmetic — it exists because the spec calls for quoting
// paths with spaces "when composing argv strings" for display/log
// purposes.
func quoteArg(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// formatArgv renders argv as a loggable command line.
func formatArgv(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = quoteArg(a)
	}
	return strings.Join(parts, " ")
}

// inputSpec builds the ffmpeg-style input arguments for item, per §4.6:
// a plain -i for video, and -framerate/-start_number (plus a forced
// BT.709 colour-spec when the item has no recorded colorspace) for a
// sequence. -start_number comes from item.SeqStart (the real first frame
// index recorded at scan time), never from re-parsing the path template —
// the template is always zero-filled and carries no index information.
func inputSpec(item *MediaItem) []string {
	if item.Kind == KindSequence {
		seq, tail, padding, ok := parseSequenceItemPath(item.Path)
		_ = tail
		_ = padding
		var pattern string
		if ok {
			pattern = seq.FFmpegPattern()
		} else {
			pattern = item.Path
		}

		args := []string{
			"-framerate", fmt.Sprintf("%d:%d", item.Framerate.Num, item.Framerate.Den),
		}
		if item.Colorspace == "" {
			args = append(args,
				"-color_primaries", "bt709",
				"-color_trc", "bt709",
				"-colorspace", "bt709",
			)
		}
		args = append(args,
			"-start_number", fmt.Sprintf("%d", item.SeqStart),
			"-i", pattern,
		)
		return args
	}

	return []string{"-i", item.Path}
}

// parseSequenceItemPath recovers a Sequence description (head/tail/padding)
// from a MediaItem's stored path template, so inputSpec and output-path
// derivation can work from the item alone.
func parseSequenceItemPath(path string) (*Sequence, string, int, bool) {
	head, tail, padding, ok := ParseSequenceTemplate(path)
	if !ok {
		return nil, "", 0, false
	}
	seq := &Sequence{
		Dir:     filepath.Dir(path),
		Head:    head,
		Tail:    tail,
		Padding: padding,
	}
	return seq, tail, padding, true
}

// run executes argv to completion and returns captured stdout. A non-zero
// exit is an error carrying the last line of the captured stderr.
func (p *ProcRunner) run(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", formatArgv(argv), err, lastLine(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// handle is a supervised child process: unbuffered stderr for byte-wise
// progress parsing, and kill/wait/pid for the encode queue's cancellation
// path.
type handle struct {
	cmd    *exec.Cmd
	stderr *os.File
}

// spawn launches argv with stderr piped for byte-wise reading (bufsize=0
// in the Python original's terms — no Go buffering layer between the pipe
// and the reader) and stdout discarded unless redirected by the caller via
// stdoutWriter.
func (p *ProcRunner) spawn(ctx context.Context, argv []string, stdoutWriter *os.File) (*handle, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if stdoutWriter != nil {
		cmd.Stdout = stdoutWriter
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	// cmd.StderrPipe returns an io.ReadCloser backed by an *os.File on
	// every supported platform; the encode queue consumes it one byte at a
	// time through a bufio.Reader, whose reads return whatever the pipe
	// already holds, so progress lines are not held back.
	f, ok := stderrPipe.(*os.File)
	if !ok {
		return nil, fmt.Errorf("stderr pipe is not a file (unsupported platform)")
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &handle{cmd: cmd, stderr: f}, nil
}

func (h *handle) kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func (h *handle) wait() error {
	return h.cmd.Wait()
}

func (h *handle) pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
