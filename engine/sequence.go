package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Sequence is a cluster of numbered frame files sharing a common head and
// tail around a fixed-width digit run: head{digits}tail. It is this
// module's reimplementation of the behaviour the Python original gets from
// the `clique` library (clique.assemble / clique.parse / seq.format) —
// no Go equivalent of that library exists, so the head/tail/padding/ranges
// contract is rebuilt directly from the observed call sites in
// original_source/traumenc/engine.go.
type Sequence struct {
	Dir     string // directory all members live in
	Head    string // basename prefix, e.g. "frame_"
	Tail    string // basename suffix including extension, e.g. ".png"
	Padding int    // digit-run width, e.g. 4 for "0001"
	Indexes []int  // sorted, de-duplicated frame indexes
}

// trailingNumberPattern finds the last contiguous run of digits in a
// basename, splitting it into head/digits/tail.
var trailingNumberPattern = regexp.MustCompile(`^(.*?)(\d+)(\D*)$`)

type parsedFrame struct {
	dir     string
	head    string
	tail    string
	padding int
	index   int
}

// parseFrameName splits one file path into its sequence components. ok is
// false when the basename has no digit run at all.
func parseFrameName(path string) (parsedFrame, bool) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	m := trailingNumberPattern.FindStringSubmatch(base)
	if m == nil {
		return parsedFrame{}, false
	}

	digits := m[2]
	index, err := strconv.Atoi(digits)
	if err != nil {
		return parsedFrame{}, false
	}

	return parsedFrame{
		dir:     dir,
		head:    m[1],
		tail:    m[3],
		padding: len(digits),
		index:   index,
	}, true
}

// AssembleSequences clusters paths into Sequences. A cluster requires the
// same directory, head, tail, and digit-run width. Clusters with fewer
// than minItems members are discarded; if contiguousOnly is set, clusters
// whose indexes contain a gap are discarded too.
func AssembleSequences(paths []string, minItems int, contiguousOnly bool) []*Sequence {
	type key struct {
		dir, head, tail string
		padding         int
	}
	groups := make(map[key]*Sequence)
	var order []key

	for _, p := range paths {
		pf, ok := parseFrameName(p)
		if !ok {
			continue
		}
		k := key{pf.dir, pf.head, pf.tail, pf.padding}
		seq, exists := groups[k]
		if !exists {
			seq = &Sequence{Dir: pf.dir, Head: pf.head, Tail: pf.tail, Padding: pf.padding}
			groups[k] = seq
			order = append(order, k)
		}
		seq.Indexes = append(seq.Indexes, pf.index)
	}

	var out []*Sequence
	for _, k := range order {
		seq := groups[k]
		seq.Indexes = dedupSorted(seq.Indexes)

		if len(seq.Indexes) < minItems {
			continue
		}
		if contiguousOnly && !isContiguous(seq.Indexes) {
			continue
		}
		out = append(out, seq)
	}
	return out
}

func dedupSorted(idx []int) []int {
	sort.Ints(idx)
	out := idx[:0:0]
	var last int
	for i, v := range idx {
		if i == 0 || v != last {
			out = append(out, v)
		}
		last = v
	}
	return out
}

func isContiguous(idx []int) bool {
	for i := 1; i < len(idx); i++ {
		if idx[i] != idx[i-1]+1 {
			return false
		}
	}
	return true
}

// FirstIndex returns the lowest frame index in the sequence.
func (s *Sequence) FirstIndex() int {
	if len(s.Indexes) == 0 {
		return 0
	}
	return s.Indexes[0]
}

// Ranges formats the index set as comma-separated numeric ranges, e.g.
// "1-100, 102-120".
func (s *Sequence) Ranges() string {
	if len(s.Indexes) == 0 {
		return ""
	}
	var parts []string
	start := s.Indexes[0]
	prev := s.Indexes[0]
	flush := func(end int) {
		if start == end {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
	}
	for _, v := range s.Indexes[1:] {
		if v == prev+1 {
			prev = v
			continue
		}
		flush(prev)
		start = v
		prev = v
	}
	flush(prev)
	return strings.Join(parts, ", ")
}

// formatPadded renders a frame index zero-padded to the sequence's width.
func (s *Sequence) formatPadded(index int) string {
	return fmt.Sprintf("%0*d", s.Padding, index)
}

// PathTemplate returns the filesystem-usable placeholder path:
// head + 0...0 (padding zeros) + tail — suitable as an ffmpeg
// -i pattern once %0Nd is substituted, and as the literal first-frame
// path once the placeholder is resolved to FirstIndex.
func (s *Sequence) PathTemplate() string {
	return filepath.Join(s.Dir, s.Head+strings.Repeat("0", s.Padding)+s.Tail)
}

// FFmpegPattern returns the printf-style %0Nd pattern ffmpeg's image2
// demuxer expects in place of the zero-padding placeholder.
func (s *Sequence) FFmpegPattern() string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%%0%dd%s", s.Head, s.Padding, s.Tail))
}

// FirstFramePath returns the literal path of the lowest-indexed member.
func (s *Sequence) FirstFramePath() string {
	return s.MemberPath(s.FirstIndex())
}

// MemberPath returns the literal path of the member at the given frame
// index, regardless of whether that index is present in the sequence.
func (s *Sequence) MemberPath(index int) string {
	return filepath.Join(s.Dir, s.Head+s.formatPadded(index)+s.Tail)
}

// MemberPaths returns the literal paths of every member in the sequence,
// in ascending frame order.
func (s *Sequence) MemberPaths() []string {
	out := make([]string, len(s.Indexes))
	for i, idx := range s.Indexes {
		out[i] = s.MemberPath(idx)
	}
	return out
}

// DisplayName is head + #...# (padding hashes) + tail + " (ranges)",
// matching get_sequence_displayname in the Python original.
func (s *Sequence) DisplayName() string {
	return fmt.Sprintf("%s%s%s (%s)", s.Head, strings.Repeat("#", s.Padding), s.Tail, s.Ranges())
}

// ParseSequenceTemplate parses a path previously produced by PathTemplate
// back into head/tail/padding, recovering the same components
// AssembleSequences would have produced (R2: round-trip law).
func ParseSequenceTemplate(path string) (head, tail string, padding int, ok bool) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	m := trailingNumberPattern.FindStringSubmatch(base)
	if m == nil {
		return "", "", 0, false
	}
	digits := m[2]
	// Only a placeholder run of all zeros is a template; a real frame
	// number is not what PathTemplate produces.
	if strings.Trim(digits, "0") != "" {
		return "", "", 0, false
	}
	_ = dir
	return m[1], m[3], len(digits), true
}
