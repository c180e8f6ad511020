package engine

import (
	"path/filepath"
	"strings"
)

// defaultOutputPath derives the default encode target for item, per §4.5:
// strip the source extension and append the configured output suffix. For
// a sequence, the zero-filled placeholder in the path template is first
// resolved to the item's first frame (SeqStart) before the suffix is
// appended, matching get_item_default_outpath in the Python original.
func defaultOutputPath(item *MediaItem, outputSuffix string) string {
	if item.Kind == KindSequence {
		path := item.Path
		if seq, _, _, ok := parseSequenceItemPath(item.Path); ok {
			path = seq.MemberPath(item.SeqStart)
		}
		base := strings.TrimSuffix(path, filepath.Ext(path))
		return base + outputSuffix
	}
	base := strings.TrimSuffix(item.Path, filepath.Ext(item.Path))
	return base + outputSuffix
}

// matchesDefaultOutput reports whether path looks like a prior encode
// output, so the scanner can filter it out of a fresh scan (R1: applying
// output-path derivation to an already-suffixed path is idempotent from
// the scanner's point of view — it simply never re-ingests it).
func matchesDefaultOutput(path, outputSuffix string) bool {
	return strings.HasSuffix(path, outputSuffix)
}
