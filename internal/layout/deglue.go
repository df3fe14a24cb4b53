package layout

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
)

// ErrNoSplitFound is the documented best-effort outcome of the deglue
// engine: no internal split line cleared the configured margin. The
// segment is left unchanged; this is not a failure.
var ErrNoSplitFound = errors.New("deglue: no split found")

// DefaultDeglueMinGap is the default minimum internal whitespace band,
// in page units, for a split to be taken.
const DefaultDeglueMinGap = 3.0

// deglueGapFactor is how much wider than the typical gap of its
// projection a band must be to count as a divider. Keeps uniform line
// leading from being mistaken for paragraph breaks.
const deglueGapFactor = 1.8

var sentenceEndRe = regexp.MustCompile(`[.!?…:;]\s*$`)

// RunHint is a consumer-provided, PDF-aware hint: one physical glyph
// run inside a merged box, taken from the source page itself.
type RunHint struct {
	Box  geom.Box
	Text string
}

// DeglueConfig controls split detection. Thresholds are configuration by
// contract: a borderline gap may or may not clear the margin depending
// on page-specific calibration.
type DeglueConfig struct {
	MinGap float64
}

func (c DeglueConfig) withDefaults() DeglueConfig {
	if c.MinGap <= 0 {
		c.MinGap = DefaultDeglueMinGap
	}
	return c
}

// Degluer detects and splits segments that the refinement engine
// over-merged.
type Degluer struct {
	cfg DeglueConfig
	ids *IDAllocator
}

// NewDegluer creates a degluer drawing fresh segment ids from ids.
func NewDegluer(cfg DeglueConfig, ids *IDAllocator) *Degluer {
	return &Degluer{cfg: cfg.withDefaults(), ids: ids}
}

// splitLine is a detected internal divider.
type splitLine struct {
	pos        float64
	margin     float64
	typical    float64 // median of the other gaps on the same projection
	horizontal bool    // true: split along y=pos; false: along x=pos
}

// exceedsTypical reports whether the band is clearly wider than the
// surrounding leading. A lone band has nothing to compare against and
// always qualifies.
func (l splitLine) exceedsTypical() bool {
	return l.typical <= 0 || l.margin >= deglueGapFactor*l.typical
}

// Split attempts to break seg into two segments along an internal
// whitespace band. Candidate lines come from, in priority of margin
// width: the gaps between the segment's own source boxes, and the gaps
// between caller-supplied glyph run hints. A line is only taken when its
// margin is at least MinGap, it stands out against the typical gap of
// its projection, it lies strictly inside the box, and both sides of
// the resulting partition are non-empty; otherwise ErrNoSplitFound is
// returned and the caller keeps the segment as is.
//
// Children inherit page index and type, receive fresh ids, and
// partition the parent's source elements exactly (no loss, no overlap).
// Reading order for the page must be recomputed by the caller since the
// segment count changed.
func (d *Degluer) Split(seg Segment, hints []RunHint) ([]Segment, error) {
	if len(seg.Sources) < 2 {
		// A single source cannot be partitioned without fabricating
		// provenance; the text-gap trigger alone is not enough.
		return nil, ErrNoSplitFound
	}

	boxes := make([]geom.Box, len(seg.Sources))
	for i, src := range seg.Sources {
		boxes[i] = src.Box
	}

	candidates := internalBands(seg.Box, boxes)
	if len(hints) > 0 {
		hintBoxes := make([]geom.Box, len(hints))
		for i, h := range hints {
			hintBoxes[i] = h.Box
		}
		candidates = append(candidates, internalBands(seg.Box, hintBoxes)...)
	}
	if line, ok := textGapLine(seg); ok {
		candidates = append(candidates, line)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].margin > candidates[j].margin
	})

	for _, line := range candidates {
		if line.margin < d.cfg.MinGap {
			break
		}
		if !line.exceedsTypical() {
			continue
		}
		first, second, ok := partitionSources(seg.Sources, line)
		if !ok {
			continue
		}
		return []Segment{
			d.childSegment(seg, first),
			d.childSegment(seg, second),
		}, nil
	}
	return nil, ErrNoSplitFound
}

// internalBands finds maximal whitespace bands strictly inside bounds on
// both axes, from the projection gaps of the given boxes.
func internalBands(bounds geom.Box, boxes []geom.Box) []splitLine {
	var lines []splitLine
	lines = append(lines, projectionGaps(boxes, bounds, true)...)
	lines = append(lines, projectionGaps(boxes, bounds, false)...)
	return lines
}

// projectionGaps projects boxes onto one axis and returns the gaps
// between consecutive covered intervals. Gaps touching the bounds edges
// are ignored: a band at the edge separates nothing. Each gap carries
// the median of its sibling gaps, the projection's typical leading.
func projectionGaps(boxes []geom.Box, bounds geom.Box, horizontal bool) []splitLine {
	type interval struct{ lo, hi float64 }
	ivals := make([]interval, 0, len(boxes))
	for _, b := range boxes {
		if horizontal {
			ivals = append(ivals, interval{b.Y0, b.Y1})
		} else {
			ivals = append(ivals, interval{b.X0, b.X1})
		}
	}
	sort.Slice(ivals, func(i, j int) bool { return ivals[i].lo < ivals[j].lo })

	lo, hi := bounds.X0, bounds.X1
	if horizontal {
		lo, hi = bounds.Y0, bounds.Y1
	}

	var lines []splitLine
	covered := ivals[0].hi
	for _, iv := range ivals[1:] {
		if iv.lo > covered {
			gap := iv.lo - covered
			pos := covered + gap/2
			if pos > lo && pos < hi {
				lines = append(lines, splitLine{pos: pos, margin: gap, horizontal: horizontal})
			}
		}
		covered = math.Max(covered, iv.hi)
	}

	for i := range lines {
		others := make([]float64, 0, len(lines)-1)
		for j, l := range lines {
			if j != i {
				others = append(others, l.margin)
			}
		}
		lines[i].typical = median(others)
	}
	return lines
}

// textGapLine maps a paragraph-break pattern in the text onto a
// geometric candidate: when the text splits into two independent blocks
// (blank line, first block sentence-terminated), propose a horizontal
// line at the proportional height of the break.
func textGapLine(seg Segment) (splitLine, bool) {
	parts := strings.SplitN(seg.Text, "\n\n", 2)
	if len(parts) != 2 {
		return splitLine{}, false
	}
	head, tail := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if len(head) < 15 || len(tail) < 15 {
		return splitLine{}, false
	}
	if !sentenceEndRe.MatchString(head) {
		return splitLine{}, false
	}
	frac := float64(len(head)) / float64(len(head)+len(tail))
	pos := seg.Box.Y0 + seg.Box.Height()*frac
	// The text pattern carries no measurable whitespace band of its
	// own; give it the weakest admissible margin so any geometric band
	// wins over it.
	return splitLine{pos: pos, margin: 0, horizontal: true}, true
}

// partitionSources splits sources by which side of the line each box
// centroid falls on. Both sides must be non-empty.
func partitionSources(sources []SourceRef, line splitLine) (first, second []SourceRef, ok bool) {
	for _, src := range sources {
		c := src.Box.CenterX()
		if line.horizontal {
			c = src.Box.CenterY()
		}
		if c < line.pos {
			first = append(first, src)
		} else {
			second = append(second, src)
		}
	}
	return first, second, len(first) > 0 && len(second) > 0
}

// childSegment builds one side of a split: fresh id, inherited page and
// type, union box and concatenated text of its share of the sources.
func (d *Degluer) childSegment(parent Segment, sources []SourceRef) Segment {
	sorted := make([]SourceRef, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Y0 != sorted[j].Box.Y0 {
			return sorted[i].Box.Y0 < sorted[j].Box.Y0
		}
		return sorted[i].Box.X0 < sorted[j].Box.X0
	})

	box := sorted[0].Box
	parts := make([]string, 0, len(sorted))
	for _, src := range sorted {
		box = geom.Union(box, src.Box)
		if t := strings.TrimSpace(src.Text); t != "" {
			parts = append(parts, t)
		}
	}

	return Segment{
		ID:        d.ids.Next(),
		PageIndex: parent.PageIndex,
		Box:       box,
		Text:      strings.Join(parts, "\n"),
		Type:      parent.Type,
		Sources:   sorted,
	}
}

// IsSplitCandidate reports whether any trigger heuristic flags seg for
// a deglue attempt: a paragraph-break text pattern, or an internal
// whitespace band (from the source boxes or the glyph run hints) wider
// than the typical gap of its projection. Any one trigger is
// sufficient. Uniform leading between lines is not a trigger, so
// ordinary multi-line paragraphs pass through unflagged.
func IsSplitCandidate(seg Segment, hints []RunHint) bool {
	if len(seg.Sources) < 2 {
		return false
	}
	if _, ok := textGapLine(seg); ok {
		return true
	}
	boxes := make([]geom.Box, len(seg.Sources))
	for i, src := range seg.Sources {
		boxes[i] = src.Box
	}
	bands := internalBands(seg.Box, boxes)
	if len(hints) > 0 {
		hintBoxes := make([]geom.Box, len(hints))
		for i, h := range hints {
			hintBoxes[i] = h.Box
		}
		bands = append(bands, internalBands(seg.Box, hintBoxes)...)
	}
	for _, b := range bands {
		if b.exceedsTypical() {
			return true
		}
	}
	return false
}

// DegluePage runs Split over a page's flagged candidates, keeping
// segments that yield no split, and reassigns reading order. hints maps
// a segment id to its glyph runs when a PDF-aware extractor is
// available. Returned warnings carry the per-candidate no-split reports.
func (d *Degluer) DegluePage(segs []Segment, hints map[int64][]RunHint) ([]Segment, []Warning) {
	var out []Segment
	var warnings []Warning
	for _, s := range segs {
		if !IsSplitCandidate(s, hints[s.ID]) {
			out = append(out, s)
			continue
		}
		children, err := d.Split(s, hints[s.ID])
		if err != nil {
			if errors.Is(err, ErrNoSplitFound) {
				warnings = append(warnings, Warning{
					PageIndex: s.PageIndex,
					Stage:     "deglue",
					SegmentID: s.ID,
					Message:   err.Error(),
				})
			}
			out = append(out, s)
			continue
		}
		out = append(out, children...)
	}
	return AssignReadingOrder(out), warnings
}
