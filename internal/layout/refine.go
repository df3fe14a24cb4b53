package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
)

// Refinement defaults. Thresholds are exposed as configuration because
// they are page-calibration heuristics, not canonical values.
const (
	// DefaultMergeOverlapThreshold is the minimum overlap ratio for two
	// elements to be merged outright.
	DefaultMergeOverlapThreshold = 0.4
	// DefaultLineGapFactor scales the median element height into the
	// maximum vertical gap between lines of the same paragraph.
	DefaultLineGapFactor = 1.0
	// DefaultColumnAlignFactor scales the smaller element width into the
	// minimum x-projection overlap for two stacked elements to count as
	// the same column.
	DefaultColumnAlignFactor = 0.5
	// columnOverlapFrac is the x-projection overlap fraction used when
	// partitioning segments into columns for reading order.
	columnOverlapFrac = 0.5
	// headingAspectMin is the minimum width/height ratio for a short
	// outlier segment to be reclassified as a heading.
	headingAspectMin = 4.0
)

// RefineConfig controls element clustering. Zero values select defaults.
type RefineConfig struct {
	MergeOverlapThreshold float64
	LineGapFactor         float64
	ColumnAlignFactor     float64
}

func (c RefineConfig) withDefaults() RefineConfig {
	if c.MergeOverlapThreshold <= 0 {
		c.MergeOverlapThreshold = DefaultMergeOverlapThreshold
	}
	if c.LineGapFactor <= 0 {
		c.LineGapFactor = DefaultLineGapFactor
	}
	if c.ColumnAlignFactor <= 0 {
		c.ColumnAlignFactor = DefaultColumnAlignFactor
	}
	return c
}

// Refiner merges a page's raw elements into classified, ordered
// segments. Stateless apart from the shared id allocator, so pages can
// be refined in parallel.
type Refiner struct {
	cfg RefineConfig
	ids *IDAllocator
}

// NewRefiner creates a refiner drawing segment ids from ids.
func NewRefiner(cfg RefineConfig, ids *IDAllocator) *Refiner {
	return &Refiner{cfg: cfg.withDefaults(), ids: ids}
}

// cluster is a tentative segment under construction.
type cluster struct {
	box     geom.Box
	sources []SourceRef
	hints   []ElementType
}

// Refine turns one page's raw elements into segments. Elements with
// malformed boxes are dropped and reported as warnings; an empty input
// yields an empty segment list. Re-running Refine on the output of a
// previous pass (via SegmentsToElements) is a no-op: clustering repeats
// until a fixpoint, so the result set admits no further merges.
func (r *Refiner) Refine(pageIndex int, elems []RawElement) ([]Segment, []Warning) {
	var warnings []Warning

	clusters := make([]*cluster, 0, len(elems))
	for _, e := range elems {
		if err := e.Box.Validate(); err != nil {
			warnings = append(warnings, Warning{
				PageIndex: pageIndex,
				Stage:     "refine",
				ElementID: e.ID,
				Message:   err.Error(),
			})
			continue
		}
		c := &cluster{
			box:     e.Box,
			sources: []SourceRef{{ElementID: e.ID, Box: e.Box, Text: e.Text}},
		}
		if e.TypeHint != "" {
			c.hints = []ElementType{e.TypeHint}
		}
		clusters = append(clusters, c)
	}
	if len(clusters) == 0 {
		return nil, warnings
	}

	// Merge to a fixpoint. The line-gap threshold is re-derived from the
	// current cluster set on every pass, so a set that survives a pass
	// unchanged would survive any later pass too.
	for {
		merged := r.mergeOnce(clusters)
		if len(merged) == len(clusters) {
			clusters = merged
			break
		}
		clusters = merged
	}

	segs := make([]Segment, 0, len(clusters))
	for _, c := range clusters {
		segs = append(segs, r.finishSegment(pageIndex, c))
	}
	segs = r.classify(segs)
	return AssignReadingOrder(segs), warnings
}

// mergeOnce runs one connected-component pass over the merge-candidate
// graph and returns the collapsed cluster set.
func (r *Refiner) mergeOnce(clusters []*cluster) []*cluster {
	n := len(clusters)
	if n < 2 {
		return clusters
	}

	heights := make([]float64, n)
	for i, c := range clusters {
		heights[i] = c.box.Height()
	}
	lineGap := r.cfg.LineGapFactor * median(heights)

	parent := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.mergeCandidate(clusters[i].box, clusters[j].box, lineGap) {
				parent.union(i, j)
			}
		}
	}

	byRoot := make(map[int]*cluster)
	var order []int
	for i, c := range clusters {
		root := parent.find(i)
		if existing, ok := byRoot[root]; ok {
			existing.box = geom.Union(existing.box, c.box)
			existing.sources = append(existing.sources, c.sources...)
			existing.hints = append(existing.hints, c.hints...)
		} else {
			cp := &cluster{box: c.box}
			cp.sources = append(cp.sources, c.sources...)
			cp.hints = append(cp.hints, c.hints...)
			byRoot[root] = cp
			order = append(order, root)
		}
	}

	out := make([]*cluster, 0, len(order))
	for _, root := range order {
		out = append(out, byRoot[root])
	}
	return out
}

// mergeCandidate reports whether two boxes belong to the same tentative
// segment: either they overlap substantially, or they are vertically
// stacked within the same inferred column.
func (r *Refiner) mergeCandidate(a, b geom.Box, lineGap float64) bool {
	if geom.OverlapRatio(a, b) >= r.cfg.MergeOverlapThreshold {
		return true
	}
	if geom.VerticalGap(a, b) > lineGap {
		return false
	}
	minWidth := math.Min(a.Width(), b.Width())
	if minWidth <= 0 {
		return false
	}
	return geom.XOverlap(a, b) >= r.cfg.ColumnAlignFactor*minWidth
}

// finishSegment materializes a cluster: union box, source order by
// (y0, x0), concatenated text.
func (r *Refiner) finishSegment(pageIndex int, c *cluster) Segment {
	sources := make([]SourceRef, len(c.sources))
	copy(sources, c.sources)
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Box.Y0 != sources[j].Box.Y0 {
			return sources[i].Box.Y0 < sources[j].Box.Y0
		}
		return sources[i].Box.X0 < sources[j].Box.X0
	})

	box := sources[0].Box
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		box = geom.Union(box, src.Box)
		if t := strings.TrimSpace(src.Text); t != "" {
			parts = append(parts, t)
		}
	}

	return Segment{
		ID:        r.ids.Next(),
		PageIndex: pageIndex,
		Box:       box,
		Text:      strings.Join(parts, "\n"),
		Type:      voteType(c.hints),
		Sources:   sources,
	}
}

// voteType picks the majority hint; ties and hint-less clusters fall
// back to TypeOther.
func voteType(hints []ElementType) ElementType {
	if len(hints) == 0 {
		return TypeOther
	}
	counts := make(map[ElementType]int)
	for _, h := range hints {
		counts[h]++
	}
	best, bestN, tied := TypeOther, 0, false
	for t, n := range counts {
		switch {
		case n > bestN:
			best, bestN, tied = t, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied {
		return TypeOther
	}
	return best
}

// classify applies the heading outlier rule: a still-untyped segment
// whose height is a short outlier against the page's body segments and
// whose shape is a single wide line becomes a heading.
func (r *Refiner) classify(segs []Segment) []Segment {
	var heights []float64
	for _, s := range segs {
		if s.Type == TypeParagraph {
			heights = append(heights, s.Box.Height())
		}
	}
	if len(heights) == 0 {
		for _, s := range segs {
			heights = append(heights, s.Box.Height())
		}
	}
	med := median(heights)
	dev := stddev(heights)

	for i, s := range segs {
		if s.Type != TypeOther {
			continue
		}
		h := s.Box.Height()
		if h <= 0 {
			continue
		}
		if h < med-dev && s.Box.Width()/h >= headingAspectMin {
			segs[i].Type = TypeHeading
		}
	}
	return segs
}

// AssignReadingOrder partitions segments into columns by x-extent and
// returns a new slice sorted column-left-to-right, then top-to-bottom
// within a column, with ReadingOrder set to the contiguous range 0..n-1.
func AssignReadingOrder(segs []Segment) []Segment {
	n := len(segs)
	if n == 0 {
		return nil
	}

	// Columns: transitive closure of "x-extents overlap substantially".
	parent := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			minW := math.Min(segs[i].Box.Width(), segs[j].Box.Width())
			if minW <= 0 {
				continue
			}
			if geom.XOverlap(segs[i].Box, segs[j].Box) >= columnOverlapFrac*minW {
				parent.union(i, j)
			}
		}
	}

	colLeft := make(map[int]float64)
	for i := range segs {
		root := parent.find(i)
		left, ok := colLeft[root]
		if !ok || segs[i].Box.X0 < left {
			colLeft[root] = segs[i].Box.X0
		}
	}
	segColumn := make(map[int64]float64, n)
	for i := range segs {
		segColumn[segs[i].ID] = colLeft[parent.find(i)]
	}

	out := make([]Segment, n)
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := segColumn[out[i].ID], segColumn[out[j].ID]
		if li != lj {
			return li < lj
		}
		if out[i].Box.Y0 != out[j].Box.Y0 {
			return out[i].Box.Y0 < out[j].Box.Y0
		}
		return out[i].Box.X0 < out[j].Box.X0
	})
	for i := range out {
		out[i].ReadingOrder = i
	}
	return out
}

// SegmentsToElements re-expresses segments as degenerate single-element
// raw input, so a refined page can be fed through Refine again after a
// deglue pass.
func SegmentsToElements(segs []Segment) []RawElement {
	elems := make([]RawElement, 0, len(segs))
	for _, s := range segs {
		id := 0
		if len(s.Sources) > 0 {
			id = s.Sources[0].ElementID
		}
		elems = append(elems, RawElement{
			ID:        id,
			PageIndex: s.PageIndex,
			Box:       s.Box,
			Text:      s.Text,
			TypeHint:  s.Type,
		})
	}
	return elems
}

// unionFind is a plain disjoint-set over indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(i, j int) {
	ri, rj := u.find(i), u.find(j)
	if ri != rj {
		u.parent[rj] = ri
	}
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(vals)))
}
