package layout

import (
	"fmt"
	"math"
	"sort"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
)

const (
	// DefaultSpreadRatioFactor scales the document's modal page ratio
	// into the spread detection threshold. For a common 0.75 portrait
	// ratio the threshold lands near 1.28, consistent with two stacked
	// single pages.
	DefaultSpreadRatioFactor = 1.7
	// DefaultGutterBandFrac is the half-width, as a fraction of page
	// width, of the band around the midpoint searched for the gutter.
	DefaultGutterBandFrac = 0.1
	// gutterSearchSteps is the number of candidate positions sampled
	// across the gutter band.
	gutterSearchSteps = 40
	// ratioBucket is the rounding granularity used when computing the
	// modal page ratio.
	ratioBucket = 0.05
)

// SpreadConfig controls two-page-spread detection and splitting.
// Exceptions holds 1-based physical page numbers excluded from spread
// processing entirely; the list is consulted before detection runs.
type SpreadConfig struct {
	Enabled     bool
	ForceHalf   bool
	Exceptions  map[int]bool
	RatioFactor float64
	GutterBand  float64
}

func (c SpreadConfig) withDefaults() SpreadConfig {
	if c.RatioFactor <= 0 {
		c.RatioFactor = DefaultSpreadRatioFactor
	}
	if c.GutterBand <= 0 {
		c.GutterBand = DefaultGutterBandFrac
	}
	return c
}

// SplitPage is one logical half produced by a spread split. PageIndex
// on the geometry still carries the physical index; final logical
// indices are assigned by the pipeline's merge step.
type SplitPage struct {
	Geometry PageGeometry
	Elements []RawElement
}

// Splitter detects scanned two-page spreads and splits them into two
// independent logical pages before refinement. Detection is page-local.
type Splitter struct {
	cfg SpreadConfig
}

// NewSplitter creates a splitter.
func NewSplitter(cfg SpreadConfig) *Splitter {
	return &Splitter{cfg: cfg.withDefaults()}
}

// ModalRatio returns the most common width/height ratio across the
// document's pages, bucketed to 0.05. Zero when no page has usable
// dimensions.
func ModalRatio(geoms []PageGeometry) float64 {
	counts := make(map[float64]int)
	for _, g := range geoms {
		r := g.Ratio()
		if r <= 0 {
			continue
		}
		bucket := math.Round(r/ratioBucket) * ratioBucket
		counts[bucket]++
	}
	if len(counts) == 0 {
		return 0
	}
	buckets := make([]float64, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Float64s(buckets)
	best, bestN := 0.0, 0
	for _, b := range buckets {
		if counts[b] > bestN {
			best, bestN = b, counts[b]
		}
	}
	return best
}

// IsSpread reports whether pg is a spread candidate. Pages on the
// exception list are never candidates, regardless of their ratio.
func (s *Splitter) IsSpread(pg PageGeometry, modalRatio float64) bool {
	if !s.cfg.Enabled {
		return false
	}
	if s.cfg.Exceptions[pg.PageIndex+1] {
		return false
	}
	r := pg.Ratio()
	if r <= 0 || modalRatio <= 0 {
		return false
	}
	return r >= s.cfg.RatioFactor*modalRatio
}

// SplitPoint picks the x-coordinate of the spread divider. Force-half
// mode always uses the midpoint; otherwise a narrow band around the
// midpoint is searched for the vertical line crossed by the fewest
// element boxes (the physical gutter).
func (s *Splitter) SplitPoint(pg PageGeometry, elems []RawElement) float64 {
	mid := pg.Width / 2
	if s.cfg.ForceHalf {
		return mid
	}
	band := pg.Width * s.cfg.GutterBand
	best, bestCost := mid, math.Inf(1)
	for i := 0; i <= gutterSearchSteps; i++ {
		x := mid - band + 2*band*float64(i)/gutterSearchSteps
		cost := float64(straddleCount(elems, x)) + math.Abs(x-mid)/pg.Width
		if cost < bestCost {
			best, bestCost = x, cost
		}
	}
	return best
}

func straddleCount(elems []RawElement, x float64) int {
	n := 0
	for _, e := range elems {
		if e.Box.X0 < x && x < e.Box.X1 {
			n++
		}
	}
	return n
}

// Split divides a spread page at splitPoint into left and right logical
// pages, remapping every element onto its new page space: left keeps
// its coordinates, right is translated by -splitPoint. An element
// straddling the divider goes to whichever side holds the majority of
// its area and is clipped to that side's bounds (lossy, reported as a
// warning). A side with zero elements is still a valid, empty page.
func (s *Splitter) Split(pg PageGeometry, elems []RawElement, splitPoint float64) (left, right SplitPage, warnings []Warning) {
	leftGeom := PageGeometry{
		PageIndex: pg.PageIndex,
		Width:     splitPoint,
		Height:    pg.Height,
	}
	rightGeom := PageGeometry{
		PageIndex: pg.PageIndex,
		Width:     pg.Width - splitPoint,
		Height:    pg.Height,
	}
	leftBounds := geom.Box{X0: 0, Y0: 0, X1: splitPoint, Y1: pg.Height}
	rightBounds := geom.Box{X0: splitPoint, Y0: 0, X1: pg.Width, Y1: pg.Height}

	left = SplitPage{Geometry: leftGeom}
	right = SplitPage{Geometry: rightGeom}

	for _, e := range elems {
		if e.Box.Validate() != nil {
			// Malformed geometry is the refinement engine's concern;
			// pass it through on the left so it is dropped and counted
			// there.
			left.Elements = append(left.Elements, e)
			continue
		}
		switch {
		case e.Box.X1 <= splitPoint:
			left.Elements = append(left.Elements, e)
		case e.Box.X0 >= splitPoint:
			moved := e
			moved.Box = geom.Transform(e.Box, -splitPoint, 0, 1)
			right.Elements = append(right.Elements, moved)
		default:
			warnings = append(warnings, Warning{
				PageIndex: pg.PageIndex,
				Stage:     "spread",
				ElementID: e.ID,
				Message:   fmt.Sprintf("element straddles split point %.1f, clipped", splitPoint),
			})
			leftArea := (splitPoint - e.Box.X0) * e.Box.Height()
			if leftArea >= e.Box.Area()/2 {
				clipped := e
				clipped.Box = geom.Clip(e.Box, leftBounds)
				left.Elements = append(left.Elements, clipped)
			} else {
				clipped := e
				clipped.Box = geom.Transform(geom.Clip(e.Box, rightBounds), -splitPoint, 0, 1)
				right.Elements = append(right.Elements, clipped)
			}
		}
	}
	return left, right, warnings
}
