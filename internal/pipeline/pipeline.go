// Package pipeline drives per-page layout processing: spread handling,
// refinement and deglue, with pages processed in parallel and merged
// into one ordered document.
package pipeline

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/extract"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
)

// DefaultConcurrency is the default number of pages in flight.
const DefaultConcurrency = 4

// Options configures a document run.
type Options struct {
	Refine layout.RefineConfig
	Deglue layout.DeglueConfig
	Spread layout.SpreadConfig
	// Pages is a 1-based physical page filter; empty means all pages.
	Pages       map[int]bool
	Concurrency int
}

// PageInput is one physical page: its geometry, the raw elements from
// the layout source, and optional glyph run hints.
type PageInput struct {
	Geometry layout.PageGeometry
	Elements []layout.RawElement
	Hints    []layout.RunHint
}

// Page is one logical output page. A split spread contributes two
// logical pages with the same PhysicalIndex.
type Page struct {
	// Index is the 0-based logical page index, contiguous across the
	// document.
	Index int
	// PhysicalIndex is the 0-based index of the source page.
	PhysicalIndex int
	// RightHalf marks the right side of a split spread.
	RightHalf bool
	Geometry  layout.PageGeometry
	Segments  []layout.Segment
}

// Result is a processed document.
type Result struct {
	Pages    []Page
	Warnings []layout.Warning
}

// logicalUnit is an intermediate page before final index assignment.
type logicalUnit struct {
	physicalIndex int
	rightHalf     bool
	geometry      layout.PageGeometry
	segments      []layout.Segment
}

// Process runs the layout engines over all pages. Pages are stateless
// with respect to each other, so they run concurrently; logical page
// indices are assigned afterwards in document order. A page with no
// elements is valid and produces an empty logical page.
func Process(ctx context.Context, inputs []PageInput, opts Options) (*Result, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	ids := &layout.IDAllocator{}
	refiner := layout.NewRefiner(opts.Refine, ids)
	degluer := layout.NewDegluer(opts.Deglue, ids)
	splitter := layout.NewSplitter(opts.Spread)

	geoms := make([]layout.PageGeometry, 0, len(inputs))
	for _, in := range inputs {
		geoms = append(geoms, in.Geometry)
	}
	modal := layout.ModalRatio(geoms)

	type pageOutput struct {
		units    []logicalUnit
		warnings []layout.Warning
	}
	outputs := make([]pageOutput, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, in := range inputs {
		if len(opts.Pages) > 0 && !opts.Pages[in.Geometry.PageIndex+1] {
			continue
		}
		i, in := i, in
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			units, warnings := processPhysicalPage(in, modal, splitter, refiner, degluer)
			outputs[i] = pageOutput{units: units, warnings: warnings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	var units []logicalUnit
	for _, out := range outputs {
		units = append(units, out.units...)
		result.Warnings = append(result.Warnings, out.warnings...)
	}
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].physicalIndex != units[j].physicalIndex {
			return units[i].physicalIndex < units[j].physicalIndex
		}
		return !units[i].rightHalf && units[j].rightHalf
	})

	for idx, u := range units {
		segs := make([]layout.Segment, len(u.segments))
		copy(segs, u.segments)
		for k := range segs {
			segs[k].PageIndex = idx
		}
		geometry := u.geometry
		geometry.PageIndex = idx
		result.Pages = append(result.Pages, Page{
			Index:         idx,
			PhysicalIndex: u.physicalIndex,
			RightHalf:     u.rightHalf,
			Geometry:      geometry,
			Segments:      segs,
		})
	}

	logger.Info("document processed",
		logger.Int("physicalPages", len(inputs)),
		logger.Int("logicalPages", len(result.Pages)),
		logger.Int("warnings", len(result.Warnings)))
	return result, nil
}

// processPhysicalPage turns one physical page into one or two logical
// units.
func processPhysicalPage(in PageInput, modal float64, splitter *layout.Splitter, refiner *layout.Refiner, degluer *layout.Degluer) ([]logicalUnit, []layout.Warning) {
	var warnings []layout.Warning

	type side struct {
		geometry  layout.PageGeometry
		elements  []layout.RawElement
		hints     []layout.RunHint
		rightHalf bool
	}
	var sides []side

	if splitter.IsSpread(in.Geometry, modal) {
		splitPoint := splitter.SplitPoint(in.Geometry, in.Elements)
		left, right, splitWarnings := splitter.Split(in.Geometry, in.Elements, splitPoint)
		warnings = append(warnings, splitWarnings...)

		leftHints, rightHints := splitHints(in.Hints, splitPoint)
		left.Geometry.IsSpread = true
		left.Geometry.SplitPoint = splitPoint
		right.Geometry.IsSpread = true
		right.Geometry.SplitPoint = splitPoint
		sides = append(sides,
			side{geometry: left.Geometry, elements: left.Elements, hints: leftHints},
			side{geometry: right.Geometry, elements: right.Elements, hints: rightHints, rightHalf: true},
		)
	} else {
		sides = append(sides, side{geometry: in.Geometry, elements: in.Elements, hints: in.Hints})
	}

	var units []logicalUnit
	for _, s := range sides {
		segs, refineWarnings := refiner.Refine(in.Geometry.PageIndex, s.elements)
		warnings = append(warnings, refineWarnings...)

		hintsBySegment := make(map[int64][]layout.RunHint)
		for _, seg := range segs {
			hintsBySegment[seg.ID] = extract.HintsWithin(s.hints, seg.Box)
		}
		segs, deglueWarnings := degluer.DegluePage(segs, hintsBySegment)
		warnings = append(warnings, deglueWarnings...)

		units = append(units, logicalUnit{
			physicalIndex: in.Geometry.PageIndex,
			rightHalf:     s.rightHalf,
			geometry:      s.geometry,
			segments:      segs,
		})
	}
	return units, warnings
}

// splitHints assigns glyph run hints to spread sides by center,
// remapping right-side boxes into the right page's coordinates.
func splitHints(hints []layout.RunHint, splitPoint float64) (left, right []layout.RunHint) {
	for _, h := range hints {
		if h.Box.CenterX() < splitPoint {
			left = append(left, h)
			continue
		}
		moved := h
		moved.Box.X0 -= splitPoint
		moved.Box.X1 -= splitPoint
		if moved.Box.X0 < 0 {
			moved.Box.X0 = 0
		}
		right = append(right, moved)
	}
	return left, right
}
