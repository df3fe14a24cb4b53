package detector

import (
	"sort"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

// classLabels are the DocLayout-YOLO classes in model order.
var classLabels = []string{
	"title",
	"text",
	"abandon",
	"figure",
	"figure_caption",
	"table",
	"table_caption",
	"table_footnote",
	"isolate_formula",
	"formula_caption",
}

// detection is one raw model output row.
type detection struct {
	box        geom.Box
	classID    int
	confidence float64
}

// postProcessor filters raw detections and resolves overlaps.
type postProcessor struct {
	confThreshold float64
	nmsThreshold  float64
}

func newPostProcessor(confThreshold, nmsThreshold float64) *postProcessor {
	return &postProcessor{
		confThreshold: confThreshold,
		nmsThreshold:  nmsThreshold,
	}
}

// decode parses the model output, rows of [x0, y0, x1, y1, confidence,
// class] in input-image pixels, scaling coordinates back to page space.
func (p *postProcessor) decode(output []float32, scaleX, scaleY float64) []detection {
	var dets []detection
	for i := 0; i+6 <= len(output); i += 6 {
		conf := float64(output[i+4])
		if conf < p.confThreshold {
			continue
		}
		x0 := float64(output[i]) * scaleX
		y0 := float64(output[i+1]) * scaleY
		x1 := float64(output[i+2]) * scaleX
		y1 := float64(output[i+3]) * scaleY
		if x1 <= x0 || y1 <= y0 {
			continue
		}
		dets = append(dets, detection{
			box:        geom.Box{X0: x0, Y0: y0, X1: x1, Y1: y1},
			classID:    int(output[i+5]),
			confidence: conf,
		})
	}
	return dets
}

// suppress applies per-class non-maximum suppression.
func (p *postProcessor) suppress(dets []detection) []detection {
	byClass := make(map[int][]detection)
	for _, d := range dets {
		byClass[d.classID] = append(byClass[d.classID], d)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	var out []detection
	for _, c := range classes {
		out = append(out, p.nms(byClass[c])...)
	}
	return out
}

func (p *postProcessor) nms(dets []detection) []detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].confidence > dets[j].confidence
	})

	var kept []detection
	suppressed := make([]bool, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		kept = append(kept, dets[i])
		for j := i + 1; j < len(dets); j++ {
			if !suppressed[j] && iou(dets[i].box, dets[j].box) > p.nmsThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// iou is intersection over union, as opposed to geom.OverlapRatio's
// intersection over the smaller box.
func iou(a, b geom.Box) float64 {
	inter, ok := geom.Intersect(a, b)
	if !ok {
		return 0
	}
	interArea := inter.Area()
	union := a.Area() + b.Area() - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

// toElements converts detections to raw elements, ids starting at
// startID. Model classes outside the label table become untyped.
func toElements(dets []detection, pageIndex, startID int) []layout.RawElement {
	elems := make([]layout.RawElement, 0, len(dets))
	for i, d := range dets {
		label := ""
		if d.classID >= 0 && d.classID < len(classLabels) {
			label = classLabels[d.classID]
		}
		elems = append(elems, layout.RawElement{
			ID:         startID + i,
			PageIndex:  pageIndex,
			Box:        d.box,
			TypeHint:   parseModelLabel(label),
			Confidence: d.confidence,
		})
	}
	return elems
}

// parseModelLabel maps DocLayout-YOLO labels onto the element enum.
func parseModelLabel(label string) layout.ElementType {
	switch label {
	case "title":
		return layout.TypeHeading
	case "text":
		return layout.TypeParagraph
	case "figure_caption", "table_caption", "formula_caption", "table_footnote":
		return layout.TypeCaption
	case "table":
		return layout.TypeTable
	case "figure", "isolate_formula":
		return layout.TypeFigure
	case "abandon":
		return layout.TypeOther
	default:
		return ""
	}
}
