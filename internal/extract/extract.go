// Package extract reads glyph runs out of text-layer PDFs. The runs
// feed the deglue engine as geometry hints that are finer-grained than
// the layout source's elements.
package extract

import (
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/textutil"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// ExtractRuns reads every page's text rows and returns one RunHint per
// row, keyed by 0-based page index. Coordinates are converted from the
// PDF's bottom-left origin to the top-left origin used everywhere else.
// Scanned pages without a text layer simply yield no hints.
func ExtractRuns(pdfPath string) (map[int][]layout.RunHint, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to open PDF", err)
	}
	defer f.Close()

	hints := make(map[int][]layout.RunHint)
	totalPages := r.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		pageHeight := mediaBoxHeight(page)

		rows, err := page.GetTextByRow()
		if err != nil {
			// A broken content stream on one page should not sink the
			// document.
			continue
		}
		for _, row := range rows {
			if hint, ok := rowToHint(row, pageHeight); ok {
				hints[pageNum-1] = append(hints[pageNum-1], hint)
			}
		}
	}
	return hints, nil
}

// rowToHint collapses one text row into a hint box. Rows without
// readable content are skipped.
func rowToHint(row *pdf.Row, pageHeight float64) (layout.RunHint, bool) {
	var sb strings.Builder
	var minX, maxX, minY, maxY, maxFont float64
	first := true

	for _, text := range row.Content {
		if text.S == "" {
			continue
		}
		sb.WriteString(text.S)
		if first {
			minX, maxX = text.X, text.X+text.W
			minY, maxY = text.Y, text.Y
			first = false
		} else {
			if text.X < minX {
				minX = text.X
			}
			if text.X+text.W > maxX {
				maxX = text.X + text.W
			}
			if text.Y < minY {
				minY = text.Y
			}
			if text.Y > maxY {
				maxY = text.Y
			}
		}
		if text.FontSize > maxFont {
			maxFont = text.FontSize
		}
	}

	content := textutil.CleanText(sb.String())
	if !hasReadableText(content) {
		return layout.RunHint{}, false
	}

	// PDF text coordinates sit on the baseline with a bottom-left
	// origin; flip to top-left and give the row its font height.
	box := geom.Box{
		X0: minX,
		Y0: pageHeight - maxY - maxFont,
		X1: maxX,
		Y1: pageHeight - minY,
	}
	if box.Validate() != nil {
		return layout.RunHint{}, false
	}
	return layout.RunHint{Box: box, Text: content}, true
}

// HintsWithin returns the hints whose centers fall inside box.
func HintsWithin(hints []layout.RunHint, box geom.Box) []layout.RunHint {
	var out []layout.RunHint
	for _, h := range hints {
		cx, cy := h.Box.CenterX(), h.Box.CenterY()
		if cx >= box.X0 && cx <= box.X1 && cy >= box.Y0 && cy <= box.Y1 {
			out = append(out, h)
		}
	}
	return out
}

// hasReadableText reports whether s contains at least one letter or
// digit, filtering out operator garbage and pure punctuation rows.
func hasReadableText(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func mediaBoxHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return 0
	}
	return box.Index(3).Float64() - box.Index(1).Float64()
}
