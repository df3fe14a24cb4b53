package extract

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// PageCount returns the number of pages in the PDF.
func PageCount(pdfPath string) (int, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return 0, types.NewAppError(types.ErrInvalidInput, "failed to read PDF", err)
	}
	return ctx.PageCount, nil
}

// PageGeometries returns one PageGeometry per page with media-box
// dimensions in points. Used by the spread detector, which needs the
// full document's aspect ratios before any page is processed.
func PageGeometries(pdfPath string) ([]layout.PageGeometry, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read PDF", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read page dimensions", err)
	}

	geoms := make([]layout.PageGeometry, 0, len(dims))
	for i, d := range dims {
		geoms = append(geoms, layout.PageGeometry{
			PageIndex: i,
			Width:     d.Width,
			Height:    d.Height,
		})
	}
	return geoms, nil
}
