package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const (
	defaultOverlayFontSize = 9.0
	minOverlayFontSize     = 5.0
)

// OverlayOptions controls the PDF annotation pass.
type OverlayOptions struct {
	// FontName names a font already installed in pdfcpu's font dir;
	// empty uses pdfcpu's default.
	FontName string
}

// OverlayTranslations copies the source PDF to outputPath and stamps
// each translated segment over its box on the physical page it came
// from. Split-spread segments are stamped back in whole-page
// coordinates, so the output stays page-for-page with the source.
func OverlayTranslations(inputPath, outputPath string, result *pipeline.Result, translations map[int64]string, opts OverlayOptions) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return types.NewAppError(types.ErrExport, "failed to read source PDF", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return types.NewAppError(types.ErrExport, "failed to copy source PDF", err)
	}

	stamped := 0
	for _, page := range result.Pages {
		pageNum := page.PhysicalIndex + 1
		pageSelection := []string{fmt.Sprintf("%d", pageNum)}

		for _, seg := range page.Segments {
			text, ok := translations[seg.ID]
			if !ok || strings.TrimSpace(text) == "" {
				continue
			}
			box := seg.Box
			if page.RightHalf {
				// Back into the unsplit page's coordinates.
				box = geom.Transform(box, page.Geometry.SplitPoint, 0, 1)
			}
			desc := stampDescription(box, page.Geometry, opts.FontName)

			wm, err := api.TextWatermark(text, desc, true, false, pdftypes.POINTS)
			if err != nil {
				logger.Warn("failed to build text stamp",
					logger.Int("page", pageNum),
					logger.Int64("segment", seg.ID),
					logger.Err(err))
				continue
			}
			if err := api.AddWatermarksFile(outputPath, "", pageSelection, wm, nil); err != nil {
				logger.Warn("failed to apply text stamp",
					logger.Int("page", pageNum),
					logger.Int64("segment", seg.ID),
					logger.Err(err))
				continue
			}
			stamped++
		}
	}

	if err := api.ValidateFile(outputPath, nil); err != nil {
		return types.NewAppError(types.ErrExport, "annotated PDF failed validation", err)
	}

	logger.Info("PDF overlay written",
		logger.String("path", outputPath),
		logger.Int("stamps", stamped))
	return nil
}

// stampDescription builds a pdfcpu stamp description anchored at the
// bottom-left corner. Segment boxes use a top-left origin, so the
// vertical offset is flipped against the page height. Spread splitting
// is vertical, so logical and physical pages share the same height.
func stampDescription(box geom.Box, pageGeom layout.PageGeometry, fontName string) string {
	fontSize := fitFontSize(box)
	offsetX := box.X0
	offsetY := pageGeom.Height - box.Y1

	desc := fmt.Sprintf("pos:bl, off:%.1f %.1f, points:%.1f, fillc:#000000, op:1.0, bgcol:#ffffff, sc:1 abs, rot:0",
		offsetX, offsetY, fontSize)
	if fontName != "" {
		desc += fmt.Sprintf(", fontname:%s", fontName)
	}
	return desc
}

// fitFontSize scales the stamp font down for short boxes so a one-line
// caption does not overflow its rectangle.
func fitFontSize(box geom.Box) float64 {
	size := defaultOverlayFontSize
	if h := box.Height(); h > 0 && h < size*1.3 {
		size = h / 1.3
	}
	if size < minOverlayFontSize {
		size = minOverlayFontSize
	}
	return size
}
