// Package export writes processed documents out: a JSON sidecar with
// full segment data, a DOCX rendition, and translated-text overlays on
// the source PDF.
package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// SidecarSegment is one segment in the JSON sidecar, with its
// translation when available.
type SidecarSegment struct {
	ID           int64              `json:"id"`
	Box          [4]float64         `json:"box"`
	Type         layout.ElementType `json:"type"`
	ReadingOrder int                `json:"reading_order"`
	Text         string             `json:"text"`
	Translation  string             `json:"translation,omitempty"`
	SourceIDs    []int              `json:"source_ids"`
}

// SidecarPage is one logical page in the sidecar.
type SidecarPage struct {
	Index         int              `json:"index"`
	PhysicalIndex int              `json:"physical_index"`
	RightHalf     bool             `json:"right_half,omitempty"`
	Width         float64          `json:"width"`
	Height        float64          `json:"height"`
	IsSpread      bool             `json:"is_spread,omitempty"`
	Segments      []SidecarSegment `json:"segments"`
}

// Sidecar is the full JSON export of a document run.
type Sidecar struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Source      string           `json:"source"`
	Pages       []SidecarPage    `json:"pages"`
	Warnings    []layout.Warning `json:"warnings,omitempty"`
}

// WriteSidecar serializes the result to path.
func WriteSidecar(path, source string, result *pipeline.Result, translations map[int64]string) error {
	sidecar := Sidecar{
		GeneratedAt: time.Now(),
		Source:      source,
		Warnings:    result.Warnings,
	}
	for _, p := range result.Pages {
		page := SidecarPage{
			Index:         p.Index,
			PhysicalIndex: p.PhysicalIndex,
			RightHalf:     p.RightHalf,
			Width:         p.Geometry.Width,
			Height:        p.Geometry.Height,
			IsSpread:      p.Geometry.IsSpread,
			Segments:      []SidecarSegment{},
		}
		for _, s := range p.Segments {
			page.Segments = append(page.Segments, SidecarSegment{
				ID:           s.ID,
				Box:          [4]float64{s.Box.X0, s.Box.Y0, s.Box.X1, s.Box.Y1},
				Type:         s.Type,
				ReadingOrder: s.ReadingOrder,
				Text:         s.Text,
				Translation:  translations[s.ID],
				SourceIDs:    s.SourceIDs(),
			})
		}
		sidecar.Pages = append(sidecar.Pages, page)
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrExport, "failed to marshal sidecar", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return types.NewAppError(types.ErrExport, "failed to write sidecar", err)
	}
	return nil
}
