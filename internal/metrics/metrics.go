// Package metrics records per-run processing statistics as CSV rows,
// one file per working directory, appended across runs.
package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// FileName is the metrics file created inside the working directory.
const FileName = "run-metrics.csv"

var header = []string{
	"timestamp", "document", "physical_pages", "logical_pages",
	"spread_pages", "segments", "translated", "warnings", "duration_ms",
}

// RunRecord is one completed document run.
type RunRecord struct {
	Timestamp     time.Time
	Document      string
	PhysicalPages int
	LogicalPages  int
	SpreadPages   int
	Segments      int
	Translated    int
	Warnings      int
	Duration      time.Duration
}

// FromResult derives counts from a pipeline result.
func FromResult(document string, result *pipeline.Result, translated int, duration time.Duration) RunRecord {
	rec := RunRecord{
		Timestamp:    time.Now(),
		Document:     document,
		LogicalPages: len(result.Pages),
		Translated:   translated,
		Warnings:     len(result.Warnings),
		Duration:     duration,
	}
	physical := make(map[int]bool)
	for _, p := range result.Pages {
		physical[p.PhysicalIndex] = true
		if p.Geometry.IsSpread && !p.RightHalf {
			rec.SpreadPages++
		}
		rec.Segments += len(p.Segments)
	}
	rec.PhysicalPages = len(physical)
	return rec
}

// Append writes the record to dir's metrics file, creating it with a
// header row when missing.
func Append(dir string, rec RunRecord) error {
	path := filepath.Join(dir, FileName)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return types.NewAppError(types.ErrExport, "failed to open metrics file", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			return types.NewAppError(types.ErrExport, "failed to write metrics header", err)
		}
	}
	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Document,
		strconv.Itoa(rec.PhysicalPages),
		strconv.Itoa(rec.LogicalPages),
		strconv.Itoa(rec.SpreadPages),
		strconv.Itoa(rec.Segments),
		strconv.Itoa(rec.Translated),
		strconv.Itoa(rec.Warnings),
		strconv.FormatInt(rec.Duration.Milliseconds(), 10),
	}
	if err := w.Write(row); err != nil {
		return types.NewAppError(types.ErrExport, "failed to write metrics row", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return types.NewAppError(types.ErrExport, "failed to flush metrics file", err)
	}
	return nil
}
