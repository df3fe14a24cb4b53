package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
)

func readRows(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, FileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAppendCreatesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	rec := RunRecord{
		Timestamp: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Document:  "book.pdf",
		Segments:  7,
		Duration:  1500 * time.Millisecond,
	}

	require.NoError(t, Append(dir, rec))
	require.NoError(t, Append(dir, rec))

	rows := readRows(t, dir)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "2026-08-24T12:00:00Z", rows[1][0])
	assert.Equal(t, "book.pdf", rows[1][1])
	assert.Equal(t, "7", rows[1][5])
	assert.Equal(t, "1500", rows[1][8])
}

func TestFromResultCounts(t *testing.T) {
	result := &pipeline.Result{
		Pages: []pipeline.Page{
			{PhysicalIndex: 0, Segments: make([]layout.Segment, 2)},
			{PhysicalIndex: 1, Geometry: layout.PageGeometry{IsSpread: true}, Segments: make([]layout.Segment, 1)},
			{PhysicalIndex: 1, RightHalf: true, Geometry: layout.PageGeometry{IsSpread: true}, Segments: make([]layout.Segment, 3)},
		},
		Warnings: []layout.Warning{{Stage: "deglue"}},
	}

	rec := FromResult("scan.pdf", result, 5, 2*time.Second)
	assert.Equal(t, 2, rec.PhysicalPages)
	assert.Equal(t, 3, rec.LogicalPages)
	assert.Equal(t, 1, rec.SpreadPages)
	assert.Equal(t, 6, rec.Segments)
	assert.Equal(t, 5, rec.Translated)
	assert.Equal(t, 1, rec.Warnings)
	assert.Equal(t, "scan.pdf", rec.Document)
}
