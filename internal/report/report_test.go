package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

func TestAddAndList(t *testing.T) {
	r, err := NewReporter(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, r.Add(Record{
		Document:  "paper.pdf",
		PageIndex: 2,
		Stage:     StageRefine,
		ElementID: 7,
		Message:   "malformed box",
	}))

	records := r.List()
	require.Len(t, records, 1)
	assert.Equal(t, "paper.pdf", records[0].Document)
	assert.Equal(t, StageRefine, records[0].Stage)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestAddWarnings(t *testing.T) {
	r, err := NewReporter(t.TempDir())
	require.NoError(t, err)

	warnings := []layout.Warning{
		{PageIndex: 0, Stage: "refine", ElementID: 1, Message: "malformed box"},
		{PageIndex: 0, Stage: "deglue", SegmentID: 9, Message: "no split found"},
		{PageIndex: 1, Stage: "deglue", SegmentID: 12, Message: "no split found"},
	}
	require.NoError(t, r.AddWarnings("scan.pdf", warnings))

	counts := r.ByStage()
	assert.Equal(t, 1, counts[StageRefine])
	assert.Equal(t, 2, counts[StageDeglue])
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	r, err := NewReporter(dir)
	require.NoError(t, err)
	require.NoError(t, r.Add(Record{Document: "a.pdf", Stage: StageTranslate, Message: "timeout"}))
	require.NoError(t, r.Add(Record{Document: "b.pdf", Stage: StageExport, Message: "write failed"}))

	// A fresh reporter over the same directory sees the saved records.
	r2, err := NewReporter(dir)
	require.NoError(t, err)
	assert.Len(t, r2.List(), 2)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, r2.Documents())
}

func TestClear(t *testing.T) {
	dir := t.TempDir()

	r, err := NewReporter(dir)
	require.NoError(t, err)
	require.NoError(t, r.Add(Record{Document: "a.pdf", Stage: StageDetect, Message: "x"}))
	require.NoError(t, r.Clear())
	assert.Empty(t, r.List())

	r2, err := NewReporter(dir)
	require.NoError(t, err)
	assert.Empty(t, r2.List())
}
