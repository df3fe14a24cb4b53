// Package report collects non-fatal processing problems per document
// run and persists them for later inspection and retry.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

// Stage identifies the pipeline phase a record came from.
type Stage string

const (
	StageDetect    Stage = "detect"
	StageSpread    Stage = "spread"
	StageRefine    Stage = "refine"
	StageDeglue    Stage = "deglue"
	StageTranslate Stage = "translate"
	StageExport    Stage = "export"
)

// Record is one non-fatal problem tied to a document and page.
type Record struct {
	Document  string    `json:"document"`
	PageIndex int       `json:"page_index"`
	Stage     Stage     `json:"stage"`
	ElementID int       `json:"element_id,omitempty"`
	SegmentID int64     `json:"segment_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Reporter accumulates records in memory and mirrors them to a JSON
// file under its base directory. Safe for concurrent page workers.
type Reporter struct {
	baseDir string
	mu      sync.RWMutex
	records []Record
}

// NewReporter creates a reporter rooted at baseDir; an empty baseDir
// defaults to ~/.fx-translator/reports. An existing report file is
// loaded so repeated runs append.
func NewReporter(baseDir string) (*Reporter, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".fx-translator", "reports")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	r := &Reporter{baseDir: baseDir}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Add appends a record, stamping the current time.
func (r *Reporter) Add(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.Timestamp = time.Now()
	r.records = append(r.records, rec)
	return r.save()
}

// AddWarnings converts layout warnings for one document into records.
func (r *Reporter) AddWarnings(document string, warnings []layout.Warning) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, w := range warnings {
		r.records = append(r.records, Record{
			Document:  document,
			PageIndex: w.PageIndex,
			Stage:     Stage(w.Stage),
			ElementID: w.ElementID,
			SegmentID: w.SegmentID,
			Message:   w.Message,
			Timestamp: now,
		})
	}
	return r.save()
}

// List returns a copy of all records.
func (r *Reporter) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// ByStage returns per-stage record counts.
func (r *Reporter) ByStage() map[Stage]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Stage]int)
	for _, rec := range r.records {
		counts[rec.Stage]++
	}
	return counts
}

// Documents returns the distinct document names with records, sorted.
func (r *Reporter) Documents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, rec := range r.records {
		seen[rec.Document] = true
	}
	docs := make([]string, 0, len(seen))
	for d := range seen {
		docs = append(docs, d)
	}
	sort.Strings(docs)
	return docs
}

// Clear drops all records and rewrites the report file.
func (r *Reporter) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = nil
	return r.save()
}

func (r *Reporter) path() string {
	return filepath.Join(r.baseDir, "report.json")
}

func (r *Reporter) load() error {
	data, err := os.ReadFile(r.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read report file: %w", err)
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		return fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return nil
}

// save is called with the mutex held.
func (r *Reporter) save() error {
	records := r.records
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(r.path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
