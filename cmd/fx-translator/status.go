package main

import (
	"fmt"
	"io"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// statusReporter prints run phase transitions for long operations, one
// line per change, so batch runs show where the time goes.
type statusReporter struct {
	w    io.Writer
	last types.ProcessPhase
}

func newStatusReporter(w io.Writer) *statusReporter {
	return &statusReporter{w: w, last: types.PhaseIdle}
}

// Report prints s when it moves the run to a new phase or carries an
// error. Repeated reports within the same phase are dropped.
func (r *statusReporter) Report(s types.Status) {
	if s.Phase == r.last && s.Error == "" {
		return
	}
	r.last = s.Phase
	switch {
	case s.Error != "":
		fmt.Fprintf(r.w, "[%3d%%] %s: %s\n", s.Progress, s.Phase, s.Error)
	case s.Message != "":
		fmt.Fprintf(r.w, "[%3d%%] %s: %s\n", s.Progress, s.Phase, s.Message)
	default:
		fmt.Fprintf(r.w, "[%3d%%] %s\n", s.Progress, s.Phase)
	}
}

// Fail reports a terminal error state.
func (r *statusReporter) Fail(err error) {
	r.Report(types.Status{Phase: types.PhaseError, Error: err.Error()})
}
