// Package restore replays persisted annotations against a freshly
// rendered tree. Content drifts between sessions — containers disappear,
// leaves shorten — so restoration degrades per fragment and reports what
// survived instead of failing the pass.
package restore

import (
	"log/slog"

	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/AkutaZehy/Annoti/internal/highlight"
)

// Status classifies one annotation's restoration outcome.
type Status string

const (
	// StatusRestored: every fragment wrapped.
	StatusRestored Status = "restored"
	// StatusPartial: at least one fragment wrapped, at least one failed.
	StatusPartial Status = "partial"
	// StatusFailed: zero fragments wrapped. The annotation stays in the
	// store for manual deletion or a retry after the content is fixed.
	StatusFailed Status = "failed"
)

// Result is the outcome for one annotation.
type Result struct {
	AnnotationID string                      `json:"annotationId"`
	Status       Status                      `json:"status"`
	Fragments    int                         `json:"fragments"`
	Failures     []highlight.FragmentFailure `json:"-"`
}

// Report summarizes one restoration pass.
type Report struct {
	Results  []Result `json:"results"`
	Restored int      `json:"restored"`
	Partial  int      `json:"partial"`
	Failed   int      `json:"failed"`
}

// Engine restores annotations through a marker manager bound to the
// current render pass.
type Engine struct {
	markers *highlight.Manager
	log     *slog.Logger
}

// NewEngine creates a restoration engine for the given render pass.
func NewEngine(markers *highlight.Manager, log *slog.Logger) *Engine {
	return &Engine{markers: markers, log: log}
}

// Restore replays every annotation, wrapping whatever fragments still
// resolve. A fully failed annotation is logged and reported, never fatal.
// Restoration must run exactly once per render pass: the caller schedules
// it after the renderer finishes the tree and never repeats it on the
// same live tree.
func (e *Engine) Restore(anns []*annotation.Annotation) Report {
	report := Report{Results: make([]Result, 0, len(anns))}
	for _, a := range anns {
		wrapped, failures := e.markers.Wrap(a.Anchors, a.ID)

		r := Result{AnnotationID: a.ID, Fragments: wrapped, Failures: failures}
		switch {
		case wrapped == 0:
			r.Status = StatusFailed
			report.Failed++
			e.log.Warn("annotation failed to restore",
				"annotation_id", a.ID,
				"anchors", len(a.Anchors),
			)
		case len(failures) > 0:
			r.Status = StatusPartial
			report.Partial++
		default:
			r.Status = StatusRestored
			report.Restored++
		}
		report.Results = append(report.Results, r)
	}
	return report
}
