package restore

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/AkutaZehy/Annoti/internal/anchor"
	"github.com/AkutaZehy/Annoti/internal/annotation"
	"github.com/AkutaZehy/Annoti/internal/domtree"
	"github.com/AkutaZehy/Annoti/internal/highlight"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustParse(t *testing.T, src string) *domtree.Node {
	t.Helper()
	root, err := domtree.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return root
}

func ann(id string, anchors ...anchor.Anchor) *annotation.Annotation {
	return &annotation.Annotation{ID: id, SourceText: "x", Anchors: anchors}
}

func TestRestore_RoundTripReproducesSelection(t *testing.T) {
	src := `<body><p>Hello world again</p></body>`

	// Capture on the first render.
	first := mustParse(t, src)
	leaf := first.Children[0].TextLeafAt(0)
	anchors := anchor.Extract(anchor.Selection{
		Start: anchor.Position{Leaf: leaf, Offset: 6},
		End:   anchor.Position{Leaf: leaf, Offset: 11},
	})
	if len(anchors) != 1 {
		t.Fatalf("capture: expected 1 anchor, got %d", len(anchors))
	}

	// The tree is destroyed and rebuilt; restore against the fresh one.
	fresh := mustParse(t, src)
	m := highlight.NewManager(fresh, discard())
	report := NewEngine(m, discard()).Restore([]*annotation.Annotation{ann("a1", anchors...)})

	if report.Restored != 1 || report.Failed != 0 {
		t.Fatalf("expected clean restore, got %+v", report)
	}
	markers := m.Markers("a1")
	if len(markers) != 1 {
		t.Fatalf("expected 1 marker, got %d", len(markers))
	}
	if got := markers[0].TextContent(); got != "world" {
		t.Errorf("restored highlight covers %q, expected %q", got, "world")
	}
}

func TestRestore_MissingContainerFailsOnlyThatAnnotation(t *testing.T) {
	// The second paragraph existed at capture time but is gone now.
	fresh := mustParse(t, `<body><p>still here</p></body>`)
	m := highlight.NewManager(fresh, discard())

	anns := []*annotation.Annotation{
		ann("ok", anchor.Anchor{ContainerPath: "p:nth-of-type(1)", LeafOrdinal: 0, StartOffset: 0, EndOffset: 5}),
		ann("gone", anchor.Anchor{ContainerPath: "p:nth-of-type(2)", LeafOrdinal: 0, StartOffset: 0, EndOffset: 4}),
	}
	report := NewEngine(m, discard()).Restore(anns)

	if report.Restored != 1 || report.Failed != 1 {
		t.Fatalf("expected 1 restored + 1 failed, got %+v", report)
	}
	if report.Results[1].Status != StatusFailed || report.Results[1].Fragments != 0 {
		t.Errorf("expected annotation 'gone' to fail with zero fragments, got %+v", report.Results[1])
	}
	if len(m.Markers("ok")) != 1 {
		t.Error("surviving annotation did not restore")
	}
}

func TestRestore_PartialWhenSomeFragmentsDrift(t *testing.T) {
	fresh := mustParse(t, `<body><p>first</p></body>`)
	m := highlight.NewManager(fresh, discard())

	a := ann("p1",
		anchor.Anchor{ContainerPath: "p:nth-of-type(1)", LeafOrdinal: 0, StartOffset: 0, EndOffset: 5},
		anchor.Anchor{ContainerPath: "p:nth-of-type(2)", LeafOrdinal: 0, StartOffset: 0, EndOffset: 5},
	)
	report := NewEngine(m, discard()).Restore([]*annotation.Annotation{a})

	if report.Partial != 1 {
		t.Fatalf("expected partial restore, got %+v", report)
	}
	r := report.Results[0]
	if r.Status != StatusPartial || r.Fragments != 1 || len(r.Failures) != 1 {
		t.Errorf("expected 1 wrapped + 1 failed fragment, got %+v", r)
	}
}

func TestRestore_ClampsShrunkenLeaf(t *testing.T) {
	// Captured when the paragraph was longer; the leaf has since shrunk.
	fresh := mustParse(t, `<body><p>tiny</p></body>`)
	m := highlight.NewManager(fresh, discard())

	a := ann("c1", anchor.Anchor{ContainerPath: "p:nth-of-type(1)", LeafOrdinal: 0, StartOffset: 2, EndOffset: 40})
	report := NewEngine(m, discard()).Restore([]*annotation.Annotation{a})

	if report.Restored != 1 {
		t.Fatalf("expected clamped restore, got %+v", report)
	}
	if got := m.Markers("c1")[0].TextContent(); got != "ny" {
		t.Errorf("expected highlight ending at leaf length, got %q", got)
	}
}

func TestRestore_DegenerateAfterClampFails(t *testing.T) {
	fresh := mustParse(t, `<body><p>ab</p></body>`)
	m := highlight.NewManager(fresh, discard())

	a := ann("d1", anchor.Anchor{ContainerPath: "p:nth-of-type(1)", LeafOrdinal: 0, StartOffset: 7, EndOffset: 9})
	report := NewEngine(m, discard()).Restore([]*annotation.Annotation{a})

	if report.Failed != 1 {
		t.Fatalf("expected degenerate range to fail, got %+v", report)
	}
}

func TestRestore_MultiFragmentAnnotation(t *testing.T) {
	src := `<body><p>alpha beta</p><p>gamma delta</p></body>`
	first := mustParse(t, src)
	start := first.Children[0].TextLeafAt(0)
	end := first.Children[1].TextLeafAt(0)
	anchors := anchor.Extract(anchor.Selection{
		Start: anchor.Position{Leaf: start, Offset: 6},
		End:   anchor.Position{Leaf: end, Offset: 5},
	})
	if len(anchors) != 2 {
		t.Fatalf("capture: expected 2 anchors, got %d", len(anchors))
	}

	fresh := mustParse(t, src)
	m := highlight.NewManager(fresh, discard())
	report := NewEngine(m, discard()).Restore([]*annotation.Annotation{ann("m1", anchors...)})

	if report.Restored != 1 {
		t.Fatalf("expected restore, got %+v", report)
	}
	markers := m.Markers("m1")
	if len(markers) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(markers))
	}
	if markers[0].TextContent() != "beta" || markers[1].TextContent() != "gamma" {
		t.Errorf("fragments cover %q and %q", markers[0].TextContent(), markers[1].TextContent())
	}
}
