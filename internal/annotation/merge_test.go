package annotation

import (
	"testing"
	"time"
)

func imported(text string) *Annotation {
	return &Annotation{
		ID:         "imported-" + text,
		AuthorID:   "remote",
		AuthorName: "Remote Reviewer",
		SourceText: text,
		Anchors:    testAnchors(),
		CreatedAt:  1000,
		UpdatedAt:  1000,
	}
}

func TestMerge_AcceptsNewSkipsExactDuplicates(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)
	if _, err := s.Create("already here", testAnchors(), "u1", "Ada", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	result := s.Merge([]*Annotation{
		imported("already here"),
		imported("brand new"),
		imported("also new"),
	})

	if result.DuplicateCount != 1 {
		t.Errorf("expected 1 duplicate, got %d", result.DuplicateCount)
	}
	if len(result.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(result.Accepted))
	}
	if len(s.Annotations()) != 3 {
		t.Errorf("expected 3 annotations in store, got %d", len(s.Annotations()))
	}
}

func TestMerge_AssignsFreshIdsAndTimestamps(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)

	in := imported("fresh")
	result := s.Merge([]*Annotation{in})

	if len(result.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(result.Accepted))
	}
	got := result.Accepted[0]
	if got.ID == in.ID || got.ID == "" {
		t.Errorf("expected fresh id, got %q", got.ID)
	}
	if got.CreatedAt == 1000 || got.UpdatedAt == 1000 {
		t.Error("expected fresh timestamps")
	}
	// Anchors pass through unchanged; restoration handles drift.
	if len(got.Anchors) != 1 || got.Anchors[0] != in.Anchors[0] {
		t.Errorf("anchors must pass through unchanged, got %+v", got.Anchors)
	}
}

func TestMerge_RejectsEntriesWithoutAnchors(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)

	bare := imported("imported")
	bare.Anchors = nil
	result := s.Merge([]*Annotation{bare, nil, imported("good")})

	if result.RejectedCount != 2 {
		t.Errorf("expected 2 rejected, got %d", result.RejectedCount)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("expected 1 accepted, got %d", len(result.Accepted))
	}
	// Nothing anchorless may reach the store; a persisted anchorless row
	// would quarantine the whole document on the next open.
	for _, a := range s.Annotations() {
		if len(a.Anchors) == 0 {
			t.Fatalf("annotation %q stored without anchors", a.ID)
		}
	}
}

func TestMerge_DuplicateWithinIncoming(t *testing.T) {
	s := newTestStore(t, &fakeStorage{}, time.Hour)

	result := s.Merge([]*Annotation{imported("twice"), imported("twice")})

	if len(result.Accepted) != 1 || result.DuplicateCount != 1 {
		t.Errorf("expected 1 accepted + 1 duplicate, got %d/%d",
			len(result.Accepted), result.DuplicateCount)
	}
}
