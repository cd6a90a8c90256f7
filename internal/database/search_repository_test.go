package database

import (
	"testing"
)

func TestSearchHistoryAddAndList(t *testing.T) {
	repo := NewSearchRepository(setupTestDB(t).Connection())

	for _, term := range []string{"alien", "blade runner", "alien"} {
		if err := repo.Add(term); err != nil {
			t.Fatalf("Add(%q) failed: %v", term, err)
		}
	}

	terms, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	// Duplicates collapse and the most recently searched term comes first.
	want := []string{"alien", "blade runner"}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %d: %v", len(want), len(terms), terms)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}
}

func TestSearchHistoryIgnoresBlank(t *testing.T) {
	repo := NewSearchRepository(setupTestDB(t).Connection())

	if err := repo.Add("   "); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	terms, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(terms) != 0 {
		t.Errorf("expected blank terms to be ignored, got %v", terms)
	}
}

func TestSearchHistoryClear(t *testing.T) {
	repo := NewSearchRepository(setupTestDB(t).Connection())

	if err := repo.Add("dune"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	terms, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(terms) != 0 {
		t.Errorf("expected empty history after clear, got %v", terms)
	}
}
