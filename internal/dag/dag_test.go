package dag

import (
	"errors"
	"testing"
)

func TestSimpleGraph(t *testing.T) {
	dag := New()

	for _, id := range []string{"1", "2", "3", "4"} {
		if err := dag.AddNode(id); err != nil {
			t.Fatal(err)
		}
	}

	if err := dag.AddNode("1"); !errors.Is(err, ErrEntityExists) {
		t.Fatalf("expected error %q; found %v", ErrEntityExists, err)
	}

	if err := dag.AddEdge("1", "2"); err != nil {
		t.Fatal(err)
	}

	if err := dag.AddEdge("2", "3"); err != nil {
		t.Fatal(err)
	}

	if err := dag.AddEdge("2", "4"); err != nil {
		t.Fatal(err)
	}

	edges, err := dag.Edges("2")
	if err != nil {
		t.Fatal(err)
	}

	if len(edges) != 2 {
		t.Fatalf("expected 2 edges; found %d", len(edges))
	}
}

func TestMissingNode(t *testing.T) {
	dag := New()

	_ = dag.AddNode("1")

	if err := dag.AddEdge("1", "missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected error %q; found %v", ErrEntityNotFound, err)
	}

	if err := dag.AddEdge("missing", "1"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected error %q; found %v", ErrEntityNotFound, err)
	}
}

func TestCycleDetection(t *testing.T) {
	dag := New()

	for _, id := range []string{"1", "2", "3"} {
		if err := dag.AddNode(id); err != nil {
			t.Fatal(err)
		}
	}

	if err := dag.AddEdge("1", "1"); !errors.Is(err, ErrEdgeCreatesCycle) {
		t.Fatalf("expected error %q; found %v", ErrEdgeCreatesCycle, err)
	}

	if err := dag.AddEdge("1", "2"); err != nil {
		t.Fatal(err)
	}

	if err := dag.AddEdge("2", "3"); err != nil {
		t.Fatal(err)
	}

	// Closing the loop back to the root must be rejected.
	if err := dag.AddEdge("3", "1"); !errors.Is(err, ErrEdgeCreatesCycle) {
		t.Fatalf("expected error %q; found %v", ErrEdgeCreatesCycle, err)
	}
}
