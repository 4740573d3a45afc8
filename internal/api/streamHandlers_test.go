package api

import (
	"strings"
	"testing"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/google/go-cmp/cmp"
)

func TestEventMatchesFilter(t *testing.T) {
	tests := map[string]struct {
		filter []models.EventKind
		kind   models.EventKind
		want   bool
	}{
		"empty filter matches all": {nil, models.EventKindCompletedRun, true},
		"any matches all":          {[]models.EventKind{models.EventKindAny}, models.EventKindCompletedRun, true},
		"exact match":              {[]models.EventKind{models.EventKindCompletedRun}, models.EventKindCompletedRun, true},
		"exact mismatch":           {[]models.EventKind{models.EventKindStartedRun}, models.EventKindCompletedRun, false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := eventMatchesFilter(tc.filter, tc.kind); got != tc.want {
				t.Errorf("eventMatchesFilter(%v, %q) = %v; want %v", tc.filter, tc.kind, got, tc.want)
			}
		})
	}
}

func TestReadLinesDeliversAllLines(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	lines := readLines(strings.NewReader("alpha\nbeta\n"), done)

	got := []string{}
	for line := range lines {
		got = append(got, line)
	}

	want := []string{"alpha", "beta"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestReadLinesStopsWhenStreamAbandoned(t *testing.T) {
	reader := strings.NewReader("one\ntwo\nthree\n")
	done := make(chan struct{})

	lines := readLines(reader, done)

	if first := <-lines; first != "one" {
		t.Fatalf("first line = %q; want %q", first, "one")
	}

	close(done)

	// At most one already scanned line may still arrive; after that the channel must close.
	deadline := time.After(time.Second * 5)
	for {
		select {
		case _, open := <-lines:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("line forwarder did not stop after the stream was abandoned")
		}
	}
}
