package format

import (
	"strings"
	"testing"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/fatih/color"
)

func TestNormalizeEnumValue(t *testing.T) {
	if got := NormalizeEnumValue("ACTIVE", "Unknown"); got != "Active" {
		t.Errorf("got %q; want %q", got, "Active")
	}
	if got := NormalizeEnumValue("COMPLETE", "Unknown"); got != "Complete" {
		t.Errorf("got %q; want %q", got, "Complete")
	}
	if got := NormalizeEnumValue("NOT_FOUND", "Unknown"); got != "Not Found" {
		t.Errorf("got %q; want %q", got, "Not Found")
	}
	if got := NormalizeEnumValue("", "Not Run"); got != "Not Run" {
		t.Errorf("got %q; want fallback %q", got, "Not Run")
	}
	if got := NormalizeEnumValue("UNKNOWN", "Not Run"); got != "Not Run" {
		t.Errorf("got %q; want fallback %q", got, "Not Run")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(0, 0); got != "0s" {
		t.Errorf("got %q; want %q", got, "0s")
	}
	if got := Duration(1000, 3500); got != "~2s" {
		t.Errorf("got %q; want %q", got, "~2s")
	}
}

func TestSliceJoin(t *testing.T) {
	if got := SliceJoin(nil, "None"); got != "None" {
		t.Errorf("got %q; want %q", got, "None")
	}
	if got := SliceJoin([]string{"one", "two"}, "None"); got != "one, two" {
		t.Errorf("got %q; want %q", got, "one, two")
	}
}

func TestHealth(t *testing.T) {
	color.NoColor = true

	allPassed := []models.RunStatus{models.RunStatusSuccessful, models.RunStatusSuccessful}
	if got := Health(allPassed, false); got != "Good" {
		t.Errorf("got %q; want %q", got, "Good")
	}

	mixed := []models.RunStatus{models.RunStatusSuccessful, models.RunStatusFailed}
	if got := Health(mixed, false); got != "Unstable" {
		t.Errorf("got %q; want %q", got, "Unstable")
	}

	allFailed := []models.RunStatus{models.RunStatusFailed}
	if got := Health(allFailed, false); got != "Poor" {
		t.Errorf("got %q; want %q", got, "Poor")
	}
}

func TestDependencies(t *testing.T) {
	sentences := Dependencies(map[string]models.RequiredParentStatus{
		"first":  models.RequiredParentStatusAny,
		"second": models.RequiredParentStatusSuccess,
		"third":  models.RequiredParentStatusFailure,
	})

	if len(sentences) != 3 {
		t.Fatalf("got %d sentences; want 3", len(sentences))
	}

	combined := strings.Join(sentences, " ")
	for _, want := range []string{
		"After task first has finished.",
		"Only after task second has finished successfully.",
		"Only after task third has finished with an error.",
	} {
		if !strings.Contains(combined, want) {
			t.Errorf("missing sentence %q in %q", want, combined)
		}
	}
}
