package api

import (
	"testing"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/google/go-cmp/cmp"
)

func TestParseInterpolationSyntax(t *testing.T) {
	tests := map[string]struct {
		kind      InterpolationKind
		variable  string
		wantKey   string
		wantFound bool
	}{
		"simple pipeline secret": {
			kind: InterpolationKindPipelineSecret, variable: "pipeline_secret{{my_key}}",
			wantKey: "my_key", wantFound: true,
		},
		"whitespace inside braces": {
			kind: InterpolationKindPipelineSecret, variable: "pipeline_secret{{ my_key }}",
			wantKey: "my_key", wantFound: true,
		},
		"whitespace around directive": {
			kind: InterpolationKindRunObject, variable: "  run_object{{artifact}}  ",
			wantKey: "artifact", wantFound: true,
		},
		"wrong kind": {
			kind: InterpolationKindGlobalSecret, variable: "pipeline_secret{{my_key}}",
			wantKey: "", wantFound: false,
		},
		"plain value": {
			kind: InterpolationKindPipelineSecret, variable: "just a normal value",
			wantKey: "", wantFound: false,
		},
		"unterminated directive": {
			kind: InterpolationKindPipelineObject, variable: "pipeline_object{{my_key",
			wantKey: "", wantFound: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			key, found := parseInterpolationSyntax(tc.kind, tc.variable)
			if found != tc.wantFound {
				t.Fatalf("found = %v; want %v", found, tc.wantFound)
			}
			if key != tc.wantKey {
				t.Errorf("key = %q; want %q", key, tc.wantKey)
			}
		})
	}
}

func TestGlobalSecretAccessAllowed(t *testing.T) {
	tests := map[string]struct {
		filters   []string
		namespace string
		want      bool
	}{
		"empty filter allows all":   {nil, "any_namespace", true},
		"exact match":               {[]string{"default"}, "default", true},
		"exact mismatch":            {[]string{"default"}, "production", false},
		"prefix wildcard match":     {[]string{"dev_*"}, "dev_team_a", true},
		"prefix wildcard mismatch":  {[]string{"dev_*"}, "production", false},
		"bare wildcard matches all": {[]string{"*"}, "anything", true},
		"second filter matches":     {[]string{"staging", "prod_*"}, "prod_eu", true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := globalSecretAccessAllowed(tc.filters, tc.namespace); got != tc.want {
				t.Errorf("globalSecretAccessAllowed(%v, %q) = %v; want %v", tc.filters, tc.namespace, got, tc.want)
			}
		})
	}
}

func TestCombineVariablesLayerPrecedence(t *testing.T) {
	run := &models.Run{
		Namespace: "default",
		Pipeline:  "my_pipeline",
		ID:        1,
		Variables: []models.Variable{
			{Key: "SHARED", Value: "from_run", Source: models.VariableSourceRun},
			{Key: "RUN_ONLY", Value: "run_value", Source: models.VariableSourceRun},
			{Key: "GOFER_RUN_ID", Value: "spoofed", Source: models.VariableSourceRun},
		},
	}
	task := &models.Task{
		ID:    "my_task",
		Image: "ubuntu:latest",
		Variables: []models.Variable{
			{Key: "SHARED", Value: "from_task", Source: models.VariableSourcePipelineConfig},
			{Key: "TASK_ONLY", Value: "task_value", Source: models.VariableSourcePipelineConfig},
		},
	}

	combined := combineVariables(run, task)
	byKey := map[string]models.Variable{}
	for _, variable := range combined {
		if _, exists := byKey[variable.Key]; exists {
			t.Errorf("key %q appears more than once in combined set", variable.Key)
		}
		byKey[variable.Key] = variable
	}

	// Run level values beat task level values for the same key.
	if got := byKey["SHARED"].Value; got != "from_run" {
		t.Errorf("SHARED = %q; want %q", got, "from_run")
	}
	if got := byKey["SHARED"].Source; got != models.VariableSourceRun {
		t.Errorf("SHARED source = %q; want %q", got, models.VariableSourceRun)
	}

	if got := byKey["TASK_ONLY"].Value; got != "task_value" {
		t.Errorf("TASK_ONLY = %q; want %q", got, "task_value")
	}

	// System injected variables are always present.
	for _, key := range []string{
		"GOFER_NAMESPACE_ID", "GOFER_PIPELINE_ID", "GOFER_RUN_ID", "GOFER_TASK_ID", "GOFER_TASK_IMAGE",
	} {
		if _, exists := byKey[key]; !exists {
			t.Errorf("expected system variable %q in combined set", key)
		}
	}

	if got := byKey["GOFER_NAMESPACE_ID"].Value; got != "default" {
		t.Errorf("GOFER_NAMESPACE_ID = %q; want %q", got, "default")
	}

	// A run variable cannot impersonate a system injected value.
	if got := byKey["GOFER_RUN_ID"].Value; got != "1" {
		t.Errorf("GOFER_RUN_ID = %q; want %q", got, "1")
	}
	if got := byKey["GOFER_RUN_ID"].Source; got != models.VariableSourceSystem {
		t.Errorf("GOFER_RUN_ID source = %q; want %q", got, models.VariableSourceSystem)
	}
}

func TestSystemInjectedVarsAPIToken(t *testing.T) {
	run := &models.Run{Pipeline: "my_pipeline", ID: 7}

	withoutToken := systemInjectedVars(run, &models.Task{ID: "my_task", Image: "ubuntu:latest"})
	for _, variable := range withoutToken {
		if variable.Key == "GOFER_API_TOKEN" {
			t.Fatal("GOFER_API_TOKEN injected without InjectAPIToken set")
		}
	}

	withToken := systemInjectedVars(run, &models.Task{ID: "my_task", Image: "ubuntu:latest", InjectAPIToken: true})
	found := false
	for _, variable := range withToken {
		if variable.Key != "GOFER_API_TOKEN" {
			continue
		}
		found = true

		// The token arrives as a run scoped pipeline secret reference, resolved at start time.
		key, ok := parseInterpolationSyntax(InterpolationKindPipelineSecret, variable.Value)
		if !ok {
			t.Errorf("GOFER_API_TOKEN value %q is not a pipeline secret directive", variable.Value)
		}
		if key != "gofer_api_token_7" {
			t.Errorf("GOFER_API_TOKEN key = %q; want %q", key, "gofer_api_token_7")
		}
		if variable.Sensitivity != models.VariableSensitivityPrivate {
			t.Errorf("GOFER_API_TOKEN sensitivity = %q; want private", variable.Sensitivity)
		}
	}
	if !found {
		t.Fatal("expected GOFER_API_TOKEN to be injected")
	}
}

func TestConvertVarsRoundTrip(t *testing.T) {
	variables := []models.Variable{
		{Key: "ONE", Value: "1", Source: models.VariableSourceSystem, Sensitivity: models.VariableSensitivityPublic},
		{Key: "TWO", Value: "2", Source: models.VariableSourceSystem, Sensitivity: models.VariableSensitivityPublic},
	}

	asMap := convertVarsToMap(variables)
	want := map[string]string{"ONE": "1", "TWO": "2"}
	if diff := cmp.Diff(want, asMap); diff != "" {
		t.Errorf("unexpected map (-want +got):\n%s", diff)
	}

	backAgain := convertVarsToMap(convertVarsToSlice(asMap, models.VariableSourceSystem))
	if diff := cmp.Diff(want, backAgain); diff != "" {
		t.Errorf("unexpected round trip (-want +got):\n%s", diff)
	}
}
