package story_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scrolly/story"
)

func writeTemp(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadNarrative(t *testing.T) {
	path := writeTemp(t, "steps.json", `{
		"steps": [
			{"id": "intro", "text": {"content": "hello", "position": "left"}},
			{"id": "charts", "scrollHeight": "200vh", "chart": {
				"visible": true, "layout": "grid",
				"grid": {"rowPattern": [2, 1]},
				"charts": [
					{"id": "a", "type": "line", "dataFile": "a.csv", "dataFormat": "auto"},
					{"id": "b", "type": "pie", "dataFile": "b.json"},
					{"id": "c", "type": "venn", "dataFile": "c.json", "config": {"sets": 3}}
				]
			}}
		]
	}`)

	n, err := story.LoadNarrative(path)
	if err != nil {
		t.Fatalf("load narrative: %v", err)
	}
	if len(n.Steps) != 2 {
		t.Fatalf("expected 2 raw steps, got %d", len(n.Steps))
	}
	if n.Steps[1].Chart.Grid.RowPattern[0] != 2 {
		t.Error("grid spec not decoded")
	}
}

func TestLoadNarrativeAggregatesErrors(t *testing.T) {
	path := writeTemp(t, "steps.json", `{
		"steps": [
			{"id": "both", "chart": {"visible": true, "charts": [{"id": "a", "type": "line", "dataFile": "a.csv"}]},
			 "map": {"visible": true, "center": [0, 0], "zoom": 2}},
			{"id": "zoom", "map": {"visible": true, "center": [0, 0], "zoom": 0}},
			{"id": "scroll", "scrollHeight": "not-a-length"}
		]
	}`)

	_, err := story.LoadNarrative(path)
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	msg := err.Error()
	for _, want := range []string{"both", "zoom", "scrollHeight"} {
		if !strings.Contains(msg, want) {
			t.Errorf("aggregated error is missing %q: %s", want, msg)
		}
	}
}

func TestLoadNarrativeRejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, "steps.json", `{"steps": [{"id": "a", "bogus": true}]}`)
	if _, err := story.LoadNarrative(path); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
}

func TestLoadAuxMissingFile(t *testing.T) {
	aux, err := story.LoadAux(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing aux dataset must not be an error: %v", err)
	}
	if aux != nil {
		t.Error("missing aux dataset must load as nil")
	}
}
