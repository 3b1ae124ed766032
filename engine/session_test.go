package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"scrolly/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Version: 1,
		Narrative: config.NarrativeConfig{
			Files: config.FilesConfig{
				Steps:    "steps.json",
				Episodes: "episodes.json",
				Topology: "topology.json",
				DataDir:  "data",
			},
			Canvas: config.CanvasConfig{
				Width: 1200, Height: 800,
				Padding: 24, PanelGap: 16,
				HeaderSafeMin: 60, HeaderSafeMax: 120,
				MobileBreakpoint: 640,
			},
			Scroll:        config.ScrollConfig{Offset: 0.5},
			Animation:     config.AnimationConfig{DurationMs: 800},
			Theme:         config.ThemeConfig{Highlight: "#c0392b", Muted: "#b0b6bd", Background: "#10141a"},
			DataCacheSize: 8,
		},
	}
}

const testSteps = `{
  "steps": [
    {"id": "intro", "text": {"content": "hello"}},
    {"id": "charts", "chart": {"visible": true, "layout": "dual", "charts": [
      {"id": "pop", "type": "bar", "dataFile": "pop.csv", "dataFormat": "csv"}
    ]}},
    {"cityEpisodes": {"enabled": true}},
    {"id": "finale", "closing": true, "map": {"visible": true, "center": [10, 50], "zoom": 3}}
  ]
}`

const testEpisodes = `{
  "timeline": {"title": "tour"},
  "entities": [
    {"id": "paris", "name": "Paris", "country": "France", "longitude": 2.35, "latitude": 48.85, "order": 1},
    {"id": "berlin", "name": "Berlin", "country": "Germany", "longitude": 13.4, "latitude": 52.5, "order": 2}
  ]
}`

const testTopology = `{
  "arcs": [[[1,0],[1,1]],[[1,1],[0,1],[0,0],[1,0]],[[1,0],[2,0],[2,1],[1,1]]],
  "countries": {"France": [[0,1]], "Germany": [[2,-1]]}
}`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"steps.json":    testSteps,
		"episodes.json": testEpisodes,
		"topology.json": testTopology,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data", "pop.csv"), []byte("year,value\n2020,2\n2021,5\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNewSession(t *testing.T) {
	dir := writeFixture(t)
	s, err := New(context.Background(), dir, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	// 2 fixed + 2 expanded entity steps + closing
	steps := s.Steps()
	if len(steps) != 5 {
		t.Fatalf("timeline length = %d, want 5", len(steps))
	}
	if !steps[len(steps)-1].Closing {
		t.Error("closing step must end the timeline")
	}
}

func TestNewSessionAggregatesInputFailures(t *testing.T) {
	dir := t.TempDir() // nothing in it
	_, err := New(context.Background(), dir, testConfig(), zaptest.NewLogger(t))
	if err == nil {
		t.Fatal("expected failure with no inputs present")
	}
	for _, name := range []string{"steps.json", "topology.json"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func TestNewSessionFailsOnMissingData(t *testing.T) {
	dir := writeFixture(t)
	if err := os.Remove(filepath.Join(dir, "data", "pop.csv")); err != nil {
		t.Fatal(err)
	}
	_, err := New(context.Background(), dir, testConfig(), zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "pop.csv") {
		t.Fatalf("missing data file must fail session creation: %v", err)
	}
}

func TestObserveDrivesScene(t *testing.T) {
	dir := writeFixture(t)
	s, err := New(context.Background(), dir, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	now := time.Unix(0, 0)
	if err := s.Viewport(1200, 800, now); err != nil {
		t.Fatal(err)
	}

	// scroll into the chart step: steps are 150vh each, activation line at
	// vh/2, so the second step spans positions [1200, 2400)
	now = now.Add(time.Second)
	if err := s.Observe(1000, now); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Frame(context.Background(), now.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.FindElements("//g[@data-chart='pop']/rect")); got != 2 {
		t.Errorf("bars = %d, want 2", got)
	}

	// scroll far past the end, back to ambient
	now = now.Add(time.Minute)
	if err := s.Observe(100000, now); err != nil {
		t.Fatal(err)
	}
	doc, err = s.Frame(context.Background(), now.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.FindElements("//g[@class='layer-vector']")); got != 0 {
		t.Error("vector layer should be gone after leaving the timeline")
	}
}

func panelFrame(t *testing.T, doc *etree.Document, id string) *etree.Element {
	t.Helper()
	el := doc.FindElement("//g[@data-chart='" + id + "']/rect")
	if el == nil {
		t.Fatalf("panel %s not rendered", id)
	}
	return el
}

func TestMobileViewportStacksPanels(t *testing.T) {
	dir := writeFixture(t)
	steps := `{
  "steps": [
    {"id": "intro", "text": {"content": "hello"}},
    {"id": "panels", "chart": {"visible": true, "layout": "dual", "charts": [
      {"id": "a", "type": "pie"},
      {"id": "b", "type": "pie"}
    ]}}
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, "steps.json"), []byte(steps), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := New(context.Background(), dir, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	// 480 is under the 640 breakpoint, panels must stack
	now := time.Unix(0, 0)
	if err := s.Viewport(480, 700, now); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	if err := s.Observe(1000, now); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Frame(context.Background(), now.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	a, b := panelFrame(t, doc, "a"), panelFrame(t, doc, "b")
	if a.SelectAttrValue("x", "") != b.SelectAttrValue("x", "") {
		t.Error("sub-breakpoint viewport must stack panels into one column")
	}
	if w := a.SelectAttrValue("width", ""); w != "1152.00" {
		t.Errorf("stacked panel width = %s, want the full drawable 1152.00", w)
	}

	// growing past the breakpoint restores the configured dual columns
	if err := s.Resize(1200, 800); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	if err := s.Observe(1000, now); err != nil {
		t.Fatal(err)
	}
	doc, err = s.Frame(context.Background(), now.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	a, b = panelFrame(t, doc, "a"), panelFrame(t, doc, "b")
	if a.SelectAttrValue("x", "") == b.SelectAttrValue("x", "") {
		t.Error("desktop viewport must keep dual columns")
	}
}

func TestWalkRendersEveryStep(t *testing.T) {
	dir := writeFixture(t)
	s, err := New(context.Background(), dir, testConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out")
	err = s.Walk(context.Background(), WalkOptions{
		OutDir:        out,
		Format:        config.OutputFmtSVG,
		FramesPerStep: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(s.Steps())*2 {
		t.Errorf("frames = %d, want %d", len(entries), len(s.Steps())*2)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".svg") {
			t.Errorf("unexpected frame file %s", e.Name())
		}
	}

	// a second walk into the same directory requires overwrite
	err = s.Walk(context.Background(), WalkOptions{OutDir: out, Format: config.OutputFmtSVG})
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("non-empty output dir must be refused: %v", err)
	}
	err = s.Walk(context.Background(), WalkOptions{OutDir: out, Format: config.OutputFmtSVG, Overwrite: true})
	if err != nil {
		t.Fatal(err)
	}
}
