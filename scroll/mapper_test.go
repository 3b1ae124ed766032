package scroll_test

import (
	"fmt"
	"testing"

	"scrolly/scroll"
	"scrolly/story"
)

type recorder struct {
	events    []string
	progress  []float64
	progSteps []int
}

func (r *recorder) handlers() scroll.Handlers {
	return scroll.Handlers{
		StepEnter: func(i int, d scroll.Direction) {
			r.events = append(r.events, fmt.Sprintf("enter %d %s", i, d))
		},
		StepExit: func(i int, d scroll.Direction) {
			r.events = append(r.events, fmt.Sprintf("exit %d %s", i, d))
		},
		StepProgress: func(i int, p float64, d scroll.Direction) {
			r.progress = append(r.progress, p)
			r.progSteps = append(r.progSteps, i)
		},
	}
}

// fourSteps builds a timeline where every step is exactly 1000px tall for a
// 1000px viewport.
func fourSteps(t *testing.T, rec *recorder) *scroll.Mapper {
	t.Helper()
	steps := make([]story.Step, 4)
	for i := range steps {
		steps[i] = story.Step{ID: fmt.Sprintf("s%d", i), Index: i, ScrollHeight: "100vh"}
	}
	m, err := scroll.New(steps, scroll.Config{Offset: 0.5}, rec.handlers(), 800, 1000)
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	return m
}

func TestObserveEnterExitPairing(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	// activation line sits at scrollTop+500
	for _, off := range []float64{0, 400, 900, 1400, 2400, 3400, 2900, 1900, 400} {
		m.Observe(off)
	}

	// pairing must be well nested: no enter j between enter i and exit i
	depth := map[int]bool{}
	for _, ev := range rec.events {
		var verb, dir string
		var idx int
		fmt.Sscanf(ev, "%s %d %s", &verb, &idx, &dir)
		switch verb {
		case "enter":
			if len(depth) != 0 {
				t.Fatalf("enter %d while %v still active: %v", idx, depth, rec.events)
			}
			depth[idx] = true
		case "exit":
			if !depth[idx] {
				t.Fatalf("exit %d without matching enter: %v", idx, rec.events)
			}
			delete(depth, idx)
		}
	}
}

func TestObserveFastScrollWalksEveryStep(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	m.Observe(0)    // enter 0
	m.Observe(3400) // jump to step 3 in one sample

	want := []string{
		"enter 0 down",
		"exit 0 down", "enter 1 down",
		"exit 1 down", "enter 2 down",
		"exit 2 down", "enter 3 down",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, rec.events[i], want[i])
		}
	}
}

func TestObserveProgressClamped(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	for _, off := range []float64{-5000, 0, 250, 499, 10000, 3400} {
		m.Observe(off)
	}
	for i, p := range rec.progress {
		if p < 0 || p > 1 {
			t.Errorf("progress[%d] = %v out of [0,1]", i, p)
		}
	}
}

func TestObserveProgressNeverAfterExit(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	m.Observe(0)
	m.Observe(600)  // still step 0/1 range, progressing
	m.Observe(1600) // step 1
	m.Observe(600)  // back to step 0

	for i, step := range rec.progSteps {
		if step < 0 || step > 3 {
			t.Errorf("progress %d delivered for out-of-range step %d", i, step)
		}
	}
	// last progress belongs to step 0 again
	if rec.progSteps[len(rec.progSteps)-1] != 0 {
		t.Errorf("final progress step = %d, want 0", rec.progSteps[len(rec.progSteps)-1])
	}
}

func TestObserveNoDoubleEnterOnBoundary(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	m.Observe(0)
	m.Observe(500) // activation line exactly at 1000, the 0/1 boundary
	m.Observe(500) // repeated sample, same position
	m.Observe(500)

	enters := 0
	for _, ev := range rec.events {
		if ev == "enter 1 down" {
			enters++
		}
	}
	if enters != 1 {
		t.Errorf("boundary crossed once but enter 1 fired %d times: %v", enters, rec.events)
	}
}

func TestBoundaryTieBreakByDirection(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	m.Observe(0)   // step 0
	m.Observe(500) // pos=1000 moving down -> step 1 wins
	if m.ActiveStep() != 1 {
		t.Errorf("downward boundary: active = %d, want 1", m.ActiveStep())
	}

	m.Observe(700)
	m.Observe(500) // pos=1000 moving up -> step 0 wins
	if m.ActiveStep() != 0 {
		t.Errorf("upward boundary: active = %d, want 0", m.ActiveStep())
	}
}

func TestResizeEmitsNoSyntheticEvents(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	m.Observe(1600) // activation line in step 2
	seen := len(rec.events)

	m.Resize(400, 500) // vh halves, every step is now 500px tall
	if len(rec.events) != seen {
		t.Errorf("resize emitted events: %v", rec.events[seen:])
	}

	// next sample re-evaluates against the new thresholds naturally
	m.Observe(1600) // pos=1850 with 500px steps -> step 3
	if m.ActiveStep() != 3 {
		t.Errorf("after resize active = %d, want 3", m.ActiveStep())
	}
}

func TestDirectionReported(t *testing.T) {
	rec := &recorder{}
	m := fourSteps(t, rec)

	m.Observe(100)
	m.Observe(1200)
	if m.Direction() != scroll.Down {
		t.Error("expected downward direction")
	}
	m.Observe(300)
	if m.Direction() != scroll.Up {
		t.Error("expected upward direction")
	}
	last := rec.events[len(rec.events)-1]
	if last != "enter 0 up" && last != "exit 1 up" {
		t.Errorf("upward events not tagged with direction: %v", rec.events)
	}
}

func TestNewRejectsEmptyTimeline(t *testing.T) {
	if _, err := scroll.New(nil, scroll.Config{}, scroll.Handlers{}, 800, 600); err == nil {
		t.Fatal("expected error for empty timeline")
	}
}
