package anim_test

import (
	"math"
	"testing"
	"time"

	"scrolly/anim"
)

func TestTweenEndpoints(t *testing.T) {
	start := time.Unix(0, 0)
	tw := anim.NewTween(10, 20, start, time.Second, anim.Linear)

	if v := tw.Value(start.Add(-time.Second)); v != 10 {
		t.Errorf("before start: %v, want 10", v)
	}
	if v := tw.Value(start); v != 10 {
		t.Errorf("at start: %v, want 10", v)
	}
	if v := tw.Value(start.Add(500 * time.Millisecond)); v != 15 {
		t.Errorf("midway linear: %v, want 15", v)
	}
	if v := tw.Value(start.Add(2 * time.Second)); v != 20 {
		t.Errorf("after end: %v, want 20", v)
	}
	if !tw.Done(start.Add(time.Second)) {
		t.Error("tween must be done at its full duration")
	}
}

func TestEaseOutCubicShape(t *testing.T) {
	if v := anim.EaseOutCubic(0); v != 0 {
		t.Errorf("EaseOutCubic(0) = %v", v)
	}
	if v := anim.EaseOutCubic(1); v != 1 {
		t.Errorf("EaseOutCubic(1) = %v", v)
	}
	// ease-out is always ahead of linear in the middle
	if v := anim.EaseOutCubic(0.5); v <= 0.5 {
		t.Errorf("EaseOutCubic(0.5) = %v, expected > 0.5", v)
	}
	// monotonic
	prev := -1.0
	for i := 0; i <= 100; i++ {
		v := anim.EaseOutCubic(float64(i) / 100)
		if v < prev {
			t.Fatalf("easing not monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
}

func TestRetargetContinuity(t *testing.T) {
	start := time.Unix(0, 0)
	tw := anim.NewTween(0, 100, start, time.Second, anim.Linear)

	mid := start.Add(400 * time.Millisecond)
	before := tw.Value(mid)

	// superseding target restarts from the live value, no snapping
	tw.Retarget(mid, -50)
	if after := tw.Value(mid); math.Abs(after-before) > 1e-9 {
		t.Errorf("retarget snapped: %v -> %v", before, after)
	}
	if tw.Target() != -50 {
		t.Errorf("target = %v, want -50", tw.Target())
	}
	if v := tw.Value(mid.Add(2 * time.Second)); v != -50 {
		t.Errorf("retargeted end value = %v, want -50", v)
	}
}

func TestZeroDuration(t *testing.T) {
	start := time.Unix(0, 0)
	tw := anim.NewTween(1, 2, start, 0, nil)
	if v := tw.Value(start); v != 2 {
		t.Errorf("zero duration must pin to target, got %v", v)
	}
}

func TestColorRoundTrip(t *testing.T) {
	for _, s := range []string{"#c0392b", "#ffffff", "#000000"} {
		c, err := anim.ParseHexColor(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if c.Hex() != s {
			t.Errorf("round trip %q -> %q", s, c.Hex())
		}
	}
	if c, err := anim.ParseHexColor("#fff"); err != nil || c.Hex() != "#ffffff" {
		t.Errorf("short notation: %v %v", c, err)
	}
	if _, err := anim.ParseHexColor("red"); err == nil {
		t.Error("named colors are not hex colors")
	}
}

func TestLerpColor(t *testing.T) {
	a := anim.Color{R: 0, G: 0, B: 0, A: 1}
	b := anim.Color{R: 1, G: 0.5, B: 0, A: 0}
	m := anim.LerpColor(a, b, 0.5)
	if m.R != 0.5 || m.G != 0.25 || m.B != 0 || m.A != 0.5 {
		t.Errorf("midpoint = %+v", m)
	}
}
