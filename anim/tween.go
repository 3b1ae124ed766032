// Package anim provides frame-driven interpolation primitives. A tween is a
// pure function of elapsed time - there are no timers to manage and
// cancellation is just overwriting the target.
package anim

import "time"

// Easing maps normalized elapsed time to normalized progress.
type Easing func(t float64) float64

func Linear(t float64) float64 { return t }

// EaseOutCubic decelerates toward the target, the house style for camera and
// marker movement.
func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Tween interpolates a single scalar between two values over a fixed
// duration.
type Tween struct {
	from, to float64
	start    time.Time
	duration time.Duration
	easing   Easing
}

func NewTween(from, to float64, start time.Time, duration time.Duration, easing Easing) *Tween {
	if easing == nil {
		easing = EaseOutCubic
	}
	return &Tween{from: from, to: to, start: start, duration: duration, easing: easing}
}

// Value returns the interpolated value at the given frame time, clamped to
// the endpoints outside the tween window.
func (t *Tween) Value(now time.Time) float64 {
	if t.duration <= 0 {
		return t.to
	}
	elapsed := now.Sub(t.start)
	if elapsed <= 0 {
		return t.from
	}
	if elapsed >= t.duration {
		return t.to
	}
	f := t.easing(float64(elapsed) / float64(t.duration))
	return t.from + (t.to-t.from)*f
}

func (t *Tween) Target() float64 {
	return t.to
}

func (t *Tween) Done(now time.Time) bool {
	return t.duration <= 0 || now.Sub(t.start) >= t.duration
}

// Retarget supersedes the in-flight tween: the new tween starts from
// wherever the old one currently is, so rapid successive targets never snap.
func (t *Tween) Retarget(now time.Time, to float64) {
	t.from = t.Value(now)
	t.to = to
	t.start = now
}
