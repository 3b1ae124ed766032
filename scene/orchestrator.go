// Package scene owns the layer state machine of a narrative session: which
// visual layer a step activates, how layers hand off to each other and how
// in-step progress feeds the ambient backdrop.
package scene

import (
	"time"

	"go.uber.org/zap"

	"scrolly/anim"
	"scrolly/story"
)

// Layer identifies one of the stacked visual surfaces. Exactly one layer is
// the target at any time, the others fade out underneath it.
type Layer int

const (
	LayerAmbient Layer = iota
	LayerVector
	LayerImage

	layerCount
)

func (l Layer) String() string {
	switch l {
	case LayerVector:
		return "vector"
	case LayerImage:
		return "image"
	default:
		return "ambient"
	}
}

// layerFor picks the surface a step's directives address. Chart and map are
// mutually exclusive upstream, both draw on the vector surface.
func layerFor(s *story.Step) Layer {
	switch {
	case s == nil:
		return LayerAmbient
	case s.Chart != nil && s.Chart.Visible, s.Map != nil && s.Map.Visible:
		return LayerVector
	case s.Image != nil && s.Image.Visible:
		return LayerImage
	default:
		return LayerAmbient
	}
}

// Snapshot is the orchestrator state one frame renders from.
type Snapshot struct {
	Step     *story.Step
	Target   Layer
	Opacity  [layerCount]float64
	Progress float64 // in-step progress of the active step, 0..1
	Ambient  float64 // backdrop intensity derived from progress
}

// LayerOpacity returns the cross-fade opacity of one layer.
func (s Snapshot) LayerOpacity(l Layer) float64 {
	if l < 0 || l >= layerCount {
		return 0
	}
	return s.Opacity[l]
}

// Orchestrator tracks the active step and cross-fades layers on step
// transitions. It is frame-driven like the rest of the animation stack: all
// methods take the frame time and state is pure interpolation.
type Orchestrator struct {
	log      *zap.Logger
	duration time.Duration

	current  *story.Step
	target   Layer
	opacity  [layerCount]*anim.Tween
	progress float64
}

// New creates an orchestrator showing the ambient layer.
func New(fadeDuration time.Duration, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		log:      log.Named("scene"),
		duration: fadeDuration,
		target:   LayerAmbient,
	}
	for l := range o.opacity {
		o.opacity[l] = anim.NewTween(0, 0, time.Time{}, 0, nil)
	}
	o.opacity[LayerAmbient] = anim.NewTween(1, 1, time.Time{}, 0, nil)
	return o
}

// Transition activates the layer the step calls for. Re-entering the current
// step is a no-op, so repeated enter events at a boundary cannot restart a
// fade. The outgoing layer starts fading the moment the incoming one does,
// there is no gap with no layer visible.
func (o *Orchestrator) Transition(s *story.Step, now time.Time) {
	if sameStep(o.current, s) {
		return
	}
	o.current = s
	o.progress = 0

	next := layerFor(s)
	if next != o.target {
		o.log.Debug("Layer handoff",
			zap.Stringer("from", o.target),
			zap.Stringer("to", next),
			zap.String("step", stepID(s)))
		o.target = next
		for l := range o.opacity {
			want := 0.0
			if Layer(l) == next {
				want = 1
			}
			if o.opacity[l].Target() != want {
				// rebuild from the live value so interrupted fades continue
				// smoothly and always run at the configured speed
				o.opacity[l] = anim.NewTween(o.opacity[l].Value(now), want, now, o.duration, nil)
			}
		}
	}
}

// Deactivate clears the active step, returning to the ambient backdrop. Used
// when scrolling leaves the timeline on either end.
func (o *Orchestrator) Deactivate(now time.Time) {
	o.Transition(nil, now)
}

// UpdateProgress records in-step progress. Progress drives only the ambient
// intensity, it never triggers layer changes.
func (o *Orchestrator) UpdateProgress(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	o.progress = p
}

// Current returns the active step, nil when outside the timeline.
func (o *Orchestrator) Current() *story.Step { return o.current }

// Snapshot captures the render state at one instant.
func (o *Orchestrator) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Step:     o.current,
		Target:   o.target,
		Progress: o.progress,
		Ambient:  ambientIntensity(o.progress),
	}
	for l := range o.opacity {
		s.Opacity[l] = o.opacity[l].Value(now)
	}
	return s
}

// ambientIntensity maps progress to backdrop intensity, brightest mid-step.
func ambientIntensity(p float64) float64 {
	return 0.5 + 0.5*(1-abs(2*p-1))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sameStep(a, b *story.Step) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Index == b.Index
}

func stepID(s *story.Step) string {
	if s == nil {
		return "<none>"
	}
	return s.ID
}
