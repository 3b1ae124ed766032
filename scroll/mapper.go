// Package scroll maps continuous scroll offsets to discrete step enter/exit
// events and continuous intra-step progress.
package scroll

import (
	"fmt"

	"go.uber.org/zap"

	"scrolly/css"
	"scrolly/story"
)

// Direction of the latest scroll movement.
type Direction int

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Handlers receive mapper events. Nil callbacks are allowed.
//
// Ordering guarantees: StepExit for step i is always delivered before
// StepEnter for its neighbor in the matching direction, and StepProgress for
// a step never fires after that step's StepExit.
type Handlers struct {
	StepEnter    func(step int, dir Direction)
	StepExit     func(step int, dir Direction)
	StepProgress func(step int, progress float64, dir Direction)
}

// Config tunes activation behavior.
type Config struct {
	// Offset places the activation line as a fraction of viewport height
	// below the viewport top. Defaults to 0.5.
	Offset float64
}

// Mapper is the scroll progress state machine. It is purely reactive to the
// latest sampled offset and carries no queued async work; all callbacks fire
// synchronously on the Observe call.
type Mapper struct {
	lengths  []css.Length
	starts   []float64 // cumulative step start offsets, len(steps)+1
	vw, vh   float64
	offset   float64
	handlers Handlers

	// active is -1 before the first step and len(steps) past the last one
	active     int
	lastSample float64
	dir        Direction
	sampled    bool
}

// New builds a mapper over the given timeline. Viewport dimensions are needed
// up front to resolve per-step scroll heights.
func New(steps []story.Step, cfg Config, h Handlers, viewportW, viewportH float64) (*Mapper, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("cannot map scroll over an empty timeline")
	}
	if cfg.Offset <= 0 || cfg.Offset >= 1 {
		cfg.Offset = 0.5
	}

	lengths := make([]css.Length, len(steps))
	for i := range steps {
		l, err := css.ParseLength(steps[i].ScrollHeight)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): bad scroll height: %w", i, steps[i].ID, err)
		}
		lengths[i] = l
	}

	m := &Mapper{
		lengths:  lengths,
		offset:   cfg.Offset,
		handlers: h,
		active:   -1,
	}
	m.recompute(viewportW, viewportH)
	return m, nil
}

// recompute resolves step heights against the viewport and rebuilds the
// cumulative start table.
func (m *Mapper) recompute(vw, vh float64) {
	m.vw, m.vh = vw, vh
	m.starts = make([]float64, len(m.lengths)+1)
	for i, l := range m.lengths {
		m.starts[i+1] = m.starts[i] + l.Resolve(vw, vh)
	}
}

// Resize recomputes activation thresholds for a new viewport. No synthetic
// enter/exit events are emitted; the next scroll sample re-evaluates state
// naturally.
func (m *Mapper) Resize(viewportW, viewportH float64) {
	m.recompute(viewportW, viewportH)
}

// TotalHeight returns the full scrollable extent of the timeline in pixels.
func (m *Mapper) TotalHeight() float64 {
	return m.starts[len(m.starts)-1]
}

// StepRange returns the [start, end) scroll extent of a step.
func (m *Mapper) StepRange(step int) (float64, float64) {
	return m.starts[step], m.starts[step+1]
}

// ActiveStep returns the index of the currently active step or -1/len(steps)
// when the activation line sits before or past the timeline.
func (m *Mapper) ActiveStep() int {
	return m.active
}

func (m *Mapper) Direction() Direction {
	return m.dir
}

// Observe processes one scroll sample. Crossing several steps in a single
// sample delivers the full well-nested enter/exit sequence for every step on
// the way.
func (m *Mapper) Observe(scrollTop float64) {
	if m.sampled {
		switch {
		case scrollTop > m.lastSample:
			m.dir = Down
		case scrollTop < m.lastSample:
			m.dir = Up
		}
	}
	m.sampled = true
	m.lastSample = scrollTop

	pos := scrollTop + m.vh*m.offset
	target := m.locate(pos, m.dir)

	for m.active != target {
		if m.isStep(m.active) && m.handlers.StepExit != nil {
			m.handlers.StepExit(m.active, m.dir)
		}
		if target > m.active {
			m.active++
		} else {
			m.active--
		}
		if m.isStep(m.active) && m.handlers.StepEnter != nil {
			m.handlers.StepEnter(m.active, m.dir)
		}
	}

	if m.isStep(m.active) && m.handlers.StepProgress != nil {
		m.handlers.StepProgress(m.active, m.progress(pos), m.dir)
	}
}

func (m *Mapper) isStep(i int) bool {
	return i >= 0 && i < len(m.lengths)
}

// locate finds the step whose activation window contains pos. The window is
// half-open toward the scroll direction, so a position sitting exactly on a
// boundary belongs to the step whose threshold is satisfied first in that
// direction and can never double-enter.
func (m *Mapper) locate(pos float64, dir Direction) int {
	n := len(m.lengths)
	if dir == Up {
		if pos <= m.starts[0] {
			return -1
		}
		if pos > m.starts[n] {
			return n
		}
		for i := 0; i < n; i++ {
			if m.starts[i] < pos && pos <= m.starts[i+1] {
				return i
			}
		}
		return n
	}
	if pos < m.starts[0] {
		return -1
	}
	if pos >= m.starts[n] {
		return n
	}
	for i := 0; i < n; i++ {
		if m.starts[i] <= pos && pos < m.starts[i+1] {
			return i
		}
	}
	return n
}

// progress is the intra-step fraction, clamped to [0,1] regardless of scroll
// overshoot. It is never reversed for upward scroll - consumers invert it
// themselves using direction when they need a reverse walk.
func (m *Mapper) progress(pos float64) float64 {
	start, end := m.starts[m.active], m.starts[m.active+1]
	if end <= start {
		return 1
	}
	p := (pos - start) / (end - start)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// DumpThresholds logs the resolved activation table, useful when tuning
// narrative scroll heights.
func (m *Mapper) DumpThresholds(log *zap.Logger) {
	for i := 0; i < len(m.lengths); i++ {
		log.Debug("step activation window",
			zap.Int("step", i), zap.Float64("from", m.starts[i]), zap.Float64("to", m.starts[i+1]))
	}
}
