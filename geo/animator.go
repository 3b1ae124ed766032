package geo

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"scrolly/anim"
	"scrolly/story"
)

// Country fill opacities. With no highlights every country gets one of the
// two uniform low-opacity fills; with highlights the highlighted countries
// are prominent and the rest are muted, optionally dimmed further.
const (
	opacityUniform      = 0.35
	opacityUniformLight = 0.12
	opacityHighlight    = 0.85
	opacityMuted        = 0.40
	opacityMutedDim     = 0.15
)

const defaultMarkerRadius = 6.0

// Theme carries the engine colors the map needs.
type Theme struct {
	Highlight anim.Color
	Muted     anim.Color
}

// Config fixes the animator's canvas and tween behavior for the session.
type Config struct {
	Width, Height float64
	Duration      time.Duration
	Theme         Theme
}

// CountryFill is the per-frame fill decision for one country.
type CountryFill struct {
	Country string
	Rings   []Ring
	Color   anim.Color
	Opacity float64
}

// MarkerFrame is one marker as it should be drawn this frame.
type MarkerFrame struct {
	ID           string
	Name         string
	Pos          Point
	Radius       float64
	Color        anim.Color
	Label        string  // empty when the marker carries no label
	LabelOpacity float64 // label fade state
}

// Frame is everything the map layer renders at one instant. It is derived
// entirely from the live interpolated state.
type Frame struct {
	Projection Projection
	Countries  []CountryFill
	Markers    []MarkerFrame
}

// Diff reports the reconciliation outcome of one ApplyConfig call.
type Diff struct {
	Entered, Updated, Exited []string
}

type markerAnim struct {
	id, name string
	label    string

	lon, lat *anim.Tween
	radius   *anim.Tween
	colorPos *anim.Tween // 0..1 between colorFrom and colorTo
	labelOp  *anim.Tween

	colorFrom, colorTo anim.Color

	seq     int // insertion order, keeps render order stable
	exiting bool
}

// Animator owns the single long-lived projection of a narrative session and
// the keyed marker set. The projection is interpolated, never recreated, so
// successive directives blend into each other without snapping.
type Animator struct {
	cfg       Config
	countries map[string][]Ring
	log       *zap.Logger

	centerLon, centerLat, scale *anim.Tween

	markers map[string]*markerAnim
	seq     int

	directive *story.MapDirective
}

// NewAnimator creates the animator at a neutral world view. countries may be
// nil when the narrative has no topology, markers still animate.
func NewAnimator(cfg Config, countries map[string][]Ring, log *zap.Logger) *Animator {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Time{}
	return &Animator{
		cfg:       cfg,
		countries: countries,
		log:       log.Named("map"),
		centerLon: anim.NewTween(0, 0, now, 0, nil),
		centerLat: anim.NewTween(0, 0, now, 0, nil),
		scale:     anim.NewTween(ScaleForZoom(1, cfg.Width), ScaleForZoom(1, cfg.Width), now, 0, nil),
		markers:   make(map[string]*markerAnim),
	}
}

// ApplyConfig retargets the camera and reconciles the marker set against the
// directive. The returned diff lists marker identities by their fate.
// A directive with a marker whose coordinates are not finite skips just that
// marker; the rest of the batch is unaffected.
func (a *Animator) ApplyConfig(md *story.MapDirective, now time.Time) Diff {
	a.directive = md

	if md != nil && finite(md.Center[0], md.Center[1]) {
		retargetOver(a.centerLon, now, md.Center[0], a.cfg.Duration)
		retargetOver(a.centerLat, now, md.Center[1], a.cfg.Duration)
		retargetOver(a.scale, now, ScaleForZoom(md.Zoom, a.cfg.Width), a.cfg.Duration)
	}

	want := make(map[string]story.Marker)
	if md != nil {
		for _, m := range md.Markers {
			if !finite(m.Longitude, m.Latitude) {
				a.log.Debug("Skipping marker with invalid coordinates", zap.String("id", m.ID))
				continue
			}
			want[m.ID] = m
		}
	}

	var diff Diff
	for id, m := range want {
		if ma, ok := a.markers[id]; ok {
			if ma.exiting {
				// reverse the in-flight exit from its live state
				ma.exiting = false
				a.updateMarker(ma, m, now)
				diff.Entered = append(diff.Entered, id)
				continue
			}
			a.updateMarker(ma, m, now)
			diff.Updated = append(diff.Updated, id)
			continue
		}
		a.enterMarker(m, now)
		diff.Entered = append(diff.Entered, id)
	}
	for id, ma := range a.markers {
		if _, ok := want[id]; ok || ma.exiting {
			continue
		}
		a.exitMarker(ma, now)
		diff.Exited = append(diff.Exited, id)
	}

	sort.Strings(diff.Entered)
	sort.Strings(diff.Updated)
	sort.Strings(diff.Exited)
	return diff
}

func (a *Animator) markerColor(m story.Marker) anim.Color {
	if m.Color != "" {
		if c, err := anim.ParseHexColor(m.Color); err == nil {
			return c
		}
		a.log.Debug("Marker has unparsable color, using theme", zap.String("id", m.ID), zap.String("color", m.Color))
	}
	return a.cfg.Theme.Highlight
}

func markerRadius(m story.Marker) float64 {
	if m.Size > 0 {
		return m.Size
	}
	return defaultMarkerRadius
}

func (a *Animator) enterMarker(m story.Marker, now time.Time) {
	c := a.markerColor(m)
	ma := &markerAnim{
		id:        m.ID,
		name:      m.Name,
		lon:       anim.NewTween(m.Longitude, m.Longitude, now, 0, nil),
		lat:       anim.NewTween(m.Latitude, m.Latitude, now, 0, nil),
		radius:    anim.NewTween(0, markerRadius(m), now, a.cfg.Duration, nil),
		colorPos:  anim.NewTween(1, 1, now, 0, nil),
		labelOp:   anim.NewTween(0, 0, now, 0, nil),
		colorFrom: c,
		colorTo:   c,
		seq:       a.seq,
	}
	a.seq++
	if m.IsCurrent {
		ma.label = m.Name
		ma.labelOp = anim.NewTween(0, 1, now, a.cfg.Duration, nil)
	}
	a.markers[m.ID] = ma
}

// updateMarker tweens position and color over the camera duration so the
// marker stays attached to its geographic point during the move.
func (a *Animator) updateMarker(ma *markerAnim, m story.Marker, now time.Time) {
	retargetOver(ma.lon, now, m.Longitude, a.cfg.Duration)
	retargetOver(ma.lat, now, m.Latitude, a.cfg.Duration)
	retargetOver(ma.radius, now, markerRadius(m), a.cfg.Duration)

	c := a.markerColor(m)
	if c != ma.colorTo {
		ma.colorFrom = ma.currentColor(now)
		ma.colorTo = c
		ma.colorPos = anim.NewTween(0, 1, now, a.cfg.Duration, nil)
	}

	label := ""
	if m.IsCurrent {
		label = m.Name
	}
	if label != ma.label || (label != "" && ma.labelOp.Target() != 1) {
		target := 0.0
		if label != "" {
			target = 1
			ma.label = label
		}
		retargetOver(ma.labelOp, now, target, a.cfg.Duration)
	}
}

func (a *Animator) exitMarker(ma *markerAnim, now time.Time) {
	ma.exiting = true
	retargetOver(ma.radius, now, 0, a.cfg.Duration)
	retargetOver(ma.labelOp, now, 0, a.cfg.Duration)
}

func retargetOver(t *anim.Tween, now time.Time, to float64, d time.Duration) {
	*t = *anim.NewTween(t.Value(now), to, now, d, nil)
}

func (ma *markerAnim) currentColor(now time.Time) anim.Color {
	return anim.LerpColor(ma.colorFrom, ma.colorTo, ma.colorPos.Value(now))
}

// Projection returns the live interpolated projection at the given frame
// time.
func (a *Animator) Projection(now time.Time) Projection {
	return Projection{
		CenterLon: a.centerLon.Value(now),
		CenterLat: a.centerLat.Value(now),
		Scale:     a.scale.Value(now),
		Width:     a.cfg.Width,
		Height:    a.cfg.Height,
	}
}

// Frame derives the full render state for one instant. Markers that have
// finished their exit animation are dropped here.
func (a *Animator) Frame(now time.Time) Frame {
	f := Frame{Projection: a.Projection(now)}
	f.Countries = a.countryFills()

	list := make([]*markerAnim, 0, len(a.markers))
	for id, ma := range a.markers {
		if ma.exiting && ma.radius.Done(now) {
			delete(a.markers, id)
			continue
		}
		list = append(list, ma)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	for _, ma := range list {
		mf := MarkerFrame{
			ID:     ma.id,
			Name:   ma.name,
			Pos:    f.Projection.Project(ma.lon.Value(now), ma.lat.Value(now)),
			Radius: ma.radius.Value(now),
			Color:  ma.currentColor(now),
		}
		if op := ma.labelOp.Value(now); op > 0 && ma.label != "" {
			mf.Label = ma.label
			mf.LabelOpacity = op
		}
		f.Markers = append(f.Markers, mf)
	}
	return f
}

// countryFills applies the fill/opacity rule of the active directive to the
// resolved topology.
func (a *Animator) countryFills() []CountryFill {
	if len(a.countries) == 0 {
		return nil
	}

	highlighted := make(map[string]bool)
	var lightenNonVisited, lightenAll bool
	if a.directive != nil {
		for _, c := range a.directive.HighlightCountries {
			highlighted[c] = true
		}
		lightenNonVisited = a.directive.LightenNonVisited
		lightenAll = a.directive.LightenAllCountries
	}

	names := make([]string, 0, len(a.countries))
	for name := range a.countries {
		names = append(names, name)
	}
	sort.Strings(names)

	fills := make([]CountryFill, 0, len(names))
	for _, name := range names {
		fill := CountryFill{Country: name, Rings: a.countries[name]}
		switch {
		case len(highlighted) == 0 && lightenAll:
			fill.Color, fill.Opacity = a.cfg.Theme.Muted, opacityUniformLight
		case len(highlighted) == 0:
			fill.Color, fill.Opacity = a.cfg.Theme.Muted, opacityUniform
		case highlighted[name]:
			fill.Color, fill.Opacity = a.cfg.Theme.Highlight, opacityHighlight
		case lightenNonVisited:
			fill.Color, fill.Opacity = a.cfg.Theme.Muted, opacityMutedDim
		default:
			fill.Color, fill.Opacity = a.cfg.Theme.Muted, opacityMuted
		}
		fills = append(fills, fill)
	}
	return fills
}
