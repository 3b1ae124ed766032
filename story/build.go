package story

import (
	"fmt"
	"math"
	"sort"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	// DefaultScrollHeight is allocated to steps that do not ask for a
	// specific scroll distance.
	DefaultScrollHeight = "150vh"

	// defaultTourZoom is used when an episodes anchor carries no map
	// directive to inherit the zoom level from.
	defaultTourZoom = 4.0

	closingStepID = "closing"
)

// Build expands the raw step list into the flat immutable timeline of a
// narrative session. Dynamic anchors are replaced in place by the generated
// entity subsequence, a single closing step is re-appended idempotently and
// contiguous indices are assigned by final position.
//
// Build never fails: malformed entities degrade to text-only steps, an empty
// or missing aux dataset simply drops the anchor.
func Build(raw []RawStep, aux *AuxDataset, log *zap.Logger) []Step {
	if log == nil {
		log = zap.NewNop()
	}

	steps := make([]Step, 0, len(raw))
	var closing *Step

	for i := range raw {
		rs := &raw[i]
		switch {
		case rs.CityEpisodes != nil && rs.CityEpisodes.Enabled:
			steps = append(steps, expandAnchor(rs, aux, log)...)
		case rs.Closing:
			// remember the last closing definition, it is re-appended below
			s := fromRaw(rs)
			closing = &s
		default:
			steps = append(steps, fromRaw(rs))
		}
	}

	if closing == nil {
		closing = &Step{ID: closingStepID, Closing: true, ScrollHeight: DefaultScrollHeight}
	}
	closing.Closing = true
	steps = append(steps, *closing)

	for i := range steps {
		steps[i].Index = i
		if steps[i].ID == "" {
			steps[i].ID = fmt.Sprintf("step%d", i)
		}
		if steps[i].ScrollHeight == "" {
			steps[i].ScrollHeight = DefaultScrollHeight
		}
	}

	log.Debug("Timeline built", zap.Int("raw", len(raw)), zap.Int("steps", len(steps)))
	return steps
}

func fromRaw(rs *RawStep) Step {
	return Step{
		ID:           rs.ID,
		Text:         rs.Text,
		Chart:        rs.Chart,
		Map:          rs.Map,
		Image:        rs.Image,
		ScrollHeight: rs.ScrollHeight,
		Closing:      rs.Closing,
	}
}

// expandAnchor generates the entity-touring subsequence for a dynamic anchor
// step. Entities are walked in explicit order (stable for ties) and every
// generated step carries the visited-country set accumulated so far, which
// produces the breadcrumb highlighting across the tour.
func expandAnchor(anchor *RawStep, aux *AuxDataset, log *zap.Logger) []Step {
	if aux == nil || len(aux.Entities) == 0 {
		// no subsequence at all, the anchor vanishes
		log.Debug("Dropping episodes anchor, no entities", zap.String("id", anchor.ID))
		return nil
	}

	entities := make([]Entity, len(aux.Entities))
	copy(entities, aux.Entities)
	sort.SliceStable(entities, func(i, j int) bool { return entities[i].Order < entities[j].Order })

	zoom := defaultTourZoom
	var tmpl MapDirective
	if anchor.Map != nil {
		tmpl = *anchor.Map
		if anchor.Map.Zoom > 0 {
			zoom = anchor.Map.Zoom
		}
	}

	var (
		visitedCountries []string
		seenCountry      = make(map[string]bool)
		visitedMarkers   []Marker
		steps            = make([]Step, 0, len(entities))
	)

	for i := range entities {
		e := &entities[i]

		s := Step{
			ID:           entityStepID(e),
			Text:         entityText(e),
			ScrollHeight: e.Transitions.ScrollHeight,
		}
		if s.ScrollHeight == "" {
			s.ScrollHeight = anchor.ScrollHeight
		}

		if !finiteCoords(e.Longitude, e.Latitude) {
			// degraded text-only step, entity never reaches the map
			log.Debug("Entity has invalid coordinates, emitting text-only step",
				zap.String("entity", e.ID), zap.Float64("lon", e.Longitude), zap.Float64("lat", e.Latitude))
			steps = append(steps, s)
			continue
		}

		if e.Country != "" && !seenCountry[e.Country] {
			seenCountry[e.Country] = true
			visitedCountries = append(visitedCountries, e.Country)
		}
		visitedMarkers = append(visitedMarkers, Marker{
			ID:        s.ID,
			Name:      e.Name,
			Country:   e.Country,
			Longitude: e.Longitude,
			Latitude:  e.Latitude,
			Color:     e.Style.Color,
			Size:      e.Style.Size,
		})

		md := tmpl
		md.Visible = true
		md.Center = [2]float64{e.Longitude, e.Latitude}
		md.Zoom = zoom
		md.HighlightCountries = append([]string(nil), visitedCountries...)
		md.Markers = currentMarkers(visitedMarkers)
		s.Map = &md

		steps = append(steps, s)
	}
	return steps
}

// currentMarkers copies accumulated markers flagging the most recent one as
// current.
func currentMarkers(visited []Marker) []Marker {
	out := make([]Marker, len(visited))
	copy(out, visited)
	for i := range out {
		out[i].IsCurrent = i == len(out)-1
	}
	return out
}

func entityStepID(e *Entity) string {
	if e.ID != "" {
		return e.ID
	}
	if e.NameEn != "" {
		return slug.Make(e.NameEn)
	}
	return slug.Make(e.Name)
}

func entityText(e *Entity) *TextBlock {
	if e.Data.Title == "" && e.Data.Description == "" {
		return nil
	}
	content := e.Data.Title
	if e.Data.Description != "" {
		if content != "" {
			content += "\n"
		}
		content += e.Data.Description
	}
	return &TextBlock{Content: content}
}

func finiteCoords(lon, lat float64) bool {
	return !math.IsNaN(lon) && !math.IsInf(lon, 0) && !math.IsNaN(lat) && !math.IsInf(lat, 0)
}
