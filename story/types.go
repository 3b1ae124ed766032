// Package story defines the narrative data model and builds the immutable
// step timeline a narrative session runs on.
package story

import "encoding/json"

// TextBlock is narrative copy attached to a step. Content is opaque to the
// engine, only Position is read for layout hints.
type TextBlock struct {
	Content  string `json:"content"`
	Position string `json:"position,omitempty"`
}

// ChartSpec names one chart panel. Config is passed through to the chart-type
// renderer untouched.
type ChartSpec struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	DataFile   string          `json:"dataFile"`
	DataFormat string          `json:"dataFormat,omitempty"` // "json", "csv" or "auto"
	Config     json.RawMessage `json:"config,omitempty"`
}

// GridSpec drives the variable-width grid layout mode. AllowEmptyCells
// defaults to true when absent, which is why it is a pointer.
type GridSpec struct {
	RowPattern      []int `json:"rowPattern,omitempty"`
	Columns         int   `json:"columns,omitempty"`
	Rows            int   `json:"rows,omitempty"`
	AllowEmptyCells *bool `json:"allowEmptyCells,omitempty"`
}

// EmptyCellsAllowed reports whether an odd tail cell may stay blank instead
// of stretching the last panel across the row.
func (g *GridSpec) EmptyCellsAllowed() bool {
	return g == nil || g.AllowEmptyCells == nil || *g.AllowEmptyCells
}

// ResponsiveSpec tunes mobile behavior. MobileStack defaults to true when
// absent, which is why it is a pointer.
type ResponsiveSpec struct {
	MobileStack *bool `json:"mobileStack,omitempty"`
}

// StackOnMobile reports whether dual/grid layouts collapse to a single
// column on small viewports.
func (r *ResponsiveSpec) StackOnMobile() bool {
	return r == nil || r.MobileStack == nil || *r.MobileStack
}

type ChartDirective struct {
	Visible    bool            `json:"visible"`
	Layout     string          `json:"layout,omitempty"` // "single", "dual" or "grid"
	Charts     []ChartSpec     `json:"charts,omitempty"`
	Grid       *GridSpec       `json:"grid,omitempty"`
	Responsive *ResponsiveSpec `json:"responsive,omitempty"`
}

// Marker is a point of interest on the map. ID is the identity key for
// enter/update/exit matching across renders.
type Marker struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	IsCurrent bool    `json:"isCurrent,omitempty"`
	Color     string  `json:"color,omitempty"`
	Size      float64 `json:"size,omitempty"`
}

type MapDirective struct {
	Visible             bool       `json:"visible"`
	Mode                string     `json:"mode,omitempty"`
	Center              [2]float64 `json:"center"` // lon, lat
	Zoom                float64    `json:"zoom"`
	HighlightCountries  []string   `json:"highlightCountries,omitempty"`
	LightenNonVisited   bool       `json:"lightenNonVisited,omitempty"`
	LightenAllCountries bool       `json:"lightenAllCountries,omitempty"`
	Markers             []Marker   `json:"markers,omitempty"`
}

type ImageDirective struct {
	Visible bool   `json:"visible"`
	Source  string `json:"src"`
	Alt     string `json:"alt,omitempty"`
}

// EpisodesAnchor marks a raw step to be replaced by a generated subsequence
// derived from the auxiliary entity dataset.
type EpisodesAnchor struct {
	Enabled bool `json:"enabled"`
}

// RawStep is a step as it appears in the narrative configuration, before
// dynamic expansion.
type RawStep struct {
	ID           string          `json:"id,omitempty"`
	Text         *TextBlock      `json:"text,omitempty"`
	Chart        *ChartDirective `json:"chart,omitempty"`
	Map          *MapDirective   `json:"map,omitempty"`
	Image        *ImageDirective `json:"image,omitempty"`
	ScrollHeight string          `json:"scrollHeight,omitempty"`
	CityEpisodes *EpisodesAnchor `json:"cityEpisodes,omitempty"`
	Closing      bool            `json:"closing,omitempty"`
}

// Step is one unit of the built timeline. Index is assigned by final array
// position and is never persisted across rebuilds.
type Step struct {
	ID           string
	Index        int
	Text         *TextBlock
	Chart        *ChartDirective
	Map          *MapDirective
	Image        *ImageDirective
	ScrollHeight string
	Closing      bool
}

// Narrative is the top level step configuration document.
type Narrative struct {
	Steps    []RawStep       `json:"steps"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type (
	EntityStyle struct {
		Color string  `json:"color,omitempty"`
		Size  float64 `json:"size,omitempty"`
	}

	EntityData struct {
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
		Thumbnail   string `json:"thumbnail,omitempty"`
		URL         string `json:"url,omitempty"`
	}

	EntityTransitions struct {
		RouteType    string `json:"routeType,omitempty"`
		ScrollHeight string `json:"scrollHeight,omitempty"`
	}

	// Entity is one station of the entity-touring subsequence (a city
	// episode in the original narrative).
	Entity struct {
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		NameEn      string            `json:"nameEn,omitempty"`
		Country     string            `json:"country"`
		Longitude   float64           `json:"longitude"`
		Latitude    float64           `json:"latitude"`
		Order       int               `json:"order"`
		Style       EntityStyle       `json:"style,omitempty"`
		Data        EntityData        `json:"data,omitempty"`
		Transitions EntityTransitions `json:"transitions,omitempty"`
	}

	AuxTimeline struct {
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
	}

	// AuxDataset is the optional auxiliary entity dataset feeding dynamic
	// anchor expansion.
	AuxDataset struct {
		Timeline AuxTimeline `json:"timeline"`
		Entities []Entity    `json:"entities"`
	}
)
