// Package render turns scene state into frames: SVG assembly for the vector
// and image layers and rasterization for PNG output.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"scrolly/anim"
	"scrolly/dataset"
	"scrolly/layout"
	"scrolly/story"
)

// ChartRenderer draws one chart type into its panel group.
type ChartRenderer interface {
	Type() string
	Render(g *etree.Element, spec story.ChartSpec, table *dataset.Table, rect layout.Rect, theme Theme) error
}

// Registry maps chart types to renderers. Unknown types and renderer
// failures degrade to a visible placeholder, a broken panel never takes the
// scene down.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]ChartRenderer
	log       *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		renderers: make(map[string]ChartRenderer),
		log:       log.Named("render"),
	}
	r.Register(barRenderer{})
	r.Register(lineRenderer{})
	return r
}

func (r *Registry) Register(cr ChartRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[cr.Type()] = cr
}

// Types lists the registered chart types in stable order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.renderers))
	for t := range r.renderers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Render draws one panel. The returned group is always usable, errors are
// logged and drawn as a placeholder instead of propagated.
func (r *Registry) Render(parent *etree.Element, spec story.ChartSpec, table *dataset.Table, rect layout.Rect, theme Theme) *etree.Element {
	g := parent.CreateElement("g")
	g.CreateAttr("class", "panel")
	if spec.ID != "" {
		g.CreateAttr("data-chart", spec.ID)
	}

	r.mu.RLock()
	cr, ok := r.renderers[spec.Type]
	r.mu.RUnlock()

	if !ok {
		r.log.Warn("No renderer for chart type", zap.String("type", spec.Type), zap.String("chart", spec.ID))
		placeholder(g, rect, theme, fmt.Sprintf("unsupported chart type %q", spec.Type))
		return g
	}
	if err := cr.Render(g, spec, table, rect, theme); err != nil {
		r.log.Warn("Chart renderer failed", zap.String("chart", spec.ID), zap.Error(err))
		for _, child := range g.ChildElements() {
			g.RemoveChild(child)
		}
		placeholder(g, rect, theme, "chart unavailable")
	}
	return g
}

// placeholder draws a dashed frame with a short message centered in it.
func placeholder(g *etree.Element, rect layout.Rect, theme Theme, msg string) {
	frame := g.CreateElement("rect")
	frame.CreateAttr("x", ftoa(rect.X))
	frame.CreateAttr("y", ftoa(rect.Y))
	frame.CreateAttr("width", ftoa(rect.Width))
	frame.CreateAttr("height", ftoa(rect.Height))
	frame.CreateAttr("fill", "none")
	frame.CreateAttr("stroke", theme.Muted.Hex())
	frame.CreateAttr("stroke-dasharray", "6 4")

	text := g.CreateElement("text")
	text.CreateAttr("x", ftoa(rect.X+rect.Width/2))
	text.CreateAttr("y", ftoa(rect.Y+rect.Height/2))
	text.CreateAttr("text-anchor", "middle")
	text.CreateAttr("fill", theme.Muted.Hex())
	text.CreateAttr("font-size", "14")
	text.SetText(msg)
}

// series extracts the numeric second column of a table, first column values
// become labels. This is the shape both builtin chart types consume.
func series(table *dataset.Table) (labels []string, values []float64, err error) {
	if table == nil || len(table.Columns) < 2 {
		return nil, nil, fmt.Errorf("chart data needs at least two columns")
	}
	for _, row := range table.Rows {
		if len(row) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("non-numeric value %q in column %s", row[1], table.Columns[1])
		}
		labels = append(labels, row[0])
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("chart data has no rows")
	}
	return labels, values, nil
}

func maxValue(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		max = 1
	}
	return max
}

type barRenderer struct{}

func (barRenderer) Type() string { return "bar" }

func (barRenderer) Render(g *etree.Element, _ story.ChartSpec, table *dataset.Table, rect layout.Rect, theme Theme) error {
	_, values, err := series(table)
	if err != nil {
		return err
	}

	max := maxValue(values)
	n := float64(len(values))
	slot := rect.Width / n
	barW := slot * 0.7

	for i, v := range values {
		h := rect.Height * v / max
		if h < 0 {
			h = 0
		}
		bar := g.CreateElement("rect")
		bar.CreateAttr("x", ftoa(rect.X+float64(i)*slot+(slot-barW)/2))
		bar.CreateAttr("y", ftoa(rect.Y+rect.Height-h))
		bar.CreateAttr("width", ftoa(barW))
		bar.CreateAttr("height", ftoa(h))
		bar.CreateAttr("fill", theme.Highlight.Hex())
	}
	return nil
}

type lineRenderer struct{}

func (lineRenderer) Type() string { return "line" }

func (lineRenderer) Render(g *etree.Element, _ story.ChartSpec, table *dataset.Table, rect layout.Rect, theme Theme) error {
	_, values, err := series(table)
	if err != nil {
		return err
	}

	max := maxValue(values)
	n := len(values)
	step := rect.Width
	if n > 1 {
		step = rect.Width / float64(n-1)
	}

	points := ""
	for i, v := range values {
		x := rect.X + float64(i)*step
		y := rect.Y + rect.Height - rect.Height*v/max
		if i > 0 {
			points += " "
		}
		points += ftoa(x) + "," + ftoa(y)
	}

	line := g.CreateElement("polyline")
	line.CreateAttr("points", points)
	line.CreateAttr("fill", "none")
	line.CreateAttr("stroke", theme.Highlight.Hex())
	line.CreateAttr("stroke-width", "2")
	return nil
}

// Theme carries the engine palette in render-ready form.
type Theme struct {
	Highlight  anim.Color
	Muted      anim.Color
	Background anim.Color
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
