package render

import (
	"context"
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"scrolly/dataset"
	"scrolly/geo"
	"scrolly/layout"
	"scrolly/scene"
	"scrolly/story"
)

// Composer assembles complete SVG frames from scene state. One composer
// serves a whole session, it holds no per-frame state.
type Composer struct {
	canvas   layout.Canvas
	registry *Registry
	loader   *dataset.Loader
	assetDir string
	theme    Theme
	log      *zap.Logger
}

func NewComposer(canvas layout.Canvas, registry *Registry, loader *dataset.Loader, assetDir string, theme Theme, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{
		canvas:   canvas,
		registry: registry,
		loader:   loader,
		assetDir: assetDir,
		theme:    theme,
		log:      log.Named("render"),
	}
}

// Compose builds the SVG document for one frame. mapFrame carries the live
// map state and is only consulted when the active step shows the map.
func (c *Composer) Compose(ctx context.Context, snap scene.Snapshot, mapFrame *geo.Frame, viewportWidth float64) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	svg.CreateAttr("width", ftoa(c.canvas.Width))
	svg.CreateAttr("height", ftoa(c.canvas.Height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %s %s", ftoa(c.canvas.Width), ftoa(c.canvas.Height)))

	c.ambientLayer(svg, snap)

	if op := snap.LayerOpacity(scene.LayerVector); op > 0 {
		g := layerGroup(svg, "vector", op)
		if err := c.vectorLayer(ctx, g, snap, mapFrame, viewportWidth); err != nil {
			return nil, err
		}
	}
	if op := snap.LayerOpacity(scene.LayerImage); op > 0 {
		g := layerGroup(svg, "image", op)
		c.imageLayer(g, snap)
	}

	c.headerText(svg, snap.Step)
	return doc, nil
}

func layerGroup(svg *etree.Element, name string, opacity float64) *etree.Element {
	g := svg.CreateElement("g")
	g.CreateAttr("class", "layer-"+name)
	if opacity < 1 {
		g.CreateAttr("opacity", ftoa(opacity))
	}
	return g
}

// ambientLayer paints the backdrop. The progress-driven intensity blends the
// background toward the muted tone, a subtle breathing effect between steps.
func (c *Composer) ambientLayer(svg *etree.Element, snap scene.Snapshot) {
	bg := svg.CreateElement("rect")
	bg.CreateAttr("width", ftoa(c.canvas.Width))
	bg.CreateAttr("height", ftoa(c.canvas.Height))
	bg.CreateAttr("fill", c.theme.Background.Hex())

	if op := snap.LayerOpacity(scene.LayerAmbient); op > 0 {
		tint := svg.CreateElement("rect")
		tint.CreateAttr("width", ftoa(c.canvas.Width))
		tint.CreateAttr("height", ftoa(c.canvas.Height))
		tint.CreateAttr("fill", c.theme.Muted.Hex())
		tint.CreateAttr("opacity", ftoa(0.08*snap.Ambient*op))
	}
}

// vectorLayer draws either the map or the chart panels, never both. The two
// directives are mutually exclusive upstream.
func (c *Composer) vectorLayer(ctx context.Context, g *etree.Element, snap scene.Snapshot, mapFrame *geo.Frame, viewportWidth float64) error {
	step := snap.Step
	if step == nil {
		return nil
	}
	if step.Map != nil && step.Map.Visible {
		if mapFrame != nil {
			c.mapLayer(g, mapFrame)
		}
		return nil
	}
	if step.Chart != nil && step.Chart.Visible {
		return c.chartPanels(ctx, g, step.Chart, viewportWidth)
	}
	return nil
}

func (c *Composer) chartPanels(ctx context.Context, g *etree.Element, d *story.ChartDirective, viewportWidth float64) error {
	rects := c.canvas.Layout(d, viewportWidth)
	for i, spec := range d.Charts {
		if i >= len(rects) {
			break
		}
		var table *dataset.Table
		if spec.DataFile != "" {
			var err error
			table, err = c.loader.Load(ctx, spec.DataFile, spec.DataFormat)
			if err != nil {
				c.log.Warn("Data file unavailable", zap.String("chart", spec.ID), zap.Error(err))
			}
		}
		c.registry.Render(g, spec, table, rects[i], c.theme)
	}
	return ctx.Err()
}

// mapLayer draws the country fills and markers of one animator frame.
func (c *Composer) mapLayer(g *etree.Element, f *geo.Frame) {
	countries := g.CreateElement("g")
	countries.CreateAttr("class", "countries")
	for _, fill := range f.Countries {
		path := countries.CreateElement("path")
		path.CreateAttr("d", ringsPath(f.Projection, fill.Rings))
		path.CreateAttr("fill", fill.Color.Hex())
		path.CreateAttr("fill-opacity", ftoa(fill.Opacity))
		path.CreateAttr("stroke", c.theme.Background.Hex())
		path.CreateAttr("stroke-width", "0.5")
	}

	markers := g.CreateElement("g")
	markers.CreateAttr("class", "markers")
	for _, m := range f.Markers {
		if m.Radius <= 0 {
			continue
		}
		dot := markers.CreateElement("circle")
		dot.CreateAttr("cx", ftoa(m.Pos.X))
		dot.CreateAttr("cy", ftoa(m.Pos.Y))
		dot.CreateAttr("r", ftoa(m.Radius))
		dot.CreateAttr("fill", m.Color.Hex())
		if m.Label != "" && m.LabelOpacity > 0 {
			label := markers.CreateElement("text")
			label.CreateAttr("x", ftoa(m.Pos.X))
			label.CreateAttr("y", ftoa(m.Pos.Y-m.Radius-6))
			label.CreateAttr("text-anchor", "middle")
			label.CreateAttr("fill", c.theme.Highlight.Hex())
			label.CreateAttr("font-size", "13")
			label.CreateAttr("opacity", ftoa(m.LabelOpacity))
			label.SetText(m.Label)
		}
	}
}

// headerText puts the step copy into the reserved header band.
func (c *Composer) headerText(svg *etree.Element, step *story.Step) {
	if step == nil || step.Text == nil || step.Text.Content == "" {
		return
	}
	text := svg.CreateElement("text")
	text.CreateAttr("x", ftoa(c.canvas.Width/2))
	text.CreateAttr("y", ftoa(c.canvas.HeaderSafe()/2))
	text.CreateAttr("text-anchor", "middle")
	text.CreateAttr("dominant-baseline", "middle")
	text.CreateAttr("fill", c.theme.Highlight.Hex())
	text.CreateAttr("font-size", "18")
	text.SetText(step.Text.Content)
}

// ringsPath renders country rings as one path with absolute line segments.
func ringsPath(p geo.Projection, rings []geo.Ring) string {
	var d []byte
	for _, ring := range rings {
		for i, pos := range ring {
			pt := p.Project(pos[0], pos[1])
			if i == 0 {
				d = append(d, 'M')
			} else {
				d = append(d, 'L')
			}
			d = append(d, ftoa(pt.X)...)
			d = append(d, ' ')
			d = append(d, ftoa(pt.Y)...)
		}
		d = append(d, 'Z')
	}
	return string(d)
}
