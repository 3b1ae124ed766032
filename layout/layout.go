// Package layout computes non-overlapping panel rectangles for simultaneous
// charts within a fixed virtual canvas.
package layout

import "scrolly/story"

// Rect is a panel rectangle within the virtual canvas.
type Rect struct {
	X, Y, Width, Height float64
}

// Canvas describes the fixed drawing surface. The header safe zone is a
// reserved band at the top: a tenth of the canvas height clamped into
// [HeaderSafeMin, HeaderSafeMax].
type Canvas struct {
	Width, Height                float64
	Padding                      float64
	Gap                          float64
	HeaderSafeMin, HeaderSafeMax float64
	MobileBreakpoint             float64
}

// HeaderSafe returns the height of the reserved header band.
func (c Canvas) HeaderSafe() float64 {
	h := c.Height * 0.1
	if h < c.HeaderSafeMin {
		h = c.HeaderSafeMin
	}
	if h > c.HeaderSafeMax {
		h = c.HeaderSafeMax
	}
	return h
}

// Drawable returns the area panels may occupy: the canvas minus the header
// safe zone and outer padding.
func (c Canvas) Drawable() Rect {
	return Rect{
		X:      c.Padding,
		Y:      c.HeaderSafe() + c.Padding,
		Width:  c.Width - 2*c.Padding,
		Height: c.Height - c.HeaderSafe() - 2*c.Padding,
	}
}

// Layout computes panel rectangles for a chart directive. The configured
// layout mode is advisory: below the mobile breakpoint dual and grid collapse
// to a single stacked column unless the directive opts out. Zero charts yield
// an empty slice, a valid degenerate state.
func (c Canvas) Layout(d *story.ChartDirective, viewportWidth float64) []Rect {
	if d == nil || len(d.Charts) == 0 {
		return nil
	}

	mode := d.Layout
	if mode == "" {
		mode = "single"
	}
	if viewportWidth > 0 && viewportWidth < c.MobileBreakpoint && d.Responsive.StackOnMobile() {
		mode = "single"
	}

	n := len(d.Charts)
	switch mode {
	case "dual":
		stretchOdd := !d.Grid.EmptyCellsAllowed()
		return c.columns(n, 2, stretchOdd)
	case "grid":
		return c.grid(n, d.Grid)
	default:
		return c.stack(n)
	}
}

// stack subdivides the drawable area into n equal-height rows.
func (c Canvas) stack(n int) []Rect {
	area := c.Drawable()
	h := (area.Height - float64(n-1)*c.Gap) / float64(n)
	out := make([]Rect, n)
	for i := range out {
		out[i] = Rect{
			X:      area.X,
			Y:      area.Y + float64(i)*(h+c.Gap),
			Width:  area.Width,
			Height: h,
		}
	}
	return out
}

// columns lays n panels out in a fixed column count. An odd tail cell stays
// blank unless stretchOdd widens the last panel across the full row.
func (c Canvas) columns(n, cols int, stretchOdd bool) []Rect {
	area := c.Drawable()
	rows := (n + cols - 1) / cols
	w := (area.Width - float64(cols-1)*c.Gap) / float64(cols)
	h := (area.Height - float64(rows-1)*c.Gap) / float64(rows)

	out := make([]Rect, n)
	for i := range out {
		row, col := i/cols, i%cols
		out[i] = Rect{
			X:      area.X + float64(col)*(w+c.Gap),
			Y:      area.Y + float64(row)*(h+c.Gap),
			Width:  w,
			Height: h,
		}
		if stretchOdd && i == n-1 && col == 0 && n%cols != 0 {
			out[i].Width = area.Width
		}
	}
	return out
}

// grid assigns panels to rows following the explicit per-row column pattern.
// Row height is uniform; column width is sized for the widest row and rows
// with fewer columns are centered horizontally.
func (c Canvas) grid(n int, spec *story.GridSpec) []Rect {
	pattern := rowPattern(n, spec)

	// rows that receive no charts do not reserve space
	var rows, maxCols, assigned int
	for _, cols := range pattern {
		if assigned >= n {
			break
		}
		rows++
		if cols > maxCols {
			maxCols = cols
		}
		assigned += cols
	}

	area := c.Drawable()
	w := (area.Width - float64(maxCols-1)*c.Gap) / float64(maxCols)
	h := (area.Height - float64(rows-1)*c.Gap) / float64(rows)

	out := make([]Rect, 0, n)
	idx := 0
	for r := 0; r < rows && idx < n; r++ {
		cols := pattern[r]
		if left := n - idx; cols > left {
			cols = left
		}
		rowWidth := float64(cols)*w + float64(cols-1)*c.Gap
		x0 := area.X + (area.Width-rowWidth)/2
		for col := 0; col < cols; col++ {
			out = append(out, Rect{
				X:      x0 + float64(col)*(w+c.Gap),
				Y:      area.Y + float64(r)*(h+c.Gap),
				Width:  w,
				Height: h,
			})
			idx++
		}
	}
	return out
}

// rowPattern normalizes the grid spec into an explicit per-row column list
// covering all n panels.
func rowPattern(n int, spec *story.GridSpec) []int {
	if spec != nil && len(spec.RowPattern) > 0 {
		pattern := append([]int(nil), spec.RowPattern...)
		capacity := 0
		for _, cols := range pattern {
			capacity += cols
		}
		// overflow panels repeat the last row shape
		last := pattern[len(pattern)-1]
		for capacity < n {
			pattern = append(pattern, last)
			capacity += last
		}
		return pattern
	}

	cols := 2
	if spec != nil && spec.Columns > 0 {
		cols = spec.Columns
	}
	rows := (n + cols - 1) / cols
	pattern := make([]int, rows)
	for i := range pattern {
		pattern[i] = cols
	}
	return pattern
}
