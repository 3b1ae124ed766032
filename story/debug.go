package story

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// DumpTimeline renders a human readable summary of the built timeline for
// the debug report.
func DumpTimeline(steps []Step) []byte {
	var b strings.Builder

	files := make(map[string]bool)
	for i := range steps {
		s := &steps[i]
		fmt.Fprintf(&b, "[%3d] %-24s layer=%-6s scroll=%s", s.Index, s.ID, layerName(s), s.ScrollHeight)
		if s.Map != nil && s.Map.Visible {
			fmt.Fprintf(&b, " center=(%.3f,%.3f) zoom=%.1f highlights=%d markers=%d",
				s.Map.Center[0], s.Map.Center[1], s.Map.Zoom, len(s.Map.HighlightCountries), len(s.Map.Markers))
		}
		if s.Chart != nil && s.Chart.Visible {
			fmt.Fprintf(&b, " layout=%s charts=%d", s.Chart.Layout, len(s.Chart.Charts))
			for j := range s.Chart.Charts {
				files[s.Chart.Charts[j].DataFile] = true
			}
		}
		b.WriteByte('\n')
	}

	if len(files) > 0 {
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Sort(natural.StringSlice(names))
		b.WriteString("\ndata files:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "\t%s\n", name)
		}
	}
	return []byte(b.String())
}

func layerName(s *Step) string {
	switch {
	case s.Chart != nil && s.Chart.Visible:
		return "chart"
	case s.Map != nil && s.Map.Visible:
		return "map"
	case s.Image != nil && s.Image.Visible:
		return "image"
	default:
		return "bg"
	}
}
