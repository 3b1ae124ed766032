package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Topology is the compact shared-arc boundary encoding the map layer loads
// once per narrative. Neighboring countries share border arcs, a ring is a
// sequence of arc indices; index ^-1 (that is, -1-i) walks arc i backwards.
// When Transform is present arc positions are quantized integer deltas.
type Topology struct {
	Transform *Transform         `json:"transform,omitempty"`
	Arcs      [][][2]float64     `json:"arcs"`
	Countries map[string][][]int `json:"countries"`
}

type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// Ring is a closed boundary in lon/lat order.
type Ring [][2]float64

// LoadTopology reads and resolves a topology file into per-country rings.
func LoadTopology(path string) (map[string][]Ring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read topology: %w", err)
	}

	var topo Topology
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&topo); err != nil {
		return nil, fmt.Errorf("unable to decode topology (%s): %w", path, err)
	}
	return topo.Resolve()
}

// Resolve expands shared arcs into standalone per-country polygon rings.
func (t *Topology) Resolve() (map[string][]Ring, error) {
	arcs := make([]Ring, len(t.Arcs))
	for i, raw := range t.Arcs {
		arcs[i] = t.decodeArc(raw)
	}

	out := make(map[string][]Ring, len(t.Countries))
	for country, rings := range t.Countries {
		resolved := make([]Ring, 0, len(rings))
		for _, ring := range rings {
			r, err := stitch(arcs, ring)
			if err != nil {
				return nil, fmt.Errorf("country %s: %w", country, err)
			}
			resolved = append(resolved, r)
		}
		out[country] = resolved
	}
	return out, nil
}

// decodeArc turns one encoded arc into absolute lon/lat positions.
func (t *Topology) decodeArc(raw [][2]float64) Ring {
	arc := make(Ring, len(raw))
	if t.Transform == nil {
		copy(arc, raw)
		return arc
	}
	var x, y float64
	for i, p := range raw {
		x += p[0]
		y += p[1]
		arc[i] = [2]float64{
			x*t.Transform.Scale[0] + t.Transform.Translate[0],
			y*t.Transform.Scale[1] + t.Transform.Translate[1],
		}
	}
	return arc
}

// stitch concatenates arcs into a single ring, dropping the duplicated join
// point between consecutive arcs.
func stitch(arcs []Ring, indices []int) (Ring, error) {
	var ring Ring
	for _, idx := range indices {
		rev := false
		if idx < 0 {
			idx = -1 - idx
			rev = true
		}
		if idx >= len(arcs) {
			return nil, fmt.Errorf("arc index %d out of range", idx)
		}
		arc := arcs[idx]
		if rev {
			arc = reversed(arc)
		}
		if len(ring) > 0 && len(arc) > 0 && ring[len(ring)-1] == arc[0] {
			arc = arc[1:]
		}
		ring = append(ring, arc...)
	}
	return ring, nil
}

func reversed(arc Ring) Ring {
	out := make(Ring, len(arc))
	for i, p := range arc {
		out[len(arc)-1-i] = p
	}
	return out
}
