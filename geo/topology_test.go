package geo

import (
	"os"
	"path/filepath"
	"testing"
)

// two squares sharing their middle edge, encoded as three arcs
func sharedArcTopology() *Topology {
	return &Topology{
		Arcs: [][][2]float64{
			{{1, 0}, {1, 1}},                 // shared edge, south to north
			{{1, 1}, {0, 1}, {0, 0}, {1, 0}}, // west square remainder
			{{1, 0}, {2, 0}, {2, 1}, {1, 1}}, // east square remainder
		},
		Countries: map[string][][]int{
			"west": {{0, 1}},
			"east": {{2, -1}}, // walks the shared edge backwards
		},
	}
}

func TestResolveSharedArcs(t *testing.T) {
	resolved, err := sharedArcTopology().Resolve()
	if err != nil {
		t.Fatal(err)
	}

	west := resolved["west"][0]
	wantWest := Ring{{1, 0}, {1, 1}, {0, 1}, {0, 0}, {1, 0}}
	if len(west) != len(wantWest) {
		t.Fatalf("west ring = %v, want %v", west, wantWest)
	}
	for i := range west {
		if west[i] != wantWest[i] {
			t.Fatalf("west ring = %v, want %v", west, wantWest)
		}
	}

	east := resolved["east"][0]
	wantEast := Ring{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}
	if len(east) != len(wantEast) {
		t.Fatalf("east ring = %v, want %v", east, wantEast)
	}
	for i := range east {
		if east[i] != wantEast[i] {
			t.Fatalf("east ring = %v, want %v", east, wantEast)
		}
	}
}

func TestResolveQuantizedDeltas(t *testing.T) {
	topo := &Topology{
		Transform: &Transform{
			Scale:     [2]float64{0.5, 0.25},
			Translate: [2]float64{-10, 40},
		},
		// deltas: absolute quantized positions (0,0) (4,8) (6,8)
		Arcs: [][][2]float64{
			{{0, 0}, {4, 8}, {2, 0}},
		},
		Countries: map[string][][]int{"q": {{0}}},
	}

	resolved, err := topo.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	got := resolved["q"][0]
	want := Ring{{-10, 40}, {-8, 42}, {-7, 42}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decoded arc = %v, want %v", got, want)
		}
	}
}

func TestResolveBadArcIndex(t *testing.T) {
	topo := &Topology{
		Arcs:      [][][2]float64{{{0, 0}, {1, 1}}},
		Countries: map[string][][]int{"broken": {{0, 7}}},
	}
	if _, err := topo.Resolve(); err == nil {
		t.Fatal("out of range arc index must fail")
	}
}

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	doc := `{
  "arcs": [[[1,0],[1,1]],[[1,1],[0,1],[0,0],[1,0]],[[1,0],[2,0],[2,1],[1,1]]],
  "countries": {"west": [[0,1]], "east": [[2,-1]]}
}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	resolved, err := LoadTopology(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 2 || len(resolved["west"]) != 1 {
		t.Fatalf("unexpected resolve result: %v", resolved)
	}
}

func TestLoadTopologyRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	if err := os.WriteFile(path, []byte(`{"arcs": [], "countries": {}, "bogus": 1}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTopology(path); err == nil {
		t.Fatal("unknown top level field must be rejected")
	}
}
