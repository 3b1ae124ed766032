package bundle

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<svg/>"), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWriteBundle(t *testing.T) {
	dir := t.TempDir()
	// lexical order would put 10 before 2
	writeFrames(t, dir, "10-z-00.svg", "2-b-00.svg", "1-a-00.svg", "1-a-01.svg")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "story.zip")
	err := Write(path, dir, Options{Narrative: "demo", Steps: 3, Format: "svg"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var manifest Manifest
	for _, f := range zr.File {
		if f.Name != "manifest.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(data, &manifest); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"1-a-00.svg", "1-a-01.svg", "2-b-00.svg", "10-z-00.svg"}
	if len(manifest.Frames) != len(want) {
		t.Fatalf("frames = %v", manifest.Frames)
	}
	for i := range want {
		if manifest.Frames[i] != want[i] {
			t.Fatalf("frame order = %v, want %v", manifest.Frames, want)
		}
	}
	if manifest.Narrative != "demo" || manifest.Steps != 3 {
		t.Errorf("manifest meta: %+v", manifest)
	}

	stored := make(map[string]bool)
	for _, f := range zr.File {
		stored[f.Name] = true
	}
	for _, name := range want {
		if !stored["frames/"+name] {
			t.Errorf("frame %s missing from archive", name)
		}
	}
	if stored["frames/notes.txt"] {
		t.Error("non-frame files must not be bundled")
	}
}

func TestWriteBundleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, "0-a-00.svg")
	path := filepath.Join(dir, "story.zip")

	if err := Write(path, dir, Options{}, nil); err != nil {
		t.Fatal(err)
	}
	err := Write(path, dir, Options{}, nil)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("existing bundle must be protected: %v", err)
	}
	if err := Write(path, dir, Options{Overwrite: true}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestWriteBundleEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "story.zip"), dir, Options{}, nil); err == nil {
		t.Fatal("empty frame dir must fail")
	}
}
