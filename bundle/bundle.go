// Package bundle packs rendered frames into a single distributable archive
// with a manifest describing the narrative they came from.
package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"scrolly/misc"
)

// Manifest describes the archive content. Frames are listed in display
// order.
type Manifest struct {
	Generator string    `json:"generator"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	Narrative string    `json:"narrative"`
	Steps     int       `json:"steps"`
	Format    string    `json:"format"`
	Frames    []string  `json:"frames"`
}

// Options for one export.
type Options struct {
	Narrative string // narrative name recorded in the manifest
	Steps     int
	Format    string
	Overwrite bool
}

// Write archives every frame file from framesDir into a bundle at path.
// Frame order in the manifest follows natural numeric ordering, frame-10
// sorts after frame-9.
func Write(path, framesDir string, opts Options, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	frames, err := frameList(framesDir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames to bundle in %s", framesDir)
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		return fmt.Errorf("bundle %s already exists, use overwrite to replace it", path)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create bundle: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	manifest := Manifest{
		Generator: misc.GetAppName(),
		Version:   misc.GetVersion(),
		CreatedAt: time.Now().UTC(),
		Narrative: opts.Narrative,
		Steps:     opts.Steps,
		Format:    opts.Format,
		Frames:    frames,
	}
	mw, err := zw.Create("manifest.json")
	if err != nil {
		return fmt.Errorf("unable to write manifest: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("unable to write manifest: %w", err)
	}

	for _, name := range frames {
		if err := addFrame(zw, framesDir, name); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to finalize bundle: %w", err)
	}

	log.Info("Bundle written",
		zap.String("path", path),
		zap.Int("frames", len(frames)))
	return nil
}

func addFrame(zw *zip.Writer, dir, name string) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("unable to read frame %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create("frames/" + name)
	if err != nil {
		return fmt.Errorf("unable to add frame %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("unable to add frame %s: %w", name, err)
	}
	return nil
}

// frameList returns frame files in natural order, skipping anything that is
// not a rendered frame.
func frameList(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to list frames: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".svg", ".png":
			names = append(names, e.Name())
		}
	}
	sort.Sort(natural.StringSlice(names))
	return names, nil
}
