package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"scrolly/config"
	"scrolly/render"
)

// WalkOptions tunes a simulated scroll through the whole timeline.
type WalkOptions struct {
	OutDir        string
	Format        config.OutputFmt
	FramesPerStep int
	Overwrite     bool
	ViewportW     float64
	ViewportH     float64
}

// Walk drives a simulated scroll from the top of the timeline to the bottom,
// rendering frames along the way. Every step is visited in order, exactly as
// a reader scrolling down would see it, and each frame advances the animation
// clock so transitions are captured mid-flight.
func (s *Session) Walk(ctx context.Context, opts WalkOptions) error {
	if opts.FramesPerStep < 1 {
		opts.FramesPerStep = 1
	}
	if opts.ViewportW <= 0 || opts.ViewportH <= 0 {
		opts.ViewportW = float64(s.cfg.Narrative.Canvas.Width)
		opts.ViewportH = float64(s.cfg.Narrative.Canvas.Height)
	}

	if err := prepareOutDir(opts.OutDir, opts.Overwrite); err != nil {
		return err
	}

	now := time.Unix(0, 0)
	if err := s.Viewport(opts.ViewportW, opts.ViewportH, now); err != nil {
		return err
	}

	// space frame times so each step's transition has settled by its last frame
	duration := time.Duration(s.cfg.Narrative.Animation.DurationMs) * time.Millisecond
	frameGap := duration
	if opts.FramesPerStep > 1 {
		frameGap = 2 * duration / time.Duration(opts.FramesPerStep)
	}

	line := opts.ViewportH * s.scrollOffset()
	total := 0
	for i := range s.steps {
		start, end := s.stepRange(i)
		for j := 0; j < opts.FramesPerStep; j++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			frac := (float64(j) + 0.5) / float64(opts.FramesPerStep)
			scrollTop := start + frac*(end-start) - line

			now = now.Add(frameGap)
			if err := s.Observe(scrollTop, now); err != nil {
				return err
			}
			doc, err := s.Frame(ctx, now)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", i, s.steps[i].ID, err)
			}

			name := fmt.Sprintf("%03d-%s-%02d%s", i, s.steps[i].ID, j, opts.Format.Ext())
			path := filepath.Join(opts.OutDir, name)
			switch opts.Format {
			case config.OutputFmtPNG:
				err = render.SavePNG(doc, path, int(s.composerWidth()), int(s.composerHeight()))
			default:
				doc.Indent(2)
				err = doc.WriteToFile(path)
			}
			if err != nil {
				return fmt.Errorf("unable to write frame %s: %w", name, err)
			}
			total++
		}
	}
	s.log.Info("Timeline walk finished",
		zap.Int("steps", len(s.steps)),
		zap.Int("frames", total),
		zap.String("output", opts.OutDir))
	return nil
}

func (s *Session) scrollOffset() float64 {
	off := s.cfg.Narrative.Scroll.Offset
	if off <= 0 || off >= 1 {
		off = 0.5
	}
	return off
}

func (s *Session) stepRange(i int) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapper.StepRange(i)
}

func (s *Session) composerWidth() float64  { return float64(s.cfg.Narrative.Canvas.Width) }
func (s *Session) composerHeight() float64 { return float64(s.cfg.Narrative.Canvas.Height) }

// prepareOutDir creates the output directory, refusing to reuse a non-empty
// one unless overwriting was requested.
func prepareOutDir(dir string, overwrite bool) error {
	if dir == "" {
		return fmt.Errorf("output directory is not set")
	}
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(dir, 0755)
	case err != nil:
		return fmt.Errorf("unable to inspect output directory: %w", err)
	case len(entries) > 0 && !overwrite:
		return fmt.Errorf("output directory %s is not empty, use overwrite to replace its content", dir)
	}
	return nil
}
