// Package engine assembles a narrative session: it loads every input the
// narrative names, builds the step timeline and wires scrolling, layers and
// the map animator together.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"scrolly/anim"
	"scrolly/config"
	"scrolly/dataset"
	"scrolly/geo"
	"scrolly/layout"
	"scrolly/render"
	"scrolly/scene"
	"scrolly/scroll"
	"scrolly/story"
)

// Session is one fully loaded narrative, ready to serve frames. All inputs
// are resolved before the first frame: a session either has everything or it
// does not exist.
type Session struct {
	cfg *config.Config
	log *zap.Logger

	steps     []story.Step
	countries map[string][]geo.Ring
	loader    *dataset.Loader

	orch     *scene.Orchestrator
	animator *geo.Animator
	composer *render.Composer

	mu     sync.Mutex
	mapper *scroll.Mapper
	viewW  float64   // live viewport width, drives mobile panel collapse
	clock  time.Time // frame time of the scroll sample being processed
}

// New loads all narrative inputs concurrently and refuses to create the
// session unless every one of them is usable.
func New(ctx context.Context, srcDir string, cfg *config.Config, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	files := cfg.Narrative.Files

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      error
		narrative *story.Narrative
		aux       *story.AuxDataset
		countries map[string][]geo.Ring
	)
	fail := func(err error) {
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		if narrative, err = story.LoadNarrative(filepath.Join(srcDir, files.Steps)); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		if files.Episodes == "" {
			return
		}
		var err error
		if aux, err = story.LoadAux(filepath.Join(srcDir, files.Episodes)); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		if files.Topology == "" {
			return
		}
		var err error
		if countries, err = geo.LoadTopology(filepath.Join(srcDir, files.Topology)); err != nil {
			fail(err)
		}
	}()
	wg.Wait()
	if errs != nil {
		return nil, fmt.Errorf("narrative inputs are incomplete: %w", errs)
	}

	steps := story.Build(narrative.Steps, aux, log)
	if len(steps) == 0 {
		return nil, fmt.Errorf("narrative has no steps")
	}

	dataDir := srcDir
	if files.DataDir != "" {
		dataDir = filepath.Join(srcDir, files.DataDir)
	}
	loader, err := dataset.NewLoader(dataDir, cfg.Narrative.DataCacheSize, log)
	if err != nil {
		return nil, err
	}
	if err := loader.Prefetch(ctx, dataRefs(steps)); err != nil {
		return nil, fmt.Errorf("narrative inputs are incomplete: %w", err)
	}

	theme, err := themeFromConfig(&cfg.Narrative.Theme)
	if err != nil {
		return nil, err
	}

	canvas := canvasFromConfig(&cfg.Narrative.Canvas)
	duration := time.Duration(cfg.Narrative.Animation.DurationMs) * time.Millisecond

	s := &Session{
		cfg:       cfg,
		log:       log,
		steps:     steps,
		countries: countries,
		loader:    loader,
		orch:      scene.New(duration, log),
		animator: geo.NewAnimator(geo.Config{
			Width:    canvas.Width,
			Height:   canvas.Height,
			Duration: duration,
			Theme:    geo.Theme{Highlight: theme.Highlight, Muted: theme.Muted},
		}, countries, log),
		composer: render.NewComposer(canvas, render.NewRegistry(log), loader, dataDir, theme, log),
	}
	log.Info("Narrative session ready",
		zap.Int("steps", len(steps)),
		zap.Int("countries", len(countries)),
		zap.Int("data files", len(dataRefs(steps))))
	return s, nil
}

// dataRefs collects every chart data file a timeline refers to.
func dataRefs(steps []story.Step) map[string]string {
	refs := make(map[string]string)
	for i := range steps {
		if steps[i].Chart == nil {
			continue
		}
		for _, spec := range steps[i].Chart.Charts {
			if spec.DataFile != "" {
				refs[spec.DataFile] = spec.DataFormat
			}
		}
	}
	return refs
}

func themeFromConfig(tc *config.ThemeConfig) (render.Theme, error) {
	var t render.Theme
	var err error
	if t.Highlight, err = anim.ParseHexColor(tc.Highlight); err != nil {
		return t, err
	}
	if t.Muted, err = anim.ParseHexColor(tc.Muted); err != nil {
		return t, err
	}
	if t.Background, err = anim.ParseHexColor(tc.Background); err != nil {
		return t, err
	}
	return t, nil
}

func canvasFromConfig(cc *config.CanvasConfig) layout.Canvas {
	return layout.Canvas{
		Width:            float64(cc.Width),
		Height:           float64(cc.Height),
		Padding:          float64(cc.Padding),
		Gap:              float64(cc.PanelGap),
		HeaderSafeMin:    float64(cc.HeaderSafeMin),
		HeaderSafeMax:    float64(cc.HeaderSafeMax),
		MobileBreakpoint: float64(cc.MobileBreakpoint),
	}
}

// Steps returns the built timeline.
func (s *Session) Steps() []story.Step { return s.steps }

// Viewport attaches a scroll mapper for the given viewport, replacing any
// previous one. Mapper events drive the layer and map state machines.
func (s *Session) Viewport(width, height float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock = at
	m, err := scroll.New(s.steps, scroll.Config{Offset: s.cfg.Narrative.Scroll.Offset}, scroll.Handlers{
		StepEnter: func(step int, dir scroll.Direction) {
			s.enterStep(step, s.clock)
		},
		StepProgress: func(step int, progress float64, dir scroll.Direction) {
			s.orch.UpdateProgress(progress)
		},
	}, width, height)
	if err != nil {
		return err
	}
	m.DumpThresholds(s.log)
	s.mapper = m
	s.viewW = width
	return nil
}

func (s *Session) enterStep(step int, now time.Time) {
	st := &s.steps[step]
	s.orch.Transition(st, now)
	if st.Map != nil && st.Map.Visible {
		s.animator.ApplyConfig(st.Map, now)
	}
}

// Observe feeds one scroll sample at the given frame time. Mapper callbacks
// fire synchronously and are pinned to this sample's time. Leaving the
// timeline on either end returns the scene to the ambient backdrop.
func (s *Session) Observe(scrollTop float64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapper == nil {
		return fmt.Errorf("no viewport attached")
	}

	s.clock = now
	s.mapper.Observe(scrollTop)

	if a := s.mapper.ActiveStep(); a < 0 || a >= len(s.steps) {
		s.orch.Deactivate(now)
	}
	return nil
}

// Resize recomputes the scroll thresholds for a new viewport.
func (s *Session) Resize(width, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapper == nil {
		return fmt.Errorf("no viewport attached")
	}
	s.mapper.Resize(width, height)
	s.viewW = width
	return nil
}

// ActiveStep returns the mapper's active step index, -1 with no viewport.
func (s *Session) ActiveStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapper == nil {
		return -1
	}
	return s.mapper.ActiveStep()
}

// TotalHeight returns the scrollable extent of the attached viewport.
func (s *Session) TotalHeight() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapper == nil {
		return 0, fmt.Errorf("no viewport attached")
	}
	return s.mapper.TotalHeight(), nil
}

// Frame composes the SVG document for one instant.
func (s *Session) Frame(ctx context.Context, now time.Time) (*etree.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.orch.Snapshot(now)
	var mf *geo.Frame
	if snap.Step != nil && snap.Step.Map != nil && snap.Step.Map.Visible {
		f := s.animator.Frame(now)
		mf = &f
	}
	vw := s.viewW
	if vw <= 0 {
		vw = float64(s.cfg.Narrative.Canvas.Width)
	}
	return s.composer.Compose(ctx, snap, mf, vw)
}
