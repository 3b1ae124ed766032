package preview

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

// watch observes narrative sources and tells viewers to reload after edits
// settle. Editors fire bursts of writes per save, the debounce collapses a
// burst into one reload.
func (s *Server) watch(ctx context.Context) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := map[string]bool{s.srcDir: true}
	if d := s.cfg.Narrative.Files.DataDir; d != "" {
		dirs[filepath.Join(s.srcDir, d)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			s.log.Warn("Unable to watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	go func() {
		var pending *time.Timer
		var pendingC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !relevantChange(ev) {
					continue
				}
				s.log.Debug("Source changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
				if pending == nil {
					pending = time.NewTimer(watchDebounce)
					pendingC = pending.C
				} else {
					resetDebounce(pending, watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("Watcher error", zap.Error(err))
			case <-pendingC:
				pending, pendingC = nil, nil
				s.log.Info("Narrative sources changed, reloading viewers")
				s.notifyReload()
			}
		}
	}()

	return func() { _ = w.Close() }, nil
}

// resetDebounce restarts the timer, discarding a tick that fired while the
// event loop was busy elsewhere. A stale tick left in the channel would end
// the debounce window early.
func resetDebounce(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// relevantChange filters out editor temp files and pure chmod noise.
func relevantChange(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return false
	}
	return true
}
