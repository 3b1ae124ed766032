// Package preview serves a live narrative preview: a browser page that feeds
// real scroll positions over a websocket and renders the frames the engine
// sends back. Edits to narrative sources reload connected viewers.
package preview

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"scrolly/config"
	"scrolly/engine"
	"scrolly/misc"
)

//go:embed page.html.tmpl
var pageFS embed.FS

// clientMsg is what the browser sends: a viewport handshake, scroll samples
// and resize notifications.
type clientMsg struct {
	Type      string  `json:"type"` // "hello", "scroll" or "resize"
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	ScrollTop float64 `json:"scrollTop,omitempty"`
}

type serverMsg struct {
	Type        string  `json:"type"` // "layout", "frame" or "reload"
	TotalHeight float64 `json:"totalHeight,omitempty"`
	Step        int     `json:"step,omitempty"`
	SVG         string  `json:"svg,omitempty"`
}

// Server hosts the preview page and its websocket sessions.
type Server struct {
	cfg    *config.Config
	srcDir string
	log    *zap.Logger
	store  *Store
	page   *template.Template

	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[chan struct{}]struct{}
}

func NewServer(srcDir string, cfg *config.Config, store *Store, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	page, err := template.New("page.html.tmpl").Funcs(template.FuncMap(sprig.FuncMap())).ParseFS(pageFS, "page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("unable to parse preview page template: %w", err)
	}
	return &Server{
		cfg:    cfg,
		srcDir: srcDir,
		log:    log.Named("preview"),
		store:  store,
		page:   page,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1 << 20,
		},
		viewers: make(map[chan struct{}]struct{}),
	}, nil
}

// Handler returns the preview routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.servePage)
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// Run serves until the context is canceled, watching narrative sources for
// edits along the way.
func (s *Server) Run(ctx context.Context) error {
	stopWatch, err := s.watch(ctx)
	if err != nil {
		return err
	}
	defer stopWatch()

	srv := &http.Server{
		Addr:    s.cfg.Preview.Listen,
		Handler: s.Handler(),
	}

	done := make(chan error, 1)
	go func() {
		s.log.Info("Preview server listening", zap.String("addr", s.cfg.Preview.Listen))
		done <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-done:
		return err
	}
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := struct {
		Title            string
		Version          string
		ResizeDebounceMs int
	}{
		Title:            misc.GetAppName(),
		Version:          misc.GetVersion(),
		ResizeDebounceMs: s.cfg.Narrative.Scroll.ResizeDebounceMs,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("Unable to render preview page", zap.Error(err))
	}
}

// serveWS runs one viewer session. Each connection gets a freshly loaded
// narrative, so a reconnect after an edit always sees the current sources.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	if err := s.store.BeginSession(id, r.UserAgent(), time.Now()); err != nil {
		s.log.Warn("Unable to record session", zap.Error(err))
	}
	s.log.Info("Viewer connected", zap.String("session", id))

	session, err := engine.New(r.Context(), s.srcDir, s.cfg, s.log)
	if err != nil {
		s.log.Error("Unable to load narrative", zap.Error(err))
		_ = conn.WriteJSON(serverMsg{Type: "reload"})
		return
	}

	reload := s.subscribe()
	defer s.unsubscribe(reload)
	go func() {
		<-reload
		// kick the read loop loose, client reconnects after reload
		_ = conn.WriteJSON(serverMsg{Type: "reload"})
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Info("Viewer disconnected", zap.String("session", id))
			return
		}
		var msg clientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("Bad client message", zap.Error(err))
			continue
		}
		if err := s.handleMsg(conn, session, id, msg); err != nil {
			s.log.Warn("Unable to serve frame", zap.String("session", id), zap.Error(err))
			return
		}
	}
}

func (s *Server) handleMsg(conn *websocket.Conn, session *engine.Session, id string, msg clientMsg) error {
	now := time.Now()
	switch msg.Type {
	case "hello":
		if err := session.Viewport(msg.Width, msg.Height, now); err != nil {
			return err
		}
		total, err := session.TotalHeight()
		if err != nil {
			return err
		}
		return conn.WriteJSON(serverMsg{Type: "layout", TotalHeight: total})
	case "resize":
		if err := session.Resize(msg.Width, msg.Height); err != nil {
			return err
		}
		total, err := session.TotalHeight()
		if err != nil {
			return err
		}
		return conn.WriteJSON(serverMsg{Type: "layout", TotalHeight: total})
	case "scroll":
		if err := session.Observe(msg.ScrollTop, now); err != nil {
			return err
		}
		doc, err := session.Frame(context.Background(), now)
		if err != nil {
			return err
		}
		svg, err := doc.WriteToString()
		if err != nil {
			return err
		}
		step := session.ActiveStep()
		if err := s.store.Sample(id, now, msg.ScrollTop, step); err != nil {
			s.log.Warn("Unable to record sample", zap.Error(err))
		}
		return conn.WriteJSON(serverMsg{Type: "frame", Step: step, SVG: svg})
	default:
		s.log.Warn("Unknown client message type", zap.String("type", msg.Type))
		return nil
	}
}

func (s *Server) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.viewers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.viewers, ch)
	s.mu.Unlock()
}

// notifyReload tells every connected viewer to reconnect.
func (s *Server) notifyReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.viewers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
