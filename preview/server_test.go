package preview

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"scrolly/config"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	start := time.UnixMilli(1700000000000)
	if err := store.BeginSession("s1", "test-agent", start); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Sample("s1", start.Add(time.Duration(i)*time.Second), float64(i*100), i); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Sample("s2", start, 0, 0); err == nil {
		t.Error("sample for unknown session must violate the foreign key")
	}

	trace, err := store.Trace("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(trace))
	}
	if trace[2].ScrollTop != 200 || trace[2].Step != 2 {
		t.Errorf("trace order wrong: %+v", trace)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	store, err := OpenStore("")
	if err != nil {
		t.Fatal(err)
	}
	if store != nil {
		t.Fatal("empty path must disable the store")
	}
	if err := store.BeginSession("x", "", time.Now()); err != nil {
		t.Error(err)
	}
	if err := store.Sample("x", time.Now(), 0, 0); err != nil {
		t.Error(err)
	}
	if err := store.Close(); err != nil {
		t.Error(err)
	}
}

func previewConfig(dir string) *config.Config {
	return &config.Config{
		Version: 1,
		Narrative: config.NarrativeConfig{
			Files: config.FilesConfig{Steps: "steps.json"},
			Canvas: config.CanvasConfig{
				Width: 1200, Height: 800,
				Padding: 24, PanelGap: 16,
				HeaderSafeMin: 60, HeaderSafeMax: 120,
				MobileBreakpoint: 640,
			},
			Scroll:        config.ScrollConfig{Offset: 0.5},
			Animation:     config.AnimationConfig{DurationMs: 100},
			Theme:         config.ThemeConfig{Highlight: "#c0392b", Muted: "#b0b6bd", Background: "#10141a"},
			DataCacheSize: 8,
		},
		Preview: config.PreviewConfig{Listen: "localhost:0"},
	}
}

func TestPreviewWebsocket(t *testing.T) {
	dir := t.TempDir()
	steps := `{"steps": [
		{"id": "a", "text": {"content": "first"}},
		{"id": "b", "text": {"content": "second"}}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "steps.json"), []byte(steps), 0600); err != nil {
		t.Fatal(err)
	}

	srv, err := NewServer(dir, previewConfig(dir), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(clientMsg{Type: "hello", Width: 1200, Height: 800}); err != nil {
		t.Fatal(err)
	}
	var layout serverMsg
	if err := conn.ReadJSON(&layout); err != nil {
		t.Fatal(err)
	}
	// two steps of 150vh against an 800px viewport
	if layout.Type != "layout" || layout.TotalHeight != 2400 {
		t.Fatalf("layout message: %+v", layout)
	}

	if err := conn.WriteJSON(clientMsg{Type: "scroll", ScrollTop: 1300}); err != nil {
		t.Fatal(err)
	}
	var frame serverMsg
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatal(err)
	}
	if frame.Type != "frame" || frame.Step != 1 {
		t.Fatalf("frame message: %+v", frame)
	}
	if !strings.Contains(frame.SVG, "<svg") {
		t.Error("frame carries no svg document")
	}
}

func TestPreviewPage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "steps.json"), []byte(`{"steps":[{"id":"a"}]}`), 0600); err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(dir, previewConfig(dir), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	buf := make([]byte, 64<<10)
	n, _ := resp.Body.Read(buf)
	if !strings.Contains(string(buf[:n]), "WebSocket") {
		t.Error("page does not wire the websocket client")
	}
}

func TestResetDebounceDrainsStaleTick(t *testing.T) {
	tm := time.NewTimer(time.Millisecond)
	time.Sleep(10 * time.Millisecond) // let the first window expire unobserved

	resetDebounce(tm, 80*time.Millisecond)
	select {
	case <-tm.C:
		t.Fatal("stale tick delivered before the new window closed")
	case <-time.After(20 * time.Millisecond):
	}
	select {
	case <-tm.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("debounce timer never fired after reset")
	}
}

func TestRelevantChange(t *testing.T) {
	cases := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"steps.json", fsnotify.Write, true},
		{"data.csv", fsnotify.Create, true},
		{".steps.json.tmp", fsnotify.Write, false},
		{"steps.json~", fsnotify.Write, false},
		{"steps.json.swp", fsnotify.Write, false},
		{"steps.json", fsnotify.Chmod, false},
	}
	for _, tc := range cases {
		ev := fsnotify.Event{Name: filepath.Join("/narrative", tc.name), Op: tc.op}
		if got := relevantChange(ev); got != tc.want {
			t.Errorf("relevantChange(%s, %v) = %v, want %v", tc.name, tc.op, got, tc.want)
		}
	}
}
