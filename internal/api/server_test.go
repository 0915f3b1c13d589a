package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/capture/capturetest"
	"github.com/bryanchriswhite/livewindow/internal/config"
	"github.com/bryanchriswhite/livewindow/internal/host"
	"github.com/bryanchriswhite/livewindow/internal/source"
	"github.com/bryanchriswhite/livewindow/internal/window/windowtest"
	"github.com/gorilla/websocket"
)

type fixture struct {
	sys  *windowtest.System
	cfg  *config.Manager
	host *host.Host
	srv  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	sys := windowtest.New()
	h := host.New(host.Deps{System: sys, Capture: capturetest.New()}, cfg.Get().Canvas)
	if err := h.Apply(cfg.Get()); err != nil {
		t.Fatal(err)
	}

	f := &fixture{sys: sys, cfg: cfg, host: h}
	f.srv = httptest.NewServer(NewServer(sys, cfg, h, nil).Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(t, "GET", "/api/health", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGetWindows(t *testing.T) {
	f := newFixture(t)
	f.sys.Add(windowtest.Window{Title: "http://a: b", Class: "Browser", Executable: "browser"})
	f.sys.Add(windowtest.Window{Title: "Hidden", Class: "Term", Iconic: true})

	entries := decode[[]windowEntry](t, f.do(t, "GET", "/api/windows", nil))
	if len(entries) != 1 {
		t.Fatalf("got %d windows, want 1 visible", len(entries))
	}
	if entries[0].Descriptor != "http#3A//a#3A b:Browser:browser" {
		t.Errorf("Descriptor = %q", entries[0].Descriptor)
	}

	all := decode[[]windowEntry](t, f.do(t, "GET", "/api/windows?exclude_minimized=false", nil))
	if len(all) != 2 {
		t.Errorf("got %d windows, want 2", len(all))
	}

	if resp := f.do(t, "GET", "/api/windows?exclude_minimized=maybe", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetPriorities(t *testing.T) {
	f := newFixture(t)
	got := decode[[]string](t, f.do(t, "GET", "/api/priorities", nil))
	if strings.Join(got, ",") != "title,class,executable" {
		t.Errorf("priorities = %v", got)
	}
}

func TestSourceCRUD(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"name": "editor", "type": source.TypeLiveWindow, "window": ":Editor", "priority": "class", "x": 5}

	if resp := f.do(t, "POST", "/api/sources", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if resp := f.do(t, "POST", "/api/sources", body); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want 409", resp.StatusCode)
	}
	bad := map[string]any{"name": "x", "type": "browser"}
	if resp := f.do(t, "POST", "/api/sources", bad); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad type POST status = %d, want 400", resp.StatusCode)
	}

	f.sys.Add(windowtest.Window{Title: "doc", Class: "Editor", Width: 30, Height: 20})
	f.host.Frame(time.Second)

	sources := decode[[]sourceEntry](t, f.do(t, "GET", "/api/sources", nil))
	if len(sources) != 1 || sources[0].State != "tracking" || sources[0].Width != 30 {
		t.Fatalf("sources = %+v", sources)
	}

	views := f.host.Scenes()
	if len(views[0].Items) != 1 || views[0].Items[0].Pos.X != 5 {
		t.Errorf("scene items = %+v", views[0].Items)
	}

	update := map[string]any{"window": ":Editor", "priority": "class", "border": true}
	if resp := f.do(t, "PUT", "/api/sources/editor", update); resp.StatusCode != http.StatusOK {
		t.Errorf("PUT status = %d", resp.StatusCode)
	}
	if sc, _ := f.cfg.Source("editor"); !sc.Border || sc.Type != source.TypeLiveWindow {
		t.Errorf("stored source = %+v", sc)
	}
	if resp := f.do(t, "PUT", "/api/sources/missing", update); resp.StatusCode != http.StatusNotFound {
		t.Errorf("PUT missing status = %d, want 404", resp.StatusCode)
	}

	if resp := f.do(t, "DELETE", "/api/sources/editor", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE status = %d", resp.StatusCode)
	}
	if resp := f.do(t, "DELETE", "/api/sources/editor", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestSetActiveScene(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(t, "PUT", "/api/scenes/active", map[string]string{"name": "nope"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp := f.do(t, "PUT", "/api/scenes/active", map[string]string{"name": config.DefaultSceneName}); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	views := decode[[]host.SceneView](t, f.do(t, "GET", "/api/scenes", nil))
	if len(views) != 1 || !views[0].Active {
		t.Errorf("scenes = %+v", views)
	}
}

func TestSourceStream(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/sources", map[string]any{"name": "editor", "type": source.TypeLiveWindow, "window": ":Editor"})

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/sources/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial []source.Status
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatal(err)
	}

	f.sys.Add(windowtest.Window{Title: "doc", Class: "Editor", Width: 30, Height: 20})
	f.host.Frame(time.Second)

	var update []source.Status
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatal(err)
	}
	if len(update) != 1 || update[0].State != "tracking" {
		t.Errorf("update = %+v", update)
	}
}
