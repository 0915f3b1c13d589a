package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/livewindow/internal/source"
	"github.com/bryanchriswhite/livewindow/internal/source/label"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "livewindow", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewManagerCreatesDefaults(t *testing.T) {
	m := newManager(t)
	if _, err := os.Stat(m.GetConfigPath()); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	cfg := m.Get()
	if cfg.ServerPort != 8080 || cfg.Canvas.FPS != 30 || cfg.ActiveScene != DefaultSceneName {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestSourcesPersist(t *testing.T) {
	m := newManager(t)
	sc := SourceConfig{Name: "editor", Type: source.TypeLiveWindow, Window: "a.txt:Editor:editor", Priority: "class"}
	if err := m.AddSource(sc, ItemConfig{X: 10, Y: 20}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSource(sc, ItemConfig{}); !errors.Is(err, ErrSourceExists) {
		t.Errorf("duplicate AddSource err = %v", err)
	}

	reloaded, err := NewManager(m.GetConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Source("editor")
	if err != nil {
		t.Fatal(err)
	}
	if got.Window != sc.Window || got.Priority != "class" || !got.CursorEnabled() {
		t.Errorf("reloaded source = %+v", got)
	}
	items := reloaded.Get().Scenes[0].Items
	if len(items) != 1 || items[0].Source != "editor" || items[0].X != 10 {
		t.Errorf("scene items = %+v", items)
	}
}

func TestRemoveSourceDropsItems(t *testing.T) {
	m := newManager(t)
	m.AddSource(SourceConfig{Name: "cap", Type: label.Type, Text: "hi"}, ItemConfig{})
	if err := m.RemoveSource("cap"); err != nil {
		t.Fatal(err)
	}
	if n := len(m.Get().Scenes[0].Items); n != 0 {
		t.Errorf("%d items left", n)
	}
	if err := m.RemoveSource("cap"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("err = %v, want ErrSourceNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		sc SourceConfig
		ok bool
	}{
		{SourceConfig{Name: "a", Type: source.TypeLiveWindow}, true},
		{SourceConfig{Name: "a", Type: source.TypeLiveWindow, Priority: "pid"}, false},
		{SourceConfig{Name: "a", Type: label.Type, Color: "#fff"}, true},
		{SourceConfig{Name: "a", Type: label.Type, Color: "blue"}, false},
		{SourceConfig{Name: "a", Type: "browser"}, false},
		{SourceConfig{Type: label.Type}, false},
	}
	for _, tt := range tests {
		if err := tt.sc.Validate(); (err == nil) != tt.ok {
			t.Errorf("Validate(%+v) = %v", tt.sc, err)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m := newManager(t)
	cfg := m.Get()
	cfg.Scenes[0].Name = "changed"
	if m.Get().Scenes[0].Name != DefaultSceneName {
		t.Error("Get exposed internal state")
	}
}

func TestSetValueAndLookup(t *testing.T) {
	m := newManager(t)
	if err := m.SetValue("canvas.fps", "60"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetValue("server_port", "abc"); err == nil {
		t.Error("non-numeric port accepted")
	}
	if err := m.SetValue("log_level", "loud"); err == nil {
		t.Error("invalid log level accepted")
	}
	if err := m.SetValue("nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("err = %v, want ErrUnknownKey", err)
	}

	v, err := m.Lookup("canvas.fps")
	if err != nil {
		t.Fatal(err)
	}
	if v != 60 {
		t.Errorf("canvas.fps = %v (%T), want 60", v, v)
	}
	if _, err := m.Lookup("canvas.depth"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("err = %v, want ErrUnknownKey", err)
	}
}

func TestLoadRepairsActiveScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server_port: 9000\nscenes:\n  - name: Main\nactive_scene: Missing\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := m.Get()
	if cfg.ActiveScene != "Main" || cfg.ServerPort != 9000 || cfg.Canvas.Width != 1920 {
		t.Errorf("loaded config = %+v", cfg)
	}
}
