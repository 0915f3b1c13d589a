// Package host runs the frame loop: it ticks every source, composes the
// active scene onto the canvas and hands the frame to the output.
package host

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/capture"
	"github.com/bryanchriswhite/livewindow/internal/config"
	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/output"
	"github.com/bryanchriswhite/livewindow/internal/scene"
	"github.com/bryanchriswhite/livewindow/internal/source"
	"github.com/bryanchriswhite/livewindow/internal/source/label"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

var (
	ErrSourceExists   = errors.New("source already exists")
	ErrSourceNotFound = errors.New("source not found")
)

// Deps are the platform pieces the host drives
type Deps struct {
	System  window.System
	Capture capture.Primitive
	Output  output.Output
}

// SceneView describes a scene for display
type SceneView struct {
	Name   string       `json:"name"`
	Active bool         `json:"active"`
	Items  []scene.Item `json:"items"`
}

// Host owns every source and the scene graph. Frame and every mutation are
// serialized by mu, so sources never see concurrent calls.
type Host struct {
	mu      sync.Mutex
	deps    Deps
	gfx     *gfx.Context
	graph   *scene.Graph
	sources map[string]source.Source
	order   []string

	canvas *image.RGBA
	fps    int

	statusMu    sync.RWMutex
	statuses    []source.Status
	subscribers map[chan []source.Status]struct{}

	log zerolog.Logger
}

// New creates a host with an empty graph
func New(deps Deps, canvas config.CanvasConfig) *Host {
	return &Host{
		deps:        deps,
		gfx:         gfx.New(),
		graph:       scene.New(),
		sources:     make(map[string]source.Source),
		canvas:      image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height)),
		fps:         max(canvas.FPS, 1),
		subscribers: make(map[chan []source.Status]struct{}),
		log:         *logger.WithComponent("host"),
	}
}

// Graph exposes the scene graph
func (h *Host) Graph() *scene.Graph {
	return h.graph
}

// Graphics exposes the shared graphics context
func (h *Host) Graphics() *gfx.Context {
	return h.gfx
}

// Apply builds sources and scenes from cfg. It is meant to run once, before
// the loop starts.
func (h *Host) Apply(cfg *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sc := range cfg.Sources {
		if err := h.addSourceLocked(sc); err != nil {
			return err
		}
	}
	for _, s := range cfg.Scenes {
		if err := h.graph.AddScene(s.Name); err != nil {
			return err
		}
		for _, it := range s.Items {
			src, ok := h.sources[it.Source]
			if !ok {
				h.log.Warn().Str("scene", s.Name).Str("source", it.Source).Msg("Scene references unknown source, skipping")
				continue
			}
			item, err := h.graph.AddItem(s.Name, it.Source, src.Type(), image.Pt(it.X, it.Y))
			if err != nil {
				return err
			}
			if it.Hidden {
				h.graph.SetItemVisible(s.Name, item.ID, false)
			}
		}
	}
	if cfg.ActiveScene != "" {
		if err := h.graph.SetActiveScene(cfg.ActiveScene); err != nil {
			return err
		}
	}

	h.log.Info().
		Int("sources", len(cfg.Sources)).
		Int("scenes", len(cfg.Scenes)).
		Str("active_scene", cfg.ActiveScene).
		Msg("Configuration applied")
	return nil
}

func (h *Host) build(sc config.SourceConfig) (source.Source, error) {
	switch sc.Type {
	case source.TypeLiveWindow:
		settings, err := liveWindowSettings(sc)
		if err != nil {
			return nil, err
		}
		return source.NewLiveWindow(sc.Name, source.Deps{
			System:   h.deps.System,
			Capture:  h.deps.Capture,
			Graphics: h.gfx,
			Scenes:   h.graph,
		}, settings), nil
	case label.Type:
		settings, err := labelSettings(sc)
		if err != nil {
			return nil, err
		}
		return label.New(sc.Name, settings), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", sc.Type)
	}
}

func liveWindowSettings(sc config.SourceConfig) (source.Settings, error) {
	priority, err := window.ParsePriority(sc.Priority)
	if err != nil {
		return source.Settings{}, err
	}
	return source.Settings{
		Window:        sc.Window,
		Priority:      priority,
		Border:        sc.Border,
		Cursor:        sc.CursorEnabled(),
		Compatibility: sc.Compatibility,
	}, nil
}

func labelSettings(sc config.SourceConfig) (label.Settings, error) {
	s := label.DefaultSettings()
	if sc.Text != "" {
		s.Text = sc.Text
	}
	if sc.Color != "" {
		c, err := label.ParseColor(sc.Color)
		if err != nil {
			return s, err
		}
		s.Color = c
	}
	if sc.Background != "" {
		c, err := label.ParseColor(sc.Background)
		if err != nil {
			return s, err
		}
		s.Background = &c
	}
	if sc.Opacity != nil {
		s.Opacity = *sc.Opacity
	}
	return s, nil
}

func (h *Host) addSourceLocked(sc config.SourceConfig) error {
	if _, ok := h.sources[sc.Name]; ok {
		return fmt.Errorf("%w: %s", ErrSourceExists, sc.Name)
	}
	src, err := h.build(sc)
	if err != nil {
		return err
	}
	h.sources[sc.Name] = src
	h.order = append(h.order, sc.Name)
	return nil
}

// dropSourceLocked closes a source and forgets it. Scene items are untouched.
func (h *Host) dropSourceLocked(name string) {
	if src, ok := h.sources[name]; ok {
		src.Close()
		delete(h.sources, name)
	}
	h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == name })
}

// AddSource creates a source and places it on top of the active scene
func (h *Host) AddSource(sc config.SourceConfig, item config.ItemConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.addSourceLocked(sc); err != nil {
		return err
	}
	if active, ok := h.graph.ActiveScene(); ok {
		if _, err := h.graph.AddItem(active, sc.Name, sc.Type, image.Pt(item.X, item.Y)); err != nil {
			h.dropSourceLocked(sc.Name)
			return err
		}
	}
	h.log.Info().Str("source", sc.Name).Str("type", sc.Type).Msg("Source added")
	return nil
}

// UpdateSource applies new settings. Live window sources drop their
// current window and match again.
func (h *Host) UpdateSource(sc config.SourceConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	src, ok := h.sources[sc.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, sc.Name)
	}
	if src.Type() != sc.Type {
		return fmt.Errorf("cannot change type of %s from %s to %s", sc.Name, src.Type(), sc.Type)
	}

	switch s := src.(type) {
	case *source.LiveWindow:
		settings, err := liveWindowSettings(sc)
		if err != nil {
			return err
		}
		s.Update(settings)
	case *label.Label:
		settings, err := labelSettings(sc)
		if err != nil {
			return err
		}
		s.Update(settings)
	}
	h.log.Info().Str("source", sc.Name).Msg("Source updated")
	return nil
}

// RemoveSource closes a source and removes its scene items
func (h *Host) RemoveSource(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sources[name]; !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	h.graph.RemoveSource(name)
	h.dropSourceLocked(name)

	h.log.Info().Str("source", name).Msg("Source removed")
	return nil
}

// SetActiveScene switches which scene is composed
func (h *Host) SetActiveScene(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.graph.SetActiveScene(name)
}

// Scenes describes every scene
func (h *Host) Scenes() []SceneView {
	active, _ := h.graph.ActiveScene()
	var views []SceneView
	for _, name := range h.graph.Scenes() {
		items := h.graph.Snapshot(name)
		if items == nil {
			items = []scene.Item{}
		}
		views = append(views, SceneView{Name: name, Active: name == active, Items: items})
	}
	return views
}

// Frame runs one tick of every source and composes the active scene
func (h *Host) Frame(elapsed time.Duration) *image.RGBA {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range h.order {
		h.sources[name].Tick(elapsed)
	}

	h.compose()
	h.publish()
	return h.canvas
}

func (h *Host) compose() {
	g := h.gfx.Enter()
	defer g.Leave()

	draw.Draw(h.canvas, h.canvas.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)

	active, ok := h.graph.ActiveScene()
	if !ok {
		return
	}
	for _, item := range h.graph.Items(active) {
		if !item.Visible {
			continue
		}
		if src, ok := h.sources[item.Source]; ok {
			src.Render(g, h.canvas, item.Pos)
		}
	}
}

// Run drives frames at the configured rate until ctx is done
func (h *Host) Run(ctx context.Context) error {
	if h.deps.Output != nil {
		if err := h.deps.Output.Start(); err != nil {
			return err
		}
		defer h.deps.Output.Stop()
	}

	ticker := time.NewTicker(time.Second / time.Duration(h.fps))
	defer ticker.Stop()

	h.log.Info().Int("fps", h.fps).Msg("Frame loop started")
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Frame loop stopped")
			return nil
		case now := <-ticker.C:
			frame := h.Frame(now.Sub(last))
			last = now
			if h.deps.Output != nil {
				if err := h.deps.Output.WriteFrame(frame); err != nil {
					h.log.Debug().Err(err).Msg("Failed to write frame")
				}
			}
		}
	}
}

// Close releases every source
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range h.order {
		h.sources[name].Close()
	}
}
