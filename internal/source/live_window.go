package source

import (
	"image"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/capture"
	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// TypeLiveWindow identifies live window capture sources
const TypeLiveWindow = "live_window_capture"

const (
	// SearchInterval bounds how often an untracked source enumerates windows
	SearchInterval = time.Second

	// CursorCheckInterval is how often cursor ownership is re-evaluated
	CursorCheckInterval = 200 * time.Millisecond
)

// State is the tracking state of a live window source
type State int

const (
	StateUnbound State = iota
	StateSearching
	StateTracking
	StateMinimized
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateTracking:
		return "tracking"
	case StateMinimized:
		return "minimized"
	default:
		return "unbound"
	}
}

// Settings are the user options of a live window source
type Settings struct {
	// Window is an identity descriptor, title:class:executable
	Window        string
	Priority      window.Priority
	Border        bool
	Cursor        bool
	Compatibility bool
}

// DefaultSettings returns the options a new source starts with
func DefaultSettings() Settings {
	return Settings{Cursor: true}
}

// Deps are the collaborators a live window source polls and draws with
type Deps struct {
	System   window.System
	Capture  capture.Primitive
	Graphics *gfx.Context
	Scenes   Scenes
}

// LiveWindow captures one top-level window, following it across restarts,
// minimize and resize, and keeps its scene items on top of the window's
// screen position.
type LiveWindow struct {
	name     string
	sys      window.System
	matcher  *window.Matcher
	gfx      *gfx.Context
	scenes   Scenes
	surfaces *capture.Manager

	settings Settings
	identity window.Identity
	handle   window.Handle
	state    State

	// Set when tracking (re)acquires a window
	forceReset bool

	searchTimer time.Duration
	cursorTimer time.Duration

	// Last screen position applied to scene items
	lastPos image.Point

	log zerolog.Logger
}

var _ Source = (*LiveWindow)(nil)

// NewLiveWindow creates a source tracking the window described by settings
func NewLiveWindow(name string, deps Deps, settings Settings) *LiveWindow {
	lw := &LiveWindow{
		name:     name,
		sys:      deps.System,
		matcher:  window.NewMatcher(deps.System),
		gfx:      deps.Graphics,
		scenes:   deps.Scenes,
		surfaces: capture.NewManager(deps.Capture, name),
		lastPos:  image.Pt(-1, -1),
		log:      *logger.WithSource(name),
	}
	lw.Update(settings)
	return lw
}

func (lw *LiveWindow) Name() string {
	return lw.name
}

func (lw *LiveWindow) Type() string {
	return TypeLiveWindow
}

// State returns the current tracking state
func (lw *LiveWindow) State() State {
	return lw.state
}

// Handle returns the tracked window, zero when untracked
func (lw *LiveWindow) Handle() window.Handle {
	return lw.handle
}

// Settings returns the active options
func (lw *LiveWindow) Settings() Settings {
	return lw.settings
}

// Update applies new options. The window is matched again from scratch and
// the surface rebuilt once it is found.
func (lw *LiveWindow) Update(settings Settings) {
	lw.settings = settings
	lw.identity = window.ParseIdentity(settings.Window, settings.Priority)
	lw.handle = 0
	lw.setState(StateUnbound)

	lw.log.Debug().
		Str("window", settings.Window).
		Stringer("priority", settings.Priority).
		Bool("border", settings.Border).
		Bool("cursor", settings.Cursor).
		Bool("compatibility", settings.Compatibility).
		Msg("Settings updated")
}

// Tick runs one scheduling step. Nothing happens while no visible item of
// the active scene shows this source.
func (lw *LiveWindow) Tick(elapsed time.Duration) {
	if !lw.scenes.IsShowing(lw.name) {
		return
	}

	switch {
	case !lw.handle.Valid():
		if !lw.search(elapsed) {
			return
		}
	case !lw.sys.IsValid(lw.handle):
		lw.log.Info().Stringer("handle", lw.handle).Msg("Tracked window closed")
		lw.handle = 0
		lw.release()
		lw.setState(StateUnbound)
		return
	case lw.sys.IsIconic(lw.handle):
		lw.release()
		lw.setState(StateMinimized)
		return
	default:
		lw.setState(StateTracking)
		lw.synchronize()
	}

	lw.updateCursor(elapsed)
	lw.refresh(elapsed)
}

// search resolves the identity at most once per SearchInterval and reports
// whether a window is now tracked
func (lw *LiveWindow) search(elapsed time.Duration) bool {
	if !lw.identity.Trackable() {
		lw.release()
		return false
	}

	lw.searchTimer += elapsed
	if lw.searchTimer < SearchInterval {
		lw.release()
		return false
	}
	lw.searchTimer = 0

	h, err := lw.matcher.Resolve(lw.identity, true)
	if err != nil {
		lw.release()
		lw.setState(StateSearching)
		return false
	}

	lw.log.Info().
		Stringer("handle", h).
		Str("window", lw.identity.String()).
		Msg("Window found")
	lw.handle = h
	lw.forceReset = true
	lw.setState(StateTracking)
	return true
}

// updateCursor hides the cursor while another process owns the foreground
func (lw *LiveWindow) updateCursor(elapsed time.Duration) {
	lw.cursorTimer += elapsed
	if lw.cursorTimer < CursorCheckInterval {
		return
	}
	lw.cursorTimer = 0

	hide := false
	if fg, ok := lw.sys.Foreground(); ok {
		fgPID, fgOK := lw.sys.ProcessID(fg)
		ownPID, ownOK := lw.sys.ProcessID(lw.handle)
		hide = fgOK && ownOK && fgPID != ownPID
	}
	if hide != lw.surfaces.CursorHidden() {
		lw.log.Debug().Bool("hidden", hide).Msg("Cursor visibility changed")
		lw.surfaces.SetCursorHidden(hide)
	}
}

// refresh rebuilds the surface when needed and copies the window's pixels
func (lw *LiveWindow) refresh(elapsed time.Duration) {
	g := lw.gfx.Enter()
	defer g.Leave()

	client, err := lw.sys.ClientRect(lw.handle)
	if err != nil {
		return
	}

	if lw.surfaces.ShouldReset(client, elapsed, lw.forceReset) {
		target, err := capture.TargetRect(lw.sys, lw.handle, client, lw.settings.Border)
		if err != nil {
			return
		}
		lw.forceReset = false

		opts := capture.Options{
			ShowCursor:    lw.settings.Cursor,
			Compatibility: lw.settings.Compatibility,
		}
		if _, err := lw.surfaces.Reset(g, client, target, opts); err != nil {
			return
		}
	}

	lw.surfaces.Refresh(g, lw.handle)
}

func (lw *LiveWindow) release() {
	if !lw.surfaces.Valid() {
		return
	}
	g := lw.gfx.Enter()
	defer g.Leave()
	lw.surfaces.Release(g)
}

func (lw *LiveWindow) setState(s State) {
	if lw.state == s {
		return
	}
	lw.log.Info().
		Stringer("from", lw.state).
		Stringer("to", s).
		Msg("State changed")
	lw.state = s
}

// Render draws the last captured frame
func (lw *LiveWindow) Render(g *gfx.Guard, dst draw.Image, at image.Point) {
	lw.surfaces.Draw(g, dst, at)
}

// Size reports the capture surface size, zero while nothing is captured
func (lw *LiveWindow) Size() (int, int) {
	return lw.surfaces.Size()
}

func (lw *LiveWindow) Status() Status {
	w, h := lw.Size()
	st := Status{
		Name:   lw.name,
		Type:   TypeLiveWindow,
		State:  lw.state.String(),
		Window: lw.settings.Window,
		Width:  w,
		Height: h,
	}
	if lw.handle.Valid() {
		st.Handle = lw.handle.String()
	}
	return st
}

// Close frees the surface
func (lw *LiveWindow) Close() {
	g := lw.gfx.Enter()
	defer g.Leave()
	lw.surfaces.Release(g)
	lw.handle = 0
}
