package capture

import (
	"image"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// ResizeCheckInterval is how much tick time passes between size comparisons
const ResizeCheckInterval = 200 * time.Millisecond

// Manager owns at most one live surface for a source and decides when it
// must be rebuilt. Every method that touches the surface takes the guard of
// the graphics context as proof the caller holds it.
type Manager struct {
	prim    Primitive
	surface *Surface

	// Client rect observed at the last reset
	lastRect    window.Rect
	resizeTimer time.Duration

	// Survives resets so a rebuilt surface keeps the current cursor policy
	cursorHidden bool

	resets   int
	releases int

	log zerolog.Logger
}

// NewManager creates a manager drawing surfaces from prim
func NewManager(prim Primitive, source string) *Manager {
	return &Manager{
		prim: prim,
		log:  logger.WithSource(source).With().Str("component", "surface").Logger(),
	}
}

// Surface returns the current surface, nil when none exists
func (m *Manager) Surface() *Surface {
	return m.surface
}

// Valid reports whether a usable surface exists
func (m *Manager) Valid() bool {
	return m.surface != nil && m.surface.Valid
}

// Size returns the surface dimensions, zero without a valid surface
func (m *Manager) Size() (int, int) {
	if !m.Valid() {
		return 0, 0
	}
	return m.surface.Width, m.surface.Height
}

// Resets counts surface rebuilds
func (m *Manager) Resets() int {
	return m.resets
}

// Releases counts surfaces freed
func (m *Manager) Releases() int {
	return m.releases
}

// ShouldReset advances the resize timer by elapsed and reports whether the
// surface must be rebuilt. A forced reset or a missing surface always
// rebuilds. Otherwise the client size is compared only once the timer
// reaches ResizeCheckInterval, after which the timer starts over.
func (m *Manager) ShouldReset(client window.Rect, elapsed time.Duration, force bool) bool {
	if force || !m.Valid() {
		return true
	}

	m.resizeTimer += elapsed
	if m.resizeTimer < ResizeCheckInterval {
		return false
	}
	m.resizeTimer = 0

	return client.Width() != m.lastRect.Width() || client.Height() != m.lastRect.Height()
}

// Reset tears down any existing surface and creates one for target.
// observed is the client rect future size checks compare against.
func (m *Manager) Reset(_ *gfx.Guard, observed, target window.Rect, opts Options) (*Surface, error) {
	m.resizeTimer = 0
	m.lastRect = observed
	m.free()

	s, err := m.prim.Init(target, opts)
	if err != nil {
		m.log.Debug().
			Err(err).
			Int("width", target.Width()).
			Int("height", target.Height()).
			Msg("Surface creation failed")
		return nil, err
	}
	s.CursorHidden = m.cursorHidden
	m.surface = s
	m.resets++

	m.log.Debug().
		Int("width", s.Width).
		Int("height", s.Height).
		Bool("cursor", opts.ShowCursor).
		Bool("compatibility", opts.Compatibility).
		Msg("Surface created")
	return s, nil
}

// Refresh copies the window's pixels into the surface. On failure the
// surface is released and the caller should treat the source as having
// nothing to render.
func (m *Manager) Refresh(_ *gfx.Guard, h window.Handle) error {
	if !m.Valid() {
		return nil
	}
	if err := m.prim.Capture(m.surface, h); err != nil {
		m.log.Debug().Err(err).Stringer("handle", h).Msg("Capture failed, releasing surface")
		m.free()
		return err
	}
	return nil
}

// Release frees the surface if one exists. Releasing twice is a no-op.
func (m *Manager) Release(_ *gfx.Guard) bool {
	return m.free()
}

// SetCursorHidden suppresses or restores cursor drawing on the current and
// future surfaces
func (m *Manager) SetCursorHidden(hidden bool) {
	m.cursorHidden = hidden
	if m.surface != nil {
		m.surface.CursorHidden = hidden
	}
}

// CursorHidden reports the current cursor suppression state
func (m *Manager) CursorHidden() bool {
	return m.cursorHidden
}

// Draw composites the surface onto dst with its top-left at at
func (m *Manager) Draw(_ *gfx.Guard, dst draw.Image, at image.Point) {
	if !m.Valid() || m.surface.Image == nil {
		return
	}
	r := image.Rectangle{Min: at, Max: at.Add(m.surface.Image.Bounds().Size())}
	draw.Draw(dst, r, m.surface.Image, image.Point{}, draw.Over)
}

func (m *Manager) free() bool {
	if m.surface == nil {
		return false
	}
	m.prim.Free(m.surface)
	m.surface = nil
	m.releases++
	return true
}
