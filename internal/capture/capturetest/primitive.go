// Package capturetest provides a capture.Primitive that fills surfaces with
// a solid color instead of reading a window system.
package capturetest

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/bryanchriswhite/livewindow/internal/capture"
	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"golang.org/x/image/draw"
)

// ErrInjected is returned by Capture after FailNext
var ErrInjected = errors.New("injected capture failure")

// Primitive records every call it receives
type Primitive struct {
	mu sync.Mutex

	// Color written on each capture
	Fill color.RGBA

	// When set, every call asserts the context is held
	Context *gfx.Context

	inits, captures, frees int
	unguarded              int
	failNext               bool
	lastInit               window.Rect
	lastCursorHidden       bool
}

var _ capture.Primitive = (*Primitive)(nil)

// New returns a primitive that paints opaque white
func New() *Primitive {
	return &Primitive{Fill: color.RGBA{R: 255, G: 255, B: 255, A: 255}}
}

// FailNext makes the next Capture return ErrInjected
func (p *Primitive) FailNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

func (p *Primitive) Init(rect window.Rect, opts capture.Options) (*capture.Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkGuard()
	s, err := capture.NewSurface(rect, opts)
	if err != nil {
		return nil, err
	}
	p.inits++
	p.lastInit = rect
	return s, nil
}

func (p *Primitive) Capture(s *capture.Surface, _ window.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkGuard()
	p.captures++
	p.lastCursorHidden = s.CursorHidden
	if p.failNext {
		p.failNext = false
		return ErrInjected
	}
	draw.Draw(s.Image, s.Image.Bounds(), image.NewUniform(p.Fill), image.Point{}, draw.Src)
	return nil
}

func (p *Primitive) Free(s *capture.Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkGuard()
	p.frees++
	s.Valid = false
	s.Image = nil
}

func (p *Primitive) checkGuard() {
	if p.Context != nil && !p.Context.Held() {
		p.unguarded++
	}
}

// Inits counts surfaces created
func (p *Primitive) Inits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inits
}

// Captures counts pixel copies attempted
func (p *Primitive) Captures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captures
}

// Frees counts surfaces released
func (p *Primitive) Frees() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frees
}

// Unguarded counts calls made without the graphics context held
func (p *Primitive) Unguarded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unguarded
}

// LastInit returns the rect of the most recent Init
func (p *Primitive) LastInit() window.Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastInit
}

// LastCursorHidden reports the surface's cursor state at the last Capture
func (p *Primitive) LastCursorHidden() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCursorHidden
}
