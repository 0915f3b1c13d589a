// Package windowtest provides an in-memory window.System for tests.
package windowtest

import (
	"image"
	"iter"
	"sync"

	"github.com/bryanchriswhite/livewindow/internal/window"
)

// Window is one simulated top-level window
type Window struct {
	Handle     window.Handle
	Title      string
	Class      string
	Executable string
	PID        int

	// Size of the client area
	Width, Height int

	// Screen position of the client area's top-left corner
	Origin image.Point

	// Decoration thickness on every side
	FrameMargin int

	Iconic bool
}

func (w *Window) info() window.Info {
	return window.Info{
		Handle:     w.Handle,
		Title:      w.Title,
		Class:      w.Class,
		Executable: w.Executable,
		PID:        w.PID,
		Minimized:  w.Iconic,
	}
}

func (w *Window) frame() window.Rect {
	return window.Rect{
		Left:   w.Origin.X - w.FrameMargin,
		Top:    w.Origin.Y - w.FrameMargin,
		Right:  w.Origin.X + w.Width + w.FrameMargin,
		Bottom: w.Origin.Y + w.Height + w.FrameMargin,
	}
}

// System is a mutable window.System. The zero value is not usable; call New.
type System struct {
	mu           sync.Mutex
	windows      []*Window
	next         window.Handle
	foreground   window.Handle
	enumerations int
}

var _ window.System = (*System)(nil)

// New returns an empty system
func New() *System {
	return &System{next: 0x100}
}

// Add registers w and returns its handle, assigning one when unset
func (s *System) Add(w Window) window.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.Handle == 0 {
		s.next++
		w.Handle = s.next
	}
	s.windows = append(s.windows, &w)
	return w.Handle
}

// Remove closes the window
func (s *System) Remove(h window.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.windows {
		if w.Handle == h {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			break
		}
	}
	if s.foreground == h {
		s.foreground = 0
	}
}

// Move places the client area's top-left corner at (x, y)
func (s *System) Move(h window.Handle, x, y int) {
	s.update(h, func(w *Window) { w.Origin = image.Pt(x, y) })
}

// Resize changes the client area size
func (s *System) Resize(h window.Handle, width, height int) {
	s.update(h, func(w *Window) { w.Width, w.Height = width, height })
}

// SetIconic minimizes or restores the window
func (s *System) SetIconic(h window.Handle, iconic bool) {
	s.update(h, func(w *Window) { w.Iconic = iconic })
}

// SetForeground gives h input focus; zero clears it
func (s *System) SetForeground(h window.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foreground = h
}

// Enumerations counts calls to Windows
func (s *System) Enumerations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enumerations
}

func (s *System) update(h window.Handle, fn func(*Window)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.find(h); w != nil {
		fn(w)
	}
}

func (s *System) find(h window.Handle) *Window {
	for _, w := range s.windows {
		if w.Handle == h {
			return w
		}
	}
	return nil
}

func (s *System) Windows(excludeMinimized bool) iter.Seq[window.Info] {
	s.mu.Lock()
	s.enumerations++
	infos := make([]window.Info, 0, len(s.windows))
	for _, w := range s.windows {
		if excludeMinimized && w.Iconic {
			continue
		}
		infos = append(infos, w.info())
	}
	s.mu.Unlock()

	return func(yield func(window.Info) bool) {
		for _, info := range infos {
			if !yield(info) {
				return
			}
		}
	}
}

func (s *System) ClientRect(h window.Handle) (window.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.find(h)
	if w == nil {
		return window.Rect{}, window.ErrInvalidWindow
	}
	return window.Rect{Right: w.Width, Bottom: w.Height}, nil
}

func (s *System) ExtendedFrameBounds(h window.Handle) (window.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.find(h)
	if w == nil {
		return window.Rect{}, window.ErrInvalidWindow
	}
	return w.frame(), nil
}

func (s *System) WindowRect(h window.Handle) (window.Rect, error) {
	return s.ExtendedFrameBounds(h)
}

func (s *System) ScreenToClient(h window.Handle, p image.Point) (image.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.find(h)
	if w == nil {
		return image.Point{}, window.ErrInvalidWindow
	}
	return p.Sub(w.Origin), nil
}

func (s *System) IsValid(h window.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(h) != nil
}

func (s *System) IsIconic(h window.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.find(h)
	return w != nil && w.Iconic
}

func (s *System) ProcessID(h window.Handle) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.find(h)
	if w == nil || w.PID == 0 {
		return 0, false
	}
	return w.PID, true
}

func (s *System) Foreground() (window.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground, s.foreground != 0
}
