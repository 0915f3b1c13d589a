package window

import (
	"errors"
	"fmt"
	"image"
	"iter"
)

var (
	// ErrNoWindow is returned when no top-level window matches an identity
	ErrNoWindow = errors.New("no matching window")

	// ErrInvalidWindow is returned when a handle no longer refers to a live window
	ErrInvalidWindow = errors.New("window handle is no longer valid")
)

// Handle is an opaque reference to a live top-level window. The zero value
// refers to no window. Holding a Handle does not keep the window alive.
type Handle uint32

// Valid reports whether h is non-zero. It says nothing about whether the
// window still exists; ask the System for that.
func (h Handle) Valid() bool {
	return h != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uint32(h))
}

// Rect is an edge-based rectangle, matching the layout window systems report
// client and frame areas in.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent of r
func (r Rect) Width() int {
	return r.Right - r.Left
}

// Height returns the vertical extent of r
func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Empty reports whether r has no area
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Min returns the top-left corner
func (r Rect) Min() image.Point {
	return image.Pt(r.Left, r.Top)
}

// Translate returns r shifted by (dx, dy)
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// Info describes one top-level window as seen during enumeration
type Info struct {
	Handle     Handle `json:"handle"`
	Title      string `json:"title"`
	Class      string `json:"class"`
	Executable string `json:"executable"`
	PID        int    `json:"pid"`
	Minimized  bool   `json:"minimized"`
}

// System is the window-system surface the capture engine polls. All methods
// must return promptly; a window that vanishes mid-call is reported as an
// error or a false result, never a panic.
type System interface {
	// Windows lazily enumerates top-level windows. Windows whose attributes
	// cannot be read are skipped.
	Windows(excludeMinimized bool) iter.Seq[Info]

	// ClientRect returns the drawable area in client coordinates (origin 0,0)
	ClientRect(h Handle) (Rect, error)

	// ExtendedFrameBounds returns the outer bounds including decorations, in
	// screen coordinates
	ExtendedFrameBounds(h Handle) (Rect, error)

	// WindowRect returns the outer window rectangle in screen coordinates
	WindowRect(h Handle) (Rect, error)

	// ScreenToClient converts a screen point into h's client coordinates
	ScreenToClient(h Handle, p image.Point) (image.Point, error)

	IsValid(h Handle) bool
	IsIconic(h Handle) bool

	// ProcessID returns the owning process, false when it cannot be determined
	ProcessID(h Handle) (int, bool)

	// Foreground returns the window holding input focus
	Foreground() (Handle, bool)
}
