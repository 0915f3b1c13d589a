package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/bryanchriswhite/livewindow/internal/window"
)

// ErrCaptureFailed is returned when a pixel copy from the window fails
var ErrCaptureFailed = errors.New("window capture failed")

// Options controls how a surface copies pixels
type Options struct {
	// ShowCursor draws the pointer into the surface when it is over the window
	ShowCursor bool

	// Compatibility copies from the composed screen instead of the window's
	// own buffer. Slower, but works for windows that do not render offscreen.
	Compatibility bool
}

// Surface is an offscreen buffer sized to the captured rectangle
type Surface struct {
	// Captured area in the window's client coordinates. With border capture
	// enabled its origin is negative.
	Rect window.Rect

	Width  int
	Height int

	ShowCursor    bool
	CursorHidden  bool
	Compatibility bool

	Valid bool
	Image *image.RGBA
}

// NewSurface allocates a surface for rect. Width and height must be positive.
func NewSurface(rect window.Rect, opts Options) (*Surface, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("cannot create %dx%d surface", rect.Width(), rect.Height())
	}
	return &Surface{
		Rect:          rect,
		Width:         rect.Width(),
		Height:        rect.Height(),
		ShowCursor:    opts.ShowCursor,
		Compatibility: opts.Compatibility,
		Valid:         true,
		Image:         image.NewRGBA(image.Rect(0, 0, rect.Width(), rect.Height())),
	}, nil
}

// Primitive is the low-level pixel copy machinery. Callers hold the
// graphics context for every call.
type Primitive interface {
	Init(rect window.Rect, opts Options) (*Surface, error)
	Capture(s *Surface, h window.Handle) error
	Free(s *Surface)
}

// TargetRect returns the rectangle to capture for h. Without border capture
// this is the client rectangle; with it, the extended frame bounds mapped
// into client coordinates.
func TargetRect(sys window.System, h window.Handle, client window.Rect, border bool) (window.Rect, error) {
	if !border {
		return client, nil
	}

	frame, err := sys.ExtendedFrameBounds(h)
	if err != nil {
		return window.Rect{}, err
	}
	topLeft, err := sys.ScreenToClient(h, image.Pt(frame.Left, frame.Top))
	if err != nil {
		return window.Rect{}, err
	}
	bottomRight, err := sys.ScreenToClient(h, image.Pt(frame.Right, frame.Bottom))
	if err != nil {
		return window.Rect{}, err
	}
	return window.Rect{
		Left:   topLeft.X,
		Top:    topLeft.Y,
		Right:  bottomRight.X,
		Bottom: bottomRight.Y,
	}, nil
}
