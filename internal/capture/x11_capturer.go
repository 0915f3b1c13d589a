package capture

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/window"
)

// X11Capturer copies window pixels using X11/XWayland
type X11Capturer struct {
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	xfixesEnabled    bool
	mu               sync.Mutex
}

var _ Primitive = (*X11Capturer)(nil)

// NewX11Capturer connects to the X server and probes the Composite and
// XFixes extensions. Missing extensions degrade capture, they do not fail it.
func NewX11Capturer() (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	c := &X11Capturer{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}

	log := logger.WithComponent("x11-capturer")

	if err := composite.Init(conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - obscured windows will capture what covers them")
	} else {
		c.compositeEnabled = true
	}

	if err := xfixes.Init(conn); err != nil {
		log.Warn().Err(err).Msg("XFixes extension not available - cursor will not be drawn")
	} else if _, err := xfixes.QueryVersion(conn, 4, 0).Reply(); err != nil {
		log.Warn().Err(err).Msg("XFixes version negotiation failed - cursor will not be drawn")
	} else {
		c.xfixesEnabled = true
	}

	log.Info().
		Bool("composite", c.compositeEnabled).
		Bool("xfixes", c.xfixesEnabled).
		Uint8("depth", c.screen.RootDepth).
		Msg("X11 capturer initialized")

	return c, nil
}

// Close closes the X11 connection
func (c *X11Capturer) Close() error {
	c.conn.Close()
	return nil
}

// Init allocates a surface for rect
func (c *X11Capturer) Init(rect window.Rect, opts Options) (*Surface, error) {
	return NewSurface(rect, opts)
}

// Free releases the surface's pixel buffer
func (c *X11Capturer) Free(s *Surface) {
	if s == nil {
		return
	}
	s.Valid = false
	s.Image = nil
}

// Capture copies the window's current pixels into s
func (c *X11Capturer) Capture(s *Surface, h window.Handle) error {
	if s == nil || !s.Valid {
		return fmt.Errorf("%w: surface not initialized", ErrCaptureFailed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	win := xproto.Window(h)

	// Screen position of the captured rectangle's origin
	origin, err := xproto.TranslateCoordinates(c.conn, win, c.root, int16(s.Rect.Left), int16(s.Rect.Top)).Reply()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	var data []byte
	if s.Compatibility || !c.compositeEnabled || c.extendsPastClient(win, s.Rect) {
		data, err = c.copyRegion(xproto.Drawable(c.root), origin.DstX, origin.DstY, s.Width, s.Height)
	} else {
		data, err = c.copyComposited(win, s)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	c.convertImageData(data, s)

	if s.ShowCursor && !s.CursorHidden && c.xfixesEnabled {
		c.drawCursor(s, int(origin.DstX), int(origin.DstY))
	}
	return nil
}

// extendsPastClient reports whether rect reaches into the window manager's
// frame, which is not part of the client window's own buffer.
func (c *X11Capturer) extendsPastClient(win xproto.Window, rect window.Rect) bool {
	if rect.Left < 0 || rect.Top < 0 {
		return true
	}
	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return true
	}
	return rect.Right > int(geom.Width) || rect.Bottom > int(geom.Height)
}

// copyComposited reads from the window's offscreen pixmap so overlapping
// windows do not bleed into the capture
func (c *X11Capturer) copyComposited(win xproto.Window, s *Surface) ([]byte, error) {
	log := logger.WithComponent("x11-capturer")

	if err := composite.RedirectWindowChecked(c.conn, win, composite.RedirectAutomatic).Check(); err != nil {
		log.Debug().
			Err(err).
			Uint32("window_id", uint32(win)).
			Msg("Composite redirect failed, reading window directly")
		return c.copyRegion(xproto.Drawable(win), int16(s.Rect.Left), int16(s.Rect.Top), s.Width, s.Height)
	}
	defer composite.UnredirectWindow(c.conn, win, composite.RedirectAutomatic)

	pixmap, err := xproto.NewPixmapId(c.conn)
	if err != nil {
		return c.copyRegion(xproto.Drawable(win), int16(s.Rect.Left), int16(s.Rect.Top), s.Width, s.Height)
	}
	if err := composite.NameWindowPixmapChecked(c.conn, win, pixmap).Check(); err != nil {
		return c.copyRegion(xproto.Drawable(win), int16(s.Rect.Left), int16(s.Rect.Top), s.Width, s.Height)
	}
	defer xproto.FreePixmap(c.conn, pixmap)

	return c.copyRegion(xproto.Drawable(pixmap), int16(s.Rect.Left), int16(s.Rect.Top), s.Width, s.Height)
}

func (c *X11Capturer) copyRegion(d xproto.Drawable, x, y int16, width, height int) ([]byte, error) {
	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		d,
		x, y,
		uint16(width), uint16(height),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return reply.Data, nil
}

// convertImageData converts BGRX server data into the surface's RGBA buffer
func (c *X11Capturer) convertImageData(data []byte, s *Surface) {
	depth := int(c.screen.RootDepth)
	if depth != 24 && depth != 32 {
		return
	}

	pix := s.Image.Pix
	n := min(len(data), len(pix))
	for i := 0; i+3 < n; i += 4 {
		pix[i] = data[i+2]
		pix[i+1] = data[i+1]
		pix[i+2] = data[i]
		pix[i+3] = 255
	}
}

// drawCursor blends the current pointer image over s. originX/originY is
// the screen position of the surface's top-left pixel.
func (c *X11Capturer) drawCursor(s *Surface, originX, originY int) {
	cur, err := xfixes.GetCursorImage(c.conn).Reply()
	if err != nil {
		return
	}

	left := int(cur.X) - int(cur.Xhot) - originX
	top := int(cur.Y) - int(cur.Yhot) - originY
	w, h := int(cur.Width), int(cur.Height)

	for cy := 0; cy < h; cy++ {
		dy := top + cy
		if dy < 0 || dy >= s.Height {
			continue
		}
		for cx := 0; cx < w; cx++ {
			dx := left + cx
			if dx < 0 || dx >= s.Width {
				continue
			}
			idx := cy*w + cx
			if idx >= len(cur.CursorImage) {
				return
			}
			blendARGB(s, dx, dy, cur.CursorImage[idx])
		}
	}
}

// blendARGB composites one premultiplied ARGB pixel onto s
func blendARGB(s *Surface, x, y int, argb uint32) {
	a := argb >> 24
	if a == 0 {
		return
	}
	r := (argb >> 16) & 0xff
	g := (argb >> 8) & 0xff
	b := argb & 0xff

	i := s.Image.PixOffset(x, y)
	pix := s.Image.Pix
	inv := 255 - a
	pix[i] = uint8(r + uint32(pix[i])*inv/255)
	pix[i+1] = uint8(g + uint32(pix[i+1])*inv/255)
	pix[i+2] = uint8(b + uint32(pix[i+2])*inv/255)
	pix[i+3] = 255
}
