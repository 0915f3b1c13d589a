package window

import (
	"encoding/binary"
	"fmt"
	"image"
	"iter"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/shirou/gopsutil/v3/process"
)

// ICCCM WM_STATE value for iconified windows
const wmStateIconic = 3

// X11System implements System over an X11 connection using EWMH hints
type X11System struct {
	conn   *xgb.Conn
	root   xproto.Window
	atomMu sync.Mutex
	atoms  map[string]xproto.Atom
}

var _ System = (*X11System)(nil)

// NewX11System connects to the X server named by $DISPLAY
func NewX11System() (*X11System, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	return &X11System{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
	}, nil
}

// Close closes the X11 connection
func (s *X11System) Close() error {
	s.conn.Close()
	return nil
}

// Windows enumerates client windows from _NET_CLIENT_LIST, falling back to
// the root window's children when the window manager does not publish it
func (s *X11System) Windows(excludeMinimized bool) iter.Seq[Info] {
	return func(yield func(Info) bool) {
		log := logger.WithComponent("x11-system")

		ids, err := s.clientList()
		if err != nil || len(ids) == 0 {
			log.Debug().Err(err).Msg("EWMH client list unavailable, falling back to QueryTree")
			tree, err := xproto.QueryTree(s.conn, s.root).Reply()
			if err != nil {
				log.Warn().Err(err).Msg("QueryTree failed")
				return
			}
			ids = tree.Children
		}

		for _, win := range ids {
			info, err := s.info(win)
			if err != nil {
				// Closed between listing and inspection
				continue
			}
			if info.Title == "" && info.Class == "" {
				continue
			}
			if excludeMinimized && info.Minimized {
				continue
			}
			if !yield(info) {
				return
			}
		}
	}
}

func (s *X11System) clientList() ([]xproto.Window, error) {
	values, err := s.cardinals(s.root, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	ids := make([]xproto.Window, len(values))
	for i, v := range values {
		ids[i] = xproto.Window(v)
	}
	return ids, nil
}

func (s *X11System) info(win xproto.Window) (Info, error) {
	if _, err := xproto.GetWindowAttributes(s.conn, win).Reply(); err != nil {
		return Info{}, err
	}

	info := Info{Handle: Handle(win)}

	if title, err := s.stringProperty(win, "_NET_WM_NAME"); err == nil {
		info.Title = title
	}
	if info.Title == "" {
		if title, err := s.stringProperty(win, "WM_NAME"); err == nil {
			info.Title = title
		}
	}

	// WM_CLASS is instance\0class\0
	if raw, err := s.stringProperty(win, "WM_CLASS"); err == nil {
		parts := strings.Split(raw, "\x00")
		if len(parts) >= 2 && parts[1] != "" {
			info.Class = parts[1]
		} else if len(parts) >= 1 {
			info.Class = parts[0]
		}
	}

	if pid, ok := s.ProcessID(Handle(win)); ok {
		info.PID = pid
		info.Executable = executableName(pid)
	}

	info.Minimized = s.IsIconic(Handle(win))
	return info, nil
}

func executableName(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}

// ClientRect returns the window's drawable area with a 0,0 origin
func (s *X11System) ClientRect(h Handle) (Rect, error) {
	geom, err := xproto.GetGeometry(s.conn, xproto.Drawable(h)).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	return Rect{Right: int(geom.Width), Bottom: int(geom.Height)}, nil
}

// ExtendedFrameBounds grows the client area by _NET_FRAME_EXTENTS, in
// screen coordinates
func (s *X11System) ExtendedFrameBounds(h Handle) (Rect, error) {
	client, err := s.ClientRect(h)
	if err != nil {
		return Rect{}, err
	}
	origin, err := s.clientOrigin(h)
	if err != nil {
		return Rect{}, err
	}
	bounds := client.Translate(origin.X, origin.Y)

	// left, right, top, bottom
	if ext, err := s.cardinals(xproto.Window(h), "_NET_FRAME_EXTENTS"); err == nil && len(ext) == 4 {
		bounds.Left -= int(ext[0])
		bounds.Right += int(ext[1])
		bounds.Top -= int(ext[2])
		bounds.Bottom += int(ext[3])
	}
	return bounds, nil
}

// WindowRect returns the outer window rectangle. X11 frames carry no
// invisible shadow margin, so this equals the extended frame bounds.
func (s *X11System) WindowRect(h Handle) (Rect, error) {
	return s.ExtendedFrameBounds(h)
}

func (s *X11System) clientOrigin(h Handle) (image.Point, error) {
	reply, err := xproto.TranslateCoordinates(s.conn, xproto.Window(h), s.root, 0, 0).Reply()
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	return image.Pt(int(reply.DstX), int(reply.DstY)), nil
}

// ScreenToClient translates a root-relative point into h's coordinates
func (s *X11System) ScreenToClient(h Handle, p image.Point) (image.Point, error) {
	reply, err := xproto.TranslateCoordinates(s.conn, s.root, xproto.Window(h), int16(p.X), int16(p.Y)).Reply()
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	return image.Pt(int(reply.DstX), int(reply.DstY)), nil
}

// IsValid reports whether the server still knows the window
func (s *X11System) IsValid(h Handle) bool {
	if !h.Valid() {
		return false
	}
	_, err := xproto.GetWindowAttributes(s.conn, xproto.Window(h)).Reply()
	return err == nil
}

// IsIconic checks _NET_WM_STATE_HIDDEN, then the ICCCM WM_STATE
func (s *X11System) IsIconic(h Handle) bool {
	if states, err := s.cardinals(xproto.Window(h), "_NET_WM_STATE"); err == nil {
		hidden, err := s.atom("_NET_WM_STATE_HIDDEN")
		if err == nil {
			for _, st := range states {
				if xproto.Atom(st) == hidden {
					return true
				}
			}
		}
	}
	if st, err := s.cardinals(xproto.Window(h), "WM_STATE"); err == nil && len(st) > 0 {
		return st[0] == wmStateIconic
	}
	return false
}

// ProcessID reads _NET_WM_PID
func (s *X11System) ProcessID(h Handle) (int, bool) {
	values, err := s.cardinals(xproto.Window(h), "_NET_WM_PID")
	if err != nil || len(values) == 0 || values[0] == 0 {
		return 0, false
	}
	return int(values[0]), true
}

// Foreground reads _NET_ACTIVE_WINDOW from the root window
func (s *X11System) Foreground() (Handle, bool) {
	values, err := s.cardinals(s.root, "_NET_ACTIVE_WINDOW")
	if err != nil || len(values) == 0 || values[0] == 0 {
		return 0, false
	}
	return Handle(values[0]), true
}

// atom interns name once per connection
func (s *X11System) atom(name string) (xproto.Atom, error) {
	s.atomMu.Lock()
	defer s.atomMu.Unlock()

	if a, ok := s.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	s.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (s *X11System) property(win xproto.Window, name string) (*xproto.GetPropertyReply, error) {
	atom, err := s.atom(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(
		s.conn,
		false,
		win,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, err
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("property %s is empty", name)
	}
	return reply, nil
}

func (s *X11System) stringProperty(win xproto.Window, name string) (string, error) {
	reply, err := s.property(win, name)
	if err != nil {
		return "", err
	}
	return string(reply.Value), nil
}

// cardinals decodes a format-32 property into its values
func (s *X11System) cardinals(win xproto.Window, name string) ([]uint32, error) {
	reply, err := s.property(win, name)
	if err != nil {
		return nil, err
	}
	if reply.Format != 32 {
		return nil, fmt.Errorf("property %s has format %d, want 32", name, reply.Format)
	}
	values := make([]uint32, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		values = append(values, binary.LittleEndian.Uint32(reply.Value[i:]))
	}
	return values, nil
}
