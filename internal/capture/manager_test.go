package capture_test

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/capture"
	"github.com/bryanchriswhite/livewindow/internal/capture/capturetest"
	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/bryanchriswhite/livewindow/internal/window/windowtest"
)

func newManager(t *testing.T) (*capture.Manager, *capturetest.Primitive, *gfx.Context) {
	t.Helper()
	ctx := gfx.New()
	prim := capturetest.New()
	prim.Context = ctx
	return capture.NewManager(prim, "test"), prim, ctx
}

func rect(w, h int) window.Rect {
	return window.Rect{Right: w, Bottom: h}
}

func TestShouldResetWithoutSurface(t *testing.T) {
	m, _, _ := newManager(t)
	if !m.ShouldReset(rect(10, 10), 0, false) {
		t.Error("a manager without a surface must reset")
	}
}

func TestShouldResetWaitsForCheckInterval(t *testing.T) {
	m, prim, ctx := newManager(t)
	g := ctx.Enter()
	if _, err := m.Reset(g, rect(100, 100), rect(100, 100), capture.Options{}); err != nil {
		t.Fatal(err)
	}
	g.Leave()

	resized := rect(120, 100)
	if m.ShouldReset(resized, 150*time.Millisecond, false) {
		t.Fatal("size change before the check interval must not reset")
	}
	if !m.ShouldReset(resized, 50*time.Millisecond, false) {
		t.Fatal("size change should be noticed once the interval elapses")
	}

	g = ctx.Enter()
	if _, err := m.Reset(g, resized, resized, capture.Options{}); err != nil {
		t.Fatal(err)
	}
	g.Leave()

	// Same size from here on: no further rebuilds
	for i := 0; i < 20; i++ {
		if m.ShouldReset(resized, 100*time.Millisecond, false) {
			t.Fatalf("unchanged size triggered a reset on check %d", i)
		}
	}
	if m.Resets() != 2 || m.Releases() != 1 {
		t.Errorf("resets=%d releases=%d, want 2 and 1", m.Resets(), m.Releases())
	}
	if prim.Inits() != 2 || prim.Frees() != 1 {
		t.Errorf("inits=%d frees=%d, want 2 and 1", prim.Inits(), prim.Frees())
	}
	if prim.Unguarded() != 0 {
		t.Errorf("%d primitive calls made outside the graphics context", prim.Unguarded())
	}
}

func TestShouldResetIgnoresOriginChange(t *testing.T) {
	m, _, ctx := newManager(t)
	g := ctx.Enter()
	m.Reset(g, rect(100, 100), rect(100, 100), capture.Options{})
	g.Leave()

	moved := window.Rect{Left: 10, Top: 10, Right: 110, Bottom: 110}
	if m.ShouldReset(moved, time.Second, false) {
		t.Error("same width and height must not reset")
	}
}

func TestShouldResetForced(t *testing.T) {
	m, _, ctx := newManager(t)
	g := ctx.Enter()
	m.Reset(g, rect(100, 100), rect(100, 100), capture.Options{})
	g.Leave()

	if !m.ShouldReset(rect(100, 100), 0, true) {
		t.Error("forced reset ignored")
	}
}

func TestResetRejectsEmptyRect(t *testing.T) {
	m, prim, ctx := newManager(t)
	g := ctx.Enter()
	defer g.Leave()

	if _, err := m.Reset(g, rect(0, 0), rect(0, 0), capture.Options{}); err == nil {
		t.Fatal("expected an error for a zero-size surface")
	}
	if m.Valid() {
		t.Error("manager should hold no surface")
	}
	if w, h := m.Size(); w != 0 || h != 0 {
		t.Errorf("Size = %dx%d, want 0x0", w, h)
	}
	if prim.Inits() != 0 || m.Resets() != 0 {
		t.Errorf("inits=%d resets=%d, want 0", prim.Inits(), m.Resets())
	}
}

func TestRefreshFailureReleasesSurface(t *testing.T) {
	m, prim, ctx := newManager(t)
	g := ctx.Enter()
	defer g.Leave()

	m.Reset(g, rect(20, 20), rect(20, 20), capture.Options{ShowCursor: true})
	if err := m.Refresh(g, 0x101); err != nil {
		t.Fatal(err)
	}

	prim.FailNext()
	if err := m.Refresh(g, 0x101); !errors.Is(err, capturetest.ErrInjected) {
		t.Fatalf("Refresh err = %v, want injected failure", err)
	}
	if m.Valid() {
		t.Error("surface should be released after a failed capture")
	}
	if prim.Frees() != 1 {
		t.Errorf("Frees = %d, want 1", prim.Frees())
	}

	// With no surface there is nothing to refresh
	if err := m.Refresh(g, 0x101); err != nil {
		t.Errorf("Refresh without surface: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	m, prim, ctx := newManager(t)
	g := ctx.Enter()
	defer g.Leave()

	m.Reset(g, rect(20, 20), rect(20, 20), capture.Options{})
	if !m.Release(g) {
		t.Error("first Release should free the surface")
	}
	if m.Release(g) {
		t.Error("second Release should be a no-op")
	}
	if prim.Frees() != 1 || m.Releases() != 1 {
		t.Errorf("frees=%d releases=%d, want 1", prim.Frees(), m.Releases())
	}
}

func TestCursorHiddenSurvivesReset(t *testing.T) {
	m, prim, ctx := newManager(t)
	g := ctx.Enter()
	defer g.Leave()

	m.Reset(g, rect(20, 20), rect(20, 20), capture.Options{ShowCursor: true})
	m.SetCursorHidden(true)
	m.Reset(g, rect(30, 30), rect(30, 30), capture.Options{ShowCursor: true})
	m.Refresh(g, 0x101)

	if !m.Surface().CursorHidden || !prim.LastCursorHidden() {
		t.Error("rebuilt surface lost the hidden cursor state")
	}
}

func TestDrawCompositesSurface(t *testing.T) {
	m, _, ctx := newManager(t)
	g := ctx.Enter()
	defer g.Leave()

	m.Reset(g, rect(4, 4), rect(4, 4), capture.Options{})
	m.Refresh(g, 0x101)

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	m.Draw(g, dst, image.Pt(3, 3))
	if dst.RGBAAt(3, 3).R != 255 || dst.RGBAAt(6, 6).R != 255 {
		t.Error("surface pixels not drawn at the requested offset")
	}
	if dst.RGBAAt(2, 2).A != 0 || dst.RGBAAt(7, 7).A != 0 {
		t.Error("draw wrote outside the surface bounds")
	}
}

func TestTargetRect(t *testing.T) {
	sys := windowtest.New()
	h := sys.Add(windowtest.Window{Title: "w", Width: 100, Height: 80, Origin: image.Pt(200, 300), FrameMargin: 5})
	client, err := sys.ClientRect(h)
	if err != nil {
		t.Fatal(err)
	}

	got, err := capture.TargetRect(sys, h, client, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != client {
		t.Errorf("borderless TargetRect = %+v, want client %+v", got, client)
	}

	got, err = capture.TargetRect(sys, h, client, true)
	if err != nil {
		t.Fatal(err)
	}
	want := window.Rect{Left: -5, Top: -5, Right: 105, Bottom: 85}
	if got != want {
		t.Errorf("border TargetRect = %+v, want %+v", got, want)
	}
	if got.Width() != 110 || got.Height() != 90 {
		t.Errorf("border surface size = %dx%d, want 110x90", got.Width(), got.Height())
	}
}

func TestTargetRectInvalidWindow(t *testing.T) {
	sys := windowtest.New()
	if _, err := capture.TargetRect(sys, 0x999, rect(10, 10), true); !errors.Is(err, window.ErrInvalidWindow) {
		t.Errorf("err = %v, want ErrInvalidWindow", err)
	}
}
