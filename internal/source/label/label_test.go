package label

import (
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/livewindow/internal/gfx"
)

func TestSizeIncludesPadding(t *testing.T) {
	s := DefaultSettings()
	s.Text = "Hi"
	l := New("caption", s)

	// basicfont glyphs are 7x13
	w, h := l.Size()
	if w != 2*7+10 || h != 13+10 {
		t.Errorf("Size = %dx%d, want 24x23", w, h)
	}
}

func TestEmptyTextHasNoSize(t *testing.T) {
	s := DefaultSettings()
	s.Text = ""
	l := New("caption", s)
	if w, h := l.Size(); w != 0 || h != 0 {
		t.Errorf("Size = %dx%d, want 0x0", w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	l.Render(nil, dst, image.Point{})
}

func TestRenderBackground(t *testing.T) {
	bg := color.RGBA{0, 0, 255, 255}
	s := DefaultSettings()
	s.Text = "x"
	s.Background = &bg
	l := New("caption", s)

	ctx := gfx.New()
	g := ctx.Enter()
	defer g.Leave()

	dst := image.NewRGBA(image.Rect(0, 0, 50, 50))
	l.Render(g, dst, image.Pt(5, 5))
	if got := dst.RGBAAt(5, 5); got != bg {
		t.Errorf("corner pixel = %v, want background %v", got, bg)
	}
	if got := dst.RGBAAt(4, 4); got.A != 0 {
		t.Errorf("pixel outside label = %v", got)
	}
}

func TestOpacityClamped(t *testing.T) {
	s := DefaultSettings()
	s.Opacity = 3
	l := New("caption", s)
	if l.Settings().Opacity != 1 {
		t.Errorf("Opacity = %v, want 1", l.Settings().Opacity)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ffffff", color.RGBA{255, 255, 255, 255}, false},
		{"00ff00", color.RGBA{0, 255, 0, 255}, false},
		{"#f00", color.RGBA{255, 0, 0, 255}, false},
		{"#00000080", color.RGBA{0, 0, 0, 128}, false},
		{"#zzzzzz", color.RGBA{}, true},
		{"#12345", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
