// Package label implements a static text source.
package label

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/source"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Type identifies text label sources
const Type = "text_label"

// Settings describe how a label looks
type Settings struct {
	Text       string
	Color      color.RGBA
	Background *color.RGBA // nil for transparent
	Padding    int
	Opacity    float64 // 0.0 to 1.0
}

// DefaultSettings returns white text with no background
func DefaultSettings() Settings {
	return Settings{
		Text:    "Text",
		Color:   color.RGBA{255, 255, 255, 255},
		Padding: 5,
		Opacity: 1.0,
	}
}

// Label draws a line of text in basicfont
type Label struct {
	name     string
	settings Settings
	img      *image.RGBA
}

var _ source.Source = (*Label)(nil)

// New creates a label source
func New(name string, settings Settings) *Label {
	l := &Label{name: name}
	l.Update(settings)
	return l
}

func (l *Label) Name() string {
	return l.name
}

func (l *Label) Type() string {
	return Type
}

// Settings returns the active settings
func (l *Label) Settings() Settings {
	return l.settings
}

// Update replaces the settings and re-rasterizes the text
func (l *Label) Update(settings Settings) {
	settings.Opacity = max(0, min(settings.Opacity, 1))
	settings.Padding = max(0, settings.Padding)
	l.settings = settings
	l.img = rasterize(settings)
}

func rasterize(s Settings) *image.RGBA {
	if s.Text == "" {
		return nil
	}

	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()

	textWidth := font.MeasureString(face, s.Text).Ceil()
	img := image.NewRGBA(image.Rect(0, 0, textWidth+s.Padding*2, lineHeight+s.Padding*2))

	if s.Background != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(*s.Background), image.Point{}, draw.Src)
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(s.Color),
		Face: face,
		Dot:  fixed.P(s.Padding, s.Padding+metrics.Ascent.Ceil()),
	}
	d.DrawString(s.Text)
	return img
}

// Tick is a no-op; labels are static
func (l *Label) Tick(time.Duration) {}

// Render blends the label onto dst at its configured opacity
func (l *Label) Render(_ *gfx.Guard, dst draw.Image, at image.Point) {
	if l.img == nil || l.settings.Opacity == 0 {
		return
	}
	r := image.Rectangle{Min: at, Max: at.Add(l.img.Bounds().Size())}
	mask := image.NewUniform(color.Alpha{A: uint8(l.settings.Opacity * 255)})
	draw.DrawMask(dst, r, l.img, image.Point{}, mask, image.Point{}, draw.Over)
}

func (l *Label) Size() (int, int) {
	if l.img == nil {
		return 0, 0
	}
	return l.img.Bounds().Dx(), l.img.Bounds().Dy()
}

func (l *Label) Status() source.Status {
	w, h := l.Size()
	return source.Status{
		Name:   l.name,
		Type:   Type,
		State:  "static",
		Width:  w,
		Height: h,
	}
}

func (l *Label) Close() {
	l.img = nil
}

// ParseColor parses #rgb, #rrggbb or #rrggbbaa
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	c := color.RGBA{A: 255}

	var err error
	switch len(hex) {
	case 3:
		_, err = fmt.Sscanf(hex, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	case 6:
		_, err = fmt.Sscanf(hex, "%2x%2x%2x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(hex, "%2x%2x%2x%2x", &c.R, &c.G, &c.B, &c.A)
	default:
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}
