// Package source defines the drawable inputs of a scene and implements the
// live window capture source.
package source

import (
	"image"
	"iter"
	"time"

	"github.com/bryanchriswhite/livewindow/internal/gfx"
	"github.com/bryanchriswhite/livewindow/internal/scene"
	"golang.org/x/image/draw"
)

// Source is anything a scene item can reference. The host serializes all
// calls for a given source; none of them are safe for concurrent use.
type Source interface {
	Name() string
	Type() string

	// Tick advances the source by the frame's elapsed time
	Tick(elapsed time.Duration)

	// Render draws the source onto dst with its top-left at at. The caller
	// holds the graphics context.
	Render(g *gfx.Guard, dst draw.Image, at image.Point)

	// Size is the natural size of the source's output, zero when it has
	// nothing to draw
	Size() (int, int)

	Status() Status

	// Close releases every resource the source holds
	Close()
}

// Status is a point-in-time description of a source for display
type Status struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	State  string `json:"state"`
	Window string `json:"window,omitempty"`
	Handle string `json:"handle,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Scenes is the slice of the compositing graph a source reads and writes
type Scenes interface {
	IsShowing(source string) bool
	ActiveScene() (string, bool)
	Items(sceneName string) iter.Seq2[int, scene.Item]
	SetItemPosition(sceneName string, id scene.ItemID, pos image.Point) error
	SetItemOrder(sceneName string, id scene.ItemID, index int) error
}

var _ Scenes = (*scene.Graph)(nil)
