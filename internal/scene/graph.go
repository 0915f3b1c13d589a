// Package scene is the compositing graph: named scenes holding ordered items
// that reference sources by name.
package scene

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"slices"
	"sync"
)

var (
	ErrNoScene     = errors.New("scene not found")
	ErrSceneExists = errors.New("scene already exists")
	ErrNoItem      = errors.New("scene item not found")
	ErrNoSource    = errors.New("scene item needs a source")
)

// ItemID identifies an item across the whole graph
type ItemID int64

// Item places a source on the canvas
type Item struct {
	ID         ItemID      `json:"id"`
	Source     string      `json:"source"`
	SourceType string      `json:"source_type"`
	Pos        image.Point `json:"pos"`
	Visible    bool        `json:"visible"`
}

// Scene is an ordered item list, bottom first
type Scene struct {
	Name  string
	items []*Item
}

// Graph holds every scene and which one is active. It is safe for
// concurrent use.
type Graph struct {
	mu     sync.RWMutex
	scenes map[string]*Scene
	order  []string
	active string
	nextID ItemID
}

// New creates an empty graph
func New() *Graph {
	return &Graph{scenes: make(map[string]*Scene)}
}

// AddScene creates an empty scene. The first scene added becomes active.
func (g *Graph) AddScene(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.scenes[name]; ok {
		return fmt.Errorf("%w: %s", ErrSceneExists, name)
	}
	g.scenes[name] = &Scene{Name: name}
	g.order = append(g.order, name)
	if g.active == "" {
		g.active = name
	}
	return nil
}

// RemoveScene deletes a scene and its items
func (g *Graph) RemoveScene(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.scenes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoScene, name)
	}
	delete(g.scenes, name)
	g.order = slices.DeleteFunc(g.order, func(n string) bool { return n == name })
	if g.active == name {
		g.active = ""
		if len(g.order) > 0 {
			g.active = g.order[0]
		}
	}
	return nil
}

// Scenes lists scene names in creation order
func (g *Graph) Scenes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.order)
}

// ActiveScene returns the scene being output, false when there is none
func (g *Graph) ActiveScene() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active, g.active != ""
}

// SetActiveScene switches output to name
func (g *Graph) SetActiveScene(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.scenes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoScene, name)
	}
	g.active = name
	return nil
}

// AddItem places source on top of scene
func (g *Graph) AddItem(sceneName, source, sourceType string, pos image.Point) (Item, error) {
	if source == "" {
		return Item{}, ErrNoSource
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.scenes[sceneName]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNoScene, sceneName)
	}
	g.nextID++
	item := &Item{
		ID:         g.nextID,
		Source:     source,
		SourceType: sourceType,
		Pos:        pos,
		Visible:    true,
	}
	s.items = append(s.items, item)
	return *item, nil
}

// RemoveItem deletes one item from a scene
func (g *Graph) RemoveItem(sceneName string, id ItemID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, i, err := g.locate(sceneName, id)
	if err != nil {
		return err
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// RemoveSource deletes every item referencing source, in every scene
func (g *Graph) RemoveSource(source string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for _, s := range g.scenes {
		before := len(s.items)
		s.items = slices.DeleteFunc(s.items, func(it *Item) bool { return it.Source == source })
		removed += before - len(s.items)
	}
	return removed
}

// Items yields a snapshot of a scene's items with their z-index, bottom
// first. The graph may be modified while iterating.
func (g *Graph) Items(sceneName string) iter.Seq2[int, Item] {
	items := g.Snapshot(sceneName)
	return func(yield func(int, Item) bool) {
		for i, it := range items {
			if !yield(i, it) {
				return
			}
		}
	}
}

// Snapshot copies a scene's items, bottom first. Unknown scenes are empty.
func (g *Graph) Snapshot(sceneName string) []Item {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.scenes[sceneName]
	if !ok {
		return nil
	}
	items := make([]Item, len(s.items))
	for i, it := range s.items {
		items[i] = *it
	}
	return items
}

// SetItemPosition moves an item on the canvas
func (g *Graph) SetItemPosition(sceneName string, id ItemID, pos image.Point) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, i, err := g.locate(sceneName, id)
	if err != nil {
		return err
	}
	s.items[i].Pos = pos
	return nil
}

// SetItemVisible shows or hides an item
func (g *Graph) SetItemVisible(sceneName string, id ItemID, visible bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, i, err := g.locate(sceneName, id)
	if err != nil {
		return err
	}
	s.items[i].Visible = visible
	return nil
}

// SetItemOrder moves an item so that it ends up at index in the z-order.
// Indexes past the top are clamped.
func (g *Graph) SetItemOrder(sceneName string, id ItemID, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, i, err := g.locate(sceneName, id)
	if err != nil {
		return err
	}
	item := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)
	index = max(0, min(index, len(s.items)))
	s.items = slices.Insert(s.items, index, item)
	return nil
}

// IsShowing reports whether source has a visible item in the active scene
func (g *Graph) IsShowing(source string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.scenes[g.active]
	if !ok {
		return false
	}
	for _, it := range s.items {
		if it.Source == source && it.Visible {
			return true
		}
	}
	return false
}

func (g *Graph) locate(sceneName string, id ItemID) (*Scene, int, error) {
	s, ok := g.scenes[sceneName]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoScene, sceneName)
	}
	i := slices.IndexFunc(s.items, func(it *Item) bool { return it.ID == id })
	if i < 0 {
		return nil, 0, fmt.Errorf("%w: %d in %s", ErrNoItem, id, sceneName)
	}
	return s, i, nil
}
