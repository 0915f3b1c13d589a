package scene

import (
	"errors"
	"image"
	"testing"
)

func newGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	if err := g.AddScene("main"); err != nil {
		t.Fatal(err)
	}
	return g
}

func order(g *Graph, sceneName string) []string {
	var names []string
	for _, it := range g.Items(sceneName) {
		names = append(names, it.Source)
	}
	return names
}

func TestFirstSceneBecomesActive(t *testing.T) {
	g := newGraph(t)
	g.AddScene("other")
	if name, ok := g.ActiveScene(); !ok || name != "main" {
		t.Errorf("ActiveScene = %q, %v", name, ok)
	}
	if err := g.SetActiveScene("missing"); !errors.Is(err, ErrNoScene) {
		t.Errorf("SetActiveScene(missing) err = %v", err)
	}
	if err := g.AddScene("main"); !errors.Is(err, ErrSceneExists) {
		t.Errorf("duplicate AddScene err = %v", err)
	}
}

func TestRemoveActiveScene(t *testing.T) {
	g := newGraph(t)
	g.AddScene("other")
	if err := g.RemoveScene("main"); err != nil {
		t.Fatal(err)
	}
	if name, _ := g.ActiveScene(); name != "other" {
		t.Errorf("ActiveScene = %q, want other", name)
	}
	g.RemoveScene("other")
	if _, ok := g.ActiveScene(); ok {
		t.Error("no scene should be active")
	}
}

func TestSetItemOrder(t *testing.T) {
	g := newGraph(t)
	a, _ := g.AddItem("main", "a", "live_window", image.Point{})
	g.AddItem("main", "b", "text_label", image.Point{})
	g.AddItem("main", "c", "live_window", image.Point{})

	if err := g.SetItemOrder("main", a.ID, 2); err != nil {
		t.Fatal(err)
	}
	if got := order(g, "main"); got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Errorf("order = %v, want [b c a]", got)
	}

	g.SetItemOrder("main", a.ID, 99)
	if got := order(g, "main"); got[2] != "a" {
		t.Errorf("clamped order = %v", got)
	}
	g.SetItemOrder("main", a.ID, -1)
	if got := order(g, "main"); got[0] != "a" {
		t.Errorf("order = %v, want a at the bottom", got)
	}
}

func TestItemsIterationAllowsMutation(t *testing.T) {
	g := newGraph(t)
	g.AddItem("main", "a", "live_window", image.Point{})
	g.AddItem("main", "b", "live_window", image.Point{})

	for _, it := range g.Items("main") {
		if err := g.SetItemPosition("main", it.ID, image.Pt(5, 5)); err != nil {
			t.Fatal(err)
		}
	}
	for _, it := range g.Snapshot("main") {
		if it.Pos != image.Pt(5, 5) {
			t.Errorf("%s at %v", it.Source, it.Pos)
		}
	}
}

func TestIsShowing(t *testing.T) {
	g := newGraph(t)
	g.AddScene("other")
	it, _ := g.AddItem("main", "cam", "live_window", image.Point{})
	g.AddItem("other", "hidden", "live_window", image.Point{})

	if !g.IsShowing("cam") {
		t.Error("cam should be showing")
	}
	if g.IsShowing("hidden") {
		t.Error("items in inactive scenes are not showing")
	}
	g.SetItemVisible("main", it.ID, false)
	if g.IsShowing("cam") {
		t.Error("hidden item should not count as showing")
	}
}

func TestRemoveSource(t *testing.T) {
	g := newGraph(t)
	g.AddScene("other")
	g.AddItem("main", "cam", "live_window", image.Point{})
	g.AddItem("other", "cam", "live_window", image.Point{})
	g.AddItem("other", "label", "text_label", image.Point{})

	if n := g.RemoveSource("cam"); n != 2 {
		t.Errorf("RemoveSource = %d, want 2", n)
	}
	if got := order(g, "other"); len(got) != 1 || got[0] != "label" {
		t.Errorf("other = %v", got)
	}
}

func TestRemoveItemUnknown(t *testing.T) {
	g := newGraph(t)
	if err := g.RemoveItem("main", 42); !errors.Is(err, ErrNoItem) {
		t.Errorf("err = %v, want ErrNoItem", err)
	}
}

func TestAddItemRequiresSource(t *testing.T) {
	g := newGraph(t)
	if _, err := g.AddItem("main", "", "text_label", image.Point{}); !errors.Is(err, ErrNoSource) {
		t.Errorf("err = %v, want ErrNoSource", err)
	}
	if _, err := g.AddItem("missing", "cam", "text_label", image.Point{}); !errors.Is(err, ErrNoScene) {
		t.Errorf("err = %v, want ErrNoScene", err)
	}
	if items := g.Snapshot("main"); len(items) != 0 {
		t.Errorf("failed adds left %d items", len(items))
	}
}
