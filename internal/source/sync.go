package source

import "github.com/bryanchriswhite/livewindow/internal/scene"

// synchronize moves this source's items in the active scene to the window's
// screen position, and when the window has focus raises the item above the
// other live window items.
func (lw *LiveWindow) synchronize() {
	sceneName, ok := lw.scenes.ActiveScene()
	if !ok {
		return
	}

	rect, err := lw.sys.WindowRect(lw.handle)
	if err != nil {
		return
	}
	pos := rect.Min()

	// Both coordinates must change before items move
	moved := pos.X != lw.lastPos.X && pos.Y != lw.lastPos.Y

	fg, _ := lw.sys.Foreground()
	focused := fg == lw.handle

	var (
		own      *scene.Item
		topIndex = -1
		topID    scene.ItemID
	)
	for index, item := range lw.scenes.Items(sceneName) {
		if item.Source == lw.name {
			if moved {
				if err := lw.scenes.SetItemPosition(sceneName, item.ID, pos); err != nil {
					lw.log.Debug().Err(err).Int64("item", int64(item.ID)).Msg("Failed to move item")
				}
			}
			it := item
			own = &it
		}
		if item.SourceType == TypeLiveWindow {
			topIndex, topID = index, item.ID
		}
	}
	if own != nil && moved {
		lw.lastPos = pos
	}

	if !focused || own == nil || own.ID == topID {
		return
	}
	if err := lw.scenes.SetItemOrder(sceneName, own.ID, topIndex); err != nil {
		lw.log.Debug().Err(err).Msg("Failed to raise item")
		return
	}
	lw.log.Debug().Int("index", topIndex).Msg("Raised focused window item")
}
