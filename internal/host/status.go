package host

import (
	"slices"

	"github.com/bryanchriswhite/livewindow/internal/source"
)

// Statuses returns the most recently published source states
func (h *Host) Statuses() []source.Status {
	h.statusMu.RLock()
	defer h.statusMu.RUnlock()
	if h.statuses == nil {
		return []source.Status{}
	}
	return slices.Clone(h.statuses)
}

// Subscribe returns a channel receiving source states whenever they change
func (h *Host) Subscribe() chan []source.Status {
	h.statusMu.Lock()
	defer h.statusMu.Unlock()

	ch := make(chan []source.Status, 10)
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it
func (h *Host) Unsubscribe(ch chan []source.Status) {
	h.statusMu.Lock()
	defer h.statusMu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// publish records the current states and notifies subscribers when they
// differ from the last published set. Caller holds h.mu.
func (h *Host) publish() {
	current := make([]source.Status, 0, len(h.order))
	for _, name := range h.order {
		current = append(current, h.sources[name].Status())
	}

	h.statusMu.Lock()
	defer h.statusMu.Unlock()

	if slices.Equal(current, h.statuses) {
		return
	}
	h.statuses = current

	for ch := range h.subscribers {
		select {
		case ch <- slices.Clone(current):
		default:
			h.log.Debug().Msg("Status subscriber full, dropping update")
		}
	}
}
