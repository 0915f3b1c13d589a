package gfx

import (
	"sync"
	"testing"
	"time"
)

func TestGuardLeaveIsIdempotent(t *testing.T) {
	c := New()
	g := c.Enter()
	if !c.Held() {
		t.Fatal("context should be held after Enter")
	}
	g.Leave()
	g.Leave()
	if c.Held() {
		t.Fatal("context should be free after Leave")
	}

	// A double Leave must not have unlocked someone else's acquisition
	g2 := c.Enter()
	g.Leave()
	if !c.Held() {
		t.Fatal("stale guard released a newer acquisition")
	}
	g2.Leave()
}

func TestEnterIsExclusive(t *testing.T) {
	c := New()
	g := c.Enter()

	acquired := make(chan struct{})
	go func() {
		other := c.Enter()
		close(acquired)
		other.Leave()
	}()

	select {
	case <-acquired:
		t.Fatal("second Enter succeeded while the context was held")
	case <-time.After(20 * time.Millisecond):
	}

	g.Leave()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Enter never acquired the context")
	}
}

func TestEntriesCounts(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := c.Enter()
			defer g.Leave()
		}()
	}
	wg.Wait()
	if c.Entries() != 10 {
		t.Errorf("Entries = %d, want 10", c.Entries())
	}
}
