package syncx

import (
	"sync"
	"testing"
	"time"
)

func TestCellGetSet(t *testing.T) {
	c := NewCell(42)

	if got := c.Get(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}

	if ver := c.Set(100); ver != 1 {
		t.Errorf("Set() version = %d, want 1", ver)
	}
	if got := c.Get(); got != 100 {
		t.Errorf("Get() after Set = %d, want 100", got)
	}
}

func TestCellUpdate(t *testing.T) {
	type pos struct{ x, y int }
	c := NewCell(pos{0, 100})

	c.Update(func(p *pos) { p.x += 5 })

	if got := c.Get(); got != (pos{5, 100}) {
		t.Errorf("Get() = %+v, want {5 100}", got)
	}
}

func TestCellWatchCoalesces(t *testing.T) {
	c := NewCell(0)
	ch, stop := c.Watch()
	defer stop()

	c.Set(1)
	c.Set(2)
	c.Set(3)

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for change")
	}

	select {
	case <-ch:
		t.Error("pending wakeups should coalesce into one")
	default:
	}

	if got := c.Get(); got != 3 {
		t.Errorf("Get() = %d, want 3 (last write wins)", got)
	}
}

func TestCellWatchStop(t *testing.T) {
	c := NewCell(0)
	ch, stop := c.Watch()
	if c.Watchers() != 1 {
		t.Errorf("Watchers() = %d, want 1", c.Watchers())
	}
	stop()
	stop() // idempotent
	if c.Watchers() != 0 {
		t.Errorf("Watchers() after stop = %d, want 0", c.Watchers())
	}

	c.Set(1)
	select {
	case <-ch:
		t.Error("stopped watcher should not be woken")
	default:
	}
}

func TestCellConcurrentSafety(t *testing.T) {
	c := NewCell(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(v *int) { *v++ })
		}()
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Snapshot()
		}()
	}

	wg.Wait()

	v, ver := c.Snapshot()
	if v != 100 || ver != 100 {
		t.Errorf("Snapshot() = (%d, %d), want (100, 100)", v, ver)
	}
}
