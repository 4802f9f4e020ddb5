package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
)

const testWindow = 10 * time.Minute

func newTestManager() (*Manager, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewManager(clk, testWindow, 3), clk
}

func TestGetOrCreate_LazyRecord(t *testing.T) {
	m, _ := newTestManager()
	if _, ok := m.Get("g1"); ok {
		t.Fatal("expected no record before first access")
	}
	snap := m.GetOrCreate("g1")
	if snap.GuildID != "g1" || snap.Locked || snap.IdleArmed || snap.AloneArmed {
		t.Fatalf("unexpected fresh snapshot: %+v", snap)
	}
	if _, ok := m.Get("g1"); !ok {
		t.Fatal("expected record after GetOrCreate")
	}
}

func TestIdleTimer_FiresOnceAfterWindow(t *testing.T) {
	m, clk := newTestManager()
	var fired atomic.Int32
	m.ArmIdle("g1", func() { fired.Add(1) })

	clk.Advance(testWindow - time.Second)
	if fired.Load() != 0 {
		t.Fatal("timer fired before the window elapsed")
	}
	clk.Advance(time.Second)
	clk.Advance(testWindow)
	if fired.Load() != 1 {
		t.Fatalf("expected exactly one fire, got %d", fired.Load())
	}
	if snap, _ := m.Get("g1"); snap.IdleArmed {
		t.Fatal("expected idle slot to be cleared after firing")
	}
}

func TestTouch_CancelsIdleTimer(t *testing.T) {
	m, clk := newTestManager()
	var fired atomic.Int32
	m.ArmIdle("g1", func() { fired.Add(1) })

	clk.Advance(5 * time.Minute)
	m.Touch("g1")
	clk.Advance(2 * testWindow)

	if fired.Load() != 0 {
		t.Fatal("idle timer fired after activity")
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", clk.Pending())
	}
}

func TestArmIdle_SupersedesPrevious(t *testing.T) {
	m, clk := newTestManager()
	var first, second atomic.Int32
	m.ArmIdle("g1", func() { first.Add(1) })
	clk.Advance(5 * time.Minute)
	m.ArmIdle("g1", func() { second.Add(1) })

	if clk.Pending() != 1 {
		t.Fatalf("expected one armed idle timer, got %d", clk.Pending())
	}
	clk.Advance(5 * time.Minute)
	if first.Load() != 0 || second.Load() != 0 {
		t.Fatal("superseded timer fired or new timer fired early")
	}
	clk.Advance(5 * time.Minute)
	if first.Load() != 0 || second.Load() != 1 {
		t.Fatalf("unexpected fires: first=%d second=%d", first.Load(), second.Load())
	}
}

func TestAloneAndIdle_AreIndependent(t *testing.T) {
	m, clk := newTestManager()
	var idle, alone atomic.Int32
	m.ArmIdle("g1", func() { idle.Add(1) })
	m.ArmAlone("g1", func() { alone.Add(1) })

	if !m.CancelAlone("g1") {
		t.Fatal("expected alone timer to be cancelled")
	}
	if m.CancelAlone("g1") {
		t.Fatal("expected second cancel to report nothing armed")
	}
	clk.Advance(testWindow)
	if idle.Load() != 1 || alone.Load() != 0 {
		t.Fatalf("unexpected fires: idle=%d alone=%d", idle.Load(), alone.Load())
	}
}

func TestEvict_StopsTimers(t *testing.T) {
	m, clk := newTestManager()
	var fired atomic.Int32
	m.ArmIdle("g1", func() { fired.Add(1) })
	m.ArmAlone("g1", func() { fired.Add(1) })

	m.Evict("g1")
	clk.Advance(testWindow)
	if fired.Load() != 0 {
		t.Fatal("timers fired after eviction")
	}
	if _, ok := m.Get("g1"); ok {
		t.Fatal("expected record to be gone")
	}
}

func TestAppendLog_RingEvictsOldest(t *testing.T) {
	m, clk := newTestManager()
	for i := range 5 {
		m.AppendLog("g1", fmt.Sprintf("line %d", i))
		clk.Advance(time.Minute)
	}
	got := m.Logs("g1")
	want := []string{"12:02 line 2", "12:03 line 3", "12:04 line 4"}
	if len(got) != len(want) {
		t.Fatalf("unexpected logs: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("log %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestController_SetUnlocks(t *testing.T) {
	m, _ := newTestManager()
	if _, ok := m.Controller("g1"); ok {
		t.Fatal("expected no controller")
	}
	m.SetController("g1", Controller{ChannelID: "c1", MessageID: "m1"})
	m.Lock("g1")
	if !m.Locked("g1") {
		t.Fatal("expected locked controller")
	}

	m.SetController("g1", Controller{ChannelID: "c1", MessageID: "m2"})
	c, ok := m.Controller("g1")
	if !ok || c.MessageID != "m2" {
		t.Fatalf("unexpected controller: %+v", c)
	}
	if m.Locked("g1") {
		t.Fatal("expected new controller to be unlocked")
	}
}

func TestDerivedCache(t *testing.T) {
	m, _ := newTestManager()
	if _, ok := m.DerivedGet("g1", "lyrics:x"); ok {
		t.Fatal("expected miss")
	}
	m.DerivedSet("g1", "lyrics:x", "https://genius.com/search?q=x")
	if v, ok := m.DerivedGet("g1", "lyrics:x"); !ok || v != "https://genius.com/search?q=x" {
		t.Fatalf("unexpected derived value: %q %v", v, ok)
	}
}

func TestAcquire_SerialisesPerGuild(t *testing.T) {
	m, _ := newTestManager()
	var inside atomic.Int32
	var overlap atomic.Bool
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.Acquire("g1")
			defer release()
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()
	if overlap.Load() {
		t.Fatal("operations for one guild overlapped")
	}

	release := m.Acquire("g1")
	other := m.Acquire("g2")
	other()
	release()
	release()
}
