package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/XxishikuxX/ROMulus-sub001/internal/events"
)

func TestFanOutDeliversIdenticalBytesToAllSubscribers(t *testing.T) {
	r, _ := newTestRegistry(`for i in 1 2 3 4 5 6 7 8; do printf 'frame-%d.' $i; sleep 0.02; done; sleep 10`)
	defer r.Shutdown()

	a, b := newFakeConn("a"), newFakeConn("b")
	if _, err := r.Subscribe("game-1", "", a); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := r.Subscribe("game-1", "", b); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return len(a.received()) > 0 && a.received() == b.received() &&
			len(a.received()) >= len("frame-1.frame-2.frame-3.")
	})
}

func TestTerminateRunsExactlyOnceUnderConcurrentTriggers(t *testing.T) {
	r, _ := newTestRegistry(`printf 'data'; sleep 0.1; exit 0`)

	var ended atomic.Int32
	unsub := r.bus.Subscribe(func(events.SessionEndedEvent) { ended.Add(1) })
	defer unsub()

	conn := newFakeConn("a")
	if _, err := r.Subscribe("game-1", "", conn); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Encoder exit, last unsubscribe, and shutdown all race to tear down
	// the same session.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); r.Unsubscribe(conn) }()
	go func() { defer wg.Done(); r.Shutdown() }()
	wg.Wait()

	waitFor(t, 2*time.Second, func() bool { return ended.Load() >= 1 })
	time.Sleep(200 * time.Millisecond)
	if got := ended.Load(); got != 1 {
		t.Errorf("session ended events = %d, want 1", got)
	}
}

func TestStaticGrantsServeEverySessionID(t *testing.T) {
	g := StaticGrants{Owner: "player-1", Display: ":42"}

	for _, id := range []string{"alpha", "beta"} {
		grant, err := g.Grant(id)
		if err != nil {
			t.Fatalf("Grant(%q): %v", id, err)
		}
		if grant.OwnerUserID != "player-1" || grant.DisplayHandle != ":42" {
			t.Errorf("Grant(%q) = %+v", id, grant)
		}
	}
}
