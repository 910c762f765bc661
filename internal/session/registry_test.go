package session

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/XxishikuxX/ROMulus-sub001/internal/encoder"
	"github.com/XxishikuxX/ROMulus-sub001/internal/events"
	"github.com/XxishikuxX/ROMulus-sub001/internal/hardware"
)

// fakeConn is a test subscriber that records everything it receives.
// Setting full makes Send report a permanently overflowing backlog.
type fakeConn struct {
	addr string
	full bool

	mu     sync.Mutex
	data   bytes.Buffer
	closed bool
	reason CloseReason

	closedCh chan struct{}
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{addr: addr, closedCh: make(chan struct{})}
}

func (c *fakeConn) Send(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return ErrBacklogFull
	}
	c.data.Write(chunk)
	return nil
}

func (c *fakeConn) Close(reason CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.closedCh)
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) received() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.String()
}

func (c *fakeConn) closeReason(t *testing.T, timeout time.Duration) CloseReason {
	t.Helper()
	select {
	case <-c.closedCh:
	case <-time.After(timeout):
		t.Fatal("timeout waiting for connection close")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// newTestRegistry builds a registry whose encoder runs a shell script instead
// of ffmpeg, counting launches.
func newTestRegistry(script string) (*Registry, *atomic.Int32) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sup := encoder.NewSupervisor(logger, logger)
	sup.SetGracePeriod(200*time.Millisecond, 200*time.Millisecond)

	var launches atomic.Int32
	sup.OverrideCommand(func(encoder.StreamParams) (string, []string) {
		launches.Add(1)
		return "sh", []string{"-c", script}
	})

	profile := hardware.ResolveEncoderProfile(hardware.Profile{GPUType: hardware.GPUSoftware})
	grants := StaticGrants{Owner: "player-1", Display: ":99"}
	r := NewRegistry(logger, events.New(), sup, grants, profile, 60, "")
	return r, &launches
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSubscribeConcurrentFirstSubscribersShareOneSession(t *testing.T) {
	r, launches := newTestRegistry(`sleep 10`)
	defer r.Shutdown()

	const n = 50
	sessions := make([]*Session, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], errs[i] = r.Subscribe("game-1", "720p", newFakeConn("peer"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Subscribe %d: %v", i, errs[i])
		}
		if sessions[i] != sessions[0] {
			t.Fatal("subscribers landed on different sessions")
		}
	}
	if got := launches.Load(); got != 1 {
		t.Errorf("encoder launches = %d, want 1", got)
	}
	if got := sessions[0].SubscriberCount(); got != n {
		t.Errorf("subscriber count = %d, want %d", got, n)
	}
}

func TestSubscribeQualityHintIgnoredAfterCreation(t *testing.T) {
	r, _ := newTestRegistry(`sleep 10`)
	defer r.Shutdown()

	s1, err := r.Subscribe("game-1", "720p", newFakeConn("a"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	s2, err := r.Subscribe("game-1", "4k", newFakeConn("b"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if s2 != s1 {
		t.Fatal("second subscriber created a new session")
	}
	if s1.Tier != encoder.Tier720p {
		t.Errorf("tier = %s, want %s", s1.Tier, encoder.Tier720p)
	}
}

func TestLastUnsubscribeDestroysSession(t *testing.T) {
	r, _ := newTestRegistry(`sleep 10`)

	a, b := newFakeConn("a"), newFakeConn("b")
	s, err := r.Subscribe("game-1", "", a)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := r.Subscribe("game-1", "", b); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	r.Unsubscribe(a)
	if s.StateNow() == StateTerminated {
		t.Fatal("session terminated while a subscriber remained")
	}

	r.Unsubscribe(b)
	if s.StateNow() != StateTerminated {
		t.Errorf("state = %d, want terminated", s.StateNow())
	}
	if _, ok := r.Lookup("game-1"); ok {
		t.Error("terminated session still registered")
	}
}

func TestUnsubscribeUnknownConnIsNoop(t *testing.T) {
	r, _ := newTestRegistry(`sleep 10`)
	defer r.Shutdown()

	r.Unsubscribe(newFakeConn("stranger"))
}

func TestLateSubscriberGetsNoBackfill(t *testing.T) {
	r, _ := newTestRegistry(`printf 'early'; sleep 0.4; printf 'late'; sleep 10`)
	defer r.Shutdown()

	first := newFakeConn("first")
	if _, err := r.Subscribe("game-1", "", first); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return first.received() == "early" })

	second := newFakeConn("second")
	if _, err := r.Subscribe("game-1", "", second); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return second.received() == "late" })

	if got := first.received(); got != "earlylate" {
		t.Errorf("first received %q, want %q", got, "earlylate")
	}
}

func TestSlowSubscriberDroppedWithoutStallingOthers(t *testing.T) {
	r, _ := newTestRegistry(`for i in 1 2 3 4 5; do printf 'x'; sleep 0.05; done; sleep 10`)
	defer r.Shutdown()

	healthy := newFakeConn("healthy")
	slow := newFakeConn("slow")
	slow.full = true

	s, err := r.Subscribe("game-1", "", healthy)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := r.Subscribe("game-1", "", slow); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if got := slow.closeReason(t, 2*time.Second); got != CloseSlowConsumer {
		t.Errorf("close reason = %d, want CloseSlowConsumer", got)
	}
	waitFor(t, 2*time.Second, func() bool { return len(healthy.received()) >= 3 })

	if s.StateNow() == StateTerminated {
		t.Error("session terminated while a healthy subscriber remained")
	}
	if got := s.SubscriberCount(); got != 1 {
		t.Errorf("subscriber count = %d, want 1", got)
	}
}

func TestEncoderExitEndsSession(t *testing.T) {
	r, _ := newTestRegistry(`printf 'data'; exit 0`)

	conn := newFakeConn("a")
	if _, err := r.Subscribe("game-1", "", conn); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if got := conn.closeReason(t, 2*time.Second); got != CloseSessionEnded {
		t.Errorf("close reason = %d, want CloseSessionEnded", got)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, ok := r.Lookup("game-1")
		return !ok
	})
}

func TestShutdownEndsAllSessionsAndRejectsNewSubscribers(t *testing.T) {
	r, _ := newTestRegistry(`sleep 10`)

	a, b := newFakeConn("a"), newFakeConn("b")
	if _, err := r.Subscribe("game-1", "", a); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := r.Subscribe("game-2", "", b); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	r.Shutdown()

	if got := a.closeReason(t, 2*time.Second); got != CloseShutdown {
		t.Errorf("close reason = %d, want CloseShutdown", got)
	}
	if got := b.closeReason(t, 2*time.Second); got != CloseShutdown {
		t.Errorf("close reason = %d, want CloseShutdown", got)
	}
	if got := len(r.ActiveSessions()); got != 0 {
		t.Errorf("active sessions = %d, want 0", got)
	}
	if _, err := r.Subscribe("game-3", "", newFakeConn("c")); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Subscribe after shutdown: %v, want ErrShuttingDown", err)
	}
}

func TestShutdownClosesSubscribersBeforeStopEscalation(t *testing.T) {
	// An encoder that ignores SIGTERM forces Stop through the full grace
	// window before SIGKILL. Viewers must still see their close reason
	// immediately, on every session, not after N escalation windows.
	r, _ := newTestRegistry(`trap '' TERM; while true; do sleep 0.1; done`)

	a, b := newFakeConn("a"), newFakeConn("b")
	if _, err := r.Subscribe("game-1", "", a); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := r.Subscribe("game-2", "", b); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	start := time.Now()
	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()

	if got := a.closeReason(t, 2*time.Second); got != CloseShutdown {
		t.Errorf("close reason = %d, want CloseShutdown", got)
	}
	if got := b.closeReason(t, 2*time.Second); got != CloseShutdown {
		t.Errorf("close reason = %d, want CloseShutdown", got)
	}
	if elapsed := time.Since(start); elapsed >= 150*time.Millisecond {
		t.Errorf("subscribers closed after %v, want well inside the 200ms grace window", elapsed)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Shutdown to finish")
	}
}

func TestLaunchFailurePropagatesAndIsRetryable(t *testing.T) {
	r, _ := newTestRegistry(`sleep 10`)
	defer r.Shutdown()

	r.sup.OverrideCommand(func(encoder.StreamParams) (string, []string) {
		return "/nonexistent/encoder/binary", nil
	})

	_, err := r.Subscribe("game-1", "", newFakeConn("a"))
	var launchErr *encoder.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("error type = %T, want *LaunchError", err)
	}

	r.sup.OverrideCommand(func(encoder.StreamParams) (string, []string) {
		return "sh", []string{"-c", "sleep 10"}
	})
	if _, err := r.Subscribe("game-1", "", newFakeConn("b")); err != nil {
		t.Fatalf("Subscribe after failed launch: %v", err)
	}
}

func TestSessionIDReusableAfterTermination(t *testing.T) {
	r, launches := newTestRegistry(`sleep 10`)
	defer r.Shutdown()

	a := newFakeConn("a")
	s1, err := r.Subscribe("game-1", "", a)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	r.Unsubscribe(a)

	s2, err := r.Subscribe("game-1", "", newFakeConn("b"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if s2 == s1 {
		t.Fatal("terminated session was reused")
	}
	if got := launches.Load(); got != 2 {
		t.Errorf("encoder launches = %d, want 2", got)
	}
}
