package pager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lassbot/internal/eventbus"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
)

const viewer = int64(7)

var testRef = transport.MessageRef{ChatID: 1, MessageID: 100}

type fakeSurface struct {
	mu       sync.Mutex
	shown    []Page
	nav      []transport.NavButton
	acks     int
	detached int
	showErr  error
	editErr  error
	// onShow runs while the first page is being shown.
	onShow func()
}

func (f *fakeSurface) Show(ctx context.Context, page Page, nav []transport.NavButton) (transport.MessageRef, error) {
	if f.onShow != nil {
		f.onShow()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.showErr != nil {
		return transport.MessageRef{}, f.showErr
	}
	f.shown = append(f.shown, page)
	f.nav = nav
	return testRef, nil
}

func (f *fakeSurface) Replace(ctx context.Context, ref transport.MessageRef, page Page, nav []transport.NavButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.shown = append(f.shown, page)
	return nil
}

func (f *fakeSurface) Ack(ctx context.Context, sig Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeSurface) Detach(ctx context.Context, ref transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached++
	return nil
}

func (f *fakeSurface) counts() (renders, acks, detached int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown), f.acks, f.detached
}

func (f *fakeSurface) last() Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown[len(f.shown)-1]
}

func pagesABC() []Page {
	return []Page{{Title: "A"}, {Title: "B"}, {Title: "C"}}
}

func sig(dir Direction, from int64) Signal {
	return Signal{Direction: dir, From: from, Ref: testRef}
}

func openSession(t *testing.T, idle time.Duration) (*Session, *fakeSurface) {
	t.Helper()
	surf := &fakeSurface{}
	s, err := NewSession(pagesABC(), viewer, surf, WithIdleTimeout(idle))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s, surf
}

func TestNewSessionRejectsEmptyPages(t *testing.T) {
	t.Parallel()
	surf := &fakeSurface{}
	_, err := NewSession(nil, viewer, surf)
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("NewSession(nil) error = %v, want ErrNoPages", err)
	}
	if r, _, _ := surf.counts(); r != 0 {
		t.Fatalf("renders = %d, want 0", r)
	}
}

func TestOpenShowsFirstPageWithTwoAffordances(t *testing.T) {
	t.Parallel()
	s, surf := openSession(t, time.Second)
	if s.State() != Displaying || s.Index() != 0 {
		t.Fatalf("state = %s index = %d", s.State(), s.Index())
	}
	if got := surf.last(); got.Title != "A" || got.Footer != "1/3" {
		t.Fatalf("first page = %+v", got)
	}
	if len(surf.nav) != 2 || surf.nav[0].Data != DataPrev || surf.nav[1].Data != DataNext {
		t.Fatalf("nav = %+v", surf.nav)
	}
	if err := s.Open(context.Background()); !errors.Is(err, ErrState) {
		t.Fatalf("second Open() error = %v, want ErrState", err)
	}
}

func TestNextWrapsAround(t *testing.T) {
	t.Parallel()
	s, surf := openSession(t, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !s.Offer(sig(Next, viewer)) {
			t.Fatal("Offer() = false")
		}
		got, ok, err := s.Await(ctx)
		if err != nil || !ok {
			t.Fatalf("Await() = %v, %v", ok, err)
		}
		if err := s.Step(ctx, got); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
	if s.Index() != 0 || surf.last().Title != "A" {
		t.Fatalf("index = %d page = %q, want 0 A", s.Index(), surf.last().Title)
	}
	if r, acks, _ := surf.counts(); r != 4 || acks != 3 {
		t.Fatalf("renders = %d acks = %d, want 4 3", r, acks)
	}
}

func TestPrevFromFirstGoesToLast(t *testing.T) {
	t.Parallel()
	s, surf := openSession(t, time.Second)
	if err := s.Step(context.Background(), sig(Prev, viewer)); err != nil {
		t.Fatal(err)
	}
	if s.Index() != 2 || surf.last().Footer != "3/3" {
		t.Fatalf("index = %d page = %+v", s.Index(), surf.last())
	}
}

func TestFailedRenderKeepsIndex(t *testing.T) {
	t.Parallel()
	s, surf := openSession(t, time.Second)
	ctx := context.Background()

	surf.mu.Lock()
	surf.editErr = errors.New("message deleted")
	surf.mu.Unlock()
	if err := s.Step(ctx, sig(Next, viewer)); err == nil {
		t.Fatal("Step() error = nil, want the render error")
	}
	if s.Index() != 0 {
		t.Fatalf("index = %d after failed render, want 0", s.Index())
	}

	surf.mu.Lock()
	surf.editErr = nil
	surf.mu.Unlock()
	if err := s.Step(ctx, sig(Next, viewer)); err != nil {
		t.Fatal(err)
	}
	if s.Index() != 1 || surf.last().Title != "B" {
		t.Fatalf("index = %d page = %q, want 1 B", s.Index(), surf.last().Title)
	}
}

func TestForeignSignalsAreIgnored(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		sig  Signal
	}{
		{"other user", sig(Next, viewer+1)},
		{"other message", Signal{Direction: Next, From: viewer, Ref: transport.MessageRef{ChatID: 1, MessageID: 101}}},
		{"bad direction", Signal{Direction: 0, From: viewer, Ref: testRef}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, surf := openSession(t, 40*time.Millisecond)
			s.Offer(tt.sig)
			_, ok, err := s.Await(context.Background())
			if err != nil || ok {
				t.Fatalf("Await() = %v, %v, want timeout", ok, err)
			}
			if r, acks, _ := surf.counts(); r != 1 || acks != 0 || s.Index() != 0 {
				t.Fatalf("renders = %d acks = %d index = %d", r, acks, s.Index())
			}
		})
	}
}

func TestIgnoredSignalsDoNotExtendDeadline(t *testing.T) {
	t.Parallel()
	s, _ := openSession(t, 100*time.Millisecond)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tk := time.NewTicker(10 * time.Millisecond)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				s.Offer(sig(Next, viewer+1))
			}
		}
	}()
	start := time.Now()
	_, ok, err := s.Await(context.Background())
	if err != nil || ok {
		t.Fatalf("Await() = %v, %v, want timeout", ok, err)
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("Await took %s; ignored signals extended the deadline", took)
	}
}

func TestRunClosesAfterIdle(t *testing.T) {
	t.Parallel()
	s, surf := openSession(t, 30*time.Millisecond)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.State() != Closed {
		t.Fatalf("state = %s, want closed", s.State())
	}
	if s.Offer(sig(Next, viewer)) {
		t.Fatal("Offer() accepted a signal after close")
	}
	if err := s.Step(context.Background(), sig(Next, viewer)); !errors.Is(err, ErrState) {
		t.Fatalf("Step() after close error = %v", err)
	}
	if r, _, detached := surf.counts(); r != 1 || detached != 1 {
		t.Fatalf("renders = %d detached = %d, want 1 1", r, detached)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	s, surf := openSession(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, _, detached := surf.counts(); detached != 1 || s.State() != Closed {
		t.Fatalf("detached = %d state = %s", detached, s.State())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagerRoutesSignals(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	m := NewManager(context.Background(), logx.Nop(), bus)
	m.SetIdleTimeout(200 * time.Millisecond)
	surf := &fakeSurface{}
	if _, err := m.Open(context.Background(), surf, viewer, pagesABC()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	cb := transport.Callback{ID: "cb", FromID: viewer, ChatID: testRef.ChatID, MessageID: testRef.MessageID, Data: DataNext}
	if !m.HandleCallback(context.Background(), nil, cb) {
		t.Fatal("HandleCallback() = false for navigation data")
	}
	waitFor(t, func() bool { r, _, _ := surf.counts(); return r == 2 })
	if surf.last().Title != "B" {
		t.Fatalf("page = %q, want B", surf.last().Title)
	}

	waitFor(t, func() bool { return m.Len() == 0 })
	if _, _, detached := surf.counts(); detached != 1 {
		t.Fatalf("detached = %d, want 1", detached)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	var types []string
	for len(types) < 2 {
		select {
		case ev := <-events:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("events = %v", types)
		}
	}
	if types[0] != eventbus.PagerOpened || types[1] != eventbus.PagerClosed {
		t.Fatalf("events = %v", types)
	}
}

func TestManagerKeepsSignalsSentWhileOpening(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), logx.Nop(), nil)
	defer m.Stop(context.Background())
	m.SetIdleTimeout(time.Second)

	surf := &fakeSurface{}
	surf.onShow = func() {
		if !m.Signal(sig(Next, viewer)) {
			t.Error("Signal() during open = false, want it held")
		}
	}
	if _, err := m.Open(context.Background(), surf, viewer, pagesABC()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	waitFor(t, func() bool { r, _, _ := surf.counts(); return r == 2 })
	if surf.last().Title != "B" {
		t.Fatalf("page = %q, want B", surf.last().Title)
	}

	if m.Signal(Signal{Direction: Next, From: viewer, Ref: transport.MessageRef{ChatID: 9, MessageID: 9}}) {
		t.Fatal("Signal() for an unknown message = true with nothing opening")
	}
}

func TestManagerIgnoresOtherCallbacks(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), logx.Nop(), nil)
	defer m.Stop(context.Background())
	if m.HandleCallback(context.Background(), nil, transport.Callback{Data: "rolls:x"}) {
		t.Fatal("HandleCallback() consumed non-navigation data")
	}
}

func TestManagerOpenFailsOnEmptyPages(t *testing.T) {
	t.Parallel()
	m := NewManager(context.Background(), logx.Nop(), nil)
	defer m.Stop(context.Background())
	if _, err := m.Open(context.Background(), &fakeSurface{}, viewer, nil); !errors.Is(err, ErrNoPages) {
		t.Fatalf("Open() error = %v, want ErrNoPages", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d", m.Len())
	}
}
