package pager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lassbot/internal/eventbus"
	rtsup "lassbot/internal/runtime/supervisor"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
)

// Callback data carried by the navigation affordances.
const (
	DataPrev = "pager:prev"
	DataNext = "pager:next"
)

// Navigation label pairs (previous, next).
var (
	NavArrows     = [2]string{"◀️", "▶️"}
	NavSideArrows = [2]string{"⬅️", "➡️"}
)

// ParseData maps callback data to a direction.
func ParseData(data string) (Direction, bool) {
	switch strings.TrimSpace(data) {
	case DataPrev:
		return Prev, true
	case DataNext:
		return Next, true
	}
	return 0, false
}

// SignalFromCallback converts a navigation callback.
func SignalFromCallback(cb transport.Callback) (Signal, bool) {
	dir, ok := ParseData(cb.Data)
	if !ok {
		return Signal{}, false
	}
	return Signal{Direction: dir, From: cb.FromID, Ref: cb.Ref(), Callback: cb}, true
}

// OpenedEvent and ClosedEvent are published on the bus.
type OpenedEvent struct {
	Session string
	Viewer  int64
	Pages   int
}

type ClosedEvent struct {
	Session string
	Err     string
}

type sessionKey struct{ chat, msg int64 }

func keyOf(ref transport.MessageRef) sessionKey { return sessionKey{ref.ChatID, ref.MessageID} }

// Manager runs browse sessions on its own supervisor so a waiting session
// never blocks the dispatcher, and routes navigation signals to them.
type Manager struct {
	sup  *rtsup.Supervisor
	log  logx.Logger
	bus  eventbus.Bus
	idle atomic.Int64

	mu       sync.Mutex
	sessions map[sessionKey]*Session
	// Signals for unknown messages are held while a session is opening:
	// the affordances are live before Show returns the message ref.
	opening int
	early   []Signal
	opened  atomic.Uint64
}

const maxEarlySignals = 16

func NewManager(parent context.Context, log logx.Logger, bus eventbus.Bus) *Manager {
	m := &Manager{
		sup:      rtsup.New(parent, rtsup.WithLogger(log), rtsup.WithCancelOnError(false)),
		log:      log,
		bus:      bus,
		sessions: map[sessionKey]*Session{},
	}
	m.idle.Store(int64(DefaultIdleTimeout))
	return m
}

// SetIdleTimeout applies to sessions opened afterwards.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultIdleTimeout
	}
	m.idle.Store(int64(d))
}

func (m *Manager) IdleTimeout() time.Duration { return time.Duration(m.idle.Load()) }

// Browse renders pages to `to` through ad and serves navigation for viewer
// in the background. It returns once the first page is shown.
func (m *Manager) Browse(ctx context.Context, ad transport.Adapter, to transport.ChatTarget, viewer int64, pages []Page, nav [2]string) (*Session, error) {
	return m.Open(ctx, AdapterSurface{Adapter: ad, To: to}, viewer, pages, WithNav(nav[0], nav[1]))
}

// Open is Browse over an arbitrary surface.
func (m *Manager) Open(ctx context.Context, surface Surface, viewer int64, pages []Page, opts ...Option) (*Session, error) {
	opts = append([]Option{WithIdleTimeout(m.IdleTimeout())}, opts...)
	s, err := NewSession(pages, viewer, surface, opts...)
	if err != nil {
		return nil, err
	}
	s.log = m.log.With(logx.String("session", s.id))

	m.mu.Lock()
	m.opening++
	m.mu.Unlock()
	if err := s.Open(ctx); err != nil {
		m.mu.Lock()
		m.opening--
		m.takeEarlyLocked(sessionKey{})
		m.mu.Unlock()
		return nil, err
	}
	k := keyOf(s.Ref())
	m.mu.Lock()
	m.opening--
	old := m.sessions[k]
	m.sessions[k] = s
	replay := m.takeEarlyLocked(k)
	m.mu.Unlock()
	if old != nil {
		_ = old.Close(ctx)
	}
	for _, sig := range replay {
		s.Offer(sig)
	}
	m.opened.Add(1)
	eventbus.Emit(m.bus, eventbus.PagerOpened, OpenedEvent{Session: s.id, Viewer: viewer, Pages: s.Len()})

	m.sup.Go0("pager.session", func(c context.Context) {
		err := s.Run(c)
		m.mu.Lock()
		if m.sessions[k] == s {
			delete(m.sessions, k)
		}
		m.mu.Unlock()
		ev := ClosedEvent{Session: s.id}
		if err != nil && !errors.Is(err, context.Canceled) {
			ev.Err = err.Error()
			m.log.Debug("pager session ended with error", logx.String("session", s.id), logx.Err(err))
		}
		eventbus.Emit(m.bus, eventbus.PagerClosed, ev)
	})
	return s, nil
}

// Signal routes sig to the session rendered on sig.Ref without blocking.
// While a session is opening, signals for unknown messages are held and
// replayed to it once its message is known.
func (m *Manager) Signal(sig Signal) bool {
	m.mu.Lock()
	s := m.sessions[keyOf(sig.Ref)]
	if s == nil {
		held := m.opening > 0 && len(m.early) < maxEarlySignals
		if held {
			m.early = append(m.early, sig)
		}
		m.mu.Unlock()
		return held
	}
	m.mu.Unlock()
	return s.Offer(sig)
}

// takeEarlyLocked removes and returns the held signals for k. Signals for
// other messages are dropped once no session is opening.
func (m *Manager) takeEarlyLocked(k sessionKey) []Signal {
	var mine []Signal
	kept := m.early[:0]
	for _, sig := range m.early {
		switch {
		case keyOf(sig.Ref) == k:
			mine = append(mine, sig)
		case m.opening > 0:
			kept = append(kept, sig)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	m.early = kept
	return mine
}

// HandleCallback consumes navigation callbacks. It reports whether cb was
// navigation data at all. Callbacks for expired sessions are answered so
// clients stop waiting.
func (m *Manager) HandleCallback(ctx context.Context, ad transport.Adapter, cb transport.Callback) bool {
	sig, ok := SignalFromCallback(cb)
	if !ok {
		return false
	}
	if !m.Signal(sig) {
		m.mu.Lock()
		_, live := m.sessions[keyOf(sig.Ref)]
		m.mu.Unlock()
		if !live && ad != nil {
			_ = ad.AnswerCallback(ctx, cb, "")
		}
	}
	return true
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// OpenedTotal is the number of sessions opened since start.
func (m *Manager) OpenedTotal() uint64 { return m.opened.Load() }

// Stop closes every session and waits for their goroutines.
func (m *Manager) Stop(ctx context.Context) error {
	err := m.sup.Stop(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// AdapterSurface renders sessions as cards with navigation affordances.
type AdapterSurface struct {
	Adapter transport.Adapter
	To      transport.ChatTarget
}

func (a AdapterSurface) Show(ctx context.Context, page Page, nav []transport.NavButton) (transport.MessageRef, error) {
	return a.Adapter.SendCard(ctx, a.To, page, &transport.SendOptions{Nav: nav})
}

func (a AdapterSurface) Replace(ctx context.Context, ref transport.MessageRef, page Page, nav []transport.NavButton) error {
	return a.Adapter.EditCard(ctx, ref, page, &transport.SendOptions{Nav: nav})
}

func (a AdapterSurface) Ack(ctx context.Context, sig Signal) error {
	return a.Adapter.AnswerCallback(ctx, sig.Callback, "")
}

func (a AdapterSurface) Detach(ctx context.Context, ref transport.MessageRef) error {
	return a.Adapter.ClearNav(ctx, ref)
}
