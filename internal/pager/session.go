package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lassbot/internal/transport"
	"lassbot/pkg/logx"
)

// Page is one pre-rendered view.
type Page = transport.Card

var (
	ErrNoPages = errors.New("pager: no pages")
	ErrState   = errors.New("pager: invalid session state")
)

const DefaultIdleTimeout = 60 * time.Second

type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

func (d Direction) Valid() bool { return d == Prev || d == Next }

func (d Direction) String() string {
	switch d {
	case Prev:
		return "prev"
	case Next:
		return "next"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Signal is a navigation request for a rendered message.
type Signal struct {
	Direction Direction
	From      int64
	Ref       transport.MessageRef
	// Callback is acknowledged when the signal is accepted.
	Callback transport.Callback
}

type State int

const (
	Idle State = iota
	Displaying
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Displaying:
		return "displaying"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Surface is where a session renders.
type Surface interface {
	Show(ctx context.Context, page Page, nav []transport.NavButton) (transport.MessageRef, error)
	Replace(ctx context.Context, ref transport.MessageRef, page Page, nav []transport.NavButton) error
	Ack(ctx context.Context, sig Signal) error
	Detach(ctx context.Context, ref transport.MessageRef) error
}

// Session shows one page set to one viewer on one message.
type Session struct {
	id      string
	pages   []Page
	viewer  int64
	surface Surface
	idle    time.Duration
	nav     []transport.NavButton
	log     logx.Logger
	signals chan Signal

	mu    sync.Mutex
	state State
	index int
	ref   transport.MessageRef
}

type Option func(*Session)

// WithIdleTimeout sets how long Await waits for a valid signal.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithNav sets the labels of the previous/next affordances.
func WithNav(prev, next string) Option {
	return func(s *Session) {
		s.nav = []transport.NavButton{{Label: prev, Data: DataPrev}, {Label: next, Data: DataNext}}
	}
}

func WithLogger(log logx.Logger) Option { return func(s *Session) { s.log = log } }

// NewSession fails with ErrNoPages before anything is rendered when pages is
// empty. Pages without a footer get an "n/N" one.
func NewSession(pages []Page, viewer int64, surface Surface, opts ...Option) (*Session, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	if surface == nil {
		return nil, errors.New("pager: nil surface")
	}
	s := &Session{
		id:      uuid.NewString(),
		pages:   decorate(pages),
		viewer:  viewer,
		surface: surface,
		idle:    DefaultIdleTimeout,
		signals: make(chan Signal, 8),
	}
	WithNav(NavArrows[0], NavArrows[1])(s)
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func decorate(pages []Page) []Page {
	out := make([]Page, len(pages))
	n := len(pages)
	for i, p := range pages {
		p.Fields = append([]transport.CardField(nil), p.Fields...)
		if p.Footer == "" {
			p.Footer = fmt.Sprintf("%d/%d", i+1, n)
		}
		out[i] = p
	}
	return out
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Viewer() int64 { return s.viewer }
func (s *Session) Len() int      { return len(s.pages) }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) Ref() transport.MessageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

// Open renders the first page with the navigation affordances.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return fmt.Errorf("%w: open from %s", ErrState, s.state)
	}
	ref, err := s.surface.Show(ctx, s.pages[0], s.nav)
	if err != nil {
		return err
	}
	s.ref = ref
	s.index = 0
	s.state = Displaying
	return nil
}

// Offer queues sig without blocking. It reports false when the buffer is
// full or the session is closed.
func (s *Session) Offer(sig Signal) bool {
	if s.State() == Closed {
		return false
	}
	select {
	case s.signals <- sig:
		return true
	default:
		return false
	}
}

func (s *Session) accepts(sig Signal) bool {
	ref := s.Ref()
	return sig.Direction.Valid() &&
		sig.From == s.viewer &&
		sig.Ref.ChatID == ref.ChatID &&
		sig.Ref.MessageID == ref.MessageID
}

// Await blocks until a valid signal arrives or the idle timeout passes.
// Invalid signals are dropped without acknowledging them and do not extend
// the deadline. ok is false on timeout.
func (s *Session) Await(ctx context.Context) (sig Signal, ok bool, err error) {
	t := time.NewTimer(s.idle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return Signal{}, false, ctx.Err()
		case <-t.C:
			return Signal{}, false, nil
		case sig := <-s.signals:
			if s.accepts(sig) {
				return sig, true, nil
			}
			s.log.Trace("pager signal ignored",
				logx.String("session", s.id), logx.Int64("from", sig.From), logx.String("dir", sig.Direction.String()))
		}
	}
}

// Step moves one page in sig's direction, wrapping around, edits the
// message in place and acknowledges sig. The index only moves once the
// page is rendered.
func (s *Session) Step(ctx context.Context, sig Signal) error {
	s.mu.Lock()
	if s.state != Displaying {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: step from %s", ErrState, st)
	}
	n := len(s.pages)
	next := (s.index + int(sig.Direction) + n) % n
	page, ref := s.pages[next], s.ref
	s.mu.Unlock()

	if err := s.surface.Replace(ctx, ref, page, s.nav); err != nil {
		return err
	}
	s.mu.Lock()
	s.index = next
	s.mu.Unlock()
	if err := s.surface.Ack(ctx, sig); err != nil {
		s.log.Debug("pager ack failed", logx.String("session", s.id), logx.Err(err))
	}
	return nil
}

// Close detaches the affordances. Closed is terminal.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil
	}
	wasDisplaying := s.state == Displaying
	s.state = Closed
	ref := s.ref
	s.mu.Unlock()
	if !wasDisplaying {
		return nil
	}
	return s.surface.Detach(ctx, ref)
}

// Run opens the session if needed and serves signals until the idle
// timeout or ctx cancellation, then closes it.
func (s *Session) Run(ctx context.Context) error {
	if s.State() == Idle {
		if err := s.Open(ctx); err != nil {
			return err
		}
	}
	for {
		sig, ok, err := s.Await(ctx)
		if err != nil || !ok {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			cerr := s.Close(cctx)
			cancel()
			if err != nil {
				return err
			}
			return cerr
		}
		if err := s.Step(ctx, sig); err != nil {
			s.log.Warn("pager render failed", logx.String("session", s.id), logx.Err(err))
		}
	}
}
