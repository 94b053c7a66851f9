package routines

import (
	"context"
	"errors"
	"strings"
	"time"

	"lassbot/internal/eventbus"
	"lassbot/pkg/logx"
)

// Scheduler installs and cancels named daily triggers. Adding an existing
// name replaces it.
type Scheduler interface {
	AddDaily(name, clock string, timeout time.Duration, job func(ctx context.Context) error) (string, error)
	Remove(name string) bool
}

// Sender delivers a routine message to a destination chat/channel.
type Sender interface {
	SendRoutine(ctx context.Context, destination int64, text string) error
}

type SenderFunc func(ctx context.Context, destination int64, text string) error

func (f SenderFunc) SendRoutine(ctx context.Context, destination int64, text string) error {
	return f(ctx, destination, text)
}

// Delivery is published on the bus after every fire.
type Delivery struct {
	Key Key
	Err string
}

// Change is published on the bus after register/unregister.
type Change struct {
	Key     Key
	Removed bool
}

type Service struct {
	reg     *Registry
	sched   Scheduler
	sender  Sender
	bus     eventbus.Bus
	log     logx.Logger
	timeout time.Duration
}

type Option func(*Service)

func WithBus(bus eventbus.Bus) Option { return func(s *Service) { s.bus = bus } }

func WithLogger(log logx.Logger) Option { return func(s *Service) { s.log = log } }

// WithDeliveryTimeout bounds one send (default 15s).
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(reg *Registry, sched Scheduler, sender Sender, opts ...Option) *Service {
	s := &Service{reg: reg, sched: sched, sender: sender, timeout: 15 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Registry() *Registry { return s.reg }

// Register validates the time of day, title-cases the message, installs the
// trigger for (timeOfDay, destination) replacing any previous one, and
// persists the registry. The trigger stays installed when persisting fails.
func (s *Service) Register(ctx context.Context, timeOfDay string, destination int64, message string) (Routine, error) {
	if err := ValidateTimeOfDay(timeOfDay); err != nil {
		return Routine{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Routine{}, errors.New("routine message is empty")
	}
	rt := Routine{TimeOfDay: timeOfDay, Destination: destination, Message: FormatMessage(message)}

	if err := s.install(rt.Key()); err != nil {
		return Routine{}, err
	}
	if err := s.reg.Put(ctx, rt); err != nil {
		s.log.Warn("routine persist failed; memory and file may differ",
			logx.String("time", rt.TimeOfDay), logx.Int64("dest", rt.Destination), logx.Err(err))
		return rt, err
	}
	s.log.Info("routine registered", logx.String("time", rt.TimeOfDay), logx.Int64("dest", rt.Destination))
	eventbus.Emit(s.bus, eventbus.RoutineChanged, Change{Key: rt.Key()})
	return rt, nil
}

// Unregister removes the routine and cancels its trigger. found is false
// when no such routine existed; nothing changes then.
func (s *Service) Unregister(ctx context.Context, timeOfDay string, destination int64) (bool, error) {
	k := Key{TimeOfDay: timeOfDay, Destination: destination}
	found, err := s.reg.Delete(ctx, k)
	if !found {
		return false, nil
	}
	s.sched.Remove(k.TriggerName())
	if err != nil {
		return true, err
	}
	s.log.Info("routine removed", logx.String("time", timeOfDay), logx.Int64("dest", destination))
	eventbus.Emit(s.bus, eventbus.RoutineChanged, Change{Key: k, Removed: true})
	return true, nil
}

func (s *Service) List() []Routine { return s.reg.List() }

// Restore loads the persisted registry and installs one trigger per routine.
// It returns how many triggers were installed.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if err := s.reg.Load(ctx); err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, rt := range s.reg.List() {
		if err := s.install(rt.Key()); err != nil {
			s.log.Warn("routine trigger not restored", logx.String("time", rt.TimeOfDay), logx.Int64("dest", rt.Destination), logx.Err(err))
			errs = append(errs, err)
			continue
		}
		n++
	}
	s.log.Info("routines restored", logx.Int("triggers", n))
	return n, errors.Join(errs...)
}

func (s *Service) install(k Key) error {
	_, err := s.sched.AddDaily(k.TriggerName(), k.TimeOfDay, s.timeout, func(ctx context.Context) error {
		s.fire(ctx, k)
		return nil
	})
	return err
}

// fire sends the current message for k. Failures are logged and published,
// never retried.
func (s *Service) fire(ctx context.Context, k Key) {
	rt, ok := s.reg.Get(k)
	if !ok {
		return
	}
	err := s.sender.SendRoutine(ctx, rt.Destination, rt.Message)
	d := Delivery{Key: k}
	if err != nil {
		d.Err = err.Error()
		s.log.Debug("routine delivery failed", logx.String("time", k.TimeOfDay), logx.Int64("dest", k.Destination), logx.Err(err))
	}
	eventbus.Emit(s.bus, eventbus.RoutineDelivered, d)
}
