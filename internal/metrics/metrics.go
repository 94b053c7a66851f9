// Package metrics turns bus events into Prometheus collectors and serves
// them on the ops endpoint.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"lassbot/internal/eventbus"
	"lassbot/internal/pager"
	"lassbot/internal/plugin"
	"lassbot/internal/routines"
	"lassbot/internal/task/scheduler"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

const namespace = "lassbot"

// Gauges are sampled on every scrape. Nil funcs are not registered.
type Gauges struct {
	PagerSessions func() float64
	Routines      func() float64
	Schedules     func() float64
}

// Sink records bus events. All methods are non-blocking.
type Sink struct {
	log logx.Logger

	commandsTotal    *prometheus.CounterVec
	commandDuration  prometheus.Histogram
	deliveriesTotal  *prometheus.CounterVec
	routineChanges   *prometheus.CounterVec
	schedulerRuns    *prometheus.CounterVec
	schedulerRunTime prometheus.Histogram
	pagerOpened      prometheus.Counter
	pagerClosed      *prometheus.CounterVec
	configReloads    *prometheus.CounterVec
	pluginStates     *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
}

// NewSink registers the collectors on reg. Registration errors are logged
// and never propagated.
func NewSink(reg prometheus.Registerer, g Gauges, log logx.Logger) *Sink {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Sink{log: log}

	s.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "commands_total",
		Help: "Commands handled, by command and outcome.",
	}, []string{"command", "outcome"})
	s.commandDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "command_duration_seconds",
		Help:    "Command handler latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	s.deliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "routine_deliveries_total",
		Help: "Routine messages delivered, by outcome.",
	}, []string{"outcome"})
	s.routineChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "routine_changes_total",
		Help: "Routine registrations and removals.",
	}, []string{"op"})
	s.schedulerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "scheduler_runs_total",
		Help: "Scheduled job runs, by outcome.",
	}, []string{"outcome"})
	s.schedulerRunTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "scheduler_run_duration_seconds",
		Help:    "Scheduled job duration in seconds.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
	s.pagerOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "pager_sessions_opened_total",
		Help: "Browse sessions opened.",
	})
	s.pagerClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "pager_sessions_closed_total",
		Help: "Browse sessions closed, by outcome.",
	}, []string{"outcome"})
	s.configReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "config_reloads_total",
		Help: "Config reload attempts, by result.",
	}, []string{"result"})
	s.pluginStates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "plugin_state_changes_total",
		Help: "Plugin lifecycle transitions.",
	}, []string{"plugin", "stage"})
	s.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_total",
		Help: "Bus events seen, by family.",
	}, []string{"family"})

	for _, c := range []prometheus.Collector{
		s.commandsTotal, s.commandDuration, s.deliveriesTotal, s.routineChanges,
		s.schedulerRuns, s.schedulerRunTime, s.pagerOpened, s.pagerClosed,
		s.configReloads, s.pluginStates, s.eventsTotal,
	} {
		s.register(reg, c)
	}

	gauge := func(name, help string, fn func() float64) {
		if fn == nil {
			return
		}
		s.register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, fn))
	}
	gauge("pager_sessions_active", "Browse sessions currently displayed.", g.PagerSessions)
	gauge("routines", "Routines currently registered.", g.Routines)
	gauge("scheduler_entries", "Entries in the cron scheduler.", g.Schedules)

	return s
}

func (s *Sink) register(reg prometheus.Registerer, c prometheus.Collector) {
	if err := reg.Register(c); err != nil {
		s.log.Warn("metrics: collector registration failed", logx.Err(err))
	}
}

func outcome(err string) string {
	if err != "" {
		return "error"
	}
	return "ok"
}

// Observe records one bus event.
func (s *Sink) Observe(ev eventbus.Event) {
	s.eventsTotal.WithLabelValues(eventbus.Family(ev.Type)).Inc()

	switch d := ev.Data.(type) {
	case router.Handled:
		s.commandsTotal.WithLabelValues(d.Command, outcome(d.Err)).Inc()
		s.commandDuration.Observe(d.Took.Seconds())
	case routines.Delivery:
		s.deliveriesTotal.WithLabelValues(outcome(d.Err)).Inc()
	case routines.Change:
		op := "set"
		if d.Removed {
			op = "removed"
		}
		s.routineChanges.WithLabelValues(op).Inc()
	case scheduler.JobResult:
		s.schedulerRuns.WithLabelValues(outcome(d.Err)).Inc()
		s.schedulerRunTime.Observe(d.Took.Seconds())
	case pager.OpenedEvent:
		s.pagerOpened.Inc()
	case pager.ClosedEvent:
		s.pagerClosed.WithLabelValues(outcome(d.Err)).Inc()
	case plugin.StateEvent:
		s.pluginStates.WithLabelValues(d.Plugin, d.Stage).Inc()
	}

	switch ev.Type {
	case eventbus.ConfigReloaded:
		s.configReloads.WithLabelValues("ok").Inc()
	case eventbus.ConfigRejected:
		s.configReloads.WithLabelValues("rejected").Inc()
	}
}

// Run consumes bus events until ctx ends.
func (s *Sink) Run(ctx context.Context, bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.Observe(ev)
		}
	}
}
