// Package app wires the bot together: config, logging, the chat adapter,
// storage, the scheduler and routines, the pager, the command router, plugins
// and the ops endpoint.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"lassbot/internal/config"
	"lassbot/internal/eventbus"
	"lassbot/internal/metrics"
	"lassbot/internal/pager"
	"lassbot/internal/plugin"
	"lassbot/internal/routines"
	rtsup "lassbot/internal/runtime/supervisor"
	"lassbot/internal/storage"
	"lassbot/internal/task/scheduler"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
	"lassbot/plugins/characters"
	"lassbot/plugins/fun"
	"lassbot/plugins/moderation"
	"lassbot/plugins/powers"
	"lassbot/plugins/rolls"
	routinecmds "lassbot/plugins/routines"
	"lassbot/plugins/system"
	"lassbot/plugins/utility"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter transport.Adapter

	sched    *scheduler.Service
	routines *routines.Service
	pager    *pager.Manager
	sink     *metrics.Sink
	ops      *metrics.Server

	cmdm *router.CommandManager
	pm   *plugin.Manager

	updates chan transport.Update
}

// NewApp loads the config and builds every component. Nothing talks to the
// network until Start.
func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg), nil)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	ad, err := newAdapter(cfg, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	logSvc.SetChatSink(chatLog{ad: ad})

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(ctx, sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage ready", logx.String("driver", sc.Driver))

	bus := eventbus.New()

	sched := scheduler.New(mapSchedulerConfig(cfg), log.With(logx.String("comp", "scheduler")), bus)

	delivery, err := config.ParseDurationOrDefault("routines.delivery_timeout", cfg.Routines.DeliveryTimeout, config.DefaultDeliveryTimeout)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	rts := routines.NewService(
		routines.NewRegistry(routines.FilePersister{Path: cfg.Routines.PathOrDefault()}),
		sched,
		routines.SenderFunc(routineSender(ad)),
		routines.WithBus(bus),
		routines.WithLogger(log.With(logx.String("comp", "routines"))),
		routines.WithDeliveryTimeout(delivery),
	)

	pg := pager.NewManager(ctx, log.With(logx.String("comp", "pager")), bus)
	pg.SetIdleTimeout(config.DurationOr(cfg.Pager.IdleTimeout, config.DefaultPagerIdle))

	cmdm := router.NewCommandManager(router.Options{
		Logger:         log.With(logx.String("comp", "commands")),
		Adapter:        ad,
		Bus:            bus,
		Prefix:         cfg.Bot.PrefixOrDefault(),
		Locale:         cfg.Bot.LocaleOrDefault(),
		Owners:         cfg.Bot.OwnerUserIDs,
		Workers:        cfg.Bot.Workers,
		RatePerMinute:  cfg.Bot.RatePerUser,
		CommandTimeout: config.DurationOr(cfg.Bot.CommandTimeout, config.DefaultCommandTimeout),
	})

	var pm *plugin.Manager
	pm = plugin.NewManager(log.With(logx.String("comp", "plugins")), plugin.Deps{
		Logger:   log,
		Adapter:  ad,
		Bus:      bus,
		Store:    store,
		Routines: rts,
		Pager:    pg,
		Prefix:   cmdm,
		Status:   func(ctx context.Context) []plugin.Status { return pm.Snapshot(ctx) },
	}, cmdm)
	// Registration order is the help order.
	pm.Register(
		powers.New(),
		characters.New(),
		rolls.New(),
		routinecmds.New(),
		fun.New(),
		moderation.New(),
		utility.New(),
		system.New(),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewSink(reg, metrics.Gauges{
		PagerSessions: func() float64 { return float64(pg.Len()) },
		Routines:      func() float64 { return float64(len(rts.List())) },
		Schedules:     func() float64 { return float64(len(sched.Snapshot().Schedules)) },
	}, log.With(logx.String("comp", "metrics")))
	mc, err := mapMetricsConfig(cfg)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	ops := metrics.NewServer(mc, reg, store.Ping, log.With(logx.String("comp", "metrics")))

	return &App{
		cfgm:     cfgm,
		log:      log.With(logx.String("comp", "app")),
		logs:     logSvc,
		bus:      bus,
		store:    store,
		adapter:  ad,
		sched:    sched,
		routines: rts,
		pager:    pg,
		sink:     sink,
		ops:      ops,
		cmdm:     cmdm,
		pm:       pm,
		updates:  make(chan transport.Update, 256),
	}, nil
}

func (a *App) Plugins() *plugin.Manager { return a.pm }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// validate is the reload gate: a config that fails here is never committed.
func (a *App) validate(ctx context.Context, cfg *config.Config) error {
	if _, err := mapMetricsConfig(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	return a.pm.ValidateConfig(ctx, cfg)
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	runCtx := a.sup.Context()

	a.cfgm.SetValidator(a.validate)
	a.cfgm.OnReject(func(err error) {
		eventbus.Emit(a.bus, eventbus.ConfigRejected, err.Error())
	})

	cfg := a.cfgm.Get()
	if err := a.validate(runCtx, cfg); err != nil {
		return err
	}

	a.sup.Go0("metrics.sink", func(c context.Context) { a.sink.Run(c, a.bus) })
	a.ops.Start(runCtx)

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return fmt.Errorf("start %s adapter: %w", a.adapter.Platform(), err)
	}
	a.setPresence(runCtx, cfg)

	a.sched.Start(runCtx)
	if n, err := a.routines.Restore(runCtx); err != nil {
		if errors.Is(err, routines.ErrNotLoaded) {
			return fmt.Errorf("restore routines: %w", err)
		}
		// A partial restore keeps what could be installed.
		a.log.Warn("routines restored with errors", logx.Int("triggers", n), logx.Err(err))
	}

	a.pm.Bind(runCtx)
	a.pm.Apply(runCtx, cfg)

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub, cfg)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.String("platform", a.adapter.Platform()),
		logx.String("prefix", a.cmdm.Prefix()),
		logx.Int("commands", len(a.cmdm.Commands())),
	)
	return nil
}

func (a *App) setPresence(ctx context.Context, cfg *config.Config) {
	ps, ok := a.adapter.(transport.PresenceSetter)
	if !ok {
		return
	}
	if err := ps.SetPresence(ctx, presenceText(cfg, a.cmdm.Prefix())); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("presence not set", logx.Err(err))
	}
}
