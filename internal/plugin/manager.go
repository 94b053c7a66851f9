package plugin

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"lassbot/internal/config"
	"lassbot/internal/eventbus"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

// StateEvent is published on eventbus.PluginState.
type StateEvent struct {
	Plugin string
	Stage  string // started, stopped, init_failed, start_failed, config_invalid, config_applied
	Err    string
}

// Registrar receives the merged command and callback tables.
type Registrar interface {
	SetRegistry(cmds []router.Command, cbs []router.CallbackRoute)
}

// Status is one row of Snapshot.
type Status struct {
	Name    string
	Running bool
	Health  string
	Err     string
}

type Manager struct {
	mu sync.Mutex

	log   logx.Logger
	deps  Deps
	reg   Registrar
	order []string
	byNam map[string]Plugin
	run   map[string]bool
	// inited tracks plugins that passed Init once; Init is not repeated on
	// every enable/disable cycle.
	inited  map[string]bool
	lastRaw map[string]uint64
	lastErr map[string]string

	// baseCtx outlives the call-scoped contexts passed to Apply.
	baseCtx    context.Context
	baseCancel context.CancelFunc
	pcancel    map[string]context.CancelFunc
}

func NewManager(log logx.Logger, deps Deps, reg Registrar) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Manager{
		log:        log,
		deps:       deps,
		reg:        reg,
		byNam:      map[string]Plugin{},
		run:        map[string]bool{},
		inited:     map[string]bool{},
		lastRaw:    map[string]uint64{},
		lastErr:    map[string]string{},
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		pcancel:    map[string]context.CancelFunc{},
	}
}

// Register adds plugins in help order. Registering a name twice is ignored.
func (pm *Manager) Register(p ...Plugin) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, x := range p {
		if x == nil {
			continue
		}
		name := x.Name()
		if _, dup := pm.byNam[name]; dup {
			continue
		}
		pm.byNam[name] = x
		pm.order = append(pm.order, name)
	}
}

// Bind ties every plugin context to appCtx.
func (pm *Manager) Bind(appCtx context.Context) {
	if appCtx == nil {
		return
	}
	context.AfterFunc(appCtx, pm.baseCancel)
}

func (pm *Manager) emit(ev StateEvent) { eventbus.Emit(pm.deps.Bus, eventbus.PluginState, ev) }

// ValidateConfig runs the plugins' ConfigValidator hooks against cfg before
// it is committed.
func (pm *Manager) ValidateConfig(ctx context.Context, cfg *config.Config) error {
	pm.mu.Lock()
	names := append([]string(nil), pm.order...)
	pm.mu.Unlock()
	for _, name := range names {
		pm.mu.Lock()
		p := pm.byNam[name]
		pm.mu.Unlock()
		v, ok := p.(ConfigValidator)
		if !ok {
			continue
		}
		raw := cfg.Plugin(name)
		if !raw.IsEnabled() {
			continue
		}
		err := pm.safeCall("plugin.validate."+name, func() error { return v.ValidateConfig(ctx, raw.Config) })
		if err != nil {
			return fmt.Errorf("plugins.%s: %w", name, err)
		}
	}
	return nil
}

// Apply reconciles running plugins with cfg: it starts newly enabled ones,
// stops disabled ones, forwards changed plugin config and refreshes the
// command registry.
func (pm *Manager) Apply(ctx context.Context, cfg *config.Config) {
	pm.mu.Lock()
	names := append([]string(nil), pm.order...)
	pm.mu.Unlock()

	const callTimeout = 10 * time.Second

	for _, name := range names {
		pm.mu.Lock()
		p := pm.byNam[name]
		running := pm.run[name]
		pm.mu.Unlock()

		raw := cfg.Plugin(name)
		rh := canonicalHashJSON(raw.Config)

		switch {
		case raw.IsEnabled() && !running:
			pm.start(name, p, raw, rh, callTimeout)
		case !raw.IsEnabled() && running:
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callTimeout)
			pm.stopOne(sctx, name)
			cancel()
		case running:
			pm.mu.Lock()
			changed := pm.lastRaw[name] != rh
			pm.mu.Unlock()
			if !changed {
				continue
			}
			if cp, ok := p.(ConfigurablePlugin); ok {
				cctx, cancel := context.WithTimeout(pm.baseCtx, callTimeout)
				err := pm.safeCall("plugin.config."+name, func() error { return cp.OnConfigChange(cctx, raw.Config) })
				cancel()
				if err != nil {
					pm.fail(name, "config_invalid", err)
					continue
				}
				pm.emit(StateEvent{Plugin: name, Stage: "config_applied"})
			}
			pm.mu.Lock()
			pm.lastRaw[name] = rh
			pm.mu.Unlock()
		}
	}

	pm.refreshRegistry()
}

func (pm *Manager) start(name string, p Plugin, raw config.PluginConfigRaw, rh uint64, callTimeout time.Duration) {
	pctx, cancel := context.WithCancel(pm.baseCtx)
	deps := pm.deps
	deps.Logger = pm.log.With(logx.String("plugin", name))

	pm.mu.Lock()
	needInit := !pm.inited[name]
	pm.mu.Unlock()
	if needInit {
		ictx, icancel := context.WithTimeout(pctx, callTimeout)
		err := pm.safeCall("plugin.init."+name, func() error { return p.Init(ictx, deps) })
		icancel()
		if err != nil {
			cancel()
			pm.fail(name, "init_failed", err)
			return
		}
		pm.mu.Lock()
		pm.inited[name] = true
		pm.mu.Unlock()
	}

	if cp, ok := p.(ConfigurablePlugin); ok {
		cctx, ccancel := context.WithTimeout(pctx, callTimeout)
		err := pm.safeCall("plugin.config."+name, func() error { return cp.OnConfigChange(cctx, raw.Config) })
		ccancel()
		if err != nil {
			cancel()
			pm.fail(name, "config_invalid", err)
			return
		}
	}

	if err := pm.safeCall("plugin.start."+name, func() error { return p.Start(pctx) }); err != nil {
		cancel()
		pm.fail(name, "start_failed", err)
		return
	}

	pm.mu.Lock()
	pm.run[name] = true
	pm.pcancel[name] = cancel
	pm.lastRaw[name] = rh
	delete(pm.lastErr, name)
	pm.mu.Unlock()

	pm.log.Info("plugin started", logx.String("plugin", name))
	pm.emit(StateEvent{Plugin: name, Stage: "started"})
}

func (pm *Manager) fail(name, stage string, err error) {
	pm.mu.Lock()
	pm.lastErr[name] = err.Error()
	pm.mu.Unlock()
	pm.log.Error("plugin "+stage, logx.String("plugin", name), logx.Err(err))
	pm.emit(StateEvent{Plugin: name, Stage: stage, Err: err.Error()})
}

func (pm *Manager) stopOne(stopCtx context.Context, name string) {
	pm.mu.Lock()
	p := pm.byNam[name]
	cancel := pm.pcancel[name]
	delete(pm.pcancel, name)
	pm.run[name] = false
	pm.mu.Unlock()

	// cancel plugin context first (stop background loops promptly)
	if cancel != nil {
		cancel()
	}
	if p == nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- pm.safeCall("plugin.stop."+name, func() error { return p.Stop(stopCtx) }) }()
	select {
	case err := <-done:
		if err != nil {
			pm.log.Warn("plugin stop error", logx.String("plugin", name), logx.Err(err))
		}
	case <-stopCtx.Done():
		pm.log.Warn("plugin stop timed out", logx.String("plugin", name))
	}
	pm.log.Info("plugin stopped", logx.String("plugin", name))
	pm.emit(StateEvent{Plugin: name, Stage: "stopped"})
}

// StopAll stops every running plugin in reverse registration order.
func (pm *Manager) StopAll(ctx context.Context) {
	pm.mu.Lock()
	names := append([]string(nil), pm.order...)
	pm.mu.Unlock()
	for i := len(names) - 1; i >= 0; i-- {
		pm.mu.Lock()
		running := pm.run[names[i]]
		pm.mu.Unlock()
		if running {
			pm.stopOne(ctx, names[i])
		}
	}
	pm.baseCancel()
	pm.refreshRegistry()
}

func (pm *Manager) safeCall(label string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pm.log.Error("panic in plugin call",
				logx.String("call", label),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic in %s: %v", label, r)
		}
	}()
	return fn()
}

func (pm *Manager) refreshRegistry() {
	if pm.reg == nil {
		return
	}
	pm.mu.Lock()
	var running []Plugin
	var names []string
	for _, name := range pm.order {
		if pm.run[name] {
			running = append(running, pm.byNam[name])
			names = append(names, name)
		}
	}
	pm.mu.Unlock()

	cmds := []router.Command{}
	cbs := []router.CallbackRoute{}
	for i, p := range running {
		name := names[i]
		for _, c := range pm.safeCommands(name, p) {
			c.PluginName = name
			cmds = append(cmds, c)
		}
		if cbp, ok := p.(CallbackProvider); ok {
			for _, r := range pm.safeCallbacks(name, cbp) {
				if r.Plugin == "" {
					r.Plugin = name
				}
				cbs = append(cbs, r)
			}
		}
	}
	pm.reg.SetRegistry(cmds, cbs)
}

func (pm *Manager) safeCommands(name string, p Plugin) (out []router.Command) {
	defer func() {
		if r := recover(); r != nil {
			pm.log.Error("panic in plugin Commands()", logx.String("plugin", name), logx.Any("panic", r))
			out = nil
		}
	}()
	return p.Commands()
}

func (pm *Manager) safeCallbacks(name string, p CallbackProvider) (out []router.CallbackRoute) {
	defer func() {
		if r := recover(); r != nil {
			pm.log.Error("panic in plugin Callbacks()", logx.String("plugin", name), logx.Any("panic", r))
			out = nil
		}
	}()
	return p.Callbacks()
}

// Snapshot reports every registered plugin in registration order.
func (pm *Manager) Snapshot(ctx context.Context) []Status {
	pm.mu.Lock()
	out := make([]Status, 0, len(pm.order))
	plugins := make([]Plugin, 0, len(pm.order))
	for _, name := range pm.order {
		out = append(out, Status{Name: name, Running: pm.run[name], Err: pm.lastErr[name]})
		plugins = append(plugins, pm.byNam[name])
	}
	pm.mu.Unlock()

	for i, p := range plugins {
		hc, ok := p.(HealthChecker)
		if !ok || !out[i].Running {
			continue
		}
		hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		status, err := hc.Health(hctx)
		cancel()
		out[i].Health = status
		if err != nil {
			out[i].Err = err.Error()
		}
	}
	return out
}
