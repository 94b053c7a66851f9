package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lassbot/internal/eventbus"
	rtsup "lassbot/internal/runtime/supervisor"
	"lassbot/internal/storage"
	"lassbot/pkg/logx"
)

// Base is a small helper to make writing plugins faster and safer.
// Typical usage:
//
//	type Plugin struct { plugin.Base }
//	func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error { p.InitBase(deps, p.Name()); return nil }
//	func (p *Plugin) Start(ctx context.Context) error { p.StartBase(ctx); return nil }
//	func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }
type Base struct {
	Log        logx.Logger
	Deps       Deps
	Runner     *rtsup.Supervisor
	pluginName string

	ctx context.Context
}

// Health reports whether the plugin has been started and not stopped yet.
func (b *Base) Health(ctx context.Context) (string, error) {
	if b == nil {
		return "nil", errors.New("plugin base is nil")
	}
	if b.ctx == nil {
		return "not_started", nil
	}
	select {
	case <-b.ctx.Done():
		return "stopped", b.ctx.Err()
	default:
	}
	return "ok", nil
}

// InitBase wires deps + logger.
func (b *Base) InitBase(deps Deps, pluginName string) {
	b.Deps = deps
	b.pluginName = pluginName
	if !deps.Logger.IsZero() {
		b.Log = deps.Logger.With(logx.String("plugin", pluginName))
	} else {
		b.Log = logx.Nop().With(logx.String("plugin", pluginName))
	}
}

// StartBase creates a per-plugin supervisor tied to ctx.
func (b *Base) StartBase(ctx context.Context) {
	b.ctx = ctx
	b.Runner = rtsup.New(ctx, rtsup.WithLogger(b.Log), rtsup.WithCancelOnError(false))
}

// StopBase cancels runner + waits bounded by ctx.
func (b *Base) StopBase(ctx context.Context) error {
	if b.Runner == nil {
		return nil
	}
	err := b.Runner.Stop(ctx)
	b.Runner = nil
	return err
}

// Context returns the plugin runtime context (canceled on stop/disable).
func (b *Base) Context() context.Context { return b.ctx }

// Audit records a moderation or ownership action. Failures are logged only.
func (b *Base) Audit(ctx context.Context, e storage.AuditEntry) {
	st := b.Deps.Store
	if st == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Plugin == "" {
		e.Plugin = b.pluginName
	}
	if err := st.AppendAudit(ctx, e); err != nil {
		b.Log.Warn("audit append failed", logx.String("action", e.Action), logx.Err(err))
	}
}

// PublishEvent publishes a lightweight event to the in-process event bus (if present).
func (b *Base) PublishEvent(typ string, data any) {
	if b == nil {
		return
	}
	eventbus.Emit(b.Deps.Bus, typ, data)
}

// DecodeConfig decodes per-plugin raw json into a typed config struct.
func DecodeConfig[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
