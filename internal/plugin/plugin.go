package plugin

import (
	"context"
	"encoding/json"

	"lassbot/internal/eventbus"
	"lassbot/internal/pager"
	"lassbot/internal/routines"
	"lassbot/internal/storage"
	"lassbot/internal/transport"
	"lassbot/internal/transport/router"
	"lassbot/pkg/logx"
)

type Plugin interface {
	Name() string
	Init(ctx context.Context, deps Deps) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() []router.Command
}

type ConfigurablePlugin interface {
	OnConfigChange(ctx context.Context, raw json.RawMessage) error
}

// ConfigValidator is an optional hook to validate plugin config before applying it.
type ConfigValidator interface {
	ValidateConfig(ctx context.Context, raw json.RawMessage) error
}

type CallbackProvider interface {
	Callbacks() []router.CallbackRoute
}

// HealthChecker is an optional plugin interface used by status reporting.
type HealthChecker interface {
	Health(ctx context.Context) (status string, err error)
}

// PrefixEditor changes the command prefix at runtime.
type PrefixEditor interface {
	Prefix() string
	SetPrefix(p string)
}

type Deps struct {
	Logger   logx.Logger
	Adapter  transport.Adapter
	Bus      eventbus.Bus
	Store    storage.Store
	Routines *routines.Service
	Pager    *pager.Manager
	Prefix   PrefixEditor
	// Status reports every registered plugin. Nil outside the app.
	Status func(ctx context.Context) []Status
}
