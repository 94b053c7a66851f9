package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lassbot/internal/eventbus"
	"lassbot/internal/i18n"
	rtsup "lassbot/internal/runtime/supervisor"
	"lassbot/internal/transport"
	"lassbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	// AccessAdmin needs the chat's administrator flag.
	AccessAdmin
	AccessOwnerOnly
)

// Perm is an extra right a command needs besides its Access.
type Perm int

const (
	PermNone Perm = iota
	PermBan
	PermKick
)

type Command struct {
	Name        string
	Aliases     []string
	Description string // i18n key
	Usage       string // without prefix, e.g. "dado xdy"
	Access      Access
	Requires    Perm
	// ServerOnly rejects the command in direct messages.
	ServerOnly bool
	// Hidden commands are left out of help and the command menu.
	Hidden bool

	PluginName string
	Timeout    time.Duration // optional per-command override
	Handle     HandlerFunc
}

type CallbackHandlerFunc func(ctx context.Context, req *Request, payload string) error

// CallbackAccess controls who can trigger an inline-button callback.
type CallbackAccess int

const (
	CallbackAccessOwnerOnly CallbackAccess = iota
	CallbackAccessEveryone
)

type CallbackRoute struct {
	Plugin      string
	Action      string
	Description string
	Access      CallbackAccess
	Timeout     time.Duration
	// NoAutoAnswer leaves acknowledging the callback to the handler.
	NoAutoAnswer bool
	Handle       CallbackHandlerFunc
}

// Handled is published on the bus after every command run.
type Handled struct {
	Command  string
	Platform string
	FromID   int64
	Took     time.Duration
	Err      string
}

type Options struct {
	Logger  logx.Logger
	Adapter transport.Adapter
	Bus     eventbus.Bus
	// Supervisor runs background work such as the command menu update.
	Supervisor *rtsup.Supervisor

	Prefix         string
	Locale         string
	Owners         []int64
	Workers        int
	RatePerMinute  int
	CommandTimeout time.Duration
}

type CommandManager struct {
	mu    sync.RWMutex
	cmds  map[string]*Command
	alias map[string]*Command
	order []*Command

	cbMu      sync.RWMutex
	callbacks map[string]map[string]CallbackRoute // plugin -> action -> route

	ownMu  sync.RWMutex
	owners []int64

	prefix  atomic.Value // string
	tr      atomic.Pointer[i18n.Translator]
	timeout atomic.Int64
	limiter *userLimiter

	log     logx.Logger
	adapter transport.Adapter
	bus     eventbus.Bus
	appSup  *rtsup.Supervisor
	workers int

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor

	jobs chan func()
}

func NewCommandManager(opt Options) *CommandManager {
	log := opt.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 2 {
			workers = 2
		}
	}
	m := &CommandManager{
		cmds:      map[string]*Command{},
		alias:     map[string]*Command{},
		callbacks: map[string]map[string]CallbackRoute{},
		owners:    append([]int64(nil), opt.Owners...),
		limiter:   newUserLimiter(opt.RatePerMinute),
		log:       log,
		adapter:   opt.Adapter,
		bus:       opt.Bus,
		appSup:    opt.Supervisor,
		workers:   workers,
		jobs:      make(chan func(), 256),
	}
	m.SetPrefix(opt.Prefix)
	m.SetLocale(opt.Locale)
	m.SetCommandTimeout(opt.CommandTimeout)
	return m
}

// Supervisor returns the command manager's internal supervisor (nil if not running).
func (m *CommandManager) Supervisor() *rtsup.Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

func (m *CommandManager) setSupervisor(sup *rtsup.Supervisor, running bool) {
	m.runMu.Lock()
	m.sup = sup
	m.running = running
	m.runMu.Unlock()
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// SetOwners updates the owner list. Safe to call during hot-reload.
func (m *CommandManager) SetOwners(owners []int64) {
	ownCopy := append([]int64(nil), owners...)
	m.ownMu.Lock()
	m.owners = ownCopy
	m.ownMu.Unlock()
}

func (m *CommandManager) isOwner(id int64) bool {
	m.ownMu.RLock()
	defer m.ownMu.RUnlock()
	for _, o := range m.owners {
		if o == id {
			return true
		}
	}
	return false
}

// SetPrefix changes the command prefix. Empty means the default "$".
func (m *CommandManager) SetPrefix(p string) {
	p = strings.TrimSpace(p)
	if p == "" {
		p = "$"
	}
	m.prefix.Store(p)
}

func (m *CommandManager) Prefix() string {
	p, _ := m.prefix.Load().(string)
	return p
}

func (m *CommandManager) SetLocale(locale string) { m.tr.Store(i18n.New(locale)) }

func (m *CommandManager) Translator() *i18n.Translator { return m.tr.Load() }

func (m *CommandManager) SetRateLimit(perMinute int) { m.limiter.set(perMinute) }

func (m *CommandManager) SetCommandTimeout(d time.Duration) {
	if d <= 0 {
		d = 30 * time.Second
	}
	m.timeout.Store(int64(d))
}

func (m *CommandManager) prefixes() []string {
	p := m.Prefix()
	if m.adapter != nil && m.adapter.Platform() == transport.PlatformTelegram && p != "/" {
		return []string{p, "/"}
	}
	return []string{p}
}

// SetRegistry replaces the command and callback tables. help is always added.
func (m *CommandManager) SetRegistry(cmds []Command, cbs []CallbackRoute) {
	cmds = append(cmds, Command{
		Name:        "help",
		Description: i18n.HelpHelp,
		Usage:       "help [cmd]",
		Handle:      m.handleHelp,
	})

	table := map[string]*Command{}
	alias := map[string]*Command{}
	order := make([]*Command, 0, len(cmds))
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || strings.ContainsAny(name, " \t") || c.Handle == nil {
			continue
		}
		if _, dup := table[name]; dup {
			m.log.Warn("duplicate command ignored", logx.String("cmd", name), logx.String("plugin", c.PluginName))
			continue
		}
		cc := c
		cc.Name = name
		table[name] = &cc
		order = append(order, &cc)
	}
	for _, c := range order {
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			if _, taken := table[a]; taken {
				continue
			}
			alias[a] = c
		}
	}

	cb := map[string]map[string]CallbackRoute{}
	for _, r := range cbs {
		p := strings.TrimSpace(r.Plugin)
		a := strings.TrimSpace(r.Action)
		if p == "" || a == "" || r.Handle == nil {
			continue
		}
		if cb[p] == nil {
			cb[p] = map[string]CallbackRoute{}
		}
		cb[p][a] = r
	}

	m.mu.Lock()
	m.cmds = table
	m.alias = alias
	m.order = order
	m.mu.Unlock()

	m.cbMu.Lock()
	m.callbacks = cb
	m.cbMu.Unlock()

	// Best-effort Telegram command menu update (non-blocking).
	if up, ok := m.adapter.(transport.CommandMenuUpdater); ok {
		menu := buildMenuCommands(order, m.Translator())
		run := func(parent context.Context) {
			ctx, cancel := context.WithTimeout(parent, 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(ctx, menu); err != nil {
				m.log.Debug("command menu update failed", logx.Err(err))
			}
		}
		if m.appSup != nil {
			m.appSup.Go0("router.menu.update", run)
		} else {
			go run(context.Background())
		}
	}
}

// Lookup resolves a command name or alias.
func (m *CommandManager) Lookup(name string) (Command, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.cmds[name]; ok {
		return *c, true
	}
	if c, ok := m.alias[name]; ok {
		return *c, true
	}
	return Command{}, false
}

// Commands returns the registry in registration order.
func (m *CommandManager) Commands() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Command, 0, len(m.order))
	for _, c := range m.order {
		out = append(out, *c)
	}
	return out
}

// DispatchLoop feeds updates to a bounded worker pool until ctx ends or
// updates is closed.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	workers := m.workers

	// Internal supervisor keeps the worker pool resilient and observable.
	sup := rtsup.New(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "router"))),
		rtsup.WithCancelOnError(false),
	)
	m.setSupervisor(sup, true)
	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			m.setSupervisor(sup, false)
			close(m.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					if job == nil {
						continue
					}
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
			rtsup.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		closeJobs()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.setSupervisor(nil, false)
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.routeUpdate(ctx, up)
		}
	}
}

func (m *CommandManager) routeUpdate(root context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		m.routeMessage(root, up)
	case transport.UpdateCallback:
		m.routeCallback(root, up)
	}
}

func (m *CommandManager) routeMessage(root context.Context, up transport.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	name, rest, ok := splitCommand(msg.Text, m.prefixes()...)
	if !ok {
		return
	}
	cmd, ok := m.Lookup(name)
	if !ok {
		// A bare "$" in conversation is common; unknown names stay silent.
		m.log.Trace("unknown command", logx.String("cmd", name), logx.Int64("from_id", msg.FromID))
		return
	}
	req := m.newRequest(up, cmd.Name)
	req.Message = msg
	req.RawArgs = rest
	req.Args = tokenizeCommandLine(rest)
	m.enqueueCommand(root, cmd, req)
}

func (m *CommandManager) newRequest(up transport.Update, command string) *Request {
	var chat transport.ChatTarget
	var from, server int64
	switch {
	case up.Message != nil:
		chat = transport.ChatTarget{ChatID: up.Message.ChatID, ThreadID: up.Message.ThreadID}
		from, server = up.Message.FromID, up.Message.ServerID
	case up.Callback != nil:
		chat = transport.ChatTarget{ChatID: up.Callback.ChatID, ThreadID: up.Callback.ThreadID}
		from = up.Callback.FromID
	}
	rid := newReqID()
	return &Request{
		Update:   up,
		Chat:     chat,
		ServerID: server,
		FromID:   from,
		Command:  command,
		Prefix:   m.Prefix(),
		ReqID:    rid,
		IsOwner:  m.isOwner(from),
		Adapter:  m.adapter,
		Tr:       m.Translator(),
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.Int64("from_id", from),
			logx.String("cmd", command),
		),
	}
}

// authorize checks access, extra permissions and scope. It replies itself
// when the request is rejected.
func (m *CommandManager) authorize(ctx context.Context, cmd Command, req *Request) bool {
	if cmd.ServerOnly && (req.Message == nil || !req.Message.IsGroup) {
		_ = req.ReplyT(ctx, i18n.MsgServerOnly)
		return false
	}
	if req.IsOwner {
		return true
	}
	if cmd.Access == AccessOwnerOnly {
		_ = req.ReplyT(ctx, i18n.MsgForbidden)
		return false
	}
	if cmd.Access == AccessEveryone && cmd.Requires == PermNone {
		return true
	}
	p := req.Permissions(ctx)
	allowed := true
	if cmd.Access == AccessAdmin && !p.Admin {
		allowed = false
	}
	switch cmd.Requires {
	case PermBan:
		allowed = allowed && (p.Ban || p.Admin)
	case PermKick:
		allowed = allowed && (p.Kick || p.Admin)
	}
	if !allowed {
		_ = req.ReplyT(ctx, i18n.MsgForbidden)
	}
	return allowed
}

func (m *CommandManager) enqueueCommand(root context.Context, cmd Command, req *Request) {
	if !req.IsOwner && !m.limiter.allow(req.FromID, time.Now()) {
		_ = req.ReplyT(root, i18n.MsgRateLimited)
		return
	}
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = time.Duration(m.timeout.Load())
	}
	handle := cmd.Handle
	final := Chain(
		func(ctx context.Context, r *Request) error {
			if !m.authorize(ctx, cmd, r) {
				return nil
			}
			return handle(ctx, r)
		},
		MWRequestLog(m.log),
		MWReplyOnError(),
		MWPanicRecover(m.log),
		MWTimeout(timeout),
	)

	if !m.tryEnqueue(func() {
		start := time.Now()
		err := final(root, req)
		ev := Handled{Command: cmd.Name, Platform: m.adapter.Platform(), FromID: req.FromID, Took: time.Since(start)}
		if err != nil {
			ev.Err = err.Error()
		}
		eventbus.Emit(m.bus, eventbus.CommandHandled, ev)
	}) {
		m.log.Warn("command queue full", logx.String("cmd", cmd.Name))
		_ = req.ReplyT(root, i18n.MsgRateLimited)
	}
}

func (m *CommandManager) routeCallback(root context.Context, up transport.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	parts := strings.SplitN(strings.TrimSpace(cb.Data), ":", 3)
	if len(parts) < 2 {
		return
	}
	plugin, action := parts[0], parts[1]
	payload := ""
	if len(parts) == 3 {
		payload = parts[2]
	}

	m.cbMu.RLock()
	route, ok := m.callbacks[plugin][action]
	m.cbMu.RUnlock()
	if !ok {
		return
	}

	req := m.newRequest(up, "cb:"+plugin+":"+action)
	req.Payload = payload
	if route.Access == CallbackAccessOwnerOnly && !req.IsOwner {
		_ = m.adapter.AnswerCallback(root, *cb, req.T(i18n.MsgForbidden))
		return
	}

	h := func(ctx context.Context, r *Request) error { return route.Handle(ctx, r, payload) }
	final := Chain(
		h,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(route.Timeout),
	)

	if !m.tryEnqueue(func() {
		_ = final(root, req)
		if !route.NoAutoAnswer {
			_ = m.adapter.AnswerCallback(root, *cb, "")
		}
	}) {
		_ = m.adapter.AnswerCallback(root, *cb, "")
	}
}
