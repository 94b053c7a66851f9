// Package system has the owner-only operational commands.
package system

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"lassbot/internal/i18n"
	"lassbot/internal/plugin"
	"lassbot/internal/transport/router"
)

type Plugin struct {
	plugin.Base
	startedAt time.Time
	now       func() time.Time
}

func New() *Plugin             { return &Plugin{now: time.Now} }
func (p *Plugin) Name() string { return "system" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	if p.startedAt.IsZero() {
		p.startedAt = p.now()
	}
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }

func (p *Plugin) Commands() []router.Command {
	return []router.Command{
		{Name: "health", Aliases: []string{"sysinfo"}, Description: i18n.HelpHealth, Usage: "health", Access: router.AccessOwnerOnly, Handle: p.handleHealth},
	}
}

func (p *Plugin) handleHealth(ctx context.Context, req *router.Request) error {
	var statuses []plugin.Status
	if p.Deps.Status != nil {
		statuses = p.Deps.Status(ctx)
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	f := req.Adapter
	state := i18n.MsgHealthRunning
	lines := make([]string, 0, len(statuses)+5)
	for _, st := range statuses {
		health := st.Health
		if !st.Running {
			health = req.T(i18n.MsgHealthStopped)
		}
		line := "- " + f.Bold(st.Name) + ": " + f.Escape(health)
		if st.Err != "" {
			state = i18n.MsgHealthDegraded
			line += " (" + f.Escape(st.Err) + ")"
		}
		lines = append(lines, line)
	}

	head := []string{
		f.Bold(req.T(i18n.MsgHealthHeader, req.T(state))),
		req.T(i18n.MsgHealthUptime, durRel(p.now().Sub(p.startedAt))),
		req.T(i18n.MsgHealthRuntime, humanize.IBytes(m.Alloc), strconv.Itoa(runtime.NumGoroutine())),
	}
	if len(lines) > 0 {
		head = append(head, req.T(i18n.MsgHealthPlugins))
	}
	return req.Reply(ctx, strings.Join(append(head, lines...), "\n"))
}

func durRel(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
