// Package fun holds the persona commands: the 8-ball with its easter eggs,
// the daily mood and the dice roller.
package fun

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"lassbot/internal/i18n"
	"lassbot/internal/plugin"
	"lassbot/internal/pluginkit"
	"lassbot/internal/transport/router"
)

const (
	minDice  = 1
	maxDice  = 1000
	minSides = 2
	maxSides = 99999999
)

type Config struct {
	pluginkit.Common
	// Humor maps a user id to a fixed mood line.
	Humor map[string]string `json:"humor"`
}

type Plugin struct {
	plugin.Base
	cfg    pluginkit.Holder[Config]
	custom pluginkit.Holder[map[int64]string]

	intn func(n int) int
	now  func() time.Time
}

func New() *Plugin { return &Plugin{intn: rand.IntN, now: time.Now} }

func (p *Plugin) Name() string { return "fun" }

func (p *Plugin) Init(ctx context.Context, deps plugin.Deps) error {
	p.InitBase(deps, p.Name())
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	p.StartBase(ctx)
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error { return p.StopBase(ctx) }

func (p *Plugin) decode(raw json.RawMessage) (Config, map[int64]string, error) {
	c, err := plugin.DecodeConfig[Config](raw)
	if err != nil {
		return c, nil, err
	}
	if err := c.Timeouts.Validate(p.Name() + ".timeouts"); err != nil {
		return c, nil, err
	}
	custom := make(map[int64]string, len(c.Humor))
	for k, v := range c.Humor {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return c, nil, fmt.Errorf("fun.humor: key %q is not a user id", k)
		}
		custom[id] = v
	}
	return c, custom, nil
}

func (p *Plugin) ValidateConfig(ctx context.Context, raw json.RawMessage) error {
	_, _, err := p.decode(raw)
	return err
}

func (p *Plugin) OnConfigChange(ctx context.Context, raw json.RawMessage) error {
	c, custom, err := p.decode(raw)
	if err != nil {
		return err
	}
	p.cfg.Store(c)
	p.custom.Store(custom)
	return nil
}

func (p *Plugin) Commands() []router.Command {
	timeout := p.cfg.Load().Timeouts.CommandOr(0)
	return []router.Command{
		{Name: "pergunta", Description: i18n.HelpPergunta, Usage: "pergunta <pergunta>", Timeout: timeout, Handle: p.handleQuestion},
		{Name: "dado", Description: i18n.HelpDado, Usage: "dado <x>d<y>", Timeout: timeout, Handle: p.handleDice},
		{Name: "humor", Description: i18n.HelpHumor, Usage: "humor", Timeout: timeout, Handle: p.handleMood},
	}
}

func (p *Plugin) handleQuestion(ctx context.Context, req *router.Request) error {
	if req.RawArgs == "" {
		return req.Usage(ctx, "pergunta <pergunta>")
	}
	hits := matchEggs(req.RawArgs)
	switch len(hits) {
	case 0:
		return req.Reply(ctx, answers[p.intn(len(answers))])
	case 1:
		return req.Reply(ctx, hits[0].reply(req.Adapter, req.FromID))
	}
	return req.Reply(ctx, req.Adapter.Escape(bigBang))
}

// ParseDice reads "xdy" (case-insensitive).
func ParseDice(s string) (dice, sides int, err error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "d")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("dice %q: want xdy", s)
	}
	if dice, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("dice %q: %w", s, err)
	}
	if sides, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("dice %q: %w", s, err)
	}
	return dice, sides, nil
}

func (p *Plugin) handleDice(ctx context.Context, req *router.Request) error {
	spec := req.Arg(0)
	dice, sides, err := ParseDice(spec)
	if err != nil {
		return req.ReplyT(ctx, i18n.MsgDiceFormat)
	}
	if dice < minDice || dice > maxDice || sides < minSides || sides > maxSides {
		return req.ReplyT(ctx, i18n.MsgDiceLimits)
	}
	results := make([]string, dice)
	for i := range results {
		results[i] = strconv.Itoa(p.intn(sides) + 1)
	}
	return req.ReplyT(ctx, i18n.MsgDiceResults, req.Adapter.Escape(spec), strings.Join(results, ", "))
}

// Mood is stable for a user for the whole day of month.
func Mood(userID int64, day int) string {
	seed := uint64(userID + int64(day))
	r := rand.New(rand.NewPCG(seed, seed))
	return moods[r.IntN(len(moods))]
}

func (p *Plugin) handleMood(ctx context.Context, req *router.Request) error {
	if line, ok := p.custom.Load()[req.FromID]; ok {
		return req.Reply(ctx, req.Adapter.Escape(line))
	}
	return req.Reply(ctx, Mood(req.FromID, p.now().Day()))
}
