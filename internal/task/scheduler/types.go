package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lassbot/internal/eventbus"
	"lassbot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA name, e.g. "America/Sao_Paulo"; empty means Local
}

// Job is one run of a schedule. ctx carries the per-run timeout.
type Job = func(ctx context.Context) error

type scheduleDef struct {
	name    string
	spec    string
	timeout time.Duration
	job     Job
	entryID cron.EntryID

	// guarded by Service.statsMu; jobs update them while mu may be held by
	// a restart waiting for those same jobs.
	runs    uint64
	lastErr string
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	bus eventbus.Bus
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	base   context.Context
	defs   []*scheduleDef

	statsMu sync.Mutex
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
	Runs    uint64
	LastErr string
}

type Snapshot struct {
	Enabled   bool
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}

// JobResult is published on the bus after every run.
type JobResult struct {
	Name string
	Took time.Duration
	Err  string
}
