// Package scheduler runs commands once per control cycle.
//
// The scheduler owns every command it runs: it calls Initialize when a command
// is scheduled, Execute and IsFinished once per cycle, and End exactly once.
// Scheduling a command interrupts every running command that shares one of its
// requirements, so a subsystem is driven by at most one command at a time.
//
// Step and Run must be called from a single goroutine. All other methods are
// safe from any goroutine, including from inside command hooks; their effect
// is applied at the start of the next cycle.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/gwillem/robocmd/pkg/command"
)

// DefaultHz is the control frequency used when Config.Hz is not set.
const DefaultHz = 50

// ErrDefaultRequirement is returned when a default command does not require
// the subsystem it is the default for.
var ErrDefaultRequirement = errors.New("default command must require its subsystem")

// Config holds configuration for the scheduler.
type Config struct {
	Hz     int
	Logger *slog.Logger
	Clock  clock.WithTicker
}

// Status describes a running command.
type Status struct {
	Name         string
	Requirements []string
	StartedAt    time.Time
	Cycles       int

	cmd *command.Command
}

type entry struct {
	cmd       *command.Command
	startedAt time.Time
	cycles    int
}

// Scheduler runs commands.
type Scheduler struct {
	hz      int
	log     *slog.Logger
	clock   clock.WithTicker
	overrun *rate.Limiter

	mu       sync.Mutex
	pending  []func()
	snapshot []Status

	// Owned by the goroutine calling Step.
	running      []*entry
	owners       map[command.Subsystem]*entry
	defaults     map[command.Subsystem]*command.Command
	defaultOrder []command.Subsystem
	triggers     []*trigger
	enabled      bool
}

// New creates a scheduler. It starts enabled.
func New(cfg Config) *Scheduler {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &Scheduler{
		hz:       cfg.Hz,
		log:      cfg.Logger,
		clock:    cfg.Clock,
		overrun:  rate.NewLimiter(rate.Every(5*time.Second), 1),
		owners:   make(map[command.Subsystem]*entry),
		defaults: make(map[command.Subsystem]*command.Command),
		enabled:  true,
	}
}

// Hz returns the control frequency.
func (s *Scheduler) Hz() int {
	return s.hz
}

// Period returns the duration of one control cycle.
func (s *Scheduler) Period() time.Duration {
	return time.Second / time.Duration(s.hz)
}

func (s *Scheduler) enqueue(f func()) {
	s.mu.Lock()
	s.pending = append(s.pending, f)
	s.mu.Unlock()
}

// Schedule starts cmds at the next cycle. Commands already running are left
// alone.
func (s *Scheduler) Schedule(cmds ...*command.Command) {
	s.enqueue(func() {
		for _, c := range cmds {
			s.schedule(c)
		}
	})
}

// Cancel interrupts cmds at the next cycle.
func (s *Scheduler) Cancel(cmds ...*command.Command) {
	s.enqueue(func() {
		for _, c := range cmds {
			if e := s.find(c); e != nil {
				s.finish(e, true)
			}
		}
	})
}

// CancelAll interrupts every running command at the next cycle.
func (s *Scheduler) CancelAll() {
	s.enqueue(s.cancelAll)
}

// SetEnabled enables or disables the robot. While disabled, only commands
// that run when disabled are kept.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.enqueue(func() {
		if s.enabled != enabled {
			s.log.Info("robot state changed", "enabled", enabled)
		}
		s.enabled = enabled
	})
}

// SetDefault sets the command that runs on sub whenever nothing else
// requires it. A nil cmd removes the default.
func (s *Scheduler) SetDefault(sub command.Subsystem, cmd *command.Command) error {
	if cmd != nil && !cmd.HasRequirement(sub) {
		return fmt.Errorf("%s for %s: %w", cmd.Name(), sub.Name(), ErrDefaultRequirement)
	}
	s.enqueue(func() {
		if cmd == nil {
			delete(s.defaults, sub)
			s.defaultOrder = slices.DeleteFunc(s.defaultOrder, func(x command.Subsystem) bool { return x == sub })
			return
		}
		if _, ok := s.defaults[sub]; !ok {
			s.defaultOrder = append(s.defaultOrder, sub)
		}
		s.defaults[sub] = cmd
	})
	return nil
}

// IsScheduled reports whether cmd was running at the end of the last cycle.
func (s *Scheduler) IsScheduled(cmd *command.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.snapshot, func(st Status) bool { return st.cmd == cmd })
}

// Snapshot returns the commands running at the end of the last cycle, in
// the order they were scheduled.
func (s *Scheduler) Snapshot() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snapshot)
}

// Step runs one control cycle.
func (s *Scheduler) Step() {
	s.applyPending()
	s.pollTriggers()

	for _, e := range slices.Clone(s.running) {
		c := e.cmd
		if !s.enabled && !c.RunsWhenDisabled() {
			s.finish(e, true)
			continue
		}
		if err := c.Execute(); err != nil {
			s.fail(e, "execute", err)
			continue
		}
		e.cycles++
		if c.IsFinished() {
			s.finish(e, false)
		}
	}

	s.scheduleDefaults()
	s.publish()
}

// Run steps the scheduler at its control frequency until ctx is done, then
// interrupts everything still running.
func (s *Scheduler) Run(ctx context.Context) error {
	period := s.Period()
	ticker := s.clock.NewTicker(period)
	defer ticker.Stop()

	s.log.Info("scheduler started", "hz", s.hz)
	for {
		select {
		case <-ctx.Done():
			s.applyPending()
			s.cancelAll()
			s.publish()
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C():
			start := s.clock.Now()
			s.Step()
			if took := s.clock.Since(start); took > period && s.overrun.Allow() {
				s.log.Warn("loop overrun", "took", took, "period", period)
			}
		}
	}
}

func (s *Scheduler) applyPending() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, f := range pending {
		f()
	}
}

func (s *Scheduler) find(c *command.Command) *entry {
	for _, e := range s.running {
		if e.cmd == c {
			return e
		}
	}
	return nil
}

func (s *Scheduler) schedule(c *command.Command) {
	if c == nil || s.find(c) != nil {
		return
	}
	if !s.enabled && !c.RunsWhenDisabled() {
		s.log.Debug("not scheduling while disabled", "command", c.Name())
		return
	}

	reqs := c.Requirements()
	for _, r := range reqs {
		if e := s.owners[r]; e != nil {
			s.log.Debug("interrupting for requirement", "command", e.cmd.Name(), "by", c.Name(), "subsystem", r.Name())
			s.finish(e, true)
		}
	}

	e := &entry{cmd: c, startedAt: s.clock.Now()}
	s.running = append(s.running, e)
	for _, r := range reqs {
		s.owners[r] = e
	}
	s.log.Debug("command started", "command", c.Name())
	if err := c.Initialize(); err != nil {
		s.fail(e, "initialize", err)
	}
}

// finish ends e exactly once and releases its requirements.
func (s *Scheduler) finish(e *entry, interrupted bool) {
	i := slices.Index(s.running, e)
	if i < 0 {
		return
	}
	s.running = slices.Delete(s.running, i, i+1)
	for r, owner := range s.owners {
		if owner == e {
			delete(s.owners, r)
		}
	}
	if err := e.cmd.End(interrupted); err != nil {
		s.log.Error("command end failed", "command", e.cmd.Name(), "err", err)
	}
	s.log.Debug("command ended", "command", e.cmd.Name(), "interrupted", interrupted, "cycles", e.cycles)
}

func (s *Scheduler) fail(e *entry, phase string, err error) {
	s.log.Error("command failed", "command", e.cmd.Name(), "phase", phase, "err", err)
	s.finish(e, true)
}

func (s *Scheduler) cancelAll() {
	for len(s.running) > 0 {
		s.finish(s.running[len(s.running)-1], true)
	}
}

func (s *Scheduler) scheduleDefaults() {
	for _, sub := range s.defaultOrder {
		if s.owners[sub] == nil {
			s.schedule(s.defaults[sub])
		}
	}
}

func (s *Scheduler) publish() {
	snap := make([]Status, 0, len(s.running))
	for _, e := range s.running {
		reqs := e.cmd.Requirements()
		names := make([]string, len(reqs))
		for i, r := range reqs {
			names[i] = r.Name()
		}
		snap = append(snap, Status{
			Name:         e.cmd.Name(),
			Requirements: names,
			StartedAt:    e.startedAt,
			Cycles:       e.cycles,
			cmd:          e.cmd,
		})
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}
