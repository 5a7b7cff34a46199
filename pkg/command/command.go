// Package command builds schedulable units of robot behavior and composes them
// into groups.
//
// A Command is a behavior descriptor with four hooks. A scheduler drives it:
// Initialize once, then Execute followed by IsFinished every control cycle, and
// finally End exactly once, with interrupted set when the command was cancelled
// instead of finishing on its own. Hooks must never block; waiting is expressed
// by returning false from IsFinished.
//
// Commands declare the subsystems they need exclusive access to. This package
// only declares and unions those sets; arbitration is the scheduler's job.
package command

import (
	"slices"
)

// Subsystem is an exclusively owned resource, usually one physical mechanism.
// Implementations must be comparable; pointer types are the usual choice.
type Subsystem interface {
	Name() string
}

type subsystem struct {
	name string
}

func (s *subsystem) Name() string { return s.name }

func (s *subsystem) String() string { return s.name }

// NewSubsystem returns a plain subsystem token with the given name. Each call
// returns a distinct token, even for equal names.
func NewSubsystem(name string) Subsystem {
	return &subsystem{name: name}
}

// Action is a start or tick hook.
type Action func() error

// EndAction is a stop hook.
type EndAction func(interrupted bool) error

type hooks struct {
	initialize Action
	execute    Action
	end        EndAction
	isFinished Predicate
}

// Command is an immutable unit of schedulable behavior.
type Command struct {
	name             string
	requirements     []Subsystem
	hooks            hooks
	runsWhenDisabled bool
}

func newCommand(name string, reqs []Subsystem, h hooks) *Command {
	if h.initialize == nil {
		h.initialize = noop
	}
	if h.execute == nil {
		h.execute = noop
	}
	if h.end == nil {
		h.end = noopEnd
	}
	if h.isFinished == nil {
		h.isFinished = always
	}
	return &Command{
		name:         name,
		requirements: dedupe(reqs),
		hooks:        h,
	}
}

func noop() error { return nil }

func noopEnd(bool) error { return nil }

// Name returns the display name.
func (c *Command) Name() string { return c.name }

func (c *Command) String() string { return c.name }

// Requirements returns the subsystems this command needs, in declaration order.
func (c *Command) Requirements() []Subsystem {
	return slices.Clone(c.requirements)
}

// HasRequirement reports whether the command requires s.
func (c *Command) HasRequirement(s Subsystem) bool {
	return slices.Contains(c.requirements, s)
}

// RunsWhenDisabled reports whether a scheduler may keep running the command
// while the robot is disabled.
func (c *Command) RunsWhenDisabled() bool { return c.runsWhenDisabled }

// Initialize runs the start hook.
func (c *Command) Initialize() error { return c.hooks.initialize() }

// Execute runs the tick hook.
func (c *Command) Execute() error { return c.hooks.execute() }

// End runs the stop hook.
func (c *Command) End(interrupted bool) error { return c.hooks.end(interrupted) }

// IsFinished reports whether the command is done. It is only meaningful after
// at least one Execute following Initialize.
func (c *Command) IsFinished() bool { return c.hooks.isFinished() }

// WithName returns a copy of c with a different display name. The copy shares
// c's hooks and their state, so the two must not run at the same time.
func (c *Command) WithName(name string) *Command {
	cp := *c
	cp.name = name
	return &cp
}

// RunWhenDisabled returns a copy of c that a scheduler keeps running while the
// robot is disabled. The same sharing rule as WithName applies.
func RunWhenDisabled(c *Command) *Command {
	cp := *c
	cp.runsWhenDisabled = true
	return &cp
}

func dedupe(reqs []Subsystem) []Subsystem {
	out := make([]Subsystem, 0, len(reqs))
	for _, r := range reqs {
		if r == nil || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func orDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
