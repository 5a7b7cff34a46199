package command

import (
	"slices"
)

// Builder collects hooks for a command. It is mutable; Build snapshots it.
//
// Unset hooks do nothing, and an unset Until means the command finishes on
// its first check.
type Builder struct {
	name             string
	requirements     []Subsystem
	initialize       Action
	execute          Action
	end              EndAction
	until            Predicate
	runsWhenDisabled bool
}

// NewBuilder starts a command with the given name and requirements.
func NewBuilder(name string, reqs ...Subsystem) *Builder {
	return &Builder{
		name:         name,
		requirements: slices.Clone(reqs),
	}
}

// OnInitialize sets the start hook.
func (b *Builder) OnInitialize(a Action) *Builder {
	b.initialize = a
	return b
}

// OnExecute sets the tick hook.
func (b *Builder) OnExecute(a Action) *Builder {
	b.execute = a
	return b
}

// OnEnd sets the stop hook.
func (b *Builder) OnEnd(a EndAction) *Builder {
	b.end = a
	return b
}

// Until sets the termination condition.
func (b *Builder) Until(p Predicate) *Builder {
	b.until = p
	return b
}

// RunsWhenDisabled marks the command as safe to run while the robot is
// disabled. Never set this on anything that drives actuators.
func (b *Builder) RunsWhenDisabled(runs bool) *Builder {
	b.runsWhenDisabled = runs
	return b
}

// Build returns a new command from the current hooks.
func (b *Builder) Build() *Command {
	c := newCommand(orDefault(b.name, "Command"), slices.Clone(b.requirements), hooks{
		initialize: b.initialize,
		execute:    b.execute,
		end:        b.end,
		isFinished: b.until,
	})
	c.runsWhenDisabled = b.runsWhenDisabled
	return c
}
