package command

import (
	"time"
)

// None returns a command that does nothing and finishes immediately.
func None() *Command {
	c := newCommand("None", nil, hooks{})
	c.runsWhenDisabled = true
	return c
}

// RunOnce returns a command that runs action on start and finishes at its
// first check.
func RunOnce(name string, action Action, reqs ...Subsystem) *Command {
	return newCommand(orDefault(name, "RunOnce"), reqs, hooks{initialize: action})
}

// Run returns a command that runs action every cycle and never finishes on
// its own.
func Run(name string, action Action, reqs ...Subsystem) *Command {
	return newCommand(orDefault(name, "Run"), reqs, hooks{execute: action, isFinished: never})
}

// StartEnd returns a command that runs start on start and end on stop, and
// never finishes on its own.
func StartEnd(name string, start, end Action, reqs ...Subsystem) *Command {
	var stop EndAction
	if end != nil {
		stop = func(bool) error { return end() }
	}
	return newCommand(orDefault(name, "StartEnd"), reqs, hooks{
		initialize: start,
		end:        stop,
		isFinished: never,
	})
}

// WaitUntil returns a command that finishes once p is true.
func WaitUntil(p Predicate) *Command {
	c := newCommand("WaitUntil", nil, hooks{isFinished: p})
	c.runsWhenDisabled = true
	return c
}

// Wait returns a command that finishes once d has elapsed since it started.
func Wait(d time.Duration, opts ...Option) *Command {
	return WaitFunc(func() time.Duration { return d }, opts...)
}

// WaitFunc is Wait with the duration read from duration each time the command
// starts.
func WaitFunc(duration func() time.Duration, opts ...Option) *Command {
	o := newOptions("Wait", opts)
	var (
		started time.Time
		d       time.Duration
	)
	c := newCommand(o.name, o.requirements, hooks{
		initialize: func() error {
			started = o.clock.Now()
			d = duration()
			return nil
		},
		isFinished: func() bool {
			return o.clock.Since(started) >= d
		},
	})
	c.runsWhenDisabled = true
	return c
}

// InitAndWait runs init once, then waits for until.
func InitAndWait(name string, init Action, until Predicate, reqs ...Subsystem) *Command {
	return parallel(orDefault(name, "InitAndWait"), []*Command{
		RunOnce("", init, reqs...),
		WaitUntil(until),
	})
}

// CallAndWait calls fn with value, then waits for until. It is the usual way
// to set a target and block until a mechanism reaches it.
func CallAndWait[T any](name string, value T, fn func(T) error, until Predicate, reqs ...Subsystem) *Command {
	return InitAndWait(name, func() error { return fn(value) }, until, reqs...)
}

// Setter returns a command that calls fn with value once.
func Setter[T any](name string, value T, fn func(T) error, reqs ...Subsystem) *Command {
	return RunOnce(name, func() error { return fn(value) }, reqs...)
}
