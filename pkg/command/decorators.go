package command

import (
	"errors"
	"fmt"
	"time"
)

// WithTimeout races cmd against a timer of d. When the timer wins, cmd is
// interrupted.
func WithTimeout(cmd *Command, d time.Duration, opts ...Option) *Command {
	o := newOptions(cmd.Name(), opts)
	timer := Wait(d, WithClock(o.clock))
	return race(o.name, []*Command{cmd, timer})
}

// FinallyDo returns a copy of cmd that calls fn after its own End, with the
// same interrupted flag.
func FinallyDo(cmd *Command, fn EndAction) *Command {
	c := newCommand(cmd.name, cmd.requirements, hooks{
		initialize: cmd.Initialize,
		execute:    cmd.Execute,
		end: func(interrupted bool) error {
			return errors.Join(cmd.End(interrupted), fn(interrupted))
		},
		isFinished: cmd.IsFinished,
	})
	c.runsWhenDisabled = cmd.runsWhenDisabled
	return c
}

// Repeat runs n commands from factory in sequence. A factory that returns
// the same command every time is fine, since sequence children never overlap.
func Repeat(name string, n int, factory func() *Command) (*Command, error) {
	cmds := make([]*Command, 0, max(n, 0))
	for range n {
		cmds = append(cmds, factory())
	}
	c, err := Sequence(orDefault(name, "Repeat"), cmds...)
	if err != nil {
		return nil, fmt.Errorf("repeat %d: %w", n, err)
	}
	return c, nil
}

// RepeatWhile runs cmd, and restarts it in the same cycle each time it
// finishes while cond holds. It finishes the first time cmd finishes with
// cond false.
func RepeatWhile(name string, cmd *Command, cond Predicate) *Command {
	var (
		done    bool
		running bool
	)
	c := newCommand(orDefault(name, "RepeatWhile "+cmd.Name()), cmd.requirements, hooks{
		initialize: func() error {
			done, running = false, true
			return wrapChild(cmd, cmd.Initialize())
		},
		execute: func() error {
			if !running {
				return nil
			}
			if err := cmd.Execute(); err != nil {
				return wrapChild(cmd, err)
			}
			if !cmd.IsFinished() {
				return nil
			}
			running = false
			if err := cmd.End(false); err != nil {
				return wrapChild(cmd, err)
			}
			if !cond() {
				done = true
				return nil
			}
			running = true
			return wrapChild(cmd, cmd.Initialize())
		},
		end: func(interrupted bool) error {
			if !running {
				return nil
			}
			running = false
			return wrapChild(cmd, cmd.End(interrupted))
		},
		isFinished: func() bool { return done },
	})
	c.runsWhenDisabled = cmd.runsWhenDisabled
	return c
}

// DoIfInterrupted runs cmd, then ifInterrupted if cmd was ended by an
// interruption from inside the enclosing tree, or ifFinished otherwise.
func DoIfInterrupted(name string, cmd, ifInterrupted, ifFinished *Command) (*Command, error) {
	return doIfInterrupted(orDefault(name, "DoIfInterrupted"), cmd, ifInterrupted, ifFinished, nil)
}

// DoIfTimedOut runs cmd for at most timeout, then ifTimedOut if the timer
// cut it short, or ifFinished otherwise.
func DoIfTimedOut(name string, cmd *Command, timeout time.Duration, ifTimedOut, ifFinished *Command, opts ...Option) (*Command, error) {
	return doIfInterrupted(orDefault(name, "DoIfTimedOut"), cmd, ifTimedOut, ifFinished, func(c *Command) *Command {
		return WithTimeout(c, timeout, opts...)
	})
}

func doIfInterrupted(name string, cmd, ifInterrupted, ifFinished *Command, wrap func(*Command) *Command) (*Command, error) {
	if cmd == nil || ifInterrupted == nil || ifFinished == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNilCommand)
	}
	var wasInterrupted bool
	reset := RunOnce("", func() error {
		wasInterrupted = false
		return nil
	})
	watched := FinallyDo(cmd, func(interrupted bool) error {
		wasInterrupted = interrupted
		return nil
	})
	if wrap != nil {
		watched = wrap(watched)
	}
	branch, err := Conditional("", func() bool { return wasInterrupted }, ifInterrupted, ifFinished)
	if err != nil {
		return nil, err
	}
	return Sequence(name+" "+cmd.Name(), reset, watched, branch)
}
