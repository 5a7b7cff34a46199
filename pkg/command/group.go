package command

import (
	"errors"
	"fmt"
	"slices"
)

// Sequence runs cmds one after another. When a child finishes, the next one
// starts in the same cycle. Requirements may overlap, since children never
// run at the same time.
func Sequence(name string, cmds ...*Command) (*Command, error) {
	if err := validate(cmds, false); err != nil {
		return nil, fmt.Errorf("sequence %q: %w", name, err)
	}
	return sequence(orDefault(name, "Sequence"), cmds), nil
}

// Parallel runs cmds at the same time and finishes when all of them have.
func Parallel(name string, cmds ...*Command) (*Command, error) {
	if err := validate(cmds, true); err != nil {
		return nil, fmt.Errorf("parallel %q: %w", name, err)
	}
	return parallel(orDefault(name, "Parallel"), cmds), nil
}

// Race runs cmds at the same time and finishes as soon as one of them does.
// The first finisher in declaration order ends normally; every other child is
// interrupted, including ones that finished in the same cycle.
func Race(name string, cmds ...*Command) (*Command, error) {
	if err := validate(cmds, true); err != nil {
		return nil, fmt.Errorf("race %q: %w", name, err)
	}
	return race(orDefault(name, "Race"), cmds), nil
}

// Deadline runs limiter and others at the same time and finishes exactly when
// limiter does. Others still running at that point are interrupted.
func Deadline(name string, limiter *Command, others ...*Command) (*Command, error) {
	all := append([]*Command{limiter}, others...)
	if err := validate(all, true); err != nil {
		return nil, fmt.Errorf("deadline %q: %w", name, err)
	}
	return deadline(orDefault(name, "Deadline"), all), nil
}

func validate(cmds []*Command, concurrent bool) error {
	if len(cmds) == 0 {
		return ErrEmptyGroup
	}
	for i, c := range cmds {
		if c == nil {
			return fmt.Errorf("%w at position %d", ErrNilCommand, i)
		}
	}
	if !concurrent {
		return nil
	}
	owner := make(map[Subsystem]*Command)
	for i, c := range cmds {
		if slices.Contains(cmds[:i], c) {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, c.Name())
		}
		for _, r := range c.requirements {
			if prev, ok := owner[r]; ok {
				return fmt.Errorf("%w: %s required by %s and %s", ErrConflictingRequirements, r.Name(), prev.Name(), c.Name())
			}
			owner[r] = c
		}
	}
	return nil
}

func union(cmds []*Command) []Subsystem {
	var reqs []Subsystem
	for _, c := range cmds {
		reqs = append(reqs, c.requirements...)
	}
	return reqs
}

func allRunWhenDisabled(cmds []*Command) bool {
	for _, c := range cmds {
		if !c.runsWhenDisabled {
			return false
		}
	}
	return true
}

func group(name string, cmds []*Command, h hooks) *Command {
	c := newCommand(name, union(cmds), h)
	c.runsWhenDisabled = allRunWhenDisabled(cmds)
	return c
}

// endAll stops every running child, even if one of them fails, so that each
// started child sees exactly one End.
func endAll(cmds []*Command, running []bool, interrupted func(i int) bool) error {
	var errs []error
	for i, c := range cmds {
		if !running[i] {
			continue
		}
		running[i] = false
		errs = append(errs, wrapChild(c, c.End(interrupted(i))))
	}
	return errors.Join(errs...)
}

func sequence(name string, cmds []*Command) *Command {
	cmds = slices.Clone(cmds)
	var (
		current int
		active  bool
	)
	return group(name, cmds, hooks{
		initialize: func() error {
			current, active = 0, true
			return wrapChild(cmds[0], cmds[0].Initialize())
		},
		execute: func() error {
			if !active {
				return nil
			}
			c := cmds[current]
			if err := c.Execute(); err != nil {
				return wrapChild(c, err)
			}
			if !c.IsFinished() {
				return nil
			}
			active = false
			if err := c.End(false); err != nil {
				return wrapChild(c, err)
			}
			current++
			if current == len(cmds) {
				return nil
			}
			active = true
			return wrapChild(cmds[current], cmds[current].Initialize())
		},
		end: func(interrupted bool) error {
			if !active {
				return nil
			}
			active = false
			return wrapChild(cmds[current], cmds[current].End(interrupted))
		},
		isFinished: func() bool {
			return current == len(cmds)
		},
	})
}

func startAll(cmds []*Command, running []bool) error {
	for i, c := range cmds {
		running[i] = true
		if err := c.Initialize(); err != nil {
			return wrapChild(c, err)
		}
	}
	return nil
}

func parallel(name string, cmds []*Command) *Command {
	cmds = slices.Clone(cmds)
	running := make([]bool, len(cmds))
	return group(name, cmds, hooks{
		initialize: func() error {
			clear(running)
			return startAll(cmds, running)
		},
		execute: func() error {
			for i, c := range cmds {
				if !running[i] {
					continue
				}
				if err := c.Execute(); err != nil {
					return wrapChild(c, err)
				}
				if c.IsFinished() {
					running[i] = false
					if err := c.End(false); err != nil {
						return wrapChild(c, err)
					}
				}
			}
			return nil
		},
		end: func(interrupted bool) error {
			return endAll(cmds, running, func(int) bool { return interrupted })
		},
		isFinished: func() bool {
			return !slices.Contains(running, true)
		},
	})
}

func race(name string, cmds []*Command) *Command {
	cmds = slices.Clone(cmds)
	running := make([]bool, len(cmds))
	var finished bool
	return group(name, cmds, hooks{
		initialize: func() error {
			clear(running)
			finished = false
			return startAll(cmds, running)
		},
		execute: func() error {
			for i, c := range cmds {
				if !running[i] {
					continue
				}
				if err := c.Execute(); err != nil {
					return wrapChild(c, err)
				}
			}
			winner := -1
			for i, c := range cmds {
				if running[i] && c.IsFinished() {
					winner = i
					break
				}
			}
			if winner < 0 {
				return nil
			}
			finished = true
			return endAll(cmds, running, func(i int) bool { return i != winner })
		},
		end: func(interrupted bool) error {
			return endAll(cmds, running, func(int) bool { return interrupted })
		},
		isFinished: func() bool {
			return finished
		},
	})
}

// deadline expects the limiter at index 0.
func deadline(name string, cmds []*Command) *Command {
	cmds = slices.Clone(cmds)
	running := make([]bool, len(cmds))
	var finished bool
	return group(name, cmds, hooks{
		initialize: func() error {
			clear(running)
			finished = false
			return startAll(cmds, running)
		},
		execute: func() error {
			for i, c := range cmds {
				if !running[i] || (i == 0 && finished) {
					continue
				}
				if err := c.Execute(); err != nil {
					return wrapChild(c, err)
				}
				if !c.IsFinished() {
					continue
				}
				if i == 0 {
					finished = true
					continue
				}
				running[i] = false
				if err := c.End(false); err != nil {
					return wrapChild(c, err)
				}
			}
			return nil
		},
		end: func(interrupted bool) error {
			return endAll(cmds, running, func(i int) bool { return i != 0 || interrupted })
		},
		isFinished: func() bool {
			return finished
		},
	})
}
