package command

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// selector delegates a whole run to the command pick returns at start.
func selector(name string, reqs []Subsystem, runsWhenDisabled bool, pick func() (*Command, error)) *Command {
	var selected *Command
	c := newCommand(name, reqs, hooks{
		initialize: func() error {
			selected = nil
			next, err := pick()
			if err != nil {
				return err
			}
			selected = next
			return wrapChild(selected, selected.Initialize())
		},
		execute: func() error {
			if selected == nil {
				return nil
			}
			return wrapChild(selected, selected.Execute())
		},
		end: func(interrupted bool) error {
			if selected == nil {
				return nil
			}
			s := selected
			selected = nil
			return wrapChild(s, s.End(interrupted))
		},
		isFinished: func() bool {
			return selected == nil || selected.IsFinished()
		},
	})
	c.runsWhenDisabled = runsWhenDisabled
	return c
}

// Conditional runs onTrue or onFalse depending on cond, evaluated once when
// the command starts. The other command receives no calls.
func Conditional(name string, cond Predicate, onTrue, onFalse *Command) (*Command, error) {
	cmds := []*Command{onTrue, onFalse}
	if err := validate(cmds, false); err != nil {
		return nil, fmt.Errorf("conditional %q: %w", name, err)
	}
	return selector(orDefault(name, "Conditional"), union(cmds), allRunWhenDisabled(cmds), func() (*Command, error) {
		if cond() {
			return onTrue, nil
		}
		return onFalse, nil
	}), nil
}

// RunIf runs cmd only if cond holds when the command starts; otherwise it
// finishes immediately without side effects.
func RunIf(cond Predicate, cmd *Command) (*Command, error) {
	if cmd == nil {
		return nil, fmt.Errorf("run if: %w", ErrNilCommand)
	}
	return Conditional("RunIf "+cmd.Name(), cond, cmd, None())
}

// Select runs the command keyed by the value key returns when the command
// starts. A key missing from commands fails Initialize with
// ErrUnknownSelection before any child is started.
func Select[K comparable](name string, commands map[K]*Command, key func() K) (*Command, error) {
	commands = maps.Clone(commands)
	for k, c := range commands {
		if c == nil {
			return nil, fmt.Errorf("select %q: %w for key %v", name, ErrNilCommand, k)
		}
	}
	// Map iteration order is random; sort by name so requirements stay stable.
	cmds := slices.SortedFunc(maps.Values(commands), func(a, b *Command) int {
		return strings.Compare(a.name, b.name)
	})
	return selector(orDefault(name, "Select"), union(cmds), allRunWhenDisabled(cmds), func() (*Command, error) {
		k := key()
		c, ok := commands[k]
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknownSelection, k)
		}
		return c, nil
	}), nil
}

// SelectFunc runs whatever command factory returns when the command starts,
// so each run may get a fresh command. The result is unknown ahead of time,
// so only reqs are declared.
func SelectFunc(name string, factory func() *Command, reqs ...Subsystem) *Command {
	return selector(orDefault(name, "SelectFunc"), reqs, false, func() (*Command, error) {
		c := factory()
		if c == nil {
			return nil, fmt.Errorf("%w: factory returned nil", ErrUnknownSelection)
		}
		return c, nil
	})
}
