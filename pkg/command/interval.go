package command

import (
	"time"
)

// Every returns a command that runs action at most once per period for as
// long as it is scheduled. The timer starts when the command starts, so the
// first run happens one period later. Each run restarts the timer from the
// tick it ran on. A period of zero or less runs action on every tick.
//
// The command never finishes unless WithUntil is given.
func Every(period time.Duration, action Action, opts ...Option) *Command {
	o := newOptions("Every", opts)
	if action == nil {
		action = noop
	}
	until := o.until
	if until == nil {
		until = never
	}
	var last time.Time
	return newCommand(o.name, o.requirements, hooks{
		initialize: func() error {
			last = o.clock.Now()
			return nil
		},
		execute: func() error {
			now := o.clock.Now()
			if now.Sub(last) < period {
				return nil
			}
			last = now
			return action()
		},
		isFinished: until,
	})
}
